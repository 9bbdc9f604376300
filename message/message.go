// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package message defines the decoded wire data model consumed by the
// inbound processing engine: message keys, the content envelope and its
// sub-message variants, and the CBOR codec for nested payloads.
package message

import "github.com/fxamacker/cbor/v2"

// InboundMessage is one decoded message as handed over by the transport
// layer after session-level decryption.  It is supplied once and not
// retained past processing.
type InboundMessage struct {
	Key Key `cbor:"key"`

	// Message is the content envelope, nil for stub messages.
	Message *Envelope `cbor:"message,omitempty"`

	// Timestamp is seconds since the epoch.
	Timestamp uint64 `cbor:"timestamp"`

	StubType       StubType `cbor:"stub_type,omitempty"`
	StubParameters []string `cbor:"stub_parameters,omitempty"`
}

// PollVoteMessage is the decrypted payload of a poll vote: the SHA256
// hashes of the selected options.
type PollVoteMessage struct {
	SelectedOptions [][]byte `cbor:"selected_options"`
}

// EventResponseMessage is the decrypted payload of an event RSVP.
type EventResponseMessage struct {
	Response    string `cbor:"response"`
	TimestampMS int64  `cbor:"timestamp_ms"`
}

// EncodeEnvelope encodes a content envelope to CBOR.
func EncodeEnvelope(e *Envelope) ([]byte, error) {
	return cbor.Marshal(e)
}

// DecodeEnvelope decodes a CBOR encoded content envelope.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	e := new(Envelope)
	if err := cbor.Unmarshal(b, e); err != nil {
		return nil, err
	}
	return e, nil
}

// EncodeInbound encodes a full message to CBOR, the form carried by
// placeholder resend responses.
func EncodeInbound(m *InboundMessage) ([]byte, error) {
	return cbor.Marshal(m)
}

// DecodeInbound decodes a CBOR encoded full message, as carried by
// placeholder resend responses.
func DecodeInbound(b []byte) (*InboundMessage, error) {
	m := new(InboundMessage)
	if err := cbor.Unmarshal(b, m); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeLIDMigrationPayload encodes a mapping payload to CBOR.
func EncodeLIDMigrationPayload(p *LIDMigrationMappingPayload) ([]byte, error) {
	return cbor.Marshal(p)
}

// DecodeLIDMigrationPayload decodes the encoded mapping payload of a LID
// migration sync sub-message.
func DecodeLIDMigrationPayload(b []byte) (*LIDMigrationMappingPayload, error) {
	p := new(LIDMigrationMappingPayload)
	if err := cbor.Unmarshal(b, p); err != nil {
		return nil, err
	}
	return p, nil
}
