// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package crypto implements the second-pass content decryption shared by
// the poll vote, event edit, event response, comment and encrypted
// reaction sub-protocols.  All five derive a one-time AES-256-GCM key
// from the creation message's long term secret, a domain separation
// label and the party identifiers; they differ only in label and
// authenticated data.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/katzenpost/hpqc/rand"

	"github.com/whisker-im/whisker/message"
)

// SecretSize is the size of the long term per-message secret.
const SecretSize = 32

const ivSize = 12

// Domain separation labels, one per sub-protocol.
const (
	LabelPollVote      = "Poll Vote"
	LabelEventEdit     = "Event Edit"
	LabelEventResponse = "Event Response"
	LabelComment       = "Enc Comment"
	LabelReaction      = "Enc Reaction"
)

// Context carries the inputs needed to derive one decryption key.  It is
// constructed per call and never persisted.
type Context struct {
	// RefID is the id of the creation message.
	RefID string

	// Creator is the author of the creation message.
	Creator string

	// Counterparty is the author of the update being decrypted.
	Counterparty string

	// Secret is the creation message's long term secret.
	Secret []byte
}

// Derive computes the one-time symmetric key for a sub-protocol.  It is
// fully deterministic: sender and receiver derive independently from the
// shared secret.
func Derive(c *Context, label string) []byte {
	mac := hmac.New(sha256.New, c.Secret)
	mac.Write(make([]byte, SecretSize))
	k0 := mac.Sum(nil)

	mac = hmac.New(sha256.New, k0)
	mac.Write([]byte(c.RefID))
	mac.Write([]byte(c.Creator))
	mac.Write([]byte(c.Counterparty))
	mac.Write([]byte(label))
	mac.Write([]byte{0x01})
	return mac.Sum(nil)
}

type subProtocol struct {
	label string
	aad   func(c *Context) []byte
}

// counterpartyAAD binds the ciphertext to the creation message and the
// updating party.
func counterpartyAAD(c *Context) []byte {
	return []byte(c.RefID + "\x00" + c.Counterparty)
}

var (
	pollVote      = subProtocol{label: LabelPollVote, aad: counterpartyAAD}
	eventEdit     = subProtocol{label: LabelEventEdit}
	eventResponse = subProtocol{label: LabelEventResponse, aad: counterpartyAAD}
	encComment    = subProtocol{label: LabelComment}
	encReaction   = subProtocol{label: LabelReaction}
)

func (s subProtocol) aead(c *Context) (cipher.AEAD, error) {
	block, err := aes.NewCipher(Derive(c, s.label))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (s subProtocol) open(enc *message.EncPayload, c *Context) ([]byte, error) {
	if enc == nil || len(enc.IV) != ivSize {
		return nil, fmt.Errorf("crypto: %s: malformed payload", s.label)
	}
	aead, err := s.aead(c)
	if err != nil {
		return nil, err
	}
	var aad []byte
	if s.aad != nil {
		aad = s.aad(c)
	}
	plaintext, err := aead.Open(nil, enc.IV, enc.Payload, aad)
	if err != nil {
		return nil, fmt.Errorf("crypto: %s: %v", s.label, err)
	}
	return plaintext, nil
}

func (s subProtocol) seal(plaintext []byte, c *Context) (*message.EncPayload, error) {
	aead, err := s.aead(c)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Reader.Read(iv); err != nil {
		return nil, err
	}
	var aad []byte
	if s.aad != nil {
		aad = s.aad(c)
	}
	return &message.EncPayload{
		Payload: aead.Seal(nil, iv, plaintext, aad),
		IV:      iv,
	}, nil
}

func (s subProtocol) openInto(enc *message.EncPayload, c *Context, out interface{}) error {
	plaintext, err := s.open(enc, c)
	if err != nil {
		return err
	}
	return cbor.Unmarshal(plaintext, out)
}

func (s subProtocol) sealFrom(in interface{}, c *Context) (*message.EncPayload, error) {
	plaintext, err := cbor.Marshal(in)
	if err != nil {
		return nil, err
	}
	return s.seal(plaintext, c)
}

// DecryptPollVote decrypts an encrypted poll vote.  The counterparty is
// the voter.
func DecryptPollVote(enc *message.EncPayload, c *Context) (*message.PollVoteMessage, error) {
	vote := new(message.PollVoteMessage)
	if err := pollVote.openInto(enc, c, vote); err != nil {
		return nil, err
	}
	return vote, nil
}

// EncryptPollVote is the sealing counterpart of DecryptPollVote.
func EncryptPollVote(vote *message.PollVoteMessage, c *Context) (*message.EncPayload, error) {
	return pollVote.sealFrom(vote, c)
}

// DecryptEventEdit decrypts an encrypted event edit into the full message
// envelope it carries.
func DecryptEventEdit(enc *message.EncPayload, c *Context) (*message.Envelope, error) {
	env := new(message.Envelope)
	if err := eventEdit.openInto(enc, c, env); err != nil {
		return nil, err
	}
	return env, nil
}

// EncryptEventEdit is the sealing counterpart of DecryptEventEdit.
func EncryptEventEdit(env *message.Envelope, c *Context) (*message.EncPayload, error) {
	return eventEdit.sealFrom(env, c)
}

// DecryptEventResponse decrypts an encrypted event RSVP.  The
// counterparty is the responder.
func DecryptEventResponse(enc *message.EncPayload, c *Context) (*message.EventResponseMessage, error) {
	resp := new(message.EventResponseMessage)
	if err := eventResponse.openInto(enc, c, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// EncryptEventResponse is the sealing counterpart of DecryptEventResponse.
func EncryptEventResponse(resp *message.EventResponseMessage, c *Context) (*message.EncPayload, error) {
	return eventResponse.sealFrom(resp, c)
}

// DecryptComment decrypts an encrypted comment into the full message
// envelope it carries.
func DecryptComment(enc *message.EncPayload, c *Context) (*message.Envelope, error) {
	env := new(message.Envelope)
	if err := encComment.openInto(enc, c, env); err != nil {
		return nil, err
	}
	return env, nil
}

// EncryptComment is the sealing counterpart of DecryptComment.
func EncryptComment(env *message.Envelope, c *Context) (*message.EncPayload, error) {
	return encComment.sealFrom(env, c)
}

// DecryptReaction decrypts an encrypted reaction.
func DecryptReaction(enc *message.EncPayload, c *Context) (*message.ReactionMessage, error) {
	r := new(message.ReactionMessage)
	if err := encReaction.openInto(enc, c, r); err != nil {
		return nil, err
	}
	return r, nil
}

// EncryptReaction is the sealing counterpart of DecryptReaction.
func EncryptReaction(r *message.ReactionMessage, c *Context) (*message.EncPayload, error) {
	return encReaction.sealFrom(r, c)
}
