// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package message

// Envelope is the decoded body of a message.  Exactly one content field is
// meaningful per message; the mutual exclusivity is surfaced through
// Variant so that dispatch can be an exhaustive type switch instead of a
// chain of nil checks.
type Envelope struct {
	// Conversation is a plain text body.
	Conversation string `cbor:"conversation,omitempty"`

	// Wrapper envelopes.  These carry an inner envelope and exist only
	// for transport-level concerns; Normalize unwraps them.
	Ephemeral           *FutureProof `cbor:"ephemeral_message,omitempty"`
	ViewOnce            *FutureProof `cbor:"view_once_message,omitempty"`
	DocumentWithCaption *FutureProof `cbor:"document_with_caption_message,omitempty"`

	// EditedMessage wraps replacement content inside messages.update
	// payloads produced for message edits.
	EditedMessage *FutureProof `cbor:"edited_message,omitempty"`

	// ContextInfo carries per-message context metadata, notably the
	// shared secret that keys second-pass decryption of dependent
	// updates.
	ContextInfo *ContextInfo `cbor:"message_context_info,omitempty"`

	Protocol         *ProtocolMessage         `cbor:"protocol_message,omitempty"`
	Reaction         *ReactionMessage         `cbor:"reaction_message,omitempty"`
	PollUpdate       *PollUpdateMessage       `cbor:"poll_update_message,omitempty"`
	SecretEncrypted  *SecretEncryptedMessage  `cbor:"secret_encrypted_message,omitempty"`
	EncEventResponse *EncEventResponseMessage `cbor:"enc_event_response_message,omitempty"`
	EncComment       *EncCommentMessage       `cbor:"enc_comment_message,omitempty"`
	EncReaction      *EncReactionMessage      `cbor:"enc_reaction_message,omitempty"`
}

// FutureProof wraps an inner envelope.
type FutureProof struct {
	Message *Envelope `cbor:"message,omitempty"`
}

// ContextInfo is per-message context metadata.
type ContextInfo struct {
	// MessageSecret is the 32 byte long term secret shared by the
	// author of a poll, event or commentable message, from which
	// per-update decryption keys are derived.
	MessageSecret []byte `cbor:"message_secret,omitempty"`
}

// EncPayload is a ciphertext plus the IV it was sealed with.
type EncPayload struct {
	Payload []byte `cbor:"enc_payload"`
	IV      []byte `cbor:"enc_iv"`
}

// ReactionMessage is a plaintext reaction to a referenced message.
type ReactionMessage struct {
	Key               *Key   `cbor:"key"`
	Text              string `cbor:"text"`
	SenderTimestampMS int64  `cbor:"sender_timestamp_ms"`
}

// PollUpdateMessage carries an encrypted vote on a referenced poll.
type PollUpdateMessage struct {
	PollCreationMessageKey *Key        `cbor:"poll_creation_message_key"`
	Vote                   *EncPayload `cbor:"vote"`
	SenderTimestampMS      int64       `cbor:"sender_timestamp_ms"`
}

// SecretEncType tags the inner content of a SecretEncryptedMessage.
type SecretEncType int

const (
	SecretEncUnknown SecretEncType = iota
	SecretEncEventEdit
)

// SecretEncryptedMessage carries an encrypted edit of a referenced event.
type SecretEncryptedMessage struct {
	TargetMessageKey *Key          `cbor:"target_message_key"`
	Payload          *EncPayload   `cbor:"payload"`
	EncType          SecretEncType `cbor:"enc_type"`
}

// EncEventResponseMessage carries an encrypted RSVP to a referenced event.
type EncEventResponseMessage struct {
	EventCreationMessageKey *Key        `cbor:"event_creation_message_key"`
	Payload                 *EncPayload `cbor:"payload"`
}

// EncCommentMessage carries an encrypted comment on a referenced message.
type EncCommentMessage struct {
	TargetMessageKey *Key        `cbor:"target_message_key"`
	Payload          *EncPayload `cbor:"payload"`
}

// EncReactionMessage carries an encrypted reaction to a referenced message.
type EncReactionMessage struct {
	TargetMessageKey *Key        `cbor:"target_message_key"`
	Payload          *EncPayload `cbor:"payload"`
}

// Content is the tagged union of the envelope content shapes.
type Content interface {
	isContent()
}

// UserContent marks ordinary user-visible content.
type UserContent struct {
	Text string
}

func (*UserContent) isContent()             {}
func (*ProtocolMessage) isContent()         {}
func (*ReactionMessage) isContent()         {}
func (*PollUpdateMessage) isContent()       {}
func (*SecretEncryptedMessage) isContent()  {}
func (*EncEventResponseMessage) isContent() {}
func (*EncCommentMessage) isContent()       {}
func (*EncReactionMessage) isContent()      {}

const maxWrapperDepth = 3

// Normalize strips transport wrapper envelopes and returns the innermost
// content envelope, or nil for an empty message.
func (e *Envelope) Normalize() *Envelope {
	for i := 0; e != nil && i < maxWrapperDepth; i++ {
		switch {
		case e.Ephemeral != nil:
			e = e.Ephemeral.Message
		case e.ViewOnce != nil:
			e = e.ViewOnce.Message
		case e.DocumentWithCaption != nil:
			e = e.DocumentWithCaption.Message
		default:
			return e
		}
	}
	return e
}

// Variant returns the content variant of an already normalized envelope,
// or nil when the envelope carries nothing.
func (e *Envelope) Variant() Content {
	switch {
	case e == nil:
		return nil
	case e.Protocol != nil:
		return e.Protocol
	case e.Reaction != nil:
		return e.Reaction
	case e.PollUpdate != nil:
		return e.PollUpdate
	case e.SecretEncrypted != nil:
		return e.SecretEncrypted
	case e.EncEventResponse != nil:
		return e.EncEventResponse
	case e.EncComment != nil:
		return e.EncComment
	case e.EncReaction != nil:
		return e.EncReaction
	case e.Conversation != "" || e.EditedMessage != nil:
		return &UserContent{Text: e.Conversation}
	default:
		return nil
	}
}
