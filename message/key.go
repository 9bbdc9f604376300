// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package message

import "github.com/whisker-im/whisker/jid"

// Key identifies a single message within a chat.
type Key struct {
	// RemoteJID is the chat the message belongs to.
	RemoteJID string `cbor:"remote_jid"`

	// FromMe is true when the local identity authored the message.
	FromMe bool `cbor:"from_me"`

	// ID is the message id, unique per chat and author.
	ID string `cbor:"id"`

	// Participant is the author within a multi-party chat, empty in
	// direct chats.
	Participant string `cbor:"participant,omitempty"`
}

// Author returns the identifier of the message author: the local identity
// for self-sent messages, otherwise the participant, falling back to the
// chat id for direct chats.
func (k *Key) Author(meID string) string {
	if k == nil {
		return ""
	}
	if k.FromMe {
		return jid.NormalizeUser(meID)
	}
	if k.Participant != "" {
		return jid.NormalizeUser(k.Participant)
	}
	return jid.NormalizeUser(k.RemoteJID)
}

// Clone returns a copy of the key.
func (k *Key) Clone() *Key {
	if k == nil {
		return nil
	}
	c := *k
	return &c
}
