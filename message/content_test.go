// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUnwrapsWrappers(t *testing.T) {
	assert := assert.New(t)

	inner := &Envelope{Conversation: "hi"}
	wrapped := &Envelope{
		Ephemeral: &FutureProof{Message: &Envelope{
			ViewOnce: &FutureProof{Message: inner},
		}},
	}
	assert.Equal(inner, wrapped.Normalize())

	var nilEnv *Envelope
	assert.Nil(nilEnv.Normalize())

	// Wrapper chains deeper than the cap are not chased further.
	deep := inner
	for i := 0; i < 5; i++ {
		deep = &Envelope{Ephemeral: &FutureProof{Message: deep}}
	}
	assert.NotEqual(inner, deep.Normalize())
}

func TestVariant(t *testing.T) {
	assert := assert.New(t)

	assert.Nil((&Envelope{}).Variant())
	var nilEnv *Envelope
	assert.Nil(nilEnv.Variant())

	if _, ok := (&Envelope{Conversation: "hello"}).Variant().(*UserContent); !ok {
		t.Fatalf("expected UserContent variant")
	}
	if _, ok := (&Envelope{Protocol: &ProtocolMessage{}}).Variant().(*ProtocolMessage); !ok {
		t.Fatalf("expected ProtocolMessage variant")
	}
	if _, ok := (&Envelope{Reaction: &ReactionMessage{}}).Variant().(*ReactionMessage); !ok {
		t.Fatalf("expected ReactionMessage variant")
	}
	if _, ok := (&Envelope{PollUpdate: &PollUpdateMessage{}}).Variant().(*PollUpdateMessage); !ok {
		t.Fatalf("expected PollUpdateMessage variant")
	}
}

func TestKeyAuthor(t *testing.T) {
	assert := assert.New(t)

	me := "111@s.whatsapp.net"
	key := &Key{RemoteJID: "group@g.us", Participant: "222:3@s.whatsapp.net", ID: "A"}
	assert.Equal("222@s.whatsapp.net", key.Author(me))

	key.FromMe = true
	assert.Equal(me, key.Author(me))

	direct := &Key{RemoteJID: "333@s.whatsapp.net", ID: "B"}
	assert.Equal("333@s.whatsapp.net", direct.Author(me))
}

func TestInboundRoundTrip(t *testing.T) {
	require := require.New(t)

	m := &InboundMessage{
		Key:       Key{RemoteJID: "g@g.us", ID: "X", Participant: "1@s.whatsapp.net"},
		Message:   &Envelope{Conversation: "resend me"},
		Timestamp: 1700000000,
	}
	blob, err := EncodeInbound(m)
	require.NoError(err)

	decoded, err := DecodeInbound(blob)
	require.NoError(err)
	require.Equal(m.Key, decoded.Key)
	require.Equal(m.Message.Conversation, decoded.Message.Conversation)
	require.Equal(m.Timestamp, decoded.Timestamp)
}
