// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package process

import (
	"context"
	"testing"

	"github.com/katzenpost/hpqc/rand"
	"github.com/stretchr/testify/require"

	"github.com/whisker-im/whisker/crypto"
	"github.com/whisker-im/whisker/event"
	"github.com/whisker-im/whisker/message"
)

// seedCreation registers a creation message carrying a fresh shared
// secret and returns the secret.
func seedCreation(t *testing.T, store *fakeMessageStore, id string) []byte {
	secret := make([]byte, crypto.SecretSize)
	_, err := rand.Reader.Read(secret)
	require.NoError(t, err)
	if store.envelopes == nil {
		store.envelopes = make(map[string]*message.Envelope)
	}
	store.envelopes[id] = &message.Envelope{
		Conversation: "creation",
		ContextInfo:  &message.ContextInfo{MessageSecret: secret},
	}
	return secret
}

func TestPollVoteEndToEnd(t *testing.T) {
	require := require.New(t)
	messages := new(fakeMessageStore)
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })
	secret := seedCreation(t, messages, "POLL1")

	creationKey := &message.Key{RemoteJID: "g@g.us", ID: "POLL1", Participant: "333@s.whatsapp.net"}
	voterKey := message.Key{RemoteJID: "g@g.us", ID: "VOTE1", Participant: "222@s.whatsapp.net"}

	vote := &message.PollVoteMessage{SelectedOptions: [][]byte{{0xAA}}}
	enc, err := crypto.EncryptPollVote(vote, &crypto.Context{
		RefID:        "POLL1",
		Creator:      "333@s.whatsapp.net",
		Counterparty: "222@s.whatsapp.net",
		Secret:       secret,
	})
	require.NoError(err)

	p.Process(context.Background(), &message.InboundMessage{
		Key: voterKey,
		Message: &message.Envelope{PollUpdate: &message.PollUpdateMessage{
			PollCreationMessageKey: creationKey,
			Vote:                   enc,
			SenderTimestampMS:      1700000000000,
		}},
		Timestamp: 1700000000,
	}, testCreds())

	updates := sink.byName("messages.update")
	require.Len(updates, 1)
	u := updates[0].(*event.MessagesUpdate).Updates[0]
	require.Equal(*creationKey, u.Key)
	require.Len(u.Update.PollUpdates, 1)
	pu := u.Update.PollUpdates[0]
	require.Equal(voterKey, pu.PollUpdateMessageKey)
	require.Equal(vote.SelectedOptions, pu.Vote.SelectedOptions)
	require.Equal(int64(1700000000000), pu.SenderTimestampMS)
}

func TestPollVoteLookupMiss(t *testing.T) {
	require := require.New(t)
	p, sink := newTestProcessor(t, nil)

	p.Process(context.Background(), &message.InboundMessage{
		Key: message.Key{RemoteJID: "g@g.us", ID: "VOTE2", Participant: "222@s.whatsapp.net"},
		Message: &message.Envelope{PollUpdate: &message.PollUpdateMessage{
			PollCreationMessageKey: &message.Key{RemoteJID: "g@g.us", ID: "GONE"},
			Vote:                   &message.EncPayload{Payload: []byte{1}, IV: []byte{2}},
		}},
	}, testCreds())

	require.Empty(sink.all())
}

func TestPollVoteWrongSecret(t *testing.T) {
	require := require.New(t)
	messages := new(fakeMessageStore)
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })
	seedCreation(t, messages, "POLL3")

	other := make([]byte, crypto.SecretSize)
	enc, err := crypto.EncryptPollVote(&message.PollVoteMessage{}, &crypto.Context{
		RefID:        "POLL3",
		Creator:      "333@s.whatsapp.net",
		Counterparty: "222@s.whatsapp.net",
		Secret:       other,
	})
	require.NoError(err)

	p.Process(context.Background(), &message.InboundMessage{
		Key: message.Key{RemoteJID: "g@g.us", ID: "VOTE3", Participant: "222@s.whatsapp.net"},
		Message: &message.Envelope{PollUpdate: &message.PollUpdateMessage{
			PollCreationMessageKey: &message.Key{RemoteJID: "g@g.us", ID: "POLL3", Participant: "333@s.whatsapp.net"},
			Vote:                   enc,
		}},
	}, testCreds())

	require.Empty(sink.all())
}

func TestEventResponseEndToEnd(t *testing.T) {
	require := require.New(t)
	messages := new(fakeMessageStore)
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })
	secret := seedCreation(t, messages, "EVENT1")

	creationKey := &message.Key{RemoteJID: "g@g.us", ID: "EVENT1", Participant: "333@s.whatsapp.net"}
	resp := &message.EventResponseMessage{Response: "GOING", TimestampMS: 1700000001000}
	enc, err := crypto.EncryptEventResponse(resp, &crypto.Context{
		RefID:        "EVENT1",
		Creator:      "333@s.whatsapp.net",
		Counterparty: "222@s.whatsapp.net",
		Secret:       secret,
	})
	require.NoError(err)

	responderKey := message.Key{RemoteJID: "g@g.us", ID: "RSVP1", Participant: "222@s.whatsapp.net"}
	p.Process(context.Background(), &message.InboundMessage{
		Key: responderKey,
		Message: &message.Envelope{EncEventResponse: &message.EncEventResponseMessage{
			EventCreationMessageKey: creationKey,
			Payload:                 enc,
		}},
	}, testCreds())

	updates := sink.byName("messages.update")
	require.Len(updates, 1)
	u := updates[0].(*event.MessagesUpdate).Updates[0]
	require.Equal(*creationKey, u.Key)
	require.Len(u.Update.EventResponses, 1)
	er := u.Update.EventResponses[0]
	require.Equal(responderKey, er.ResponseMessageKey)
	require.Equal("GOING", er.Response.Response)
	require.Equal(int64(1700000001000), er.TimestampMS)
}

func TestEventEditEndToEnd(t *testing.T) {
	require := require.New(t)
	messages := new(fakeMessageStore)
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })
	secret := seedCreation(t, messages, "EVENT2")

	creationKey := &message.Key{RemoteJID: "g@g.us", ID: "EVENT2", Participant: "333@s.whatsapp.net"}
	edited := &message.Envelope{Conversation: "moved to friday"}
	inner := &message.Envelope{Protocol: &message.ProtocolMessage{
		Type:          message.ProtocolMessageEdit,
		Key:           &message.Key{RemoteJID: "g@g.us", ID: "EVENT2"},
		EditedMessage: edited,
		TimestampMS:   1700000002000,
	}}

	// The edit is keyed to the editor alone.
	enc, err := crypto.EncryptEventEdit(inner, &crypto.Context{
		RefID:        "EVENT2",
		Creator:      "333@s.whatsapp.net",
		Counterparty: "333@s.whatsapp.net",
		Secret:       secret,
	})
	require.NoError(err)

	p.Process(context.Background(), &message.InboundMessage{
		Key: message.Key{RemoteJID: "g@g.us", ID: "EDIT1", Participant: "333@s.whatsapp.net"},
		Message: &message.Envelope{SecretEncrypted: &message.SecretEncryptedMessage{
			TargetMessageKey: creationKey,
			Payload:          enc,
			EncType:          message.SecretEncEventEdit,
		}},
		Timestamp: 1700000000,
	}, testCreds())

	updates := sink.byName("messages.update")
	require.Len(updates, 1)
	u := updates[0].(*event.MessagesUpdate).Updates[0]
	require.Equal("EVENT2", u.Key.ID)
	require.Equal(edited, u.Update.Message.EditedMessage.Message)
	require.Equal(uint64(1700000002), u.Update.Timestamp)
}

func TestEventEditUnknownEncTypeIgnored(t *testing.T) {
	require := require.New(t)
	messages := new(fakeMessageStore)
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })
	seedCreation(t, messages, "EVENT3")

	p.Process(context.Background(), &message.InboundMessage{
		Key: message.Key{RemoteJID: "g@g.us", ID: "EDIT2", Participant: "333@s.whatsapp.net"},
		Message: &message.Envelope{SecretEncrypted: &message.SecretEncryptedMessage{
			TargetMessageKey: &message.Key{RemoteJID: "g@g.us", ID: "EVENT3"},
			Payload:          &message.EncPayload{Payload: []byte{1}, IV: []byte{2}},
			EncType:          message.SecretEncUnknown,
		}},
	}, testCreds())

	require.Empty(sink.all())
}

func TestCommentEndToEnd(t *testing.T) {
	require := require.New(t)
	messages := new(fakeMessageStore)
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })
	secret := seedCreation(t, messages, "POST1")

	creationKey := &message.Key{RemoteJID: "g@g.us", ID: "POST1", Participant: "333@s.whatsapp.net"}
	comment := &message.Envelope{Conversation: "well said"}
	enc, err := crypto.EncryptComment(comment, &crypto.Context{
		RefID:        "POST1",
		Creator:      "333@s.whatsapp.net",
		Counterparty: "222@s.whatsapp.net",
		Secret:       secret,
	})
	require.NoError(err)

	commenterKey := message.Key{RemoteJID: "g@g.us", ID: "CMT1", Participant: "222@s.whatsapp.net"}
	p.Process(context.Background(), &message.InboundMessage{
		Key: commenterKey,
		Message: &message.Envelope{EncComment: &message.EncCommentMessage{
			TargetMessageKey: creationKey,
			Payload:          enc,
		}},
		Timestamp: 1700000003,
	}, testCreds())

	upserts := sink.byName("messages.upsert")
	require.Len(upserts, 1)
	up := upserts[0].(*event.MessagesUpsert)
	require.Equal("append", up.Type)
	require.Len(up.Messages, 1)
	require.Equal(commenterKey, up.Messages[0].Key)
	require.Equal("well said", up.Messages[0].Message.Conversation)
	require.Equal(uint64(1700000003), up.Messages[0].Timestamp)
}

func TestCommentDirectChatFallback(t *testing.T) {
	require := require.New(t)
	messages := new(fakeMessageStore)
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })
	secret := seedCreation(t, messages, "POST2")

	// Direct chat: no participants anywhere, both parties fall back to
	// our linked identity.
	enc, err := crypto.EncryptComment(&message.Envelope{Conversation: "hi"}, &crypto.Context{
		RefID:        "POST2",
		Creator:      testMeLID,
		Counterparty: testMeLID,
		Secret:       secret,
	})
	require.NoError(err)

	p.Process(context.Background(), &message.InboundMessage{
		Key: message.Key{RemoteJID: "222@s.whatsapp.net", ID: "CMT2"},
		Message: &message.Envelope{EncComment: &message.EncCommentMessage{
			TargetMessageKey: &message.Key{RemoteJID: "222@s.whatsapp.net", ID: "POST2"},
			Payload:          enc,
		}},
	}, testCreds())

	require.Len(sink.byName("messages.upsert"), 1)
}

func TestEncReactionEndToEnd(t *testing.T) {
	require := require.New(t)
	messages := new(fakeMessageStore)
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })
	secret := seedCreation(t, messages, "POST3")

	creationKey := &message.Key{RemoteJID: "g@g.us", ID: "POST3", Participant: "333@s.whatsapp.net"}
	enc, err := crypto.EncryptReaction(&message.ReactionMessage{
		Text:              "\U0001F525",
		SenderTimestampMS: 1700000004000,
	}, &crypto.Context{
		RefID:        "POST3",
		Creator:      "333@s.whatsapp.net",
		Counterparty: "222@s.whatsapp.net",
		Secret:       secret,
	})
	require.NoError(err)

	p.Process(context.Background(), &message.InboundMessage{
		Key: message.Key{RemoteJID: "g@g.us", ID: "RX1", Participant: "222@s.whatsapp.net"},
		Message: &message.Envelope{EncReaction: &message.EncReactionMessage{
			TargetMessageKey: creationKey,
			Payload:          enc,
		}},
		Timestamp: 1700000004,
	}, testCreds())

	upserts := sink.byName("messages.upsert")
	require.Len(upserts, 1)
	up := upserts[0].(*event.MessagesUpsert)
	require.Equal("append", up.Type)
	require.Len(up.Messages, 1)
	reaction := up.Messages[0].Message.Reaction
	require.NotNil(reaction)
	require.Equal(creationKey, reaction.Key)
	require.Equal("\U0001F525", reaction.Text)
	require.Equal(int64(1700000004000), reaction.SenderTimestampMS)
}

func TestCreationMessageWithoutSecret(t *testing.T) {
	require := require.New(t)
	messages := &fakeMessageStore{envelopes: map[string]*message.Envelope{
		"POLL4": {Conversation: "no secret here"},
	}}
	p, sink := newTestProcessor(t, func(cfg *Config) { cfg.Messages = messages })

	p.Process(context.Background(), &message.InboundMessage{
		Key: message.Key{RemoteJID: "g@g.us", ID: "VOTE4", Participant: "222@s.whatsapp.net"},
		Message: &message.Envelope{PollUpdate: &message.PollUpdateMessage{
			PollCreationMessageKey: &message.Key{RemoteJID: "g@g.us", ID: "POLL4"},
			Vote:                   &message.EncPayload{Payload: []byte{1}, IV: []byte{2}},
		}},
	}, testCreds())

	require.Empty(sink.all())
}
