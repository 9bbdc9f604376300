// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package process

import (
	"context"

	"github.com/whisker-im/whisker/crypto"
	"github.com/whisker-im/whisker/event"
	"github.com/whisker-im/whisker/internal/instrument"
	"github.com/whisker-im/whisker/jid"
	"github.com/whisker-im/whisker/message"
)

// creationSecret fetches the creation message referenced by key and
// extracts its long term secret.  Both a lookup miss and a missing
// secret short-circuit the caller's branch; neither is fatal.
func (p *Processor) creationSecret(ctx context.Context, key *message.Key, what string) ([]byte, bool) {
	if key == nil {
		p.log.Warningf("%s: missing creation message key", what)
		return nil, false
	}
	env, err := p.messages.Lookup(ctx, key)
	if err != nil {
		p.log.Warningf("%s: creation message lookup for %s failed: %v", what, key.ID, err)
		return nil, false
	}
	if env == nil {
		instrument.LookupMiss()
		p.log.Warningf("%s: creation message %s not found, cannot decrypt", what, key.ID)
		return nil, false
	}
	if env.ContextInfo == nil || len(env.ContextInfo.MessageSecret) == 0 {
		p.log.Warningf("%s: missing message secret for %s", what, key.ID)
		return nil, false
	}
	return env.ContextInfo.MessageSecret, true
}

// participantOrFallback resolves the comment/reaction party identifiers,
// which prefer the explicit participants and fall back to our own linked
// identity for direct chats.
func participantOrFallback(first, second, fallback string) string {
	if first != "" {
		return first
	}
	if second != "" {
		return second
	}
	return fallback
}

func (p *Processor) processPollUpdate(ctx context.Context, m *message.InboundMessage, pu *message.PollUpdateMessage, creds *Credentials) {
	creationKey := pu.PollCreationMessageKey
	secret, ok := p.creationSecret(ctx, creationKey, "poll update")
	if !ok {
		return
	}

	meLID := jid.NormalizeUser(creds.MeLID)
	vote, err := crypto.DecryptPollVote(pu.Vote, &crypto.Context{
		RefID:        creationKey.ID,
		Creator:      creationKey.Author(meLID),
		Counterparty: m.Key.Author(meLID),
		Secret:       secret,
	})
	if err != nil {
		instrument.DecryptFailure("poll-vote")
		p.log.Warningf("failed to decrypt poll vote for %s: %v", creationKey.ID, err)
		return
	}

	p.publish(&event.MessagesUpdate{Updates: []event.MessageUpdate{{
		Key: *creationKey,
		Update: event.MessagePatch{
			PollUpdates: []*event.PollUpdate{{
				PollUpdateMessageKey: m.Key,
				Vote:                 vote,
				SenderTimestampMS:    pu.SenderTimestampMS,
			}},
		},
	}}})
}

func (p *Processor) processEventEdit(ctx context.Context, m *message.InboundMessage, se *message.SecretEncryptedMessage, creds *Credentials) {
	if se.EncType != message.SecretEncEventEdit {
		return
	}
	creationKey := se.TargetMessageKey
	secret, ok := p.creationSecret(ctx, creationKey, "event edit")
	if !ok {
		return
	}

	// The edit is authored by the sender of the outer message; the
	// derivation binds it as both creator and responder.
	meLID := jid.NormalizeUser(creds.MeLID)
	author := m.Key.Author(meLID)
	edit, err := crypto.DecryptEventEdit(se.Payload, &crypto.Context{
		RefID:        creationKey.ID,
		Creator:      author,
		Counterparty: author,
		Secret:       secret,
	})
	if err != nil {
		instrument.DecryptFailure("event-edit")
		p.log.Warningf("failed to decrypt event edit for %s: %v", creationKey.ID, err)
		return
	}

	inner := edit.Normalize()
	if inner == nil || inner.Protocol == nil {
		instrument.DecryptFailure("event-edit")
		p.log.Warningf("event edit for %s decrypted to no edit sub-message", creationKey.ID)
		return
	}
	pm := inner.Protocol

	key := m.Key
	if pm.Key != nil {
		key.ID = pm.Key.ID
	}
	ts := m.Timestamp
	if pm.TimestampMS != 0 {
		ts = uint64(pm.TimestampMS / 1000)
	}
	p.publish(&event.MessagesUpdate{Updates: []event.MessageUpdate{{
		Key: key,
		Update: event.MessagePatch{
			Message: &message.Envelope{
				ContextInfo:   edit.ContextInfo,
				EditedMessage: &message.FutureProof{Message: pm.EditedMessage},
			},
			Timestamp: ts,
		},
	}}})
}

func (p *Processor) processEventResponse(ctx context.Context, m *message.InboundMessage, er *message.EncEventResponseMessage, creds *Credentials) {
	creationKey := er.EventCreationMessageKey
	secret, ok := p.creationSecret(ctx, creationKey, "event response")
	if !ok {
		return
	}

	meLID := jid.NormalizeUser(creds.MeLID)
	resp, err := crypto.DecryptEventResponse(er.Payload, &crypto.Context{
		RefID:        creationKey.ID,
		Creator:      creationKey.Author(meLID),
		Counterparty: m.Key.Author(meLID),
		Secret:       secret,
	})
	if err != nil {
		instrument.DecryptFailure("event-response")
		p.log.Warningf("failed to decrypt event response for %s: %v", creationKey.ID, err)
		return
	}

	p.publish(&event.MessagesUpdate{Updates: []event.MessageUpdate{{
		Key: *creationKey,
		Update: event.MessagePatch{
			EventResponses: []*event.EventResponse{{
				ResponseMessageKey: m.Key,
				TimestampMS:        resp.TimestampMS,
				Response:           resp,
			}},
		},
	}}})
}

func (p *Processor) processComment(ctx context.Context, m *message.InboundMessage, ec *message.EncCommentMessage, creds *Credentials) {
	creationKey := ec.TargetMessageKey
	secret, ok := p.creationSecret(ctx, creationKey, "comment")
	if !ok {
		return
	}

	meLID := jid.NormalizeUser(creds.MeLID)
	comment, err := crypto.DecryptComment(ec.Payload, &crypto.Context{
		RefID:        creationKey.ID,
		Creator:      participantOrFallback(creationKey.Participant, m.Key.Participant, meLID),
		Counterparty: participantOrFallback(m.Key.Participant, creationKey.Participant, meLID),
		Secret:       secret,
	})
	if err != nil {
		instrument.DecryptFailure("comment")
		p.log.Warningf("failed to decrypt comment for %s: %v", creationKey.ID, err)
		return
	}

	p.publish(&event.MessagesUpsert{
		Messages: []*message.InboundMessage{{
			Key:       m.Key,
			Message:   comment,
			Timestamp: m.Timestamp,
		}},
		Type: "append",
	})
}

func (p *Processor) processEncReaction(ctx context.Context, m *message.InboundMessage, er *message.EncReactionMessage, creds *Credentials) {
	creationKey := er.TargetMessageKey
	secret, ok := p.creationSecret(ctx, creationKey, "reaction")
	if !ok {
		return
	}

	meLID := jid.NormalizeUser(creds.MeLID)
	reaction, err := crypto.DecryptReaction(er.Payload, &crypto.Context{
		RefID:        creationKey.ID,
		Creator:      participantOrFallback(creationKey.Participant, m.Key.Participant, meLID),
		Counterparty: participantOrFallback(m.Key.Participant, creationKey.Participant, meLID),
		Secret:       secret,
	})
	if err != nil {
		instrument.DecryptFailure("enc-reaction")
		p.log.Warningf("failed to decrypt reaction for %s: %v", creationKey.ID, err)
		return
	}

	p.publish(&event.MessagesUpsert{
		Messages: []*message.InboundMessage{{
			Key: m.Key,
			Message: &message.Envelope{
				Reaction: &message.ReactionMessage{
					Key:               creationKey,
					Text:              reaction.Text,
					SenderTimestampMS: reaction.SenderTimestampMS,
				},
			},
			Timestamp: m.Timestamp,
		}},
		Type: "append",
	})
}
