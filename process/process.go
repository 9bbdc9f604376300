// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package process implements the inbound message interpretation engine:
// it classifies a decoded message, derives chat level side effects,
// performs the second content-scoped decryption pass for dependent
// updates and emits the resulting records to the event sink.
package process

import (
	"context"
	"errors"
	"time"

	"gopkg.in/op/go-logging.v1"

	"github.com/whisker-im/whisker/core/log"
	"github.com/whisker-im/whisker/core/worker"
	"github.com/whisker-im/whisker/event"
	"github.com/whisker-im/whisker/internal/instrument"
	"github.com/whisker-im/whisker/jid"
	"github.com/whisker-im/whisker/message"
	"github.com/whisker-im/whisker/store"
)

// DefaultResendDelay spaces a re-emitted placeholder resend away from the
// response message that carried it, so consumers never observe it ahead
// of the response.  A scheduling concern, not a contract.
const DefaultResendDelay = 500 * time.Millisecond

var (
	errNoSink         = errors.New("process: no event sink")
	errNoMessageStore = errors.New("process: no message store")
)

// Credentials is the engine's read-only view of the local identity.
type Credentials struct {
	// MeID is the phone number based identity.
	MeID string

	// MeLID is the long term linked identity.
	MeLID string

	// UnarchiveChats mirrors the account setting of the same name.
	UnarchiveChats bool

	// ProcessedHistoryMessages are the history sync notifications
	// already handled on behalf of this identity.
	ProcessedHistoryMessages []event.ProcessedHistoryMessage
}

// Config configures a Processor.
type Config struct {
	// LogBackend is the logging backend to create the engine logger
	// from; nil disables logging.
	LogBackend *log.Backend

	// Sink receives all emitted events.  Required.
	Sink event.Sink

	// Messages looks up creation messages for dependent updates.
	// Required.
	Messages store.MessageStore

	// Keys persists shared app-state sync keys; nil disables the key
	// share branch.
	Keys store.KeyStore

	// LIDs persists identity mappings; nil disables the migration sync
	// branch.
	LIDs store.LIDStore

	// ResendCache tracks pending placeholder resends; may be nil.
	ResendCache store.ResendCache

	// History fetches and transforms history blobs; nil disables
	// history processing.
	History store.HistoryFetcher

	// ProcessHistory enables handling of history sync notifications.
	ProcessHistory bool

	// ResendDelay overrides DefaultResendDelay when positive.
	ResendDelay time.Duration
}

// Processor interprets inbound messages.  It holds no shared mutable
// state and is safe to invoke concurrently for distinct messages.
type Processor struct {
	worker.Worker

	log *logging.Logger

	sink        event.Sink
	messages    store.MessageStore
	keys        store.KeyStore
	lids        store.LIDStore
	resendCache store.ResendCache
	history     store.HistoryFetcher

	processHistory bool
	resendDelay    time.Duration
}

// New creates a Processor from the configuration.
func New(cfg *Config) (*Processor, error) {
	if cfg.Sink == nil {
		return nil, errNoSink
	}
	if cfg.Messages == nil {
		return nil, errNoMessageStore
	}

	p := &Processor{
		sink:           cfg.Sink,
		messages:       cfg.Messages,
		keys:           cfg.Keys,
		lids:           cfg.LIDs,
		resendCache:    cfg.ResendCache,
		history:        cfg.History,
		processHistory: cfg.ProcessHistory,
		resendDelay:    cfg.ResendDelay,
	}
	if p.resendDelay <= 0 {
		p.resendDelay = DefaultResendDelay
	}
	if cfg.LogBackend != nil {
		p.log = cfg.LogBackend.GetLogger("process")
	} else {
		backend, err := log.New("", "NOTICE", true)
		if err != nil {
			return nil, err
		}
		p.log = backend.GetLogger("process")
	}
	return p, nil
}

func (p *Processor) publish(e event.Event) {
	instrument.EventEmitted(e.Name())
	p.sink.Publish(e)
}

// realStubTypes are stub codes that surface as user-visible messages.
var realStubTypes = map[message.StubType]bool{
	message.StubCallMissedVoice:      true,
	message.StubCallMissedVideo:      true,
	message.StubCallMissedGroupVoice: true,
	message.StubCallMissedGroupVideo: true,
}

// realIfMeStubTypes are stub codes that surface only when they name the
// local identity.
var realIfMeStubTypes = map[message.StubType]bool{
	message.StubGroupParticipantAdd: true,
}

// Clean normalizes a received message in place: chat id and participant
// are rewritten to canonical form and, for reactions and poll updates,
// the referenced key is re-mapped into the recipient's own perspective
// (the sender encodes it from theirs).
func Clean(m *message.InboundMessage, meID string) {
	m.Key.RemoteJID = jid.NormalizeUser(m.Key.RemoteJID)
	if m.Key.Participant != "" {
		m.Key.Participant = jid.NormalizeUser(m.Key.Participant)
	}
	content := m.Message.Normalize()
	if content == nil {
		return
	}
	if content.Reaction != nil {
		normalizeRefKey(m, content.Reaction.Key, meID)
	}
	if content.PollUpdate != nil {
		normalizeRefKey(m, content.PollUpdate.PollCreationMessageKey, meID)
	}
}

func normalizeRefKey(m *message.InboundMessage, key *message.Key, meID string) {
	if key == nil || m.Key.FromMe {
		return
	}
	if !key.FromMe {
		// The sender believed the referenced message was not theirs;
		// from our perspective it is ours iff its author is us.
		ref := key.Participant
		if ref == "" {
			ref = key.RemoteJID
		}
		key.FromMe = jid.SameUser(ref, meID)
	} else {
		key.FromMe = false
	}
	key.RemoteJID = m.Key.RemoteJID
	if key.Participant == "" {
		key.Participant = m.Key.Participant
	}
}

// IsRealMessage reports whether a message surfaces in the chat view.
// Protocol, reaction and poll update sub-messages are side channel, never
// user visible.
func IsRealMessage(m *message.InboundMessage, meID string) bool {
	content := m.Message.Normalize()
	switch content.Variant().(type) {
	case nil:
		if realStubTypes[m.StubType] {
			return true
		}
		if realIfMeStubTypes[m.StubType] {
			for _, param := range m.StubParameters {
				if jid.SameUser(meID, param) {
					return true
				}
			}
		}
		return false
	case *message.ProtocolMessage, *message.ReactionMessage, *message.PollUpdateMessage:
		return false
	default:
		return true
	}
}

// ShouldIncrementUnread reports whether a message bumps the chat's unread
// count.
func ShouldIncrementUnread(m *message.InboundMessage) bool {
	return !m.Key.FromMe && m.StubType == message.StubNone
}

// ChatID resolves the chat a key belongs to.  Typically the remote jid,
// but for broadcasts other than the status broadcast the participant owns
// the chat, unless we sent the message ourselves.
func ChatID(k *message.Key) string {
	if jid.IsBroadcast(k.RemoteJID) && !jid.IsStatusBroadcast(k.RemoteJID) && !k.FromMe {
		return k.Participant
	}
	return k.RemoteJID
}

// Process interprets one inbound message.  Failures never propagate:
// each surfaces only as an omitted update plus a diagnostic log record.
func (p *Processor) Process(ctx context.Context, m *message.InboundMessage, creds *Credentials) {
	chat := &event.ChatPatch{ID: jid.NormalizeUser(ChatID(&m.Key))}
	isReal := IsRealMessage(m, creds.MeID)
	if isReal {
		chat.Messages = []*message.InboundMessage{m}
		chat.ConversationTimestamp = m.Timestamp
		if ShouldIncrementUnread(m) {
			chat.UnreadCountDelta++
		}
	}

	content := m.Message.Normalize()
	reactionToUs := content != nil && content.Reaction != nil &&
		content.Reaction.Key != nil && content.Reaction.Key.FromMe
	if isReal || (reactionToUs && creds.UnarchiveChats) {
		f := false
		chat.Archived = &f
		chat.ReadOnly = &f
	}

	switch c := content.Variant().(type) {
	case *message.ProtocolMessage:
		instrument.MessagesProcessed("protocol")
		p.processProtocol(ctx, m, c, chat, creds)
	case *message.ReactionMessage:
		instrument.MessagesProcessed("reaction")
		p.processReaction(m, c)
	case *message.PollUpdateMessage:
		instrument.MessagesProcessed("poll-update")
		p.processPollUpdate(ctx, m, c, creds)
	case *message.SecretEncryptedMessage:
		instrument.MessagesProcessed("event-edit")
		p.processEventEdit(ctx, m, c, creds)
	case *message.EncEventResponseMessage:
		instrument.MessagesProcessed("event-response")
		p.processEventResponse(ctx, m, c, creds)
	case *message.EncCommentMessage:
		instrument.MessagesProcessed("comment")
		p.processComment(ctx, m, c, creds)
	case *message.EncReactionMessage:
		instrument.MessagesProcessed("enc-reaction")
		p.processEncReaction(ctx, m, c, creds)
	case *message.UserContent:
		instrument.MessagesProcessed("content")
	case nil:
		if m.StubType != message.StubNone {
			instrument.MessagesProcessed("stub")
			p.processStub(m, chat, creds)
		}
	}

	if !chat.IsEmpty() {
		p.publish(&event.ChatsUpdate{Chats: []*event.ChatPatch{chat}})
	}
}

func (p *Processor) processReaction(m *message.InboundMessage, r *message.ReactionMessage) {
	refKey := r.Key
	reaction := *r
	reaction.Key = m.Key.Clone()
	p.publish(&event.MessagesReaction{Reactions: []event.Reaction{{
		Key:      refKey,
		Reaction: &reaction,
	}}})
}
