// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package store defines the collaborator contracts the inbound processing
// engine reads and writes through.  Durable state lives behind these
// interfaces; the engine itself holds none.
package store

import (
	"context"

	"github.com/whisker-im/whisker/event"
	"github.com/whisker-im/whisker/message"
)

// MessageStore looks up previously delivered messages.
type MessageStore interface {
	// Lookup returns the content envelope of the message identified by
	// key.  A nil envelope with a nil error means the message is
	// unknown.
	Lookup(ctx context.Context, key *message.Key) (*message.Envelope, error)
}

// KeyBatch is the write surface of one key store transaction.
type KeyBatch interface {
	SetAppStateKey(id string, data []byte) error
}

// KeyStore persists app-state sync keys.
type KeyStore interface {
	// Transaction runs fn atomically relative to other writers sharing
	// the same scope; writers with distinct scopes may proceed
	// independently.
	Transaction(ctx context.Context, scope string, fn func(KeyBatch) error) error
}

// LIDMapping pairs a phone number identity with its linked identifier.
type LIDMapping struct {
	PN  string
	LID string
}

// LIDStore persists phone-number to linked-identifier mappings.
type LIDStore interface {
	StoreMappings(ctx context.Context, pairs []LIDMapping) error
}

// ResendCache tracks pending placeholder resend requests by request id.
type ResendCache interface {
	Delete(ctx context.Context, requestID string) error
}

// HistoryFetcher downloads and transforms a history blob referenced by a
// history sync notification.
type HistoryFetcher interface {
	Fetch(ctx context.Context, n *message.HistorySyncNotification) (*event.HistoryPayload, error)
}
