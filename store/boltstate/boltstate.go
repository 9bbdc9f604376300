// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package boltstate implements the durable engine collaborators with a
// simple boltdb based backend: app-state sync keys, phone-number to
// linked-identifier mappings, pending placeholder resends and processed
// history markers.
package boltstate

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/whisker-im/whisker/event"
	"github.com/whisker-im/whisker/store"
)

const (
	metadataBucket = "metadata"
	versionKey     = "version"

	appStateKeysBucket     = "app-state-sync-keys"
	lidMappingsBucket      = "lid-mappings"
	pendingResendsBucket   = "pending-resends"
	processedHistoryBucket = "processed-history"
)

// State is a boltdb backed implementation of store.KeyStore,
// store.LIDStore and store.ResendCache, plus processed history marker
// persistence for the credentials owner.
type State struct {
	db *bolt.DB
}

type keyBatch struct {
	bkt *bolt.Bucket
}

func (b *keyBatch) SetAppStateKey(id string, data []byte) error {
	return b.bkt.Put([]byte(id), data)
}

// Transaction implements store.KeyStore.  Boltdb serializes all writers,
// which subsumes the per-scope atomicity requirement; keys are stored in
// a per-scope sub-bucket.
func (s *State) Transaction(ctx context.Context, scope string, fn func(store.KeyBatch) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(appStateKeysBucket))
		scoped, err := bkt.CreateBucketIfNotExists([]byte(scope))
		if err != nil {
			return err
		}
		return fn(&keyBatch{bkt: scoped})
	})
}

// AppStateKey returns a previously stored key, or nil when absent.
func (s *State) AppStateKey(scope, id string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		scoped := tx.Bucket([]byte(appStateKeysBucket)).Bucket([]byte(scope))
		if scoped == nil {
			return nil
		}
		if v := scoped.Get([]byte(id)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, err
}

// StoreMappings implements store.LIDStore.
func (s *State) StoreMappings(ctx context.Context, pairs []store.LIDMapping) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(lidMappingsBucket))
		for _, pair := range pairs {
			if err := bkt.Put([]byte(pair.PN), []byte(pair.LID)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Mapping returns the linked identifier stored for a phone number
// identity, or the empty string when absent.
func (s *State) Mapping(pn string) (string, error) {
	var lid string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(lidMappingsBucket)).Get([]byte(pn)); v != nil {
			lid = string(v)
		}
		return nil
	})
	return lid, err
}

// PutPendingResend records an outstanding placeholder resend request.
func (s *State) PutPendingResend(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(pendingResendsBucket)).Put([]byte(requestID), []byte{})
	})
}

// Delete implements store.ResendCache.
func (s *State) Delete(ctx context.Context, requestID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(pendingResendsBucket)).Delete([]byte(requestID))
	})
}

// HasPendingResend returns true while a resend request is outstanding.
func (s *State) HasPendingResend(requestID string) (bool, error) {
	var present bool
	err := s.db.View(func(tx *bolt.Tx) error {
		present = tx.Bucket([]byte(pendingResendsBucket)).Get([]byte(requestID)) != nil
		return nil
	})
	return present, err
}

// AppendProcessedHistory durably records a handled history sync
// notification.
func (s *State) AppendProcessedHistory(m event.ProcessedHistoryMessage) error {
	blob, err := cbor.Marshal(&m)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(processedHistoryBucket))
		seq, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		return bkt.Put(itob(seq), blob)
	})
}

// ProcessedHistory returns the recorded history markers in insertion
// order.
func (s *State) ProcessedHistory() ([]event.ProcessedHistoryMessage, error) {
	var out []event.ProcessedHistoryMessage
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(processedHistoryBucket)).ForEach(func(_, v []byte) error {
			var m event.ProcessedHistoryMessage
			if err := cbor.Unmarshal(v, &m); err != nil {
				return err
			}
			out = append(out, m)
			return nil
		})
	})
	return out, err
}

// Close flushes and closes the backing database.
func (s *State) Close() {
	s.db.Sync()
	s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

// New creates (or loads) an engine state database with the given file
// name f.
func New(f string) (*State, error) {
	s := new(State)

	var err error
	s.db, err = bolt.Open(f, 0600, nil)
	if err != nil {
		return nil, err
	}

	if err = s.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		for _, name := range []string{appStateKeysBucket, lidMappingsBucket, pendingResendsBucket, processedHistoryBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		if b := bkt.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != 0 {
				return fmt.Errorf("boltstate: incompatible version: %d", uint(b[0]))
			}
			return nil
		}
		return bkt.Put([]byte(versionKey), []byte{0})
	}); err != nil {
		s.db.Close()
		return nil, err
	}
	return s, nil
}
