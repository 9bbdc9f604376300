// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package process

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/whisker-im/whisker/event"
	"github.com/whisker-im/whisker/jid"
	"github.com/whisker-im/whisker/message"
	"github.com/whisker-im/whisker/store"
)

// processProtocol dispatches a control sub-message.  Unknown types are
// silently ignored.
func (p *Processor) processProtocol(ctx context.Context, m *message.InboundMessage, pm *message.ProtocolMessage, chat *event.ChatPatch, creds *Credentials) {
	switch pm.Type {
	case message.ProtocolHistorySyncNotification:
		p.processHistorySync(ctx, m, pm.HistorySync, creds)

	case message.ProtocolAppStateSyncKeyShare:
		p.processKeyShare(ctx, pm, creds)

	case message.ProtocolRevoke:
		if pm.Key == nil {
			return
		}
		key := m.Key
		key.ID = pm.Key.ID
		p.publish(&event.MessagesUpdate{Updates: []event.MessageUpdate{{
			Key: key,
			Update: event.MessagePatch{
				Message:  nil,
				StubType: message.StubRevoke,
				Key:      m.Key.Clone(),
			},
		}}})

	case message.ProtocolEphemeralSetting:
		ts := m.Timestamp
		exp := pm.EphemeralExpiration
		chat.EphemeralSettingTimestamp = &ts
		chat.EphemeralExpiration = &exp

	case message.ProtocolPeerDataOperationResponse:
		p.processPeerDataResponse(ctx, pm.PeerDataResponse)

	case message.ProtocolMessageEdit:
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
					EditedMessage: &message.FutureProof{Message: pm.EditedMessage},
				},
				Timestamp: ts,
			},
		}}})

	case message.ProtocolLIDMigrationMappingSync:
		p.processLIDMigration(ctx, pm.LIDMigration)

	case message.ProtocolLimitSharing:
		p.processLimitSharing(m, pm, creds)
	}
}

func (p *Processor) processHistorySync(ctx context.Context, m *message.InboundMessage, n *message.HistorySyncNotification, creds *Credentials) {
	if n == nil {
		return
	}
	isLatest := len(creds.ProcessedHistoryMessages) == 0
	p.log.Infof("got history notification: id=%s syncType=%d process=%v isLatest=%v",
		m.Key.ID, n.SyncType, p.processHistory, isLatest)
	if !p.processHistory || p.history == nil {
		return
	}

	onDemand := n.SyncType == message.HistorySyncOnDemand
	if !onDemand {
		processed := make([]event.ProcessedHistoryMessage, 0, len(creds.ProcessedHistoryMessages)+1)
		processed = append(processed, creds.ProcessedHistoryMessages...)
		processed = append(processed, event.ProcessedHistoryMessage{
			Key:       m.Key,
			Timestamp: m.Timestamp,
		})
		p.publish(&event.CredsUpdate{ProcessedHistoryMessages: processed})
	}

	payload, err := p.history.Fetch(ctx, n)
	if err != nil {
		p.log.Warningf("failed to fetch history blob for %s: %v", m.Key.ID, err)
		return
	}
	set := &event.MessagingHistorySet{
		Payload:                  payload,
		PeerDataRequestSessionID: n.PeerDataRequestSessionID,
	}
	if !onDemand {
		set.IsLatest = &isLatest
	}
	p.publish(set)
}

func (p *Processor) processKeyShare(ctx context.Context, pm *message.ProtocolMessage, creds *Credentials) {
	if p.keys == nil || pm.AppStateKeyShare == nil {
		return
	}
	keys := pm.AppStateKeyShare.Keys
	if len(keys) == 0 {
		p.log.Warningf("received app state key share with 0 keys")
		return
	}

	var newKeyID string
	err := p.keys.Transaction(ctx, creds.MeID, func(b store.KeyBatch) error {
		for _, k := range keys {
			id := base64.StdEncoding.EncodeToString(k.KeyID)
			if err := b.SetAppStateKey(id, k.KeyData); err != nil {
				return err
			}
			newKeyID = id
		}
		p.log.Infof("injected %d new app state sync keys, latest %s", len(keys), newKeyID)
		return nil
	})
	if err != nil {
		p.log.Errorf("failed to inject app state sync keys: %v", err)
		return
	}
	p.publish(&event.CredsUpdate{AppStateKeyID: newKeyID})
}

func (p *Processor) processPeerDataResponse(ctx context.Context, resp *message.PeerDataOperationResponse) {
	if resp == nil {
		return
	}
	if p.resendCache != nil {
		if err := p.resendCache.Delete(ctx, resp.StanzaID); err != nil {
			p.log.Debugf("failed to clear pending resend %s: %v", resp.StanzaID, err)
		}
	}
	for _, result := range resp.Results {
		retry := result.PlaceholderResend
		if retry == nil {
			continue
		}
		inbound, err := message.DecodeInbound(retry.MessageBytes)
		if err != nil {
			p.log.Warningf("failed to decode resent message for request %s: %v", resp.StanzaID, err)
			continue
		}
		// Hold the re-emit back so it cannot order ahead of the
		// response message that carried it.
		requestID := resp.StanzaID
		p.Go(func() {
			select {
			case <-time.After(p.resendDelay):
				p.publish(&event.MessagesUpsert{
					Messages:  []*message.InboundMessage{inbound},
					Type:      "notify",
					RequestID: requestID,
				})
			case <-p.HaltCh():
			}
		})
	}
}

func (p *Processor) processLIDMigration(ctx context.Context, sync *message.LIDMigrationMappingSync) {
	if p.lids == nil || sync == nil {
		return
	}
	payload, err := message.DecodeLIDMigrationPayload(sync.EncodedPayload)
	if err != nil {
		p.log.Warningf("failed to decode lid migration payload: %v", err)
		return
	}
	p.log.Debugf("got %d lid mappings, chat db migration timestamp %d",
		len(payload.Mappings), payload.ChatDBMigrationTimestamp)

	pairs := make([]store.LIDMapping, 0, len(payload.Mappings))
	for _, mapping := range payload.Mappings {
		lid := mapping.LatestLID
		if lid == 0 {
			lid = mapping.AssignedLID
		}
		pairs = append(pairs, store.LIDMapping{
			PN:  fmt.Sprintf("%d@%s", mapping.PN, jid.DefaultUserServer),
			LID: fmt.Sprintf("%d@%s", lid, jid.LIDServer),
		})
	}
	if err := p.lids.StoreMappings(ctx, pairs); err != nil {
		p.log.Warningf("failed to store lid mappings: %v", err)
	}
}

func (p *Processor) processLimitSharing(m *message.InboundMessage, pm *message.ProtocolMessage, creds *Credentials) {
	ls := pm.LimitSharing
	if ls == nil {
		return
	}
	author := m.Key.RemoteJID
	if pm.Key != nil && jid.SameUser(m.Key.RemoteJID, pm.Key.RemoteJID) {
		author = jid.NormalizeUser(creds.MeID)
	}
	action := "off"
	if ls.SharingLimited {
		action = "on"
	}
	p.publish(&event.LimitSharingUpdate{
		ID:         m.Key.RemoteJID,
		Author:     author,
		Action:     action,
		Trigger:    ls.Trigger,
		UpdateTime: ls.SettingTimestamp,
	})
}
