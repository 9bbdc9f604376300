// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package message

// ProtocolType enumerates control sub-message kinds.
type ProtocolType int

const (
	ProtocolRevoke ProtocolType = iota
	ProtocolEphemeralSetting
	ProtocolHistorySyncNotification
	ProtocolAppStateSyncKeyShare
	ProtocolPeerDataOperationResponse
	ProtocolMessageEdit
	ProtocolLIDMigrationMappingSync
	ProtocolLimitSharing
)

// ProtocolMessage is a control sub-message that never surfaces as user
// content; it mutates prior messages or client state instead.
type ProtocolMessage struct {
	Type ProtocolType `cbor:"type"`

	// Key references the message acted upon, for revoke, edit and limit
	// sharing sub-messages.
	Key *Key `cbor:"key,omitempty"`

	// EditedMessage is the replacement content of a message edit.
	EditedMessage *Envelope `cbor:"edited_message,omitempty"`

	// TimestampMS is the edit timestamp in milliseconds.
	TimestampMS int64 `cbor:"timestamp_ms,omitempty"`

	// EphemeralExpiration is the disappearing-messages timer in seconds,
	// zero to turn the timer off.
	EphemeralExpiration uint32 `cbor:"ephemeral_expiration,omitempty"`

	HistorySync      *HistorySyncNotification   `cbor:"history_sync_notification,omitempty"`
	AppStateKeyShare *AppStateSyncKeyShare      `cbor:"app_state_sync_key_share,omitempty"`
	PeerDataResponse *PeerDataOperationResponse `cbor:"peer_data_operation_response,omitempty"`
	LIDMigration     *LIDMigrationMappingSync   `cbor:"lid_migration_mapping_sync,omitempty"`
	LimitSharing     *LimitSharing              `cbor:"limit_sharing,omitempty"`
}

// HistorySyncType enumerates history blob flavors.
type HistorySyncType int

const (
	HistorySyncInitialBootstrap HistorySyncType = iota
	HistorySyncInitialStatus
	HistorySyncFull
	HistorySyncRecent
	HistorySyncPushName
	HistorySyncNonBlockingData
	HistorySyncOnDemand
)

// HistorySyncNotification announces a downloadable history blob.
type HistorySyncNotification struct {
	SyncType      HistorySyncType `cbor:"sync_type"`
	FileSHA256    []byte          `cbor:"file_sha256,omitempty"`
	FileEncSHA256 []byte          `cbor:"file_enc_sha256,omitempty"`
	FileLength    uint64          `cbor:"file_length,omitempty"`
	MediaKey      []byte          `cbor:"media_key,omitempty"`
	DirectPath    string          `cbor:"direct_path,omitempty"`
	ChunkOrder    uint32          `cbor:"chunk_order,omitempty"`

	// PeerDataRequestSessionID ties an on-demand sync back to the
	// request that triggered it.
	PeerDataRequestSessionID string `cbor:"peer_data_request_session_id,omitempty"`
}

// AppStateSyncKey is one shared app-state encryption key.
type AppStateSyncKey struct {
	KeyID   []byte `cbor:"key_id"`
	KeyData []byte `cbor:"key_data"`
}

// AppStateSyncKeyShare shares app-state encryption keys between own
// devices.
type AppStateSyncKeyShare struct {
	Keys []*AppStateSyncKey `cbor:"keys"`
}

// PeerDataOperationResponse answers a previously issued peer data
// operation request.
type PeerDataOperationResponse struct {
	StanzaID string                     `cbor:"stanza_id"`
	Results  []*PeerDataOperationResult `cbor:"results"`
}

// PeerDataOperationResult is a single result within a peer data response.
type PeerDataOperationResult struct {
	PlaceholderResend *PlaceholderResendResponse `cbor:"placeholder_resend,omitempty"`
}

// PlaceholderResendResponse carries a re-sent full message, encoded.
type PlaceholderResendResponse struct {
	MessageBytes []byte `cbor:"message_bytes"`
}

// LIDMigrationMappingSync carries an encoded phone-number to linked-id
// mapping payload.
type LIDMigrationMappingSync struct {
	EncodedPayload []byte `cbor:"encoded_payload"`
}

// PNToLIDMapping maps one phone number user to its linked identifier.
type PNToLIDMapping struct {
	PN          uint64 `cbor:"pn"`
	LatestLID   uint64 `cbor:"latest_lid,omitempty"`
	AssignedLID uint64 `cbor:"assigned_lid,omitempty"`
}

// LIDMigrationMappingPayload is the decoded form of
// LIDMigrationMappingSync.EncodedPayload.
type LIDMigrationMappingPayload struct {
	Mappings                 []*PNToLIDMapping `cbor:"mappings"`
	ChatDBMigrationTimestamp int64             `cbor:"chat_db_migration_timestamp,omitempty"`
}

// LimitSharing describes a change to the forwarding restriction setting.
type LimitSharing struct {
	SharingLimited   bool   `cbor:"sharing_limited"`
	Trigger          string `cbor:"trigger,omitempty"`
	SettingTimestamp int64  `cbor:"setting_timestamp,omitempty"`
}
