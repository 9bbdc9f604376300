// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package event defines the records emitted by the inbound processing
// engine and the sink boundary they cross.  Emission is fire and forget;
// the engine never learns whether a consumer acted on an event.
package event

import (
	"fmt"

	"github.com/whisker-im/whisker/message"
)

// Sink consumes emitted events.
type Sink interface {
	Publish(Event)
}

// Func adapts a function to the Sink interface.
type Func func(Event)

// Publish implements Sink.
func (f Func) Publish(e Event) { f(e) }

// Event is the generic record handed to the sink.  Name returns the wire
// level event name consumers subscribe to.
type Event interface {
	Name() string
	String() string
}

// ChatPatch is an accumulated partial update to one chat's denormalized
// view.  Optional fields are pointers; nil means unchanged.
type ChatPatch struct {
	// ID is the normalized chat id.
	ID string `cbor:"id"`

	Messages              []*message.InboundMessage `cbor:"messages,omitempty"`
	ConversationTimestamp uint64                    `cbor:"conversation_timestamp,omitempty"`
	UnreadCountDelta      int                       `cbor:"unread_count_delta,omitempty"`

	Archived *bool `cbor:"archived,omitempty"`
	ReadOnly *bool `cbor:"read_only,omitempty"`

	EphemeralExpiration       *uint32 `cbor:"ephemeral_expiration,omitempty"`
	EphemeralSettingTimestamp *uint64 `cbor:"ephemeral_setting_timestamp,omitempty"`

	Name        *string `cbor:"name,omitempty"`
	Description *string `cbor:"description,omitempty"`
}

// IsEmpty returns true when nothing beyond the chat id was set.
func (p *ChatPatch) IsEmpty() bool {
	return len(p.Messages) == 0 &&
		p.ConversationTimestamp == 0 &&
		p.UnreadCountDelta == 0 &&
		p.Archived == nil &&
		p.ReadOnly == nil &&
		p.EphemeralExpiration == nil &&
		p.EphemeralSettingTimestamp == nil &&
		p.Name == nil &&
		p.Description == nil
}

// ChatsUpdate carries chat patches.
type ChatsUpdate struct {
	Chats []*ChatPatch
}

func (e *ChatsUpdate) Name() string { return "chats.update" }
func (e *ChatsUpdate) String() string {
	return fmt.Sprintf("ChatsUpdate: %d chats", len(e.Chats))
}

// MessagePatch is a partial update to a previously delivered message.  A
// nil Message together with a stub type means the content was cleared.
type MessagePatch struct {
	Message   *message.Envelope `cbor:"message,omitempty"`
	StubType  message.StubType  `cbor:"stub_type,omitempty"`
	Timestamp uint64            `cbor:"timestamp,omitempty"`

	// Key carries the key of the message that produced the update,
	// for revocations.
	Key *message.Key `cbor:"key,omitempty"`

	PollUpdates    []*PollUpdate    `cbor:"poll_updates,omitempty"`
	EventResponses []*EventResponse `cbor:"event_responses,omitempty"`
}

// PollUpdate is one decrypted vote applied to a poll creation message.
type PollUpdate struct {
	PollUpdateMessageKey message.Key              `cbor:"poll_update_message_key"`
	Vote                 *message.PollVoteMessage `cbor:"vote"`
	SenderTimestampMS    int64                    `cbor:"sender_timestamp_ms"`
}

// EventResponse is one decrypted RSVP applied to an event creation
// message.
type EventResponse struct {
	ResponseMessageKey message.Key                   `cbor:"response_message_key"`
	TimestampMS        int64                         `cbor:"timestamp_ms"`
	Response           *message.EventResponseMessage `cbor:"response"`
}

// MessageUpdate targets one message with a patch.
type MessageUpdate struct {
	Key    message.Key  `cbor:"key"`
	Update MessagePatch `cbor:"update"`
}

// MessagesUpdate carries message patches.
type MessagesUpdate struct {
	Updates []MessageUpdate
}

func (e *MessagesUpdate) Name() string { return "messages.update" }
func (e *MessagesUpdate) String() string {
	return fmt.Sprintf("MessagesUpdate: %d updates", len(e.Updates))
}

// MessagesUpsert introduces messages to the chat view.  Type is "notify"
// for fresh messages and "append" for derived ones.
type MessagesUpsert struct {
	Messages []*message.InboundMessage
	Type     string

	// RequestID ties a re-emitted placeholder resend back to the peer
	// data request that produced it.
	RequestID string
}

func (e *MessagesUpsert) Name() string { return "messages.upsert" }
func (e *MessagesUpsert) String() string {
	return fmt.Sprintf("MessagesUpsert: %d messages (%s)", len(e.Messages), e.Type)
}

// Reaction pairs a plaintext reaction with the key it references.
type Reaction struct {
	// Key is the key of the message reacted to.
	Key *message.Key `cbor:"key,omitempty"`

	// Reaction is the reaction itself; its Key field is the key of the
	// reaction message.
	Reaction *message.ReactionMessage `cbor:"reaction"`
}

// MessagesReaction carries reactions.
type MessagesReaction struct {
	Reactions []Reaction
}

func (e *MessagesReaction) Name() string { return "messages.reaction" }
func (e *MessagesReaction) String() string {
	return fmt.Sprintf("MessagesReaction: %d reactions", len(e.Reactions))
}

// GroupUpdate carries a single changed group metadata field; nil fields
// are unchanged.
type GroupUpdate struct {
	ID     string `cbor:"id"`
	Author string `cbor:"author,omitempty"`

	Announce         *bool   `cbor:"announce,omitempty"`
	Restrict         *bool   `cbor:"restrict,omitempty"`
	Subject          *string `cbor:"subject,omitempty"`
	Description      *string `cbor:"description,omitempty"`
	InviteCode       *string `cbor:"invite_code,omitempty"`
	MemberAddMode    *bool   `cbor:"member_add_mode,omitempty"`
	JoinApprovalMode *bool   `cbor:"join_approval_mode,omitempty"`
}

// GroupsUpdate carries group metadata updates.
type GroupsUpdate struct {
	Updates []*GroupUpdate
}

func (e *GroupsUpdate) Name() string { return "groups.update" }
func (e *GroupsUpdate) String() string {
	return fmt.Sprintf("GroupsUpdate: %d updates", len(e.Updates))
}

// ParticipantAction enumerates membership change kinds.
type ParticipantAction string

const (
	ParticipantModify  ParticipantAction = "modify"
	ParticipantLeave   ParticipantAction = "leave"
	ParticipantRemove  ParticipantAction = "remove"
	ParticipantAdd     ParticipantAction = "add"
	ParticipantDemote  ParticipantAction = "demote"
	ParticipantPromote ParticipantAction = "promote"
)

// GroupParticipantsUpdate reports a membership change.
type GroupParticipantsUpdate struct {
	ID           string
	Author       string
	Participants []string
	Action       ParticipantAction
}

func (e *GroupParticipantsUpdate) Name() string { return "group-participants.update" }
func (e *GroupParticipantsUpdate) String() string {
	return fmt.Sprintf("GroupParticipantsUpdate: %s %d participants in %s", e.Action, len(e.Participants), e.ID)
}

// GroupJoinRequest reports a join request needing admin approval.
type GroupJoinRequest struct {
	ID          string
	Author      string
	Participant string
	Action      string
	Method      string
}

func (e *GroupJoinRequest) Name() string { return "group.join-request" }
func (e *GroupJoinRequest) String() string {
	return fmt.Sprintf("GroupJoinRequest: %s %s in %s", e.Action, e.Participant, e.ID)
}

// ProcessedHistoryMessage marks one history sync notification as handled.
type ProcessedHistoryMessage struct {
	Key       message.Key `cbor:"key"`
	Timestamp uint64      `cbor:"timestamp"`
}

// CredsUpdate reports credential mutations for the owner to persist.
// Zero valued fields are unchanged.
type CredsUpdate struct {
	ProcessedHistoryMessages []ProcessedHistoryMessage
	AppStateKeyID            string
}

func (e *CredsUpdate) Name() string { return "creds.update" }
func (e *CredsUpdate) String() string {
	return fmt.Sprintf("CredsUpdate: %d processed history messages, key id %q", len(e.ProcessedHistoryMessages), e.AppStateKeyID)
}

// Contact is a contact record carried by a history payload.
type Contact struct {
	JID  string `cbor:"jid"`
	Name string `cbor:"name,omitempty"`
}

// HistoryPayload is a transformed history blob.
type HistoryPayload struct {
	Chats    []*ChatPatch              `cbor:"chats,omitempty"`
	Contacts []Contact                 `cbor:"contacts,omitempty"`
	Messages []*message.InboundMessage `cbor:"messages,omitempty"`
	SyncType message.HistorySyncType   `cbor:"sync_type"`
	Progress uint32                    `cbor:"progress,omitempty"`
}

// MessagingHistorySet delivers a transformed history blob.  IsLatest is
// nil for on-demand syncs.
type MessagingHistorySet struct {
	Payload                  *HistoryPayload
	IsLatest                 *bool
	PeerDataRequestSessionID string
}

func (e *MessagingHistorySet) Name() string { return "messaging-history.set" }
func (e *MessagingHistorySet) String() string {
	latest := "unset"
	if e.IsLatest != nil {
		latest = fmt.Sprintf("%v", *e.IsLatest)
	}
	return fmt.Sprintf("MessagingHistorySet: isLatest=%s", latest)
}

// LimitSharingUpdate reports a change to the forwarding restriction
// setting of a chat.
type LimitSharingUpdate struct {
	ID         string
	Author     string
	Action     string
	Trigger    string
	UpdateTime int64
}

func (e *LimitSharingUpdate) Name() string { return "limit-sharing.update" }
func (e *LimitSharingUpdate) String() string {
	return fmt.Sprintf("LimitSharingUpdate: %s %s", e.ID, e.Action)
}
