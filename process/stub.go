// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package process

import (
	"github.com/whisker-im/whisker/event"
	"github.com/whisker-im/whisker/jid"
	"github.com/whisker-im/whisker/message"
)

// processStub derives participant and group metadata events from a
// system stub message.  Parameters are positional strings; unrecognized
// stub types are silently ignored.
func (p *Processor) processStub(m *message.InboundMessage, chat *event.ChatPatch, creds *Credentials) {
	chatID := m.Key.RemoteJID
	author := m.Key.Participant
	params := m.StubParameters

	param := func(i int) string {
		if i < len(params) {
			return params[i]
		}
		return ""
	}
	includesMe := func() bool {
		for _, participant := range params {
			if jid.SameUser(creds.MeID, participant) {
				return true
			}
		}
		return false
	}
	emitParticipants := func(action event.ParticipantAction) {
		p.publish(&event.GroupParticipantsUpdate{
			ID:           chatID,
			Author:       author,
			Participants: params,
			Action:       action,
		})
	}
	emitGroup := func(update *event.GroupUpdate) {
		update.ID = chatID
		update.Author = author
		p.publish(&event.GroupsUpdate{Updates: []*event.GroupUpdate{update}})
	}

	switch m.StubType {
	case message.StubGroupParticipantChangeNumber:
		emitParticipants(event.ParticipantModify)

	case message.StubGroupParticipantLeave:
		emitParticipants(event.ParticipantLeave)
		if includesMe() {
			t := true
			chat.ReadOnly = &t
		}

	case message.StubGroupParticipantRemove:
		emitParticipants(event.ParticipantRemove)
		if includesMe() {
			t := true
			chat.ReadOnly = &t
		}

	case message.StubGroupParticipantAdd,
		message.StubGroupParticipantInvite,
		message.StubGroupParticipantAddRequestJoin:
		if includesMe() {
			f := false
			chat.ReadOnly = &f
		}
		emitParticipants(event.ParticipantAdd)

	case message.StubGroupParticipantDemote,
		message.StubCommunityParticipantDemote:
		emitParticipants(event.ParticipantDemote)

	case message.StubGroupParticipantPromote,
		message.StubCommunityParticipantPromote:
		emitParticipants(event.ParticipantPromote)

	case message.StubGroupChangeAnnounce:
		v := param(0) == "true" || param(0) == "on"
		emitGroup(&event.GroupUpdate{Announce: &v})

	case message.StubGroupChangeRestrict:
		v := param(0) == "true" || param(0) == "on"
		emitGroup(&event.GroupUpdate{Restrict: &v})

	case message.StubGroupChangeSubject:
		name := param(0)
		chat.Name = &name
		emitGroup(&event.GroupUpdate{Subject: &name})

	case message.StubGroupChangeDescription:
		description := param(0)
		chat.Description = &description
		emitGroup(&event.GroupUpdate{Description: &description})

	case message.StubGroupChangeInviteLink:
		code := param(0)
		emitGroup(&event.GroupUpdate{InviteCode: &code})

	case message.StubGroupMemberAddMode:
		v := param(0) == "all_member_add"
		emitGroup(&event.GroupUpdate{MemberAddMode: &v})

	case message.StubGroupJoinApprovalMode:
		v := param(0) == "on"
		emitGroup(&event.GroupUpdate{JoinApprovalMode: &v})

	case message.StubGroupJoinApprovalRequestNonAdminAdd:
		p.publish(&event.GroupJoinRequest{
			ID:          chatID,
			Author:      author,
			Participant: param(0),
			Action:      param(1),
			Method:      param(2),
		})
	}
}
