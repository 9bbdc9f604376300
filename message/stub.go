// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

package message

// StubType enumerates system/event marker messages.  Stub messages carry
// no user content; their meaning is the code plus positional string
// parameters.
type StubType int

const (
	StubNone StubType = iota
	StubRevoke

	StubCallMissedVoice
	StubCallMissedVideo
	StubCallMissedGroupVoice
	StubCallMissedGroupVideo

	StubGroupParticipantChangeNumber
	StubGroupParticipantLeave
	StubGroupParticipantRemove
	StubGroupParticipantAdd
	StubGroupParticipantInvite
	StubGroupParticipantAddRequestJoin
	StubGroupParticipantDemote
	StubGroupParticipantPromote
	StubCommunityParticipantDemote
	StubCommunityParticipantPromote

	StubGroupChangeAnnounce
	StubGroupChangeRestrict
	StubGroupChangeSubject
	StubGroupChangeDescription
	StubGroupChangeInviteLink
	StubGroupMemberAddMode
	StubGroupJoinApprovalMode
	StubGroupJoinApprovalRequestNonAdminAdd
)

var stubTypeNames = map[StubType]string{
	StubNone:                                "none",
	StubRevoke:                              "revoke",
	StubCallMissedVoice:                     "call_missed_voice",
	StubCallMissedVideo:                     "call_missed_video",
	StubCallMissedGroupVoice:                "call_missed_group_voice",
	StubCallMissedGroupVideo:                "call_missed_group_video",
	StubGroupParticipantChangeNumber:        "group_participant_change_number",
	StubGroupParticipantLeave:               "group_participant_leave",
	StubGroupParticipantRemove:              "group_participant_remove",
	StubGroupParticipantAdd:                 "group_participant_add",
	StubGroupParticipantInvite:              "group_participant_invite",
	StubGroupParticipantAddRequestJoin:      "group_participant_add_request_join",
	StubGroupParticipantDemote:              "group_participant_demote",
	StubGroupParticipantPromote:             "group_participant_promote",
	StubCommunityParticipantDemote:          "community_participant_demote",
	StubCommunityParticipantPromote:         "community_participant_promote",
	StubGroupChangeAnnounce:                 "group_change_announce",
	StubGroupChangeRestrict:                 "group_change_restrict",
	StubGroupChangeSubject:                  "group_change_subject",
	StubGroupChangeDescription:              "group_change_description",
	StubGroupChangeInviteLink:               "group_change_invite_link",
	StubGroupMemberAddMode:                  "group_member_add_mode",
	StubGroupJoinApprovalMode:               "group_join_approval_mode",
	StubGroupJoinApprovalRequestNonAdminAdd: "group_join_approval_request_non_admin_add",
}

func (t StubType) String() string {
	if s, ok := stubTypeNames[t]; ok {
		return s
	}
	return "unknown"
}
