// SPDX-FileCopyrightText: Copyright (C) 2025 The whisker authors
// SPDX-License-Identifier: AGPL-3.0-only

// Package jid implements the textual chat identifier algebra used by the
// wire protocol.  An identifier has the shape user[.agent][:device]@server
// where the agent and device components address a single linked device of
// the user and are stripped for chat-level bookkeeping.
package jid

import "strings"

// Well known servers.
const (
	DefaultUserServer = "s.whatsapp.net"
	LegacyUserServer  = "c.us"
	LIDServer         = "lid"
	GroupServer       = "g.us"
	BroadcastServer   = "broadcast"

	// StatusBroadcast is the special broadcast chat carrying status posts.
	StatusBroadcast = "status@" + BroadcastServer
)

// Decode splits a raw identifier into its user and server components,
// discarding any agent or device suffix.  ok is false when the input does
// not look like an identifier at all.
func Decode(jid string) (user, server string, ok bool) {
	sep := strings.IndexByte(jid, '@')
	if sep < 0 {
		return "", "", false
	}
	user, server = jid[:sep], jid[sep+1:]
	if i := strings.IndexByte(user, ':'); i >= 0 {
		user = user[:i] // device
	}
	if i := strings.IndexByte(user, '.'); i >= 0 {
		user = user[:i] // agent
	}
	return user, server, true
}

// NormalizeUser rewrites an identifier to its canonical device and agent
// stripped form.  The legacy user server is rewritten to the current one.
// Inputs that are not identifiers are returned unchanged.
func NormalizeUser(jid string) string {
	user, server, ok := Decode(jid)
	if !ok {
		return jid
	}
	if server == LegacyUserServer {
		server = DefaultUserServer
	}
	return user + "@" + server
}

// SameUser returns true when both identifiers refer to the same user,
// disregarding agent, device and server components.
func SameUser(a, b string) bool {
	ua, _, oka := Decode(a)
	ub, _, okb := Decode(b)
	return oka && okb && ua != "" && ua == ub
}

// IsBroadcast returns true for broadcast list identifiers, including the
// status broadcast.
func IsBroadcast(jid string) bool {
	_, server, ok := Decode(jid)
	return ok && server == BroadcastServer
}

// IsStatusBroadcast returns true for the status broadcast chat.
func IsStatusBroadcast(jid string) bool {
	return NormalizeUser(jid) == StatusBroadcast
}
