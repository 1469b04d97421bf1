// Package protocol defines the wire surface between the client and the match
// server: event names, payload shapes, and the trust rules for outbound
// commands. Event names are part of the protocol and must remain stable.
package protocol

import "encoding/json"

// Inbound events pushed by the server.
const (
	EventAuthOK            = "auth_ok"
	EventAuthFailed        = "auth_failed"
	EventLobbyJoined       = "lobby_joined"
	EventMatchmakingFailed = "matchmaking_failed"
	EventMatchEnded        = "match_ended"

	// EventDisconnect is raised by the session layer itself when the
	// transport drops unexpectedly. The server never sends it, but screens
	// subscribe to it like any other push.
	EventDisconnect = "disconnect"
)

// Outbound events sent by the client.
const (
	EventAuthenticate   = "authenticate"
	EventJoinLobby      = "join_lobby"
	EventStartMatch     = "start_match"
	EventLeaveLobby     = "leave_lobby"
	EventRequestRematch = "request_rematch"

	// Administrative test actions. They travel as ordinary commands and get
	// no special treatment: the trust rules below apply to them too.
	EventForceStart = "force_start"
	EventForceEnd   = "force_end"
)

// preTrust lists the outbound events that are valid before the server trusts
// the client. Everything else requires an authenticated session.
var preTrust = map[string]bool{
	EventAuthenticate: true,
}

// RequiresTrust reports whether an outbound event may only be sent once the
// session is authenticated. Unknown event names require trust: an event we
// did not anticipate must not slip past the gate by default.
func RequiresTrust(name string) bool {
	return !preTrust[name]
}

// AuthHello is the payload of the authenticate event.
type AuthHello struct {
	ClientID  string `json:"clientId"`
	Token     string `json:"token,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// AuthOK is the payload of auth_ok.
type AuthOK struct {
	SessionID string `json:"sessionId"`
}

// AuthFailed is the payload of auth_failed.
type AuthFailed struct {
	Reason string `json:"reason"`
}

// LobbyJoined is the payload of lobby_joined. Roster is opaque to the
// session core; it is cached and handed to the presentation layer as-is.
type LobbyJoined struct {
	LobbyID string          `json:"lobbyId"`
	Roster  json.RawMessage `json:"roster,omitempty"`
	Status  string          `json:"status,omitempty"`
}

// MatchmakingFailed is the payload of matchmaking_failed.
type MatchmakingFailed struct {
	Reason string `json:"reason"`
}

// JoinLobby is the payload of join_lobby.
type JoinLobby struct {
	LobbyID string `json:"lobbyId"`
}

// StartMatch is the payload of start_match.
type StartMatch struct {
	LobbyID string `json:"lobbyId"`
}

// LeaveLobby is the payload of leave_lobby.
type LeaveLobby struct {
	LobbyID string `json:"lobbyId"`
}

// RequestRematch is the payload of request_rematch. The lobby id comes from
// the lobby cache, not from the screen that happens to be on top.
type RequestRematch struct {
	LobbyID   string `json:"lobbyId"`
	Timestamp int64  `json:"timestamp"`
}
