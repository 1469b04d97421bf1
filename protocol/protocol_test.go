package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiresTrust(t *testing.T) {
	// the one event that must work before the server trusts us
	assert.False(t, RequiresTrust(EventAuthenticate))

	// every real command needs an authenticated session
	for _, name := range []string{
		EventJoinLobby,
		EventStartMatch,
		EventLeaveLobby,
		EventRequestRematch,
		EventForceStart,
		EventForceEnd,
	} {
		assert.True(t, RequiresTrust(name), "event %s must require trust", name)
	}
}

func TestUnknownEventsRequireTrust(t *testing.T) {
	// unknown names fail closed, they must not slip past the gate
	assert.True(t, RequiresTrust("some_future_event"))
	assert.True(t, RequiresTrust(""))
}
