package session

import "sync"

// The process-wide coordinator. Screens come and go on every transition,
// the session does not: it is constructed on first access and survives
// until full client shutdown. Tests that need isolation construct their own
// coordinators with NewCoordinator and never touch this.
var (
	instanceMu sync.Mutex
	instance   *Coordinator
)

// HasInstance reports whether the process-wide coordinator has been
// constructed, without constructing it.
func HasInstance() bool {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	return instance != nil
}

// Instance returns the process-wide coordinator, constructing exactly one
// from cfg on first call. Later calls return the same coordinator and
// ignore their cfg entirely: the first caller's config wins, and nothing is
// ever re-derived from a later, possibly stale, caller context.
func Instance(cfg Config) *Coordinator {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = NewCoordinator(cfg)
	}
	return instance
}

// Shutdown closes the process-wide coordinator and forgets it. Only the
// full-client exit path calls this; screen teardown never does.
func Shutdown() error {
	instanceMu.Lock()
	c := instance
	instance = nil
	instanceMu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}
