// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package login

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/UniversoExpandido2018/UE-1/internal/auth"
)

// State is the position of a login attempt in the login state machine.
type State int32

// Login states.
const (
	StateReceivedCredentials State = iota
	StateVersionChecked
	StateAccountValidated
	StateAwaitingApproval
	StateSessionIssued
	StateRejected
	StateAbandoned
	StateFailed
)

var stateNames = map[State]string{
	StateReceivedCredentials: "received_credentials",
	StateVersionChecked:      "version_checked",
	StateAccountValidated:    "account_validated",
	StateAwaitingApproval:    "awaiting_approval",
	StateSessionIssued:       "session_issued",
	StateRejected:            "rejected",
	StateAbandoned:           "abandoned",
	StateFailed:              "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s >= StateSessionIssued
}

// outcome is the metrics label for a terminal state.
func (s State) outcome() string {
	switch s {
	case StateSessionIssued:
		return "issued"
	case StateRejected:
		return "rejected"
	case StateAbandoned:
		return "abandoned"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt tracks one login attempt. A new attempt is created per request;
// attempts are never re-entered.
type Attempt struct {
	ID       ulid.ULID
	Username string
	Started  time.Time

	state     atomic.Int32
	rejection atomic.Pointer[auth.Rejection]
	done      chan struct{}
	once      sync.Once
}

func newAttempt(username string, now time.Time) *Attempt {
	return &Attempt{
		ID:       ulid.Make(),
		Username: username,
		Started:  now,
		done:     make(chan struct{}),
	}
}

// State returns the current state.
func (a *Attempt) State() State {
	return State(a.state.Load())
}

// Done is closed once the attempt reaches a terminal state.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Rejection returns the policy rejection, if the attempt was rejected.
func (a *Attempt) Rejection() *auth.Rejection {
	return a.rejection.Load()
}

func (a *Attempt) advance(s State) {
	a.state.Store(int32(s))
}

// finish moves the attempt to a terminal state. Only the first call has
// any effect; it reports whether this call was it.
func (a *Attempt) finish(s State) bool {
	finished := false
	a.once.Do(func() {
		a.state.Store(int32(s))
		close(a.done)
		finished = true
	})
	return finished
}
