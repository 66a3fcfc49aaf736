// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package session

import "context"

// Verdict is a session authority's answer to an approval request.
type Verdict struct {
	// Allowed decides whether the login proceeds.
	Allowed bool
	// TransientFailure marks verdicts produced because the authority itself
	// failed, as opposed to a genuine decision.
	TransientFailure bool
	// Title and Message are shown to the client on denial.
	Title   string
	Message string
	// LogMessage is operator detail, never sent to the client.
	LogMessage string
}

// Authority approves new sessions before a token is issued.
type Authority interface {
	// ApproveNewSession requests approval for accountID logging in from ip.
	// It must not block; done is called exactly once, possibly on another
	// goroutine.
	ApproveNewSession(ctx context.Context, ip string, accountID uint32, done func(Verdict))

	// NotifySessionStart reports an issued session.
	NotifySessionStart(ctx context.Context, ip string, accountID uint32) error
}

// AllowAll is the Authority used when no session API is configured.
type AllowAll struct{}

// ApproveNewSession calls done immediately with an allowed verdict.
func (AllowAll) ApproveNewSession(_ context.Context, _ string, _ uint32, done func(Verdict)) {
	done(Verdict{Allowed: true})
}

// NotifySessionStart does nothing.
func (AllowAll) NotifySessionStart(context.Context, string, uint32) error {
	return nil
}

var _ Authority = AllowAll{}
