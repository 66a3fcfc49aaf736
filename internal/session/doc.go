// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package session gates and issues login sessions.
//
// An Authority approves each login before a token is minted. The Issuer
// then generates the token, hands it to the client, and records the
// session and an audit entry. Only one live session exists per account:
// each issue replaces the previous one.
package session
