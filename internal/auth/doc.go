// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package auth validates login credentials against the account store.
//
// # Hashing
//
// Two schemes coexist. Accounts with an empty salt use the legacy unsalted
// SHA-1 hash; all others use SHA-256 over secret, password and salt. A
// successful legacy login migrates the account to the salted scheme.
//
// # Outcomes
//
// Validator.Validate returns either a validated account, a *Rejection for
// expected policy outcomes, or a coded oops error for infrastructure
// failures. Callers decide what to tell the client.
package auth
