// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package account holds the Account entity and the AccountStore that caches
// it between the login flow and persistent storage.
//
// # Identity
//
// Every cached account is keyed by a synthetic ObjectID built from the
// numeric account ID and the namespace assigned to the accounts domain. At
// most one *Account exists per ObjectID for the lifetime of a Store.
//
// # Locking
//
// The Store's Broker guards the ObjectID -> *Account map with a
// sync.RWMutex: lookups that hit take the read lock, inserts take the write
// lock. Field updates on an Account take that Account's own mutex, never the
// map lock.
package account
