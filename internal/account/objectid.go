// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package account

import "fmt"

// Namespace identifies an object domain sharing the broker.
type Namespace uint16

// DefaultNamespace is the namespace assigned to the accounts domain.
const DefaultNamespace Namespace = 3

// namespaceShift places the namespace in the top 16 bits of an ObjectID.
const namespaceShift = 48

// ObjectID is the synthetic identifier of a cached entity.
type ObjectID uint64

// MakeObjectID combines a namespace and an account ID.
func MakeObjectID(ns Namespace, accountID uint32) ObjectID {
	return ObjectID(uint64(accountID) | uint64(ns)<<namespaceShift)
}

// Namespace returns the namespace encoded in the high bits.
func (id ObjectID) Namespace() Namespace {
	return Namespace(uint64(id) >> namespaceShift)
}

// AccountID returns the account ID encoded in the low bits.
func (id ObjectID) AccountID() uint32 {
	return uint32(uint64(id) & 0xFFFFFFFF)
}

// String renders the ID in hex, the way operators see it in logs.
func (id ObjectID) String() string {
	return fmt.Sprintf("0x%016x", uint64(id))
}
