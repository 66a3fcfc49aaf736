// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package account

import (
	"sync"

	"github.com/samber/oops"
)

// Descriptor describes an entity type registered with a Broker.
type Descriptor[T any] struct {
	// Name is the domain name, used in logs and errors.
	Name string
	// Namespace is placed in the high bits of every ObjectID of this type.
	Namespace Namespace
	// New constructs an empty entity for an ObjectID.
	New func(oid ObjectID) *T
}

// AccountDescriptor registers Account under the given namespace.
func AccountDescriptor(ns Namespace) Descriptor[Account] {
	return Descriptor[Account]{
		Name:      "accounts",
		Namespace: ns,
		New:       newAccount,
	}
}

// Broker is an identity map from ObjectID to a single shared entity.
// It is safe for concurrent use.
type Broker[T any] struct {
	desc Descriptor[T]

	mu      sync.RWMutex
	objects map[ObjectID]*T
}

// NewBroker creates a Broker for the described entity type.
func NewBroker[T any](desc Descriptor[T]) (*Broker[T], error) {
	if desc.New == nil {
		return nil, oops.Code("BROKER_INVALID_DESCRIPTOR").
			With("domain", desc.Name).
			Errorf("descriptor constructor is required")
	}
	return &Broker[T]{
		desc:    desc,
		objects: make(map[ObjectID]*T),
	}, nil
}

// Namespace returns the namespace of the registered entity type.
func (b *Broker[T]) Namespace() Namespace {
	return b.desc.Namespace
}

// LookUp returns the cached entity for oid, if any.
func (b *Broker[T]) LookUp(oid ObjectID) (*T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[oid]
	return obj, ok
}

// GetOrCreate returns the cached entity for oid, creating an empty one if
// none exists. created is true only for the caller that inserted it.
func (b *Broker[T]) GetOrCreate(oid ObjectID) (obj *T, created bool, err error) {
	if oid.Namespace() != b.desc.Namespace {
		return nil, false, oops.Code("BROKER_NAMESPACE_MISMATCH").
			With("domain", b.desc.Name).
			With("oid", oid.String()).
			Errorf("object id belongs to namespace %d, not %d", oid.Namespace(), b.desc.Namespace)
	}

	if obj, ok := b.LookUp(oid); ok {
		return obj, false, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Another caller may have inserted between the read and write lock.
	if obj, ok := b.objects[oid]; ok {
		return obj, false, nil
	}

	obj = b.desc.New(oid)
	if obj == nil {
		return nil, false, oops.Code("BROKER_CREATE_FAILED").
			With("domain", b.desc.Name).
			With("oid", oid.String()).
			Errorf("constructor returned nil")
	}
	b.objects[oid] = obj
	return obj, true, nil
}

// RemoveIf deletes the entity cached for oid when it is still obj and
// pred returns true. pred runs under the write lock.
func (b *Broker[T]) RemoveIf(oid ObjectID, obj *T, pred func(*T) bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.objects[oid]
	if !ok || cur != obj || !pred(cur) {
		return false
	}
	delete(b.objects, oid)
	return true
}

// Len returns the number of cached entities.
func (b *Broker[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
