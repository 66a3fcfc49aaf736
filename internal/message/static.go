// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package message

import (
	"context"
	"slices"
)

// StaticDirectory serves a fixed cluster list.
type StaticDirectory struct {
	Clusters        []Cluster
	States          []ClusterState
	MaxCharsPerUser int
}

// ClusterEnumeration implements Directory.
func (d *StaticDirectory) ClusterEnumeration(_ context.Context, _ uint32) (ClusterEnumeration, error) {
	return ClusterEnumeration{
		Clusters:        slices.Clone(d.Clusters),
		MaxCharsPerUser: d.MaxCharsPerUser,
	}, nil
}

// ClusterStatus implements Directory.
func (d *StaticDirectory) ClusterStatus(_ context.Context, _ uint32) (ClusterStatus, error) {
	return ClusterStatus{Clusters: slices.Clone(d.States)}, nil
}

// NoCharacters reports an empty character list for every account.
type NoCharacters struct{}

// EnumerateCharacters implements CharacterEnumerator.
func (NoCharacters) EnumerateCharacters(_ context.Context, accountID uint32) (CharacterEnumeration, error) {
	return CharacterEnumeration{AccountID: accountID, Characters: []Character{}}, nil
}

var (
	_ Directory           = (*StaticDirectory)(nil)
	_ CharacterEnumerator = NoCharacters{}
)
