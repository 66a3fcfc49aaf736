// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package message_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UniversoExpandido2018/UE-1/internal/message"
)

func TestStaticDirectory(t *testing.T) {
	dir := &message.StaticDirectory{
		Clusters:        []message.Cluster{{ID: 2, Name: "Basilisk"}},
		States:          []message.ClusterState{{ID: 2, Address: "127.0.0.1", Port: 44463, Online: true}},
		MaxCharsPerUser: 10,
	}

	enum, err := dir.ClusterEnumeration(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, message.KindClusterEnumeration, enum.Kind())
	assert.Equal(t, 10, enum.MaxCharsPerUser)
	require.Len(t, enum.Clusters, 1)

	// Callers get a copy.
	enum.Clusters[0].Name = "changed"
	assert.Equal(t, "Basilisk", dir.Clusters[0].Name)

	status, err := dir.ClusterStatus(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, message.KindClusterStatus, status.Kind())
	assert.True(t, status.Clusters[0].Online)
}

func TestNoCharacters(t *testing.T) {
	chars, err := message.NoCharacters{}.EnumerateCharacters(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, message.KindCharacterEnumeration, chars.Kind())
	assert.Equal(t, uint32(7), chars.AccountID)
	assert.Empty(t, chars.Characters)
}
