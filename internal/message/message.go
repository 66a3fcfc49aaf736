// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

// Package message defines the outbound login messages. Encoding them for
// the wire is the transport's job.
package message

import "context"

// Kind names a message type.
type Kind string

// Message kinds.
const (
	KindError                = Kind("error")
	KindClientToken          = Kind("client_token")
	KindClusterEnumeration   = Kind("cluster_enumeration")
	KindClusterStatus        = Kind("cluster_status")
	KindCharacterEnumeration = Kind("character_enumeration")
)

// Message is an outbound message to a login client.
type Message interface {
	Kind() Kind
}

// Error tells the client why a login failed.
type Error struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Kind implements Message.
func (Error) Kind() Kind { return KindError }

// ClientToken delivers the session token after a successful login.
type ClientToken struct {
	AccountID uint32 `json:"account_id"`
	StationID uint32 `json:"station_id"`
	Username  string `json:"username"`
	Token     string `json:"token"`
}

// Kind implements Message.
func (ClientToken) Kind() Kind { return KindClientToken }

// Cluster describes one game cluster.
type Cluster struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
	// Timezone is the offset from UTC in seconds.
	Timezone int `json:"timezone"`
}

// ClusterEnumeration lists the clusters known to the login server.
type ClusterEnumeration struct {
	Clusters        []Cluster `json:"clusters"`
	MaxCharsPerUser int       `json:"max_chars_per_user"`
}

// Kind implements Message.
func (ClusterEnumeration) Kind() Kind { return KindClusterEnumeration }

// ClusterState is the live status of a cluster.
type ClusterState struct {
	ID         uint32 `json:"id"`
	Address    string `json:"address"`
	Port       uint16 `json:"port"`
	Population int    `json:"population"`
	Online     bool   `json:"online"`
}

// ClusterStatus reports the live status of every cluster.
type ClusterStatus struct {
	Clusters []ClusterState `json:"clusters"`
}

// Kind implements Message.
func (ClusterStatus) Kind() Kind { return KindClusterStatus }

// Character is one playable character on a cluster.
type Character struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	ClusterID uint32 `json:"cluster_id"`
	Race      string `json:"race"`
}

// CharacterEnumeration lists the characters owned by an account.
type CharacterEnumeration struct {
	AccountID  uint32      `json:"account_id"`
	Characters []Character `json:"characters"`
}

// Kind implements Message.
func (CharacterEnumeration) Kind() Kind { return KindCharacterEnumeration }

// Directory produces the cluster messages sent after login.
type Directory interface {
	ClusterEnumeration(ctx context.Context, accountID uint32) (ClusterEnumeration, error)
	ClusterStatus(ctx context.Context, accountID uint32) (ClusterStatus, error)
}

// CharacterEnumerator produces the character list sent after login.
type CharacterEnumerator interface {
	EnumerateCharacters(ctx context.Context, accountID uint32) (CharacterEnumeration, error)
}
