// Package domain contains entity types without logic, just meta-data.
package domain

import "time"

type (
	RoomName string
	ConnID   string
)

const MaxDisplayNameLen = 36

// RoomCredential is the durable record authenticating joins to a room.
// Immutable once created; this protocol has no way to change a room's secret.
type RoomCredential struct {
	SecretHash string    `json:"hash"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RegistryRecord is an opaque ciphertext blob published for a room.
// Its lifecycle is independent of credentials and of room liveness.
type RegistryRecord struct {
	Ciphertext string    `json:"ciphertext"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
