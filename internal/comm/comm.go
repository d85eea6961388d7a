package comm

import (
	"encoding/json"
	"time"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "init", "get-snapshot"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
	HallId   string          `json:"hall_id"`
}

// SnapshotUpdate carries one whole-collection value for a hall. The store
// has no merge semantics, the receiver replaces its local copy entirely.
type SnapshotUpdate struct {
	HallId     string          `json:"hall_id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type SnapshotRequest struct {
	HallId     string `json:"hall_id"`
	Collection string `json:"collection"` // empty means all collections
}

type ServiceHeartbeat struct {
	ID        string    `json:"id"` // service id
	Timestamp time.Time `json:"timestamp"`
}

type ServiceShutdown struct {
	ID string `json:"id"` // service id
}
