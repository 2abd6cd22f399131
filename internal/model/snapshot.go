package model

import "time"

// SnapshotSchemaVersion is bumped whenever Pool changes shape.
const SnapshotSchemaVersion = 1

// PoolSnapshot is the persisted result of one aggregation pass.
type PoolSnapshot struct {
	SchemaVersion int       `json:"schema_version"`
	Seq           uint64    `json:"seq"`
	Account       string    `json:"account"`
	ChainID       uint64    `json:"chain_id"`
	UpdatedAt     time.Time `json:"updated_at"`
	Pools         []Pool    `json:"pools"`
}
