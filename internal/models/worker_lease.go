package models

import (
	"time"

	"github.com/lib/pq"
)

// WorkerLease is a Postgres-row stand-in for the cluster's membership
// table: one row per live worker process, renewed by heartbeat and read by
// every worker to compute consistent-hash assignment. A lease missing two
// consecutive heartbeats is considered dead by the Cluster Coordinator.
type WorkerLease struct {
	WorkerID        string         `gorm:"column:worker_id;type:varchar(64);primaryKey" json:"workerId"`
	HeartbeatAt     time.Time      `gorm:"column:heartbeat_at;type:timestamp;not null" json:"heartbeatAt"`
	AssignedAccounts pq.StringArray `gorm:"column:assigned_accounts;type:text[]" json:"assignedAccounts"`
	Generation      int64          `gorm:"column:generation;not null;default:0" json:"generation"`

	// IsLeader marks the single worker currently acting as Cluster
	// Coordinator. Only the coordinator ever reassigns accounts.
	IsLeader bool `gorm:"column:is_leader;default:false" json:"isLeader"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (WorkerLease) TableName() string {
	return "worker_leases"
}

// IsStale reports whether the lease has missed two consecutive heartbeat
// intervals given the configured interval.
func (w *WorkerLease) IsStale(heartbeatInterval time.Duration, now time.Time) bool {
	return now.Sub(w.HeartbeatAt) > 2*heartbeatInterval
}
