package tracker

import (
	"context"
	"encoding/json"
	"time"

	database "orchestrate/runtime/internal/infrastructure/db"
)

// record is the SQL-backed representation of a tracker status write,
// keyed by the same aws-orchestrate/<stage>/<correlationId> path the
// default RedisStore uses — installations that want the tracker's
// history queryable with SQL pick this store instead (DOMAIN STACK).
type record struct {
	Key       string `gorm:"primaryKey;column:key"`
	Payload   string `gorm:"column:payload"`
	UpdatedAt time.Time
}

func (record) TableName() string { return "sequence_tracker_status" }

// PostgresStore is the SQL-backed alternative Store implementation,
// grounded on the teacher's GormBaseRepository/Database wiring.
type PostgresStore struct {
	repo database.GormBaseRepository[record]
}

// NewPostgresStore wraps an already-connected Database behind a
// GormBaseRepository[record], reusing the teacher's error-mapped CRUD
// helper rather than calling gorm directly.
func NewPostgresStore(db database.Database) *PostgresStore {
	return &PostgresStore{repo: database.GormBaseRepository[record]{DB: db, ErrorMapper: database.MapDBError}}
}

// Put upserts the status document at key, overwriting any previous value
// (spec §4.6 "overwriting any previous value").
func (s *PostgresStore) Put(ctx context.Context, key string, status Status) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return err
	}
	rec := record{Key: key, Payload: string(payload), UpdatedAt: time.Now()}

	return s.repo.Upsert(ctx, &rec, []string{"key"}, []string{"payload", "updated_at"})
}
