// Package gormstorage journals lifecycle events to a SQL database through
// GORM. Dialect selection happens in OpenSQLite and OpenPostgres.
package gormstorage

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/underwater/pkg/core"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotInitialized is returned when recording before Init.
var ErrNotInitialized = errors.New("journal not initialized")

// LifecycleEvent is the journal row.
type LifecycleEvent struct {
	ID         uint      `gorm:"primarykey"`
	CreatedAt  time.Time
	VehicleID  uint64    `gorm:"index"`
	Kind       string    `gorm:"size:64"`
	Type       string    `gorm:"size:32;index"`
	Multiplier float32
	Time       time.Time `gorm:"index"`
	Details    datatypes.JSONMap
}

// TableName keeps the table name stable across struct renames.
func (LifecycleEvent) TableName() string {
	return "underwater_lifecycle_events"
}

func toRow(e *core.LifecycleEvent) LifecycleEvent {
	return LifecycleEvent{
		VehicleID:  e.VehicleID,
		Kind:       e.Kind.String(),
		Type:       string(e.Type),
		Multiplier: e.Multiplier,
		Time:       e.Time,
		Details:    datatypes.JSONMap(e.Details),
	}
}

func (r LifecycleEvent) toCore() core.LifecycleEvent {
	kind, _ := core.ParseVehicleKind(r.Kind)
	return core.LifecycleEvent{
		VehicleID:  r.VehicleID,
		Kind:       kind,
		Type:       core.LifecycleEventType(r.Type),
		Multiplier: r.Multiplier,
		Time:       r.Time,
		Details:    map[string]any(r.Details),
	}
}

// Backend writes lifecycle events through GORM.
type Backend struct {
	db    *gorm.DB
	log   zerolog.Logger
	ready bool
}

// New creates a new GORM storage backend on an open connection.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{
		db:  db,
		log: log.With().Str("component", "journal").Logger(),
	}
}

// Init migrates the journal table.
func (b *Backend) Init() error {
	if b.db == nil {
		return ErrNotInitialized
	}
	if err := b.db.AutoMigrate(&LifecycleEvent{}); err != nil {
		return fmt.Errorf("failed to migrate journal: %w", err)
	}
	b.ready = true
	b.log.Info().Msg("Journal schema migrated")
	return nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error {
	b.ready = false
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordLifecycleEvent inserts one journal row.
func (b *Backend) RecordLifecycleEvent(e *core.LifecycleEvent) error {
	if !b.ready {
		return ErrNotInitialized
	}
	row := toRow(e)
	if err := b.db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record %s event: %w", e.Type, err)
	}
	return nil
}

// LifecycleEvents returns matching rows, newest first.
func (b *Backend) LifecycleEvents(vehicleID uint64, limit int) ([]core.LifecycleEvent, error) {
	if !b.ready {
		return nil, ErrNotInitialized
	}

	q := b.db.Model(&LifecycleEvent{}).Order("time desc").Order("id desc")
	if vehicleID != 0 {
		q = q.Where("vehicle_id = ?", vehicleID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []LifecycleEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}

	out := make([]core.LifecycleEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toCore())
	}
	return out, nil
}
