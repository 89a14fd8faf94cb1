// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/boardserver/models"
)

// GormPostgreSQL is the gorm-backed history store.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(dsn string) (*GormPostgreSQL, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &GormPostgreSQL{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.GormRoom{},
		&models.GormGameRecord{},
	)
}

// SaveRoomState upserts the row for state.RoomID.
func (p *GormPostgreSQL) SaveRoomState(ctx context.Context, state models.RoomState) error {
	row := models.GormRoom{
		RoomID:     state.RoomID,
		State:      state.State,
		HostID:     state.HostID,
		Players:    state.Players,
		TrapFields: state.TrapFields,
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "host_id", "players", "trap_fields", "updated_at"}),
	}).Create(&row).Error
}

func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	row := models.NewGormGameRecord(record)
	return p.db.WithContext(ctx).Create(&row).Error
}

// RecentGameRecords returns up to limit records, newest first.
func (p *GormPostgreSQL) RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	var rows []models.GormGameRecord
	err := p.db.WithContext(ctx).Order("ended_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.GameRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.ToRecord())
	}
	return records, nil
}

// LoadRoomState reads back the last saved state of a room.
func (p *GormPostgreSQL) LoadRoomState(ctx context.Context, roomID string) (models.RoomState, error) {
	var row models.GormRoom
	if err := p.db.WithContext(ctx).Where("room_id = ?", roomID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RoomState{}, ErrRecordNotFound
		}
		return models.RoomState{}, err
	}
	return models.RoomState{
		RoomID:     row.RoomID,
		State:      row.State,
		HostID:     row.HostID,
		Players:    row.Players,
		TrapFields: row.TrapFields,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
