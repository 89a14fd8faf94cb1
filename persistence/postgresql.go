// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/wfunc/boardserver/models"
)

// PostgreSQL is the database/sql + lib/pq history store.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(dsn string) (*PostgreSQL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS rooms (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) UNIQUE NOT NULL,
            state VARCHAR(50) NOT NULL,
            host_id VARCHAR(255) NOT NULL,
            players JSONB NOT NULL,
            trap_fields JSONB NOT NULL,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            room_id VARCHAR(255) NOT NULL,
            players JSONB NOT NULL,
            trap_fields JSONB NOT NULL,
            turns_played INTEGER NOT NULL DEFAULT 0,
            timeouts INTEGER NOT NULL DEFAULT 0,
            started_at TIMESTAMPTZ,
            ended_at TIMESTAMPTZ NOT NULL,
            duration INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_ended_at ON game_records(ended_at);
    `)
	return err
}

func (p *PostgreSQL) SaveRoomState(ctx context.Context, state models.RoomState) error {
	playersJSON, err := json.Marshal(state.Players)
	if err != nil {
		return err
	}
	trapsJSON, err := json.Marshal(state.TrapFields)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO rooms (room_id, state, host_id, players, trap_fields)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (room_id)
        DO UPDATE SET state = $2, host_id = $3, players = $4, trap_fields = $5, updated_at = CURRENT_TIMESTAMP
    `
	_, err = p.db.ExecContext(ctx, query, state.RoomID, state.State, state.HostID, playersJSON, trapsJSON)
	return err
}

func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	playersJSON, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}
	trapsJSON, err := json.Marshal(record.TrapFields)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
        INSERT INTO game_records (room_id, players, trap_fields, turns_played, timeouts, started_at, ended_at, duration)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err = p.db.ExecContext(ctx, query,
		record.RoomID, playersJSON, trapsJSON,
		record.TurnsPlayed, record.Timeouts,
		nullTime(record.StartedAt), record.EndedAt, record.Duration)
	return err
}

func (p *PostgreSQL) RecentGameRecords(ctx context.Context, limit int) ([]models.GameRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := p.db.QueryContext(ctx, `
        SELECT room_id, players, trap_fields, turns_played, timeouts, started_at, ended_at, duration
        FROM game_records
        ORDER BY ended_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.GameRecord
	for rows.Next() {
		var (
			r                  models.GameRecord
			playersJSON, traps []byte
			startedAt          sql.NullTime
		)
		if err := rows.Scan(&r.RoomID, &playersJSON, &traps, &r.TurnsPlayed, &r.Timeouts,
			&startedAt, &r.EndedAt, &r.Duration); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(playersJSON, &r.Players); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(traps, &r.TrapFields); err != nil {
			return nil, err
		}
		if startedAt.Valid {
			r.StartedAt = startedAt.Time
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (p *PostgreSQL) LoadRoomState(ctx context.Context, roomID string) (models.RoomState, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		s                  models.RoomState
		playersJSON, traps []byte
	)
	err := p.db.QueryRowContext(ctx, `
        SELECT room_id, state, host_id, players, trap_fields, created_at, updated_at
        FROM rooms WHERE room_id = $1
    `, roomID).Scan(&s.RoomID, &s.State, &s.HostID, &playersJSON, &traps, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RoomState{}, ErrRecordNotFound
		}
		return models.RoomState{}, err
	}
	if err := json.Unmarshal(playersJSON, &s.Players); err != nil {
		return models.RoomState{}, err
	}
	if err := json.Unmarshal(traps, &s.TrapFields); err != nil {
		return models.RoomState{}, err
	}
	return s, nil
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
