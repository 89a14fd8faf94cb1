package persistence

import (
	"context"
	"fmt"

	"github.com/wfunc/boardserver/config"
	"github.com/wfunc/boardserver/logger"
	"github.com/wfunc/boardserver/models"
)

// Open builds the history store selected by cfg.Driver. It returns nil, nil
// when history is disabled.
func Open(cfg config.DatabaseConfig) (Database, error) {
	switch cfg.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverGorm:
		db, err := NewGormPostgreSQL(cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverPostgres:
		db, err := NewPostgreSQL(cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

// Recorder queues history writes for a single worker so the game loop never
// waits on the database. When the queue is full the write is dropped.
type Recorder struct {
	db    Database
	queue chan job
}

func NewRecorder(db Database, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 1
	}
	return &Recorder{
		db:    db,
		queue: make(chan job, buffer),
	}
}

func (r *Recorder) RoomStarted(state models.RoomState) {
	r.enqueue(job{name: "room " + state.RoomID + " started", run: func(ctx context.Context) error {
		return r.db.SaveRoomState(ctx, state)
	}})
}

func (r *Recorder) RoomClosed(record models.GameRecord) {
	r.enqueue(job{name: "room " + record.RoomID + " closed", run: func(ctx context.Context) error {
		return r.db.SaveGameRecord(ctx, record)
	}})
}

func (r *Recorder) enqueue(j job) {
	select {
	case r.queue <- j:
	default:
		logger.Log.Warnf("history: %v, dropping %s", ErrRecorderFull, j.name)
	}
}

// Run executes queued writes until ctx is done, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case j := <-r.queue:
			r.exec(ctx, j)
		case <-ctx.Done():
			r.flush()
			return
		}
	}
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	for {
		select {
		case j := <-r.queue:
			r.exec(ctx, j)
		default:
			return
		}
	}
}

func (r *Recorder) exec(ctx context.Context, j job) {
	if err := j.run(ctx); err != nil {
		logger.Log.Errorf("history: %s: %v", j.name, err)
		return
	}
	logger.Log.Debugf("history: %s saved", j.name)
}
