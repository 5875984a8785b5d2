package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkamaev/tuneguess-bot/internal/domain/entities"
)

var ErrNoRuns = errors.New("no runs recorded yet")

// RunHistoryRepository stores summaries of finished runs.
type RunHistoryRepository struct {
	db *pgxpool.Pool
}

// NewRunHistoryRepository creates a new RunHistoryRepository.
func NewRunHistoryRepository(db *pgxpool.Pool) *RunHistoryRepository {
	return &RunHistoryRepository{db: db}
}

// EnsureSchema creates the play_runs table if it does not exist yet.
func (r *RunHistoryRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS play_runs (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			rounds INT NOT NULL,
			questions INT NOT NULL,
			correct INT NOT NULL,
			errors INT NOT NULL,
			aborted BOOLEAN NOT NULL
		)
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create play_runs table: %w", err)
	}

	return nil
}

// Save inserts one run summary row.
func (r *RunHistoryRepository) Save(ctx context.Context, rec *entities.RunRecord) error {
	query := `
		INSERT INTO play_runs (started_at, finished_at, rounds, questions, correct, errors, aborted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		rec.StartedAt,
		rec.FinishedAt,
		rec.Rounds,
		rec.Questions,
		rec.Correct,
		rec.Errors,
		rec.Aborted,
	)
	if err != nil {
		return fmt.Errorf("save run record: %w", err)
	}

	return nil
}

// Last returns the most recently finished run.
func (r *RunHistoryRepository) Last(ctx context.Context) (*entities.RunRecord, error) {
	query := `
		SELECT started_at, finished_at, rounds, questions, correct, errors, aborted
		FROM play_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var rec entities.RunRecord
	err := r.db.QueryRow(ctx, query).Scan(
		&rec.StartedAt,
		&rec.FinishedAt,
		&rec.Rounds,
		&rec.Questions,
		&rec.Correct,
		&rec.Errors,
		&rec.Aborted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRuns
		}
		return nil, fmt.Errorf("get last run: %w", err)
	}

	return &rec, nil
}
