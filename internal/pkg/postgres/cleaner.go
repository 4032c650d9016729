package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner drops all records of one session
type Cleaner struct {
	pool   *pgxpool.Pool
	tables []string
}

// NewCleaner creates Cleaner instance
func NewCleaner(pool *pgxpool.Pool) (*Cleaner, error) {
	res := &Cleaner{pool: pool, tables: []string{"session_keyword_scores", "transcripts",
		"video_responses", "question_progress"}}
	return res, nil
}

// Clean deletes session rows from all owned tables
func (db *Cleaner) Clean(ctx context.Context, sessionID string) error {
	for _, t := range db.tables {
		cmd, err := db.pool.Exec(ctx, `DELETE FROM `+t+` WHERE session_id = $1`, sessionID)
		if err != nil {
			return fmt.Errorf("can't delete %s(%s): %w", sessionID, t, err)
		}
		goapp.Log.Info().Str("ID", sessionID).Str("table", t).Int64("rows", cmd.RowsAffected()).Msg("deleted")
	}
	return nil
}
