package attempt

import (
	"context"
	"errors"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/intervu/intervu/internal/pkg/persistence"
)

// Attempt rejection reasons
var (
	// ErrRetakeExhausted - no attempts left for the question
	ErrRetakeExhausted = errors.New("retake exhausted")
	// ErrAlreadyCompleted - the question is completed, no further attempts
	ErrAlreadyCompleted = errors.New("question already completed")
)

// DB provides progress persistence
type DB interface {
	UpsertAttempt(ctx context.Context, sessionID, questionID string, maxAttempts int) (*persistence.QuestionProgress, error)
	LoadProgress(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error)
	MarkCompleted(ctx context.Context, sessionID, questionID string) error
}

// Tracker is the per-(session, question) attempt state machine
type Tracker struct {
	db         DB
	maxRetakes int
}

// NewTracker creates tracker instance. maxRetakes is the attempt limit per question
func NewTracker(db DB, maxRetakes int) (*Tracker, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if maxRetakes < 1 {
		return nil, fmt.Errorf("wrong maxRetakes %d", maxRetakes)
	}
	return &Tracker{db: db, maxRetakes: maxRetakes}, nil
}

// RecordAttempt registers one attempt. The increment is a single conditional
// upsert in the DB, so concurrent submissions can't lose an update.
// Returns ErrAlreadyCompleted or ErrRetakeExhausted when not eligible.
func (t *Tracker) RecordAttempt(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error) {
	if err := validateIDs(sessionID, questionID); err != nil {
		return nil, err
	}
	res, err := t.db.UpsertAttempt(ctx, sessionID, questionID, t.maxRetakes)
	if err != nil {
		return nil, fmt.Errorf("can't record attempt: %w", err)
	}
	if res == nil {
		p, err := t.db.LoadProgress(ctx, sessionID, questionID)
		if err != nil {
			return nil, fmt.Errorf("can't load progress: %w", err)
		}
		if p != nil && p.IsCompleted {
			return nil, ErrAlreadyCompleted
		}
		return nil, ErrRetakeExhausted
	}
	goapp.Log.Info().Str("session", sessionID).Str("question", questionID).
		Int32("attempts", res.AttemptsUsed).Msg("attempt recorded")
	return res, nil
}

// CanRetake tells if one more attempt is allowed. First attempt is always free.
func (t *Tracker) CanRetake(ctx context.Context, sessionID, questionID string) (bool, error) {
	if err := validateIDs(sessionID, questionID); err != nil {
		return false, err
	}
	p, err := t.db.LoadProgress(ctx, sessionID, questionID)
	if err != nil {
		return false, fmt.Errorf("can't load progress: %w", err)
	}
	if p == nil {
		return true, nil
	}
	return int(p.AttemptsUsed) < t.maxRetakes && !p.IsCompleted, nil
}

// MarkCompleted moves the question to its terminal state, idempotent
func (t *Tracker) MarkCompleted(ctx context.Context, sessionID, questionID string) error {
	if err := validateIDs(sessionID, questionID); err != nil {
		return err
	}
	if err := t.db.MarkCompleted(ctx, sessionID, questionID); err != nil {
		return fmt.Errorf("can't mark completed: %w", err)
	}
	return nil
}

// GetProgress loads progress, nil if no attempt was made yet
func (t *Tracker) GetProgress(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error) {
	if err := validateIDs(sessionID, questionID); err != nil {
		return nil, err
	}
	return t.db.LoadProgress(ctx, sessionID, questionID)
}

func validateIDs(sessionID, questionID string) error {
	if sessionID == "" {
		return fmt.Errorf("no session ID")
	}
	if questionID == "" {
		return fmt.Errorf("no question ID")
	}
	return nil
}
