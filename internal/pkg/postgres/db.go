package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/intervu/intervu/internal/pkg/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// LoadSession loads session from DB, nil if not found
func (db *DB) LoadSession(ctx context.Context, id string) (*persistence.Session, error) {
	var res persistence.Session
	err := db.pool.QueryRow(ctx, `SELECT id, owner_id, created FROM sessions
		WHERE id = $1`, id).Scan(&res.ID, &res.OwnerID, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load session: %w", err)
	}
	return &res, nil
}

// UpsertAttempt atomically registers one attempt for (session, question).
// Creates the row on first attempt, else increments attempts_used only while
// the question is not completed and attempts_used < maxAttempts.
// Returns nil without error when the conditional update matched nothing.
func (db *DB) UpsertAttempt(ctx context.Context, sessionID, questionID string, maxAttempts int) (*persistence.QuestionProgress, error) {
	var res persistence.QuestionProgress
	err := db.pool.QueryRow(ctx, `INSERT INTO question_progress(session_id, question_id, attempts_used, is_completed, last_attempt_at)
	VALUES($1, $2, 1, FALSE, $4)
	ON CONFLICT (session_id, question_id) DO UPDATE
	SET attempts_used = question_progress.attempts_used + 1, last_attempt_at = $4
	WHERE question_progress.attempts_used < $3 AND NOT question_progress.is_completed
	RETURNING session_id, question_id, attempts_used, is_completed, last_attempt_at`,
		sessionID, questionID, maxAttempts, time.Now()).
		Scan(&res.SessionID, &res.QuestionID, &res.AttemptsUsed, &res.IsCompleted, &res.LastAttemptAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't upsert attempt: %w", err)
	}
	return &res, nil
}

// LoadProgress loads progress row, nil if no attempt was made yet
func (db *DB) LoadProgress(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error) {
	var res persistence.QuestionProgress
	err := db.pool.QueryRow(ctx, `SELECT session_id, question_id, attempts_used, is_completed, last_attempt_at
		FROM question_progress WHERE session_id = $1 AND question_id = $2`, sessionID, questionID).
		Scan(&res.SessionID, &res.QuestionID, &res.AttemptsUsed, &res.IsCompleted, &res.LastAttemptAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load progress: %w", err)
	}
	return &res, nil
}

// LoadProgressList loads all progress rows of a session
func (db *DB) LoadProgressList(ctx context.Context, sessionID string) ([]*persistence.QuestionProgress, error) {
	rows, err := db.pool.Query(ctx, `SELECT session_id, question_id, attempts_used, is_completed, last_attempt_at
		FROM question_progress WHERE session_id = $1 ORDER BY question_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("can't load progress list: %w", err)
	}
	defer rows.Close()
	res := []*persistence.QuestionProgress{}
	for rows.Next() {
		var p persistence.QuestionProgress
		if err := rows.Scan(&p.SessionID, &p.QuestionID, &p.AttemptsUsed, &p.IsCompleted, &p.LastAttemptAt); err != nil {
			return nil, fmt.Errorf("can't read progress: %w", err)
		}
		res = append(res, &p)
	}
	return res, nil
}

// MarkCompleted sets is_completed permanently, idempotent
func (db *DB) MarkCompleted(ctx context.Context, sessionID, questionID string) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO question_progress(session_id, question_id, attempts_used, is_completed, last_attempt_at)
	VALUES($1, $2, 0, TRUE, $3)
	ON CONFLICT (session_id, question_id) DO UPDATE SET is_completed = TRUE`,
		sessionID, questionID, time.Now())
	if err != nil {
		return fmt.Errorf("can't mark completed: %w", err)
	}
	return nil
}

// InsertVideoResponse inserts video metadata into DB
func (db *DB) InsertVideoResponse(ctx context.Context, item *persistence.VideoResponse) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO video_responses(id, session_id, question_id, storage_key, public_url, size_bytes, mime_type, upload_status, created)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`, item.ID, item.SessionID, item.QuestionID,
		item.StorageKey, item.PublicURL, item.SizeBytes, item.MimeType, item.UploadStatus, item.Created)
	if err != nil {
		return fmt.Errorf("can't insert video response: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadVideoResponse loads video metadata from DB, nil if not found
func (db *DB) LoadVideoResponse(ctx context.Context, id string) (*persistence.VideoResponse, error) {
	var res persistence.VideoResponse
	err := db.pool.QueryRow(ctx, `SELECT id, session_id, question_id, storage_key, public_url, size_bytes, mime_type, upload_status, created
		FROM video_responses WHERE id = $1`, id).Scan(&res.ID, &res.SessionID, &res.QuestionID,
		&res.StorageKey, &res.PublicURL, &res.SizeBytes, &res.MimeType, &res.UploadStatus, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load video response: %w", err)
	}
	return &res, nil
}

// InsertTranscript inserts transcript into DB
func (db *DB) InsertTranscript(ctx context.Context, item *persistence.Transcript) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO transcripts(id, video_response_id, session_id, question_id, text, confidence, word_count, created)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8)`, item.ID, item.VideoResponseID, item.SessionID,
		item.QuestionID, item.Text, item.Confidence, item.WordCount, item.Created)
	if err != nil {
		return fmt.Errorf("can't insert transcript: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadTranscriptByVideo loads transcript of a video response, nil if none exists
func (db *DB) LoadTranscriptByVideo(ctx context.Context, videoResponseID string) (*persistence.Transcript, error) {
	var res persistence.Transcript
	err := db.pool.QueryRow(ctx, `SELECT id, video_response_id, session_id, question_id, text, confidence, word_count, created
		FROM transcripts WHERE video_response_id = $1`, videoResponseID).
		Scan(&res.ID, &res.VideoResponseID, &res.SessionID, &res.QuestionID, &res.Text, &res.Confidence, &res.WordCount, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load transcript: %w", err)
	}
	return &res, nil
}

// LoadTranscripts loads all completed transcripts of a session
func (db *DB) LoadTranscripts(ctx context.Context, sessionID string) ([]*persistence.Transcript, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, video_response_id, session_id, question_id, text, confidence, word_count, created
		FROM transcripts WHERE session_id = $1 ORDER BY created`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("can't load transcripts: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Transcript{}
	for rows.Next() {
		var tr persistence.Transcript
		if err := rows.Scan(&tr.ID, &tr.VideoResponseID, &tr.SessionID, &tr.QuestionID,
			&tr.Text, &tr.Confidence, &tr.WordCount, &tr.Created); err != nil {
			return nil, fmt.Errorf("can't read transcript: %w", err)
		}
		res = append(res, &tr)
	}
	return res, nil
}

// LoadKeywords loads the keyword rubric of an owner
func (db *DB) LoadKeywords(ctx context.Context, ownerID string) ([]*persistence.KeywordDefinition, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, owner_id, keyword, category, weight
		FROM keyword_definitions WHERE owner_id = $1 ORDER BY keyword`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("can't load keywords: %w", err)
	}
	defer rows.Close()
	res := []*persistence.KeywordDefinition{}
	for rows.Next() {
		var kw persistence.KeywordDefinition
		if err := rows.Scan(&kw.ID, &kw.OwnerID, &kw.Keyword, &kw.Category, &kw.Weight); err != nil {
			return nil, fmt.Errorf("can't read keyword: %w", err)
		}
		res = append(res, &kw)
	}
	return res, nil
}

// InsertScore inserts a new score snapshot into DB
func (db *DB) InsertScore(ctx context.Context, item *persistence.SessionKeywordScore) error {
	breakdown, err := json.Marshal(item.Breakdown)
	if err != nil {
		return fmt.Errorf("can't marshal breakdown: %w", err)
	}
	rows, err := db.pool.Query(ctx, `INSERT INTO session_keyword_scores(id, session_id, owner_id, overall_score, technical_score,
	soft_skills_score, experience_score, found_count, possible_count, breakdown, calculated_at, updated_at)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, item.ID, item.SessionID, item.OwnerID,
		item.Overall, item.Technical, item.SoftSkills, item.Experience,
		item.FoundCount, item.PossibleCount, breakdown, item.Calculated, item.Updated)
	if err != nil {
		return fmt.Errorf("can't insert score: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadLatestScore loads the most recent score snapshot of a session, nil if none exists
func (db *DB) LoadLatestScore(ctx context.Context, sessionID string) (*persistence.SessionKeywordScore, error) {
	var res persistence.SessionKeywordScore
	var breakdown []byte
	err := db.pool.QueryRow(ctx, `SELECT id, session_id, owner_id, overall_score, technical_score,
	soft_skills_score, experience_score, found_count, possible_count, breakdown, calculated_at, updated_at
		FROM session_keyword_scores WHERE session_id = $1 ORDER BY updated_at DESC LIMIT 1`, sessionID).
		Scan(&res.ID, &res.SessionID, &res.OwnerID, &res.Overall, &res.Technical, &res.SoftSkills,
			&res.Experience, &res.FoundCount, &res.PossibleCount, &breakdown, &res.Calculated, &res.Updated)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load score: %w", err)
	}
	if err := json.Unmarshal(breakdown, &res.Breakdown); err != nil {
		return nil, fmt.Errorf("can't unmarshal breakdown: %w", err)
	}
	return &res, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
