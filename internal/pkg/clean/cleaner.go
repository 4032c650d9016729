package clean

import (
	"context"
	"fmt"

	"github.com/intervu/intervu/internal/pkg/utils"
)

// DBCleaner drops a session's rows
type DBCleaner interface {
	Clean(ctx context.Context, sessionID string) error
}

// ObjectCleaner drops stored objects under a key prefix
type ObjectCleaner interface {
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// SessionCleaner removes the stored videos of a session and then its rows
type SessionCleaner struct {
	db      DBCleaner
	objects ObjectCleaner
}

// NewSessionCleaner creates cleaner instance
func NewSessionCleaner(db DBCleaner, objects ObjectCleaner) (*SessionCleaner, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB cleaner")
	}
	if objects == nil {
		return nil, fmt.Errorf("no object cleaner")
	}
	return &SessionCleaner{db: db, objects: objects}, nil
}

// Clean removes objects first so no metadata ever points at deleted rows only
func (c *SessionCleaner) Clean(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("no session ID")
	}
	if _, err := c.objects.DeletePrefix(ctx, utils.SessionPrefix(sessionID)); err != nil {
		return fmt.Errorf("can't delete objects: %w", err)
	}
	if err := c.db.Clean(ctx, sessionID); err != nil {
		return fmt.Errorf("can't delete rows: %w", err)
	}
	return nil
}
