package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/intervu/intervu/internal/pkg/messages"
	"github.com/intervu/intervu/internal/pkg/persistence"
	"github.com/intervu/intervu/internal/pkg/status"
	"github.com/intervu/intervu/internal/pkg/utils"
)

// ErrValidation marks rejected input, no side effects happened
var ErrValidation = errors.New("validation error")

// FileSaver provides save file functionality, returns streaming URL
type FileSaver interface {
	SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64, contentType string) (string, error)
}

// DB saves video metadata
type DB interface {
	LoadSession(ctx context.Context, id string) (*persistence.Session, error)
	InsertVideoResponse(ctx context.Context, item *persistence.VideoResponse) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg amessages.Message, queue, jobType string) error
}

// Ingestor stores candidate answer videos and dispatches transcription
type Ingestor struct {
	saver     FileSaver
	db        DB
	msgSender MsgSender
	maxSize   int64
}

// NewIngestor creates ingestor instance, maxSize limits accepted video bytes
func NewIngestor(saver FileSaver, db DB, msgSender MsgSender, maxSize int64) (*Ingestor, error) {
	if saver == nil {
		return nil, fmt.Errorf("no file saver")
	}
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if msgSender == nil {
		return nil, fmt.Errorf("no msg sender")
	}
	if maxSize < 1 {
		return nil, fmt.Errorf("wrong max size %d", maxSize)
	}
	return &Ingestor{saver: saver, db: db, msgSender: msgSender, maxSize: maxSize}, nil
}

// Ingest validates and stores one video, persists its metadata and schedules
// transcription as detached background work. The metadata row is written only
// after the storage upload is confirmed. Ingest success does not depend on the
// transcription outcome.
func (in *Ingestor) Ingest(ctx context.Context, sessionID, questionID string, r io.Reader, size int64, mimeType, fileName string) (*persistence.VideoResponse, error) {
	defer goapp.Estimate("ingest method")()
	if err := in.validateInput(size, mimeType); err != nil {
		return nil, err
	}
	ses, err := in.db.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("can't load session: %w", err)
	}
	if ses == nil {
		return nil, fmt.Errorf("unknown session '%s': %w", sessionID, ErrValidation)
	}
	id := uuid.New().String()
	key, err := utils.MakeStorageKey(sessionID, questionID, id+extOrDefault(fileName))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrValidation)
	}
	url, err := in.saver.SaveFile(ctx, key, r, size, mimeType)
	if err != nil {
		return nil, fmt.Errorf("can't store video: %w", err)
	}
	res := &persistence.VideoResponse{
		ID:           id,
		SessionID:    sessionID,
		QuestionID:   questionID,
		StorageKey:   key,
		PublicURL:    url,
		SizeBytes:    size,
		MimeType:     mimeType,
		UploadStatus: status.Completed.String(),
		Created:      time.Now(),
	}
	if err := in.db.InsertVideoResponse(ctx, res); err != nil {
		return nil, fmt.Errorf("can't save video metadata: %w", err)
	}
	err = in.msgSender.SendMessage(ctx, &messages.TranscribeMessage{
		QueueMessage: amessages.QueueMessage{ID: id},
		SessionID:    sessionID, QuestionID: questionID}, messages.Work, messages.JobTranscribe)
	if err != nil {
		return nil, fmt.Errorf("can't schedule transcription: %w", err)
	}
	goapp.Log.Info().Str("ID", id).Str("session", sessionID).Str("question", questionID).
		Int64("size", size).Msg("video ingested")
	return res, nil
}

func (in *Ingestor) validateInput(size int64, mimeType string) error {
	if !strings.HasPrefix(mimeType, "video/") {
		return fmt.Errorf("not a video mime type '%s': %w", mimeType, ErrValidation)
	}
	if size < 1 {
		return fmt.Errorf("empty payload: %w", ErrValidation)
	}
	if size > in.maxSize {
		return fmt.Errorf("payload %d exceeds max %d: %w", size, in.maxSize, ErrValidation)
	}
	return nil
}

func extOrDefault(fileName string) string {
	i := strings.LastIndex(fileName, ".")
	if i < 0 {
		return ".mp4"
	}
	ext := strings.ToLower(fileName[i:])
	if !utils.SupportVideoExt(ext) {
		return ".mp4"
	}
	return ext
}
