package mocks

import (
	"context"
	"io"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/intervu/intervu/internal/pkg/persistence"
	"github.com/intervu/intervu/internal/pkg/recognizer/api"
	"github.com/stretchr/testify/mock"
)

// Filer is storage gateway mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64, contentType string) (string, error) {
	args := m.Called(ctx, name, r, fileSize, contentType)
	return args.String(0), args.Error(1)
}

func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

func (m *Filer) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	args := m.Called(ctx, prefix)
	return args.Int(0), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) LoadSession(ctx context.Context, id string) (*persistence.Session, error) {
	args := m.Called(ctx, id)
	return to[*persistence.Session](args.Get(0)), args.Error(1)
}

func (m *DB) UpsertAttempt(ctx context.Context, sessionID, questionID string, maxAttempts int) (*persistence.QuestionProgress, error) {
	args := m.Called(ctx, sessionID, questionID, maxAttempts)
	return to[*persistence.QuestionProgress](args.Get(0)), args.Error(1)
}

func (m *DB) LoadProgress(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error) {
	args := m.Called(ctx, sessionID, questionID)
	return to[*persistence.QuestionProgress](args.Get(0)), args.Error(1)
}

func (m *DB) LoadProgressList(ctx context.Context, sessionID string) ([]*persistence.QuestionProgress, error) {
	args := m.Called(ctx, sessionID)
	return to[[]*persistence.QuestionProgress](args.Get(0)), args.Error(1)
}

func (m *DB) MarkCompleted(ctx context.Context, sessionID, questionID string) error {
	args := m.Called(ctx, sessionID, questionID)
	return args.Error(0)
}

func (m *DB) InsertVideoResponse(ctx context.Context, item *persistence.VideoResponse) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadVideoResponse(ctx context.Context, id string) (*persistence.VideoResponse, error) {
	args := m.Called(ctx, id)
	return to[*persistence.VideoResponse](args.Get(0)), args.Error(1)
}

func (m *DB) InsertTranscript(ctx context.Context, item *persistence.Transcript) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadTranscriptByVideo(ctx context.Context, videoResponseID string) (*persistence.Transcript, error) {
	args := m.Called(ctx, videoResponseID)
	return to[*persistence.Transcript](args.Get(0)), args.Error(1)
}

func (m *DB) LoadTranscripts(ctx context.Context, sessionID string) ([]*persistence.Transcript, error) {
	args := m.Called(ctx, sessionID)
	return to[[]*persistence.Transcript](args.Get(0)), args.Error(1)
}

func (m *DB) LoadKeywords(ctx context.Context, ownerID string) ([]*persistence.KeywordDefinition, error) {
	args := m.Called(ctx, ownerID)
	return to[[]*persistence.KeywordDefinition](args.Get(0)), args.Error(1)
}

func (m *DB) InsertScore(ctx context.Context, item *persistence.SessionKeywordScore) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadLatestScore(ctx context.Context, sessionID string) (*persistence.SessionKeywordScore, error) {
	args := m.Called(ctx, sessionID)
	return to[*persistence.SessionKeywordScore](args.Get(0)), args.Error(1)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue, jobType string) error {
	args := m.Called(ctx, msg, queue, jobType)
	return args.Error(0)
}

// Recognizer is speech backend mock
type Recognizer struct{ mock.Mock }

func (m *Recognizer) Recognize(ctx context.Context, audio []byte, cfg *api.Config) ([]api.Alternative, error) {
	args := m.Called(ctx, audio, cfg)
	return to[[]api.Alternative](args.Get(0)), args.Error(1)
}

func (m *Recognizer) Live(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// RecognizerProvider is speech backend provider mock
type RecognizerProvider struct{ mock.Mock }

func (m *RecognizerProvider) Get() (api.Recognizer, string, error) {
	args := m.Called()
	return to[api.Recognizer](args.Get(0)), args.String(1), args.Error(2)
}

// Transcoder is media transcoder mock
type Transcoder struct{ mock.Mock }

func (m *Transcoder) ExtractAudio(ctx context.Context, inputPath string) (string, error) {
	args := m.Called(ctx, inputPath)
	return args.String(0), args.Error(1)
}

// Tracker is attempt tracker mock
type Tracker struct{ mock.Mock }

func (m *Tracker) RecordAttempt(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error) {
	args := m.Called(ctx, sessionID, questionID)
	return to[*persistence.QuestionProgress](args.Get(0)), args.Error(1)
}

func (m *Tracker) CanRetake(ctx context.Context, sessionID, questionID string) (bool, error) {
	args := m.Called(ctx, sessionID, questionID)
	return args.Bool(0), args.Error(1)
}

func (m *Tracker) MarkCompleted(ctx context.Context, sessionID, questionID string) error {
	args := m.Called(ctx, sessionID, questionID)
	return args.Error(0)
}

func (m *Tracker) GetProgress(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error) {
	args := m.Called(ctx, sessionID, questionID)
	return to[*persistence.QuestionProgress](args.Get(0)), args.Error(1)
}

// Ingestor is video ingestor mock
type Ingestor struct{ mock.Mock }

func (m *Ingestor) Ingest(ctx context.Context, sessionID, questionID string, r io.Reader, size int64, mimeType, fileName string) (*persistence.VideoResponse, error) {
	args := m.Called(ctx, sessionID, questionID, r, size, mimeType, fileName)
	return to[*persistence.VideoResponse](args.Get(0)), args.Error(1)
}

// Scorer is scoring engine mock
type Scorer struct{ mock.Mock }

func (m *Scorer) Recompute(ctx context.Context, sessionID string) (*persistence.SessionKeywordScore, error) {
	args := m.Called(ctx, sessionID)
	return to[*persistence.SessionKeywordScore](args.Get(0)), args.Error(1)
}

// TmpManager is scratch file manager mock
type TmpManager struct{ mock.Mock }

func (m *TmpManager) VideoPath(id, ext string) string {
	args := m.Called(id, ext)
	return args.String(0)
}

func (m *TmpManager) AudioPath(id string) string {
	args := m.Called(id)
	return args.String(0)
}

func (m *TmpManager) ForceDelete(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
