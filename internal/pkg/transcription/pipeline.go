package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"
	"github.com/intervu/intervu/internal/pkg/messages"
	"github.com/intervu/intervu/internal/pkg/persistence"
	rapi "github.com/intervu/intervu/internal/pkg/recognizer/api"
	"github.com/intervu/intervu/internal/pkg/scoring"
)

// DB provides transcript persistence
type DB interface {
	LoadVideoResponse(ctx context.Context, id string) (*persistence.VideoResponse, error)
	LoadTranscriptByVideo(ctx context.Context, videoResponseID string) (*persistence.Transcript, error)
	InsertTranscript(ctx context.Context, item *persistence.Transcript) error
}

// Filer retrieves stored video bytes
type Filer interface {
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// Transcoder extracts the audio track as mono 16 kHz PCM16 WAV
type Transcoder interface {
	ExtractAudio(ctx context.Context, inputPath string) (string, error)
}

// RecognizerProvider hands out an available speech backend client
type RecognizerProvider interface {
	Get() (rapi.Recognizer, string, error)
}

// Scorer recomputes the session score
type Scorer interface {
	Recompute(ctx context.Context, sessionID string) (*persistence.SessionKeywordScore, error)
}

// TmpManager owns scratch files of the pipeline
type TmpManager interface {
	VideoPath(id, ext string) string
	ForceDelete(path string) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg amessages.Message, queue, jobType string) error
}

// Worker runs the background transcription pipeline for one video response
type Worker struct {
	db         DB
	filer      Filer
	transcoder Transcoder
	provider   RecognizerProvider
	scorer     Scorer
	tmp        TmpManager
	msgSender  MsgSender
	recCfg     *rapi.Config
}

// NewWorker creates pipeline worker instance
func NewWorker(db DB, filer Filer, transcoder Transcoder, provider RecognizerProvider,
	scorer Scorer, tmp TmpManager, msgSender MsgSender, recCfg *rapi.Config) (*Worker, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if filer == nil {
		return nil, fmt.Errorf("no filer")
	}
	if transcoder == nil {
		return nil, fmt.Errorf("no transcoder")
	}
	if provider == nil {
		return nil, fmt.Errorf("no speech backend provider")
	}
	if scorer == nil {
		return nil, fmt.Errorf("no scorer")
	}
	if tmp == nil {
		return nil, fmt.Errorf("no tmp manager")
	}
	if msgSender == nil {
		return nil, fmt.Errorf("no msg sender")
	}
	if recCfg == nil {
		return nil, fmt.Errorf("no recognition config")
	}
	return &Worker{db: db, filer: filer, transcoder: transcoder, provider: provider,
		scorer: scorer, tmp: tmp, msgSender: msgSender, recCfg: recCfg}, nil
}

// Process transcribes one stored video and triggers a score recompute.
// Idempotent by video id: an existing transcript short-circuits to success.
// Scratch files are removed on every exit path.
func (w *Worker) Process(ctx context.Context, videoResponseID string) error {
	goapp.Log.Info().Str("ID", videoResponseID).Msg("handling transcription")
	vr, err := w.db.LoadVideoResponse(ctx, videoResponseID)
	if err != nil {
		return fmt.Errorf("can't load video response: %w", err)
	}
	if vr == nil {
		goapp.Log.Warn().Str("ID", videoResponseID).Msg("video response gone - skip")
		return nil
	}
	existing, err := w.db.LoadTranscriptByVideo(ctx, videoResponseID)
	if err != nil {
		return fmt.Errorf("can't check transcript: %w", err)
	}
	if existing != nil {
		goapp.Log.Info().Str("ID", videoResponseID).Msg("transcript exists - skip")
		return nil
	}

	videoPath := w.tmp.VideoPath(vr.ID, filepath.Ext(vr.StorageKey))
	defer func() { _ = w.tmp.ForceDelete(videoPath) }()
	if err := w.fetchVideo(ctx, vr.StorageKey, videoPath); err != nil {
		return fmt.Errorf("can't fetch video: %w", err)
	}

	audioPath, err := w.transcoder.ExtractAudio(ctx, videoPath)
	if audioPath != "" {
		defer func() { _ = w.tmp.ForceDelete(audioPath) }()
	}
	if err != nil {
		return fmt.Errorf("can't extract audio: %w", err)
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("can't read audio: %w", err)
	}
	rec, srv, err := w.provider.Get()
	if err != nil {
		return fmt.Errorf("can't get speech backend: %w", err)
	}
	goapp.Log.Info().Str("ID", vr.ID).Str("srv", srv).Int("bytes", len(audio)).Msg("recognizing")
	alts, err := rec.Recognize(ctx, audio, w.recCfg)
	if err != nil {
		return fmt.Errorf("can't recognize: %w", err)
	}

	text, confidence := Aggregate(alts)
	tr := &persistence.Transcript{
		ID:              uuid.New().String(),
		VideoResponseID: vr.ID,
		SessionID:       vr.SessionID,
		QuestionID:      vr.QuestionID,
		Text:            text,
		Confidence:      confidence,
		WordCount:       int32(CountWords(text)),
		Created:         time.Now(),
	}
	if err := w.db.InsertTranscript(ctx, tr); err != nil {
		return fmt.Errorf("can't save transcript: %w", err)
	}
	goapp.Log.Info().Str("ID", vr.ID).Int32("words", tr.WordCount).
		Float64("confidence", tr.Confidence).Msg("transcript saved")
	w.sendStatus(ctx, vr, messages.EventTranscript)

	if _, err := w.scorer.Recompute(ctx, vr.SessionID); err != nil {
		if errors.Is(err, scoring.ErrScoreUnavailable) {
			goapp.Log.Info().Str("session", vr.SessionID).Msg("score pending")
			return nil
		}
		return fmt.Errorf("can't recompute score: %w", err)
	}
	w.sendStatus(ctx, vr, messages.EventScore)
	return nil
}

func (w *Worker) fetchVideo(ctx context.Context, key, path string) error {
	r, err := w.filer.LoadFile(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

// sendStatus is a best effort notification, failure does not fail the pipeline
func (w *Worker) sendStatus(ctx context.Context, vr *persistence.VideoResponse, event string) {
	err := w.msgSender.SendMessage(ctx, &messages.StatusMessage{
		QueueMessage: amessages.QueueMessage{ID: vr.SessionID},
		Event:        event, QuestionID: vr.QuestionID}, messages.Status, messages.JobStatusChange)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("session", vr.SessionID).Msg("can't send status msg")
	}
}

// Aggregate joins alternative transcripts with one space and averages
// per-segment confidences, 0 if there are no segments
func Aggregate(alts []rapi.Alternative) (string, float64) {
	texts := make([]string, 0, len(alts))
	sum := 0.0
	for _, a := range alts {
		texts = append(texts, a.Transcript)
		sum += a.Confidence
	}
	if len(alts) == 0 {
		return "", 0
	}
	return strings.Join(texts, " "), sum / float64(len(alts))
}

// CountWords splits trimmed text on whitespace discarding empty tokens
func CountWords(text string) int {
	return len(strings.Fields(strings.TrimSpace(text)))
}
