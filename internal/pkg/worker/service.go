package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/intervu/intervu/internal/pkg/messages"
	"github.com/intervu/intervu/internal/pkg/utils"
	"github.com/intervu/intervu/internal/pkg/utils/handler"
	"github.com/vgarvardt/gue/v5"
)

// Pipeline runs the transcription steps for one video response
type Pipeline interface {
	Process(ctx context.Context, videoResponseID string) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	Pipeline    Pipeline
	Testing     bool
}

// StartWorkerService starts the queue listener running transcription jobs,
// returns channel closed when all workers finish
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	wm := gue.WorkMap{
		// transcription failures are terminal: a failed question simply
		// contributes no transcript, the stored video stays intact
		messages.JobTranscribe: handler.Create(data, handleTranscribe,
			handler.DefaultOpts[messages.TranscribeMessage]().
				WithTimeout(time.Minute*30).
				WithFailure(handler.NoRetryFailureHandler[messages.TranscribeMessage]()).
				WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Work),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("transcribe-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleTranscribe(ctx context.Context, m *messages.TranscribeMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Str("session", m.SessionID).Msg("handling transcribe")
	return data.Pipeline.Process(ctx, m.ID)
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.Pipeline == nil {
		return fmt.Errorf("no pipeline")
	}
	return nil
}
