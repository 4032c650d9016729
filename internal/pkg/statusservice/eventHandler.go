package statusservice

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

// EventData keeps data required for change event listening
type EventData struct {
	GueClient   *gue.Client
	WorkerCount int
	DB          DB
	WSHandler   WSConnHandler
	Testing     bool
}

// StartEventService listens for session change messages and pushes
// fresh summaries to subscribed websocket clients
func StartEventService(ctx context.Context, data *EventData) (chan struct{}, error) {
	if err := validateEvent(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("workers", data.WorkerCount).Msg("Starting listen for status messages")

	wm := gue.WorkMap{
		messages.JobStatusChange: handler.Create(data, handleStatusChange,
			handler.DefaultOpts[messages.StatusMessage]().
				WithTimeout(time.Second*30).
				WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Status),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("status-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting status workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Status workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

type changeEvent struct {
	SessionID  string         `json:"sessionID"`
	Event      string         `json:"event"`
	QuestionID string         `json:"questionID,omitempty"`
	Summary    *sessionResult `json:"summary,omitempty"`
}

func handleStatusChange(ctx context.Context, m *messages.StatusMessage, data *EventData) error {
	goapp.Log.Info().Str("ID", m.ID).Str("event", m.Event).Msg("handling status change")
	conns, found := data.WSHandler.GetConnections(m.ID)
	if !found {
		goapp.Log.Debug().Str("ID", m.ID).Msg("no subscribers")
		return nil
	}
	summary, err := loadSummary(ctx, data.DB, m.ID)
	if err != nil {
		return fmt.Errorf("can't load summary: %w", err)
	}
	ev := changeEvent{SessionID: m.ID, Event: m.Event, QuestionID: m.QuestionID, Summary: summary}
	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			goapp.Log.Warn().Err(err).Msg("can't push to subscriber")
		}
	}
	return nil
}

func validateEvent(data *EventData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.WSHandler == nil {
		return fmt.Errorf("no ws handler")
	}
	return nil
}
