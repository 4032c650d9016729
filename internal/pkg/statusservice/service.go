package statusservice

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	"github.com/gorilla/websocket"
	perrors "github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/intervu/intervu/internal/pkg/persistence"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DB loads session result info
type DB interface {
	LoadSession(ctx context.Context, id string) (*persistence.Session, error)
	LoadProgressList(ctx context.Context, sessionID string) ([]*persistence.QuestionProgress, error)
	LoadTranscripts(ctx context.Context, sessionID string) ([]*persistence.Transcript, error)
	LoadLatestScore(ctx context.Context, sessionID string) (*persistence.SessionKeywordScore, error)
}

// WSConnHandler handles websocket connections of subscribed clients
type WSConnHandler interface {
	HandleConnection(WsConn) error
	GetConnections(sessionID string) ([]WsConn, bool)
}

// Data keeps data required for service work
type Data struct {
	Port      int
	DB        DB
	WSHandler WSConnHandler
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP INTERVU status service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.DB == nil {
		return perrors.New("no DB")
	}
	if data.WSHandler == nil {
		return perrors.New("no ws handler")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("intervu_status", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.GET("/session/:id", sessionHandler(data))
	e.GET("/subscribe", subscribeHandler(data))
	e.GET("/live", live(data))

	goapp.Log.Info().Msg("Routes:")
	for _, r := range e.Routes() {
		goapp.Log.Info().Msgf("  %s %s", r.Method, r.Path)
	}
	return e
}

func live(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(`{"service":"OK"}`))
	}
}

type questionResult struct {
	QuestionID    string `json:"questionID"`
	AttemptsUsed  int32  `json:"attemptsUsed"`
	IsCompleted   bool   `json:"isCompleted"`
	HasTranscript bool   `json:"hasTranscript"`
}

type sessionResult struct {
	ID        string           `json:"id"`
	Questions []questionResult `json:"questions"`
	Overall   *float64         `json:"overall,omitempty"`
	Found     *int32           `json:"foundCount,omitempty"`
}

func sessionHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("session method")()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		res, err := loadSummary(c.Request().Context(), data.DB, id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError, "Service error")
		}
		if res == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no session")
		}
		return c.JSON(http.StatusOK, res)
	}
}

func loadSummary(ctx context.Context, db DB, id string) (*sessionResult, error) {
	ses, err := db.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if ses == nil {
		return nil, nil
	}
	progress, err := db.LoadProgressList(ctx, id)
	if err != nil {
		return nil, err
	}
	transcripts, err := db.LoadTranscripts(ctx, id)
	if err != nil {
		return nil, err
	}
	withTranscript := map[string]bool{}
	for _, tr := range transcripts {
		withTranscript[tr.QuestionID] = true
	}
	res := &sessionResult{ID: id, Questions: []questionResult{}}
	for _, p := range progress {
		res.Questions = append(res.Questions, questionResult{QuestionID: p.QuestionID,
			AttemptsUsed: p.AttemptsUsed, IsCompleted: p.IsCompleted,
			HasTranscript: withTranscript[p.QuestionID]})
	}
	score, err := db.LoadLatestScore(ctx, id)
	if err != nil {
		return nil, err
	}
	if score != nil {
		res.Overall = &score.Overall
		res.Found = &score.FoundCount
	}
	return res, nil
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func subscribeHandler(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			goapp.Log.Error().Err(err).Msg("can't init ws connection")
			return err
		}
		return data.WSHandler.HandleConnection(ws)
	}
}
