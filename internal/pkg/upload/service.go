package upload

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/facebookgo/grace/gracehttp"
	perrors "github.com/pkg/errors"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/intervu/intervu/internal/pkg/attempt"
	"github.com/intervu/intervu/internal/pkg/ingest"
	"github.com/intervu/intervu/internal/pkg/persistence"
	"github.com/intervu/intervu/internal/pkg/scoring"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Tracker provides the attempt state machine
type Tracker interface {
	RecordAttempt(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error)
	CanRetake(ctx context.Context, sessionID, questionID string) (bool, error)
	MarkCompleted(ctx context.Context, sessionID, questionID string) error
	GetProgress(ctx context.Context, sessionID, questionID string) (*persistence.QuestionProgress, error)
}

// Ingestor stores videos and schedules transcription
type Ingestor interface {
	Ingest(ctx context.Context, sessionID, questionID string, r io.Reader, size int64, mimeType, fileName string) (*persistence.VideoResponse, error)
}

// Scorer recomputes session scores
type Scorer interface {
	Recompute(ctx context.Context, sessionID string) (*persistence.SessionKeywordScore, error)
}

// DB loads read side data
type DB interface {
	LoadTranscriptByVideo(ctx context.Context, videoResponseID string) (*persistence.Transcript, error)
	LoadLatestScore(ctx context.Context, sessionID string) (*persistence.SessionKeywordScore, error)
}

// Data keeps data required for service work
type Data struct {
	Port     int
	Tracker  Tracker
	Ingestor Ingestor
	Scorer   Scorer
	DB       DB
}

// StartWebServer starts echo web service
func StartWebServer(data *Data) error {
	goapp.Log.Info().Int("port", data.Port).Msg("Starting HTTP INTERVU upload service")
	if err := validate(data); err != nil {
		return err
	}

	portStr := strconv.Itoa(data.Port)

	e := initRoutes(data)

	e.Server.Addr = ":" + portStr
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 180 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	gracehttp.SetLogger(log.New(goapp.Log, "", 0))

	return gracehttp.Serve(e.Server)
}

func validate(data *Data) error {
	if data.Tracker == nil {
		return perrors.New("no tracker")
	}
	if data.Ingestor == nil {
		return perrors.New("no ingestor")
	}
	if data.Scorer == nil {
		return perrors.New("no scorer")
	}
	if data.DB == nil {
		return perrors.New("no DB")
	}
	return nil
}

var promMdlw *prometheus.Prometheus

func init() {
	promMdlw = prometheus.NewPrometheus("intervu_upload", nil)
}

func initRoutes(data *Data) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	promMdlw.Use(e)

	e.POST("/attempt/:session/:question", recordAttempt(data))
	e.GET("/progress/:session/:question", getProgress(data))
	e.POST("/complete/:session/:question", markCompleted(data))
	e.POST("/video/:session/:question", uploadVideo(data))
	e.GET("/transcript/:id", getTranscript(data))
	e.GET("/score/:session", getScore(data))
	e.POST("/score/:session/recompute", recomputeScore(data))
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

type attemptResult struct {
	AttemptsUsed int32 `json:"attemptsUsed"`
	CanRetake    bool  `json:"canRetake"`
}

func recordAttempt(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("attempt method")()
		ctx := c.Request().Context()
		session, question := c.Param("session"), c.Param("question")

		p, err := data.Tracker.RecordAttempt(ctx, session, question)
		if err != nil {
			if errors.Is(err, attempt.ErrRetakeExhausted) || errors.Is(err, attempt.ErrAlreadyCompleted) {
				return echo.NewHTTPError(http.StatusConflict, err.Error())
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		retake, err := data.Tracker.CanRetake(ctx, session, question)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, attemptResult{AttemptsUsed: p.AttemptsUsed, CanRetake: retake})
	}
}

type progressResult struct {
	SessionID     string    `json:"sessionID"`
	QuestionID    string    `json:"questionID"`
	AttemptsUsed  int32     `json:"attemptsUsed"`
	IsCompleted   bool      `json:"isCompleted"`
	LastAttemptAt time.Time `json:"lastAttemptAt"`
}

func getProgress(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("progress method")()
		p, err := data.Tracker.GetProgress(c.Request().Context(), c.Param("session"), c.Param("question"))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if p == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no progress")
		}
		return c.JSON(http.StatusOK, progressResult{SessionID: p.SessionID, QuestionID: p.QuestionID,
			AttemptsUsed: p.AttemptsUsed, IsCompleted: p.IsCompleted, LastAttemptAt: p.LastAttemptAt})
	}
}

func markCompleted(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("complete method")()
		err := data.Tracker.MarkCompleted(c.Request().Context(), c.Param("session"), c.Param("question"))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, map[string]bool{"completed": true})
	}
}

type videoResult struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	SizeBytes int64  `json:"sizeBytes"`
}

func uploadVideo(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("video method")()
		ctx := c.Request().Context()
		session, question := c.Param("session"), c.Param("question")

		fh, err := c.FormFile("video")
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "no form file parameter 'video'")
		}
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "can't read video")
		}
		defer f.Close()

		vr, err := data.Ingestor.Ingest(ctx, session, question, f, fh.Size,
			fh.Header.Get("Content-Type"), fh.Filename)
		if err != nil {
			if errors.Is(err, ingest.ErrValidation) {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, videoResult{ID: vr.ID, URL: vr.PublicURL, SizeBytes: vr.SizeBytes})
	}
}

type transcriptResult struct {
	ID              string  `json:"id"`
	VideoResponseID string  `json:"videoResponseID"`
	Text            string  `json:"text"`
	Confidence      float64 `json:"confidence"`
	WordCount       int32   `json:"wordCount"`
}

func getTranscript(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("transcript method")()
		id := c.Param("id")
		if id == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "No ID")
		}
		tr, err := data.DB.LoadTranscriptByVideo(c.Request().Context(), id)
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if tr == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no transcript")
		}
		return c.JSON(http.StatusOK, transcriptResult{ID: tr.ID, VideoResponseID: tr.VideoResponseID,
			Text: tr.Text, Confidence: tr.Confidence, WordCount: tr.WordCount})
	}
}

type scoreResult struct {
	ID            string              `json:"id"`
	SessionID     string              `json:"sessionID"`
	Overall       float64             `json:"overall"`
	Technical     float64             `json:"technical"`
	SoftSkills    float64             `json:"softSkills"`
	Experience    float64             `json:"experience"`
	FoundCount    int32               `json:"foundCount"`
	PossibleCount int32               `json:"possibleCount"`
	Breakdown     map[string][]string `json:"breakdown"`
	CalculatedAt  time.Time           `json:"calculatedAt"`
}

func mapScore(s *persistence.SessionKeywordScore) *scoreResult {
	return &scoreResult{ID: s.ID, SessionID: s.SessionID, Overall: s.Overall,
		Technical: s.Technical, SoftSkills: s.SoftSkills, Experience: s.Experience,
		FoundCount: s.FoundCount, PossibleCount: s.PossibleCount,
		Breakdown: s.Breakdown, CalculatedAt: s.Calculated}
}

func getScore(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("score method")()
		s, err := data.DB.LoadLatestScore(c.Request().Context(), c.Param("session"))
		if err != nil {
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		if s == nil {
			return echo.NewHTTPError(http.StatusNotFound, "no score")
		}
		return c.JSON(http.StatusOK, mapScore(s))
	}
}

func recomputeScore(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		defer goapp.Estimate("recompute method")()
		s, err := data.Scorer.Recompute(c.Request().Context(), c.Param("session"))
		if err != nil {
			if errors.Is(err, scoring.ErrScoreUnavailable) {
				return c.JSON(http.StatusOK, map[string]string{"status": "pending"})
			}
			goapp.Log.Error().Err(err).Send()
			return echo.NewHTTPError(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, mapScore(s))
	}
}
