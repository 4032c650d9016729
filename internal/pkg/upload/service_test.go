package upload

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/intervu/intervu/internal/pkg/attempt"
	"github.com/intervu/intervu/internal/pkg/ingest"
	"github.com/intervu/intervu/internal/pkg/persistence"
	"github.com/intervu/intervu/internal/pkg/scoring"
	"github.com/intervu/intervu/internal/pkg/test"
	"github.com/intervu/intervu/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	trackerMock  *mocks.Tracker
	ingestorMock *mocks.Ingestor
	scorerMock   *mocks.Scorer
	dbMock       *mocks.DB
	tData        *Data
	tEcho        *echo.Echo
)

func initTest(t *testing.T) {
	trackerMock = &mocks.Tracker{}
	ingestorMock = &mocks.Ingestor{}
	scorerMock = &mocks.Scorer{}
	dbMock = &mocks.DB{}
	tData = &Data{Tracker: trackerMock, Ingestor: ingestorMock, Scorer: scorerMock, DB: dbMock}
	tEcho = initRoutes(tData)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/attempt/s1/q1", nil)
	test.Code(t, tEcho, req, 405)
}

func TestLive(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Contains(t, test.RStr(t, resp.Body), `"service":"OK"`)
}

func TestAttempt(t *testing.T) {
	initTest(t)
	trackerMock.On("RecordAttempt", mock.Anything, "s1", "q1").
		Return(&persistence.QuestionProgress{SessionID: "s1", QuestionID: "q1", AttemptsUsed: 1}, nil)
	trackerMock.On("CanRetake", mock.Anything, "s1", "q1").Return(true, nil)
	req := httptest.NewRequest(http.MethodPost, "/attempt/s1/q1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[attemptResult](t, resp.Body)
	assert.Equal(t, int32(1), res.AttemptsUsed)
	assert.True(t, res.CanRetake)
}

func TestAttempt_Conflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "Exhausted", err: attempt.ErrRetakeExhausted, want: http.StatusConflict},
		{name: "Completed", err: attempt.ErrAlreadyCompleted, want: http.StatusConflict},
		{name: "Other", err: fmt.Errorf("olia err"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			trackerMock.On("RecordAttempt", mock.Anything, "s1", "q1").Return(nil, tt.err)
			req := httptest.NewRequest(http.MethodPost, "/attempt/s1/q1", nil)
			test.Code(t, tEcho, req, tt.want)
		})
	}
}

func TestProgress(t *testing.T) {
	initTest(t)
	now := time.Now()
	trackerMock.On("GetProgress", mock.Anything, "s1", "q1").
		Return(&persistence.QuestionProgress{SessionID: "s1", QuestionID: "q1", AttemptsUsed: 2,
			IsCompleted: true, LastAttemptAt: now}, nil)
	req := httptest.NewRequest(http.MethodGet, "/progress/s1/q1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[progressResult](t, resp.Body)
	assert.Equal(t, int32(2), res.AttemptsUsed)
	assert.True(t, res.IsCompleted)
}

func TestProgress_NotFound(t *testing.T) {
	initTest(t)
	trackerMock.On("GetProgress", mock.Anything, "s1", "q1").Return(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/progress/s1/q1", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestComplete(t *testing.T) {
	initTest(t)
	trackerMock.On("MarkCompleted", mock.Anything, "s1", "q1").Return(nil)
	req := httptest.NewRequest(http.MethodPost, "/complete/s1/q1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Contains(t, test.RStr(t, resp.Body), `"completed":true`)
}

func newVideoRequest(t *testing.T, field, fileName string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile(field, fileName)
	require.Nil(t, err)
	_, err = fw.Write([]byte("video bytes"))
	require.Nil(t, err)
	require.Nil(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/video/s1/q1", body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestVideo(t *testing.T) {
	initTest(t)
	ingestorMock.On("Ingest", mock.Anything, "s1", "q1", mock.Anything, mock.Anything, mock.Anything, "a.mp4").
		Return(&persistence.VideoResponse{ID: "vid1", PublicURL: "http://minio/videos/a.mp4", SizeBytes: 11}, nil)
	resp := test.Code(t, tEcho, newVideoRequest(t, "video", "a.mp4"), http.StatusOK)
	res := test.Decode[videoResult](t, resp.Body)
	assert.Equal(t, "vid1", res.ID)
	assert.Equal(t, int64(11), res.SizeBytes)
}

func TestVideo_NoFile(t *testing.T) {
	initTest(t)
	test.Code(t, tEcho, newVideoRequest(t, "file", "a.mp4"), http.StatusBadRequest)
}

func TestVideo_ValidationFails(t *testing.T) {
	initTest(t)
	ingestorMock.On("Ingest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything).Return(nil, fmt.Errorf("bad mime: %w", ingest.ErrValidation))
	test.Code(t, tEcho, newVideoRequest(t, "video", "a.mp4"), http.StatusBadRequest)
}

func TestVideo_Fails(t *testing.T) {
	initTest(t)
	ingestorMock.On("Ingest", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything).Return(nil, fmt.Errorf("olia err"))
	test.Code(t, tEcho, newVideoRequest(t, "video", "a.mp4"), http.StatusInternalServerError)
}

func TestTranscript(t *testing.T) {
	initTest(t)
	dbMock.On("LoadTranscriptByVideo", mock.Anything, "vid1").
		Return(&persistence.Transcript{ID: "tr1", VideoResponseID: "vid1", Text: "olia", WordCount: 1}, nil)
	req := httptest.NewRequest(http.MethodGet, "/transcript/vid1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[transcriptResult](t, resp.Body)
	assert.Equal(t, "olia", res.Text)
}

func TestTranscript_NotFound(t *testing.T) {
	initTest(t)
	dbMock.On("LoadTranscriptByVideo", mock.Anything, "vid1").Return(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/transcript/vid1", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestScore(t *testing.T) {
	initTest(t)
	dbMock.On("LoadLatestScore", mock.Anything, "s1").
		Return(&persistence.SessionKeywordScore{ID: "sc1", SessionID: "s1", Overall: 50,
			Breakdown: map[string][]string{persistence.CategoryTechnical: {"docker"}}}, nil)
	req := httptest.NewRequest(http.MethodGet, "/score/s1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[scoreResult](t, resp.Body)
	assert.Equal(t, float64(50), res.Overall)
	assert.Equal(t, []string{"docker"}, res.Breakdown[persistence.CategoryTechnical])
}

func TestScore_NotFound(t *testing.T) {
	initTest(t)
	dbMock.On("LoadLatestScore", mock.Anything, "s1").Return(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/score/s1", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestRecompute(t *testing.T) {
	initTest(t)
	scorerMock.On("Recompute", mock.Anything, "s1").
		Return(&persistence.SessionKeywordScore{ID: "sc1", SessionID: "s1", Overall: 100}, nil)
	req := httptest.NewRequest(http.MethodPost, "/score/s1/recompute", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[scoreResult](t, resp.Body)
	assert.Equal(t, float64(100), res.Overall)
}

func TestRecompute_Pending(t *testing.T) {
	initTest(t)
	scorerMock.On("Recompute", mock.Anything, "s1").Return(nil, scoring.ErrScoreUnavailable)
	req := httptest.NewRequest(http.MethodPost, "/score/s1/recompute", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Contains(t, test.RStr(t, resp.Body), `"status":"pending"`)
}

func Test_validate(t *testing.T) {
	initTest(t)
	type args struct {
		data *Data
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{name: "OK", args: args{data: tData}, wantErr: false},
		{name: "Fail tracker", args: args{data: &Data{Ingestor: ingestorMock, Scorer: scorerMock, DB: dbMock}}, wantErr: true},
		{name: "Fail ingestor", args: args{data: &Data{Tracker: trackerMock, Scorer: scorerMock, DB: dbMock}}, wantErr: true},
		{name: "Fail scorer", args: args{data: &Data{Tracker: trackerMock, Ingestor: ingestorMock, DB: dbMock}}, wantErr: true},
		{name: "Fail DB", args: args{data: &Data{Tracker: trackerMock, Ingestor: ingestorMock, Scorer: scorerMock}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
