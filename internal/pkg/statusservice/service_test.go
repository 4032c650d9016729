package statusservice

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/intervu/intervu/internal/pkg/persistence"
	"github.com/intervu/intervu/internal/pkg/test"
	"github.com/intervu/intervu/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	dbMock *mocks.DB
	tData  *Data
	tEcho  *echo.Echo
)

func initTest(t *testing.T) {
	dbMock = &mocks.DB{}
	tData = &Data{DB: dbMock, WSHandler: NewWSConnKeeper()}
	tEcho = initRoutes(tData)
	dbMock.On("LoadSession", mock.Anything, "s1").Return(&persistence.Session{ID: "s1", OwnerID: "o1"}, nil)
	dbMock.On("LoadProgressList", mock.Anything, "s1").Return([]*persistence.QuestionProgress{
		{SessionID: "s1", QuestionID: "q1", AttemptsUsed: 2},
		{SessionID: "s1", QuestionID: "q2", AttemptsUsed: 1, IsCompleted: true}}, nil)
	dbMock.On("LoadTranscripts", mock.Anything, "s1").Return([]*persistence.Transcript{
		{ID: "tr1", QuestionID: "q2", Text: "olia"}}, nil)
	dbMock.On("LoadLatestScore", mock.Anything, "s1").
		Return(&persistence.SessionKeywordScore{ID: "sc1", SessionID: "s1", Overall: 75, FoundCount: 3}, nil)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/session/s1", nil)
	test.Code(t, tEcho, req, 405)
}

func TestLive(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Contains(t, test.RStr(t, resp.Body), `"service":"OK"`)
}

func TestSession(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/session/s1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[sessionResult](t, resp.Body)
	assert.Equal(t, "s1", res.ID)
	require.Equal(t, 2, len(res.Questions))
	assert.False(t, res.Questions[0].HasTranscript)
	assert.True(t, res.Questions[1].HasTranscript)
	assert.True(t, res.Questions[1].IsCompleted)
	require.NotNil(t, res.Overall)
	assert.Equal(t, float64(75), *res.Overall)
	require.NotNil(t, res.Found)
	assert.Equal(t, int32(3), *res.Found)
}

func TestSession_NoScore(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadSession", mock.Anything, "s1").Return(&persistence.Session{ID: "s1", OwnerID: "o1"}, nil)
	dbMock.On("LoadProgressList", mock.Anything, "s1").Return([]*persistence.QuestionProgress{}, nil)
	dbMock.On("LoadTranscripts", mock.Anything, "s1").Return([]*persistence.Transcript{}, nil)
	dbMock.On("LoadLatestScore", mock.Anything, "s1").Return(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/session/s1", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	res := test.Decode[sessionResult](t, resp.Body)
	assert.Nil(t, res.Overall)
	assert.Equal(t, 0, len(res.Questions))
}

func TestSession_NotFound(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadSession", mock.Anything, "s2").Return(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/session/s2", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestSession_Fails(t *testing.T) {
	initTest(t)
	dbMock.ExpectedCalls = nil
	dbMock.On("LoadSession", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("olia err"))
	req := httptest.NewRequest(http.MethodGet, "/session/s1", nil)
	test.Code(t, tEcho, req, http.StatusInternalServerError)
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
		{name: "Fail DB", args: args{data: &Data{WSHandler: NewWSConnKeeper()}}, wantErr: true},
		{name: "Fail handler", args: args{data: &Data{DB: dbMock}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.args.data); (err != nil) != tt.wantErr {
				t.Errorf("StartWebServer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
