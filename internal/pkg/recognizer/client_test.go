package recognizer

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/intervu/intervu/internal/pkg/recognizer/api"
	"github.com/intervu/intervu/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResp struct {
	code int
	resp string
}

func initTestServer(t *testing.T, resps []testResp) (*Client, *[]string) {
	t.Helper()
	urls := make([]string, 0)
	rLock := &sync.Mutex{}
	i := 0
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		urls = append(urls, req.URL.String())
		r := resps[0]
		if i < len(resps) {
			r = resps[i]
		}
		i++
		rw.WriteHeader(r.code)
		_, _ = rw.Write([]byte(r.resp))
	}))
	t.Cleanup(func() { server.Close() })
	cl := Client{}
	cl.httpclient = server.Client()
	cl.recognizeURL = server.URL + "/recognize"
	cl.liveURL = server.URL + "/live"
	cl.timeout = time.Second * 5
	cl.backoff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 2)
	}
	return &cl, &urls
}

func TestNewClient(t *testing.T) {
	cl, err := NewClient("http://srv:8000/recognize", "http://srv:8000/live")
	assert.Nil(t, err)
	assert.NotNil(t, cl)
	_, err = NewClient("", "http://srv:8000/live")
	assert.NotNil(t, err)
	_, err = NewClient("http://srv:8000/recognize", "")
	assert.NotNil(t, err)
}

func TestRecognize(t *testing.T) {
	cl, urls := initTestServer(t, []testResp{{code: 200,
		resp: `{"alternatives":[{"transcript":"we used docker","confidence":0.93}]}`}})
	alts, err := cl.Recognize(test.Ctx(t), []byte("RIFFolia"), api.DefaultConfig("en-US"))
	require.Nil(t, err)
	require.Equal(t, 1, len(alts))
	assert.Equal(t, "we used docker", alts[0].Transcript)
	assert.InDelta(t, 0.93, alts[0].Confidence, 0.001)
	require.Equal(t, 1, len(*urls))
	assert.Contains(t, (*urls)[0], "/recognize?")
	assert.Contains(t, (*urls)[0], "sampleRate=16000")
	assert.Contains(t, (*urls)[0], "language=en-US")
}

func TestRecognize_Validates(t *testing.T) {
	cl, _ := initTestServer(t, []testResp{{code: 200, resp: `{}`}})
	_, err := cl.Recognize(test.Ctx(t), nil, api.DefaultConfig("en-US"))
	assert.NotNil(t, err)
	_, err = cl.Recognize(test.Ctx(t), []byte("olia"), nil)
	assert.NotNil(t, err)
}

func TestRecognize_Retries(t *testing.T) {
	cl, urls := initTestServer(t, []testResp{{code: 503, resp: "busy"}, {code: 200,
		resp: `{"alternatives":[{"transcript":"olia","confidence":0.5}]}`}})
	alts, err := cl.Recognize(test.Ctx(t), []byte("RIFFolia"), api.DefaultConfig("en-US"))
	require.Nil(t, err)
	assert.Equal(t, 1, len(alts))
	assert.Equal(t, 2, len(*urls))
}

func TestRecognize_NoRetryOn400(t *testing.T) {
	cl, urls := initTestServer(t, []testResp{{code: 400, resp: "bad audio"}})
	_, err := cl.Recognize(test.Ctx(t), []byte("RIFFolia"), api.DefaultConfig("en-US"))
	assert.NotNil(t, err)
	assert.Equal(t, 1, len(*urls))
}

func TestRecognize_FailsOnWrongJSON(t *testing.T) {
	cl, urls := initTestServer(t, []testResp{{code: 200, resp: `olia`}})
	_, err := cl.Recognize(test.Ctx(t), []byte("RIFFolia"), api.DefaultConfig("en-US"))
	assert.NotNil(t, err)
	assert.Equal(t, 1, len(*urls))
}

func TestLive(t *testing.T) {
	cl, _ := initTestServer(t, []testResp{{code: 200, resp: "OK"}})
	assert.Nil(t, cl.Live(test.Ctx(t)))
}

func TestLive_Fails(t *testing.T) {
	cl, _ := initTestServer(t, []testResp{{code: 500, resp: "err"}})
	assert.NotNil(t, cl.Live(test.Ctx(t)))
}
