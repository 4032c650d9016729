package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/intervu/intervu/internal/pkg/recognizer/api"
)

// Client communicates with a speech backend service
type Client struct {
	httpclient   *http.Client
	recognizeURL string
	liveURL      string
	timeout      time.Duration
	backoff      func() backoff.BackOff
}

// NewClient creates a speech backend client
func NewClient(recognizeURL, liveURL string) (*Client, error) {
	res := Client{}
	if recognizeURL == "" {
		return nil, fmt.Errorf("no recognizeURL")
	}
	if liveURL == "" {
		return nil, fmt.Errorf("no liveURL")
	}
	res.recognizeURL = recognizeURL
	res.liveURL = liveURL
	res.timeout = time.Minute * 3
	res.httpclient = &http.Client{Transport: newTransport()}
	res.backoff = defaultBackoff
	return &res, nil
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 10
	res.MaxIdleConnsPerHost = 2
	res.IdleConnTimeout = time.Second * 90
	return res
}

func defaultBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
}

type recognizeResponse struct {
	Alternatives []api.Alternative `json:"alternatives"`
}

// Recognize submits PCM audio and returns transcript alternatives
func (c *Client) Recognize(ctx context.Context, audio []byte, cfg *api.Config) ([]api.Alternative, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("no audio data")
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config")
	}
	var res []api.Alternative
	op := func() error {
		var err error
		res, err = c.invokeRecognize(ctx, audio, cfg)
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(c.backoff(), ctx))
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) invokeRecognize(ctx context.Context, audio []byte, cfg *api.Config) ([]api.Alternative, error) {
	ctxInt, cf := context.WithTimeout(ctx, c.timeout)
	defer cf()
	req, err := http.NewRequestWithContext(ctxInt, http.MethodPost, c.recognizeURL, bytes.NewReader(audio))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("can't prepare request: %w", err))
	}
	req.Header.Set("Content-Type", "audio/wav")
	q := req.URL.Query()
	q.Set("sampleRate", strconv.Itoa(cfg.SampleRate))
	q.Set("encoding", cfg.Encoding)
	q.Set("language", cfg.LanguageCode)
	q.Set("punctuation", strconv.FormatBool(cfg.AutoPunctuation))
	req.URL.RawQuery = q.Encode()

	goapp.Log.Debug().Str("url", req.URL.String()).Int("bytes", len(audio)).Msg("recognize")
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't invoke speech backend: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if err := validateResponse(resp); err != nil {
		return nil, err
	}
	var res recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("can't decode response: %w", err))
	}
	return res.Alternatives, nil
}

func validateResponse(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		err := fmt.Errorf("wrong response code %d: %s", resp.StatusCode, string(b))
		if resp.StatusCode < 500 {
			// client side problem, retry won't help
			return backoff.Permanent(err)
		}
		return err
	}
	return nil
}

// Live returns no error if the speech backend is reachable
func (c *Client) Live(ctx context.Context) error {
	ctxInt, cf := context.WithTimeout(ctx, time.Second*5)
	defer cf()
	req, err := http.NewRequestWithContext(ctxInt, http.MethodGet, c.liveURL, nil)
	if err != nil {
		return fmt.Errorf("can't prepare request: %w", err)
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return fmt.Errorf("can't invoke speech backend: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("wrong response code %d", resp.StatusCode)
	}
	return nil
}
