package consul

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/hashicorp/consul/api"
	"github.com/intervu/intervu/internal/pkg/recognizer"
	rapi "github.com/intervu/intervu/internal/pkg/recognizer/api"
	"go.uber.org/multierr"
)

const (
	recognizeKey = "recognizeURL"
	liveKey      = "liveURL"
	isHTTPSSLKey = "HTTPSSL"
	priorityKey  = "priority"
)

// Provider watches consul for registered speech backend instances
// and hands out clients selected by priority metadata
type Provider struct {
	consul  *api.Client
	srvName string

	lock *sync.RWMutex
	recs []*recWrap
}

type recWrap struct {
	real     rapi.Recognizer
	srv      string
	key      string
	priority float64
}

// NewProvider creates consul speech backend provider
func NewProvider(cfg *api.Config, srvNameInConsul string) (*Provider, error) {
	c, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if srvNameInConsul == "" {
		return nil, fmt.Errorf("no srv name")
	}
	return newProvider(c, srvNameInConsul), nil
}

func newProvider(c *api.Client, srvNameInConsul string) *Provider {
	goapp.Log.Info().Str("service", srvNameInConsul).Msg("cfg: srv name in consul")
	return &Provider{consul: c, srvName: srvNameInConsul, lock: &sync.RWMutex{}, recs: make([]*recWrap, 0)}
}

// Get returns a speech backend client and its service key
func (c *Provider) Get() (rapi.Recognizer, string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if len(c.recs) == 0 {
		return nil, "", fmt.Errorf("no active speech backend")
	}
	if len(c.recs) == 1 {
		r := c.recs[0]
		return r.real, r.srv, nil
	}
	i, err := getRandomByPriority(c.recs)
	if err != nil {
		return nil, "", fmt.Errorf("can't select speech backend: %v", err)
	}
	if i < len(c.recs) {
		r := c.recs[i]
		return r.real, r.srv, nil
	}
	return nil, "", fmt.Errorf("no active speech backend")
}

func getRandomByPriority(recWraps []*recWrap) (int, error) {
	prMax := 0.0
	for _, r := range recWraps {
		prMax += r.priority
	}
	if prMax < 0.1 {
		return 0, fmt.Errorf("wrong priority sum found %f", prMax)
	}
	rnd := rand.Float64() * prMax
	prMax = 0.0
	for i, r := range recWraps {
		prMax += r.priority
		if prMax > rnd {
			return i, nil
		}
	}
	return len(recWraps), nil
}

// StartRegistryLoop starts periodic consul service refresh
func (c *Provider) StartRegistryLoop(ctx context.Context, checkInterval time.Duration) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting consul service check every %v", checkInterval)
	res := make(chan struct{}, 2)
	go func() {
		defer close(res)
		c.serviceLoop(ctx, checkInterval)
	}()
	return res, nil
}

func (c *Provider) serviceLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	// run on startup
	if err := c.check(ctx); err != nil {
		goapp.Log.Error().Err(err).Send()
	}
	for {
		select {
		case <-ticker.C:
			if err := c.check(ctx); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		case <-ctx.Done():
			ticker.Stop()
			goapp.Log.Info().Msgf("Stopped consul timer service")
			return
		}
	}
}

func (c *Provider) check(ctx context.Context) error {
	ctxInt, cf := context.WithTimeout(ctx, time.Second*5)
	defer cf()
	srvs, _, err := c.consul.Health().Service(c.srvName, "", true, (&api.QueryOptions{}).WithContext(ctxInt))
	if err != nil {
		return fmt.Errorf("can't invoke consul: %v", err)
	}
	return c.updateSrv(srvs)
}

func (c *Provider) updateSrv(srvs []*api.ServiceEntry) error {
	goapp.Log.Info().Msgf("got %d services from consul", len(srvs))
	c.lock.Lock()
	defer c.lock.Unlock()
	ms := map[string]*api.ServiceEntry{}
	for _, s := range srvs {
		ms[key(s)] = s
	}
	keep := []*recWrap{}
	for _, s := range c.recs {
		if v, ok := ms[s.srv]; ok && s.key == fullKey(v) {
			keep = append(keep, s)
			delete(ms, s.srv)
			continue
		}
		goapp.Log.Warn().Str("service", s.srv).Msgf("dropped speech backend")
	}
	if len(keep) == len(c.recs) && len(ms) == 0 {
		return nil
	}
	c.recs = keep
	var err error
	for v, k := range ms {
		r, errInt := newRecognizer(v, k)
		if errInt != nil {
			err = multierr.Append(err, errInt)
			continue
		}
		c.recs = append(c.recs, r)
		goapp.Log.Info().Str("service", v).Float64("priority", r.priority).Msg("added speech backend")
	}
	return err
}

func newRecognizer(v string, s *api.ServiceEntry) (*recWrap, error) {
	r, err := recognizer.NewClient(getURL(s, recognizeKey), getURL(s, liveKey))
	if err != nil {
		return nil, fmt.Errorf("can't init speech backend for %s: %v", v, err)
	}
	priority, err := getPriority(s)
	if err != nil {
		return nil, fmt.Errorf("can't init speech backend for %s: %v", v, err)
	}
	res := &recWrap{real: r, srv: v, key: fullKey(s), priority: priority}
	return res, nil
}

func getPriority(s *api.ServiceEntry) (float64, error) {
	v, ok := s.Service.Meta[priorityKey]
	if !ok {
		return 1, nil
	}
	res, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse priority '%s': %v", v, err)
	}
	if res < 0.5 || res > 50 {
		return 0, fmt.Errorf("wrong priority value '%f', not in [0.5, 50]", res)
	}
	return res, nil
}

func getURL(s *api.ServiceEntry, key string) string {
	v, ok := s.Service.Meta[key]
	if !ok {
		return ""
	}
	ssl := ""
	if isSSL, ok := s.Service.Meta[isHTTPSSLKey]; ok {
		if boolValue, err := strconv.ParseBool(isSSL); err == nil && boolValue {
			ssl = "s"
		}
	}
	return fmt.Sprintf("http%s://%s:%d/%s", ssl, s.Service.Address, s.Service.Port, v)
}

func key(s *api.ServiceEntry) string {
	return fmt.Sprintf("%s:%d", s.Service.Address, s.Service.Port)
}

func fullKey(s *api.ServiceEntry) string {
	res := strings.Builder{}
	for _, key := range [...]string{recognizeKey, liveKey, isHTTPSSLKey, priorityKey} {
		v, ok := s.Service.Meta[key]
		if ok {
			res.WriteString(key + ":" + v + ",")
		}
	}
	return res.String()
}
