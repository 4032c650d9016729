package recognizer

import (
	"fmt"

	"github.com/intervu/intervu/internal/pkg/recognizer/api"
)

// StaticProvider serves one fixed speech backend instance,
// used when no consul discovery is configured
type StaticProvider struct {
	real api.Recognizer
	srv  string
}

// NewStaticProvider creates provider over one client
func NewStaticProvider(recognizeURL, liveURL string) (*StaticProvider, error) {
	cl, err := NewClient(recognizeURL, liveURL)
	if err != nil {
		return nil, fmt.Errorf("can't init speech backend client: %w", err)
	}
	return &StaticProvider{real: cl, srv: recognizeURL}, nil
}

// Get returns the configured speech backend client
func (p *StaticProvider) Get() (api.Recognizer, string, error) {
	return p.real, p.srv, nil
}
