package api

import "context"

// Config holds fixed recognition parameters of a deployment
type Config struct {
	SampleRate      int
	Encoding        string
	LanguageCode    string
	AutoPunctuation bool
}

// DefaultConfig returns recognition params for the audio the transcoder produces
func DefaultConfig(languageCode string) *Config {
	return &Config{SampleRate: 16000, Encoding: "LINEAR16", LanguageCode: languageCode, AutoPunctuation: true}
}

// Alternative is one recognized transcript segment with its confidence
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Recognizer turns audio bytes into transcript alternatives
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte, cfg *Config) ([]Alternative, error)
	Live(ctx context.Context) error
}
