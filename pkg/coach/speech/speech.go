package speech

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"
)

// Synthesizer turns a short coaching phrase into encoded audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type SynthesizerFunc func(ctx context.Context, text string) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

// EncodeAudio synthesizes text and returns it base64 encoded. Any failure,
// including a nil synthesizer, yields "" so callers can still reply.
func EncodeAudio(ctx context.Context, s Synthesizer, text string, logger *slog.Logger) string {
	if s == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	if logger == nil {
		logger = slog.Default()
	}
	audio, err := s.Synthesize(ctx, text)
	if err != nil {
		logger.Warn("speech synthesis failed", "error", err, "text_len", len(text))
		return ""
	}
	if len(audio) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(audio)
}
