// Package speech defines the voice contracts of a session. Engines plug in
// behind the Speaker and Transcriber interfaces; the no-op implementations
// keep text-only deployments free of audio dependencies.
package speech

import (
	"context"
	"errors"
	"log/slog"
)

// ReadyAnnouncement is spoken once when a voice session comes up.
const ReadyAnnouncement = "Hello, we are online and ready. What can I do for you?"

// ErrNotConfigured reports that no speech backend is wired in.
var ErrNotConfigured = errors.New("speech backend not configured")

// Speaker voices answers to the user.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Close() error
}

// Transcriber turns microphone input into query text. Listen blocks until
// a complete utterance was heard.
type Transcriber interface {
	Listen(ctx context.Context) (string, error)
	Close() error
}

// NoopSpeaker drops all output. Used when speaking is disabled.
type NoopSpeaker struct{}

func (NoopSpeaker) Speak(ctx context.Context, text string) error {
	slog.Debug("speech output suppressed", "chars", len(text))
	return nil
}

func (NoopSpeaker) Close() error { return nil }

// NoopTranscriber reports that voice input is unavailable.
type NoopTranscriber struct{}

func (NoopTranscriber) Listen(ctx context.Context) (string, error) {
	return "", ErrNotConfigured
}

func (NoopTranscriber) Close() error { return nil }
