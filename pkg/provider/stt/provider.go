// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a transcription service (ElevenLabs Scribe or a local
// whisper.cpp server) behind a single batch call: one recorded utterance in,
// one transcript out. Intake turns are short answers to direct questions, so
// there is no streaming session to manage.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe converts one recorded utterance to text. mediaType is the
	// MIME type of the audio payload (e.g. "audio/webm", "audio/wav"); an
	// empty string lets the provider sniff or assume its default.
	//
	// An empty transcript with a nil error means the provider heard
	// silence; callers should re-prompt rather than fail the turn.
	Transcribe(ctx context.Context, audio []byte, mediaType string) (string, error)
}
