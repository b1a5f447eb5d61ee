// Package tts defines the Synthesizer interface for text-to-speech backends
// that voice the intake prompts.
//
// Prompts are short and drawn from a small fixed set plus per-session
// clarifications, so providers synthesize whole utterances in one call and a
// caching layer (see Cache) absorbs the repeats.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Audio is one synthesized utterance.
type Audio struct {
	// Data is the encoded audio payload.
	Data []byte
	// MediaType is the MIME type of Data (e.g. "audio/mpeg", "audio/wav").
	MediaType string
}

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Synthesize renders text as speech. Implementations should return a
	// playable payload even for very short inputs.
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// DetectMediaType sniffs the container format of synthesized audio. It covers
// the formats the wired providers emit: WAV, MP3 with or without an ID3 tag,
// and Ogg. Unknown payloads fall back to application/octet-stream.
func DetectMediaType(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "audio/wav"
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return "audio/mpeg"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// Bare MPEG frame sync.
		return "audio/mpeg"
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}
