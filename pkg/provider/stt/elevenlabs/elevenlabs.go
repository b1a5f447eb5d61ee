// Package elevenlabs provides an ElevenLabs Scribe backed STT provider. It
// implements the stt.Provider interface.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	defaultEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"
	defaultModel    = "scribe_v1"
)

// Option is a functional option for configuring the ElevenLabs Provider.
type Option func(*Provider)

// WithModel sets the ElevenLabs transcription model ID (e.g. "scribe_v1").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage pins recognition to a BCP-47 language tag (e.g. "en"). An
// empty value lets the service auto-detect.
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(url string) Option {
	return func(p *Provider) {
		p.endpoint = url
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by the ElevenLabs Scribe API.
type Provider struct {
	apiKey     string
	model      string
	language   string
	endpoint   string
	httpClient *http.Client
}

// New creates a new ElevenLabs Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("elevenlabs: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		model:      defaultModel,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// transcriptionResponse is the JSON body returned by POST /v1/speech-to-text.
type transcriptionResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code,omitempty"`
}

// errorResponse is the JSON body ElevenLabs returns on failure.
type errorResponse struct {
	Detail struct {
		Message string `json:"message"`
	} `json:"detail"`
}

// Transcribe implements stt.Provider. The audio is posted as a multipart
// file upload, the way the ElevenLabs API expects recordings.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mediaType string) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model_id", p.model); err != nil {
		return "", fmt.Errorf("elevenlabs: build request: %w", err)
	}
	if p.language != "" {
		if err := mw.WriteField("language_code", p.language); err != nil {
			return "", fmt.Errorf("elevenlabs: build request: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("file", fileNameFor(mediaType))
	if err != nil {
		return "", fmt.Errorf("elevenlabs: build request: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("elevenlabs: build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("elevenlabs: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("elevenlabs: transcribe HTTP: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && er.Detail.Message != "" {
			return "", fmt.Errorf("elevenlabs: transcribe: status %d: %s", resp.StatusCode, er.Detail.Message)
		}
		return "", fmt.Errorf("elevenlabs: transcribe: unexpected status %d", resp.StatusCode)
	}

	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("elevenlabs: transcribe decode: %w", err)
	}
	return tr.Text, nil
}

// fileNameFor gives the uploaded part a filename whose extension matches the
// payload. The API uses it as a format hint.
func fileNameFor(mediaType string) string {
	switch mediaType {
	case "audio/wav", "audio/x-wav":
		return "utterance.wav"
	case "audio/mpeg", "audio/mp3":
		return "utterance.mp3"
	case "audio/ogg":
		return "utterance.ogg"
	default:
		return "utterance.webm"
	}
}
