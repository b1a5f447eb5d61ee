package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geniusjr001/claimsvoice/internal/convo"
	"github.com/geniusjr001/claimsvoice/internal/uploads"
)

// maxAudioBytes caps a single recorded utterance.
const maxAudioBytes = 20 << 20

// turnResponse is the JSON rendering of a conversation turn.
type turnResponse struct {
	SessionID        string             `json:"session_id"`
	Prompt           string             `json:"prompt"`
	Collected        map[string]*string `json:"collected"`
	Done             bool               `json:"done"`
	SilenceTimeoutMS int64              `json:"silence_timeout_ms"`
	Filled           []string           `json:"filled,omitempty"`
	RedirectURL      string             `json:"redirect_url,omitempty"`
}

func (s *Server) renderTurn(t *convo.Turn) turnResponse {
	resp := turnResponse{
		SessionID:        t.SessionID,
		Prompt:           t.Prompt,
		Collected:        t.Collected,
		Done:             t.Done,
		SilenceTimeoutMS: t.Timeout.Milliseconds(),
		Filled:           t.Filled,
	}
	if t.Done {
		resp.RedirectURL = s.redirectURL(t.SessionID)
	}
	return resp
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	turn, err := s.engine.Start(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	s.metrics.SessionsStarted.Add(r.Context(), 1)
	writeJSON(w, http.StatusOK, s.renderTurn(turn))
}

// respondRequest is the JSON body for text turns.
type respondRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	sessionID, input, ok := s.parseRespond(w, r)
	if !ok {
		return
	}

	start := time.Now()
	turn, err := s.engine.Respond(r.Context(), sessionID, input)
	if err != nil {
		if errors.Is(err, convo.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		writeError(w, http.StatusInternalServerError, "turn failed")
		return
	}
	s.metrics.TurnDuration.Record(r.Context(), time.Since(start).Seconds())
	for _, field := range turn.Filled {
		s.metrics.RecordFieldExtraction(r.Context(), field)
	}
	if turn.Done {
		s.metrics.SessionsCompleted.Add(r.Context(), 1)
	}
	writeJSON(w, http.StatusOK, s.renderTurn(turn))
}

// parseRespond normalizes the three request shapes into an Input: JSON text,
// multipart audio, or an empty turn.
func (s *Server) parseRespond(w http.ResponseWriter, r *http.Request) (string, convo.Input, bool) {
	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "application/json"):
		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return "", nil, false
		}
		if req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return "", nil, false
		}
		if strings.TrimSpace(req.Text) == "" {
			return req.SessionID, convo.EmptyInput{}, true
		}
		return req.SessionID, convo.TextInput{Text: req.Text}, true

	case strings.HasPrefix(ct, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return "", nil, false
		}
		sessionID := r.FormValue("session_id")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return "", nil, false
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			return sessionID, convo.EmptyInput{}, true
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxAudioBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "could not read audio")
			return "", nil, false
		}
		if len(data) == 0 {
			return sessionID, convo.EmptyInput{}, true
		}
		return sessionID, convo.AudioInput{Data: data, ContentType: hdr.Header.Get("Content-Type")}, true

	default:
		writeError(w, http.StatusUnsupportedMediaType, "expected application/json or multipart/form-data")
		return "", nil, false
	}
}

func (s *Server) handleFirstPrompt(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"prompt":             convo.FirstPrompt(),
		"silence_timeout_ms": convo.TimeoutOpenEnded.Milliseconds(),
	})
}

func (s *Server) handleSTT(w http.ResponseWriter, r *http.Request) {
	if s.stt == nil {
		writeError(w, http.StatusServiceUnavailable, "speech-to-text is not configured")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read audio")
		return
	}
	start := time.Now()
	text, err := s.stt.Transcribe(r.Context(), data, r.Header.Get("Content-Type"))
	s.metrics.STTDuration.Record(r.Context(), time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(r.Context(), "stt", "transcribe")
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}
	s.metrics.RecordProviderRequest(r.Context(), "stt", "transcribe", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// ttsRequest is the JSON body for prompt synthesis. Either free text or a
// field key (the matching fresh prompt is rendered).
type ttsRequest struct {
	Text  string `json:"text"`
	Field string `json:"field"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if s.tts == nil {
		writeError(w, http.StatusServiceUnavailable, "text-to-speech is not configured")
		return
	}
	var req ttsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.Field != "" {
		f, ok := convo.FieldByName(strings.ReplaceAll(req.Field, "_", " "))
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown field")
			return
		}
		req.Text = f.Prompt
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text or field is required")
		return
	}
	start := time.Now()
	audio, err := s.tts.Synthesize(r.Context(), req.Text)
	s.metrics.TTSDuration.Record(r.Context(), time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordProviderError(r.Context(), "tts", "synthesize")
		writeError(w, http.StatusBadGateway, "synthesis failed")
		return
	}
	s.metrics.RecordProviderRequest(r.Context(), "tts", "synthesize", "ok")
	w.Header().Set("Content-Type", audio.MediaType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio.Data)
}

func (s *Server) handleClaimReview(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	fields, err := s.engine.Review(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, convo.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		writeError(w, http.StatusInternalServerError, "review failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"fields":     fields,
	})
}

// estimateRequest is the JSON body for route compensation estimates.
type estimateRequest struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	DelayHours  float64 `json:"delay_hours"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Origin == "" || req.Destination == "" {
		writeError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}
	est, err := s.comp.EstimateByIATA(req.Origin, req.Destination, req.DelayHours)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleAirports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"airports": s.airports.European(),
	})
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	if err := r.ParseMultipartForm(uploads.MaxSizeDefault); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer f.Close()

	docType := r.FormValue("type")
	if docType == "" {
		docType = "supporting document"
	}

	doc, err := s.uploads.Save(sessionID, hdr.Filename, docType, f)
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrFileType):
			writeError(w, http.StatusUnsupportedMediaType, "unsupported file type")
		case errors.Is(err, uploads.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		default:
			writeError(w, http.StatusInternalServerError, "could not store file")
		}
		return
	}

	if err := s.engine.AddDocument(r.Context(), sessionID, doc); err != nil {
		// The session is gone or the store failed; do not orphan the bytes.
		_ = s.uploads.Remove(doc)
		if errors.Is(err, convo.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not record document")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	docs, err := s.engine.Documents(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, convo.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not list documents")
		return
	}
	if docs == nil {
		docs = []convo.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"documents":  docs,
	})
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	filename := r.PathValue("filename")

	doc, err := s.engine.RemoveDocument(r.Context(), sessionID, filename)
	if err != nil {
		switch {
		case errors.Is(err, convo.ErrSessionNotFound):
			writeError(w, http.StatusNotFound, "unknown session")
		case errors.Is(err, convo.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, "unknown document")
		default:
			writeError(w, http.StatusInternalServerError, "could not remove document")
		}
		return
	}
	if err := s.uploads.Remove(doc); err != nil {
		slog.Warn("stored file removal failed", "session_id", sessionID, "filename", filename, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// submitRequest is the JSON body for the final claim submission.
type submitRequest struct {
	SessionID string            `json:"session_id"`
	Overrides map[string]string `json:"overrides"`
}

func (s *Server) handleSubmitFinal(w http.ResponseWriter, r *http.Request) {
	if s.crm == nil {
		writeError(w, http.StatusServiceUnavailable, "claim submission is not configured")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	fields, docs, err := s.engine.Harvest(r.Context(), req.SessionID, req.Overrides)
	if err != nil {
		if errors.Is(err, convo.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not assemble claim")
		return
	}

	leadID, err := s.crm.CreateLead(r.Context(), fields)
	if err != nil {
		s.metrics.RecordClaimSubmitted(r.Context(), "error")
		slog.Error("lead creation failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusBadGateway, "claim submission failed")
		return
	}

	attached := 0
	for _, doc := range docs {
		if err := s.crm.AttachFile(r.Context(), leadID, doc.Path, doc.OriginalName); err != nil {
			slog.Warn("document attach failed",
				"session_id", req.SessionID, "lead_id", leadID,
				"filename", doc.Filename, "error", err)
			continue
		}
		attached++
	}

	// The lead exists; cleanup failures only cost a janitor pass later.
	if err := s.engine.Delete(r.Context(), req.SessionID); err != nil {
		slog.Warn("session cleanup failed", "session_id", req.SessionID, "error", err)
	}
	if err := s.uploads.RemoveSession(req.SessionID); err != nil {
		slog.Warn("upload cleanup failed", "session_id", req.SessionID, "error", err)
	}

	s.metrics.RecordClaimSubmitted(r.Context(), "ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"lead_id":            leadID,
		"documents_attached": attached,
	})
}

// writeJSON encodes v with the given status. Encoding failures surface as a
// log line; the status line is already gone.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
