// Package httpapi exposes the operator control surface over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"droidcore/internal/attention"
	"droidcore/internal/cinematic"
	"droidcore/internal/domain"
	"droidcore/internal/eventstack"
	"droidcore/internal/mood"
	"droidcore/internal/orchestrator"
	"droidcore/internal/profile"
	"droidcore/internal/sequence"
)

// Operator is the behavior core as seen by the control surface.
type Operator interface {
	Status() orchestrator.Status
	AttentionStatus() orchestrator.AttentionStatus
	Profiles() []profile.Profile
	RecentActions() []domain.ActionEntry
	PendingEvents() []eventstack.Pending
	Sequences() ([]string, error)

	SetProfile(ctx context.Context, name string) error
	SetMood(ctx context.Context, name string) error
	QuickMood(ctx context.Context, name string) error
	RunCinematic(ctx context.Context, name string) error
	Enqueue(ctx context.Context, kind, payload string) error
	ClearEvents(ctx context.Context) int
	StartEvents(ctx context.Context) bool
	LoadSequence(ctx context.Context, name string) (int, error)
	StopAll(ctx context.Context) error
	TriggerAttention(ctx context.Context, source, target string) error
	ClearAttention(ctx context.Context)
	SetPerception(ctx context.Context, enabled bool)
}

type Server struct {
	op      Operator
	metrics http.Handler
	logger  *slog.Logger
}

// NewRouter builds the API. metricsHandler serves /metrics and may be nil.
func NewRouter(op Operator, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	s := &Server{op: op, metrics: metricsHandler, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Get("/profiles", s.profiles)
		r.Post("/profile/{name}", s.setProfile)
		r.Get("/moods", s.moods)
		r.Post("/mood/{name}", s.setMood)
		r.Post("/quick-mood/{name}", s.quickMood)
		r.Post("/cinematic/{name}", s.runCinematic)

		r.Get("/events", s.listEvents)
		r.Post("/events", s.addEvent)
		r.Post("/events/clear", s.clearEvents)
		r.Post("/events/start", s.startEvents)

		r.Get("/sequences", s.listSequences)
		r.Post("/sequences/{name}/load", s.loadSequence)

		r.Post("/stop-all", s.stopAll)

		r.Get("/attention", s.attentionState)
		r.Post("/attention/trigger", s.triggerAttention)
		r.Post("/attention/clear", s.clearAttention)
		r.Post("/attention/enable", s.setPerception(true))
		r.Post("/attention/disable", s.setPerception(false))

		r.Get("/recent-actions", s.recentActions)
	})
	return r
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.op.Status())
}

func (s *Server) profiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   s.op.Status().Profile,
		"profiles": s.op.Profiles(),
	})
}

func (s *Server) setProfile(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if err := s.op.SetProfile(req.Context(), name); err != nil {
		s.fail(w, "set profile", err)
		return
	}
	writeOK(w, map[string]any{"profile": name})
}

func (s *Server) moods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active": s.op.Status().Mood,
		"moods":  mood.All(),
	})
}

func (s *Server) setMood(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if err := s.op.SetMood(req.Context(), name); err != nil {
		s.fail(w, "set mood", err)
		return
	}
	writeOK(w, map[string]any{"mood": name})
}

func (s *Server) quickMood(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if err := s.op.QuickMood(req.Context(), name); err != nil {
		s.fail(w, "quick mood", err)
		return
	}
	writeOK(w, map[string]any{"queued": name})
}

func (s *Server) runCinematic(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	if err := s.op.RunCinematic(req.Context(), name); err != nil {
		s.fail(w, "run cinematic", err)
		return
	}
	writeOK(w, map[string]any{"cinematic": name})
}

func (s *Server) listEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"event_stack": s.op.PendingEvents()})
}

func (s *Server) addEvent(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Kind *string `json:"event_type"`
		Data *string `json:"event_data"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Kind == nil || body.Data == nil {
		writeError(w, http.StatusBadRequest, "event_type and event_data are required")
		return
	}
	if err := s.op.Enqueue(req.Context(), *body.Kind, *body.Data); err != nil {
		s.fail(w, "add event", err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) clearEvents(w http.ResponseWriter, req *http.Request) {
	dropped := s.op.ClearEvents(req.Context())
	writeOK(w, map[string]any{"dropped": dropped})
}

func (s *Server) startEvents(w http.ResponseWriter, req *http.Request) {
	started := s.op.StartEvents(req.Context())
	writeOK(w, map[string]any{"started": started})
}

func (s *Server) listSequences(w http.ResponseWriter, _ *http.Request) {
	names, err := s.op.Sequences()
	if err != nil {
		s.fail(w, "list sequences", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sequences": names})
}

func (s *Server) loadSequence(w http.ResponseWriter, req *http.Request) {
	name := chi.URLParam(req, "name")
	n, err := s.op.LoadSequence(req.Context(), name)
	if err != nil {
		s.fail(w, "load sequence", err)
		return
	}
	writeOK(w, map[string]any{"sequence": name, "queued": n})
}

func (s *Server) stopAll(w http.ResponseWriter, req *http.Request) {
	if err := s.op.StopAll(req.Context()); err != nil {
		s.fail(w, "stop all", err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) attentionState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.op.AttentionStatus())
}

func (s *Server) triggerAttention(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Source string `json:"source"`
		Target string `json:"target"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	target := strings.TrimSpace(body.Target)
	if target == "" {
		writeError(w, http.StatusBadRequest, "target is required")
		return
	}
	if err := s.op.TriggerAttention(req.Context(), strings.TrimSpace(body.Source), target); err != nil {
		s.fail(w, "trigger attention", err)
		return
	}
	writeOK(w, map[string]any{"target": target})
}

func (s *Server) clearAttention(w http.ResponseWriter, req *http.Request) {
	s.op.ClearAttention(req.Context())
	writeOK(w, nil)
}

func (s *Server) setPerception(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s.op.SetPerception(req.Context(), enabled)
		writeOK(w, map[string]any{"enabled": enabled})
	}
}

func (s *Server) recentActions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"recent_actions": s.op.RecentActions()})
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Info(op+" rejected", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sequence.ErrSequenceNotFound):
		return http.StatusNotFound
	case errors.Is(err, attention.ErrAttentionDisabled),
		errors.Is(err, attention.ErrSessionActive),
		errors.Is(err, cinematic.ErrCinematicsDisabled):
		return http.StatusConflict
	case errors.Is(err, mood.ErrUnknownMood),
		errors.Is(err, profile.ErrUnknownProfile),
		errors.Is(err, eventstack.ErrUnknownKind),
		errors.Is(err, eventstack.ErrEmptyPayload),
		errors.Is(err, cinematic.ErrUnknownSequence),
		errors.Is(err, sequence.ErrInvalidName),
		errors.Is(err, sequence.ErrInvalidSequence):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeOK(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"status": "ok"}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
