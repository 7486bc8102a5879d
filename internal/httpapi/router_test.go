package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"droidcore/internal/attention"
	"droidcore/internal/cinematic"
	"droidcore/internal/domain"
	"droidcore/internal/eventstack"
	"droidcore/internal/metrics"
	"droidcore/internal/mood"
	"droidcore/internal/orchestrator"
	"droidcore/internal/profile"
	"droidcore/internal/sequence"
)

type fakeOperator struct {
	calls   []string
	err     error
	pending []eventstack.Pending
}

func (f *fakeOperator) record(format string, args ...any) error {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.err
}

func (f *fakeOperator) Status() orchestrator.Status {
	return orchestrator.Status{Profile: "LargeCon", Mood: "NEUTRAL"}
}

func (f *fakeOperator) AttentionStatus() orchestrator.AttentionStatus {
	return orchestrator.AttentionStatus{PerceptionEnabled: true, Active: true, Target: "person"}
}

func (f *fakeOperator) Profiles() []profile.Profile { return profile.DefaultRegistry() }

func (f *fakeOperator) RecentActions() []domain.ActionEntry {
	return []domain.ActionEntry{{Message: "Set Mood: HAPPY"}}
}

func (f *fakeOperator) PendingEvents() []eventstack.Pending { return f.pending }

func (f *fakeOperator) Sequences() ([]string, error) { return nil, nil }

func (f *fakeOperator) SetProfile(_ context.Context, name string) error {
	return f.record("profile %s", name)
}

func (f *fakeOperator) SetMood(_ context.Context, name string) error {
	return f.record("mood %s", name)
}

func (f *fakeOperator) QuickMood(_ context.Context, name string) error {
	return f.record("quick %s", name)
}

func (f *fakeOperator) RunCinematic(_ context.Context, name string) error {
	return f.record("cinematic %s", name)
}

func (f *fakeOperator) Enqueue(_ context.Context, kind, payload string) error {
	return f.record("enqueue %s/%s", kind, payload)
}

func (f *fakeOperator) ClearEvents(context.Context) int {
	_ = f.record("clear")
	return 3
}

func (f *fakeOperator) StartEvents(context.Context) bool {
	_ = f.record("start")
	return true
}

func (f *fakeOperator) LoadSequence(_ context.Context, name string) (int, error) {
	return 2, f.record("load %s", name)
}

func (f *fakeOperator) StopAll(context.Context) error { return f.record("stop all") }

func (f *fakeOperator) TriggerAttention(_ context.Context, source, target string) error {
	return f.record("attention %s/%s", source, target)
}

func (f *fakeOperator) ClearAttention(context.Context) { _ = f.record("clear attention") }

func (f *fakeOperator) SetPerception(_ context.Context, enabled bool) {
	_ = f.record("perception %v", enabled)
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestOperatorRoutes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		body   string
		call   string
	}{
		{method: http.MethodPost, path: "/v1/profile/Parade", call: "profile Parade"},
		{method: http.MethodPost, path: "/v1/mood/HAPPY", call: "mood HAPPY"},
		{method: http.MethodPost, path: "/v1/quick-mood/SAD", call: "quick SAD"},
		{method: http.MethodPost, path: "/v1/cinematic/Leia_Message", call: "cinematic Leia_Message"},
		{method: http.MethodPost, path: "/v1/events", body: `{"event_type":"mood","event_data":"SHY"}`, call: "enqueue mood/SHY"},
		{method: http.MethodPost, path: "/v1/events/clear", call: "clear"},
		{method: http.MethodPost, path: "/v1/events/start", call: "start"},
		{method: http.MethodPost, path: "/v1/sequences/parade/load", call: "load parade"},
		{method: http.MethodPost, path: "/v1/stop-all", call: "stop all"},
		{method: http.MethodPost, path: "/v1/attention/trigger", body: `{"target":"jawa"}`, call: "attention /jawa"},
		{method: http.MethodPost, path: "/v1/attention/clear", call: "clear attention"},
		{method: http.MethodPost, path: "/v1/attention/enable", call: "perception true"},
		{method: http.MethodPost, path: "/v1/attention/disable", call: "perception false"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			op := &fakeOperator{}
			h := NewRouter(op, nil, slog.New(slog.DiscardHandler))
			code, body := do(t, h, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusOK, code)
			require.Equal(t, "ok", body["status"])
			require.Equal(t, []string{tt.call}, op.calls)
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "unknown mood", err: fmt.Errorf("%w: %q", mood.ErrUnknownMood, "GRUMPY"), want: http.StatusBadRequest},
		{name: "unknown profile", err: profile.ErrUnknownProfile, want: http.StatusBadRequest},
		{name: "unknown kind", err: eventstack.ErrUnknownKind, want: http.StatusBadRequest},
		{name: "unknown cinematic", err: cinematic.ErrUnknownSequence, want: http.StatusBadRequest},
		{name: "invalid sequence", err: sequence.ErrInvalidSequence, want: http.StatusBadRequest},
		{name: "sequence missing", err: sequence.ErrSequenceNotFound, want: http.StatusNotFound},
		{name: "cinematics disabled", err: cinematic.ErrCinematicsDisabled, want: http.StatusConflict},
		{name: "attention disabled", err: attention.ErrAttentionDisabled, want: http.StatusConflict},
		{name: "session active", err: attention.ErrSessionActive, want: http.StatusConflict},
		{name: "other", err: errors.New("db gone"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := &fakeOperator{err: tt.err}
			h := NewRouter(op, nil, slog.New(slog.DiscardHandler))
			code, body := do(t, h, http.MethodPost, "/v1/mood/X", "")
			require.Equal(t, tt.want, code)
			require.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestAddEventValidation(t *testing.T) {
	op := &fakeOperator{}
	h := NewRouter(op, nil, slog.New(slog.DiscardHandler))

	code, body := do(t, h, http.MethodPost, "/v1/events", `{"event_type":"mood"}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, body["error"], "required")

	code, _ = do(t, h, http.MethodPost, "/v1/events", `not json`)
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPost, "/v1/attention/trigger", `{"target":"  "}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Empty(t, op.calls)
}

func TestReadRoutes(t *testing.T) {
	op := &fakeOperator{pending: []eventstack.Pending{{Kind: eventstack.KindMood, Data: "HAPPY"}}}
	h := NewRouter(op, nil, slog.New(slog.DiscardHandler))

	code, body := do(t, h, http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "LargeCon", body["profile"])

	_, body = do(t, h, http.MethodGet, "/v1/events", "")
	require.Len(t, body["event_stack"], 1)

	_, body = do(t, h, http.MethodGet, "/v1/moods", "")
	require.Len(t, body["moods"], len(mood.All()))

	_, body = do(t, h, http.MethodGet, "/v1/profiles", "")
	require.Len(t, body["profiles"], len(profile.DefaultRegistry()))

	_, body = do(t, h, http.MethodGet, "/v1/attention", "")
	require.Equal(t, true, body["attention_active"])
	require.Equal(t, "person", body["attention_target"])

	_, body = do(t, h, http.MethodGet, "/v1/sequences", "")
	require.Equal(t, []any{}, body["sequences"])

	_, body = do(t, h, http.MethodGet, "/v1/recent-actions", "")
	require.Len(t, body["recent_actions"], 1)

	code, body = do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, true, body["ok"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)
	m.MoodChanged("HAPPY", "operator")

	h := NewRouter(&fakeOperator{}, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), slog.New(slog.DiscardHandler))
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "droidcore_mood_changes_total")
}
