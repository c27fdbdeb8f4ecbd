package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	drawauth "github.com/gravadigital/drawnames-api/internal/auth"
	"github.com/gravadigital/drawnames-api/internal/config"
	"github.com/gravadigital/drawnames-api/internal/domain/draw"
	"github.com/gravadigital/drawnames-api/internal/metrics"
	"github.com/gravadigital/drawnames-api/internal/services"
	"github.com/gravadigital/drawnames-api/internal/storage/memory"
)

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.GinMode = gin.TestMode
	cfg.CORS.AllowOrigins = "*"

	repo := memory.NewEventRepository()
	tokens := drawauth.NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	registry := prometheus.NewRegistry()
	deps := Deps{
		Events:   services.NewEventService(repo, drawauth.NewOrganizerKeys(bcrypt.MinCost), tokens),
		Draws:    services.NewDrawService(repo, draw.NewGenerator(draw.DefaultOptions()), metrics.New(registry)),
		Tokens:   tokens,
		Gatherer: registry,
	}
	return &api{t: t, router: NewRouter(cfg, deps)}
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Error    string          `json:"error"`
	Blocking []struct {
		Name string `json:"name"`
	} `json:"blocking_participants"`
}

func (a *api) do(method, path string, body any, headers map[string]string) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type createdEvent struct {
	Event struct {
		ID    string `json:"id"`
		Stage string `json:"stage"`
	} `json:"event"`
	OrganizerKey string `json:"organizer_key"`
}

type joined struct {
	Participant struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"participant"`
	Token string `json:"token"`
}

func TestPing(t *testing.T) {
	a := newAPI(t)
	code, _ := a.do(http.MethodGet, "/ping", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestDrawFlow(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(http.MethodPost, "/api/events", map[string]string{"name": "Office party"}, nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	created := decode[createdEvent](t, env.Data)
	assert.Equal(t, "open", created.Event.Stage)
	base := "/api/events/" + created.Event.ID
	organizer := map[string]string{"X-Organizer-Key": created.OrganizerKey}

	people := map[string]joined{}
	for _, name := range []string{"Ana", "Bruno", "Carla", "Diego"} {
		code, env := a.do(http.MethodPost, base+"/participants", map[string]string{"name": name}, nil)
		require.Equal(t, http.StatusCreated, code, env.Error)
		people[name] = decode[joined](t, env.Data)
	}

	edit := map[string]any{"edits": []map[string]string{
		{"op": "add", "a": people["Ana"].Participant.ID, "b": people["Bruno"].Participant.ID},
	}}
	code, _ = a.do(http.MethodPut, base+"/exclusions", edit, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "edits need the organizer key")

	code, env = a.do(http.MethodPut, base+"/exclusions", edit, organizer)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.True(t, decode[services.Feasibility](t, env.Data).Feasible)

	anaReveal := base + "/participants/" + people["Ana"].Participant.ID + "/reveal"
	anaAuth := map[string]string{"Authorization": "Bearer " + people["Ana"].Token}

	code, _ = a.do(http.MethodPost, anaReveal, nil, anaAuth)
	assert.Equal(t, http.StatusConflict, code, "nothing to reveal before the draw")

	code, _ = a.do(http.MethodPost, base+"/assign", nil, organizer)
	assert.Equal(t, http.StatusConflict, code, "assign needs a locked event")

	code, env = a.do(http.MethodPost, base+"/lock", nil, organizer)
	require.Equal(t, http.StatusOK, code, env.Error)

	code, _ = a.do(http.MethodPost, base+"/participants", map[string]string{"name": "Late"}, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = a.do(http.MethodPost, base+"/assign", nil, organizer)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.NotContains(t, string(env.Data), people["Carla"].Participant.ID, "assign never lists who drew whom")

	code, env = a.do(http.MethodPost, anaReveal, nil, anaAuth)
	require.Equal(t, http.StatusOK, code, env.Error)
	first := decode[services.Revealed](t, env.Data)
	assert.Contains(t, []string{"Carla", "Diego"}, first.Recipient.Name)
	assert.True(t, first.First)

	code, env = a.do(http.MethodPost, anaReveal, nil, anaAuth)
	require.Equal(t, http.StatusOK, code)
	again := decode[services.Revealed](t, env.Data)
	assert.Equal(t, first.Recipient, again.Recipient)
	assert.False(t, again.First)

	brunoAuth := map[string]string{"Authorization": "Bearer " + people["Bruno"].Token}
	code, _ = a.do(http.MethodPost, anaReveal, nil, brunoAuth)
	assert.Equal(t, http.StatusUnauthorized, code, "Bruno cannot read Ana's draw")

	code, env = a.do(http.MethodGet, base+"/progress", nil, nil)
	require.Equal(t, http.StatusOK, code)
	progress := decode[services.Progress](t, env.Data)
	assert.Equal(t, 1, progress.Revealed)
	assert.Equal(t, 4, progress.Total)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `drawnames_reveals_total{kind="first"} 1`)
}

func TestLockInfeasibleNamesBlockingParticipants(t *testing.T) {
	a := newAPI(t)

	_, env := a.do(http.MethodPost, "/api/events", map[string]string{"name": "Family"}, nil)
	created := decode[createdEvent](t, env.Data)
	base := "/api/events/" + created.Event.ID
	organizer := map[string]string{"X-Organizer-Key": created.OrganizerKey}

	ids := map[string]string{}
	for _, name := range []string{"Ana", "Bruno", "Carla"} {
		_, env := a.do(http.MethodPost, base+"/participants", map[string]string{"name": name}, nil)
		ids[name] = decode[joined](t, env.Data).Participant.ID
	}

	edits := map[string]any{"edits": []map[string]string{
		{"op": "add", "a": ids["Ana"], "b": ids["Bruno"]},
		{"op": "add", "a": ids["Ana"], "b": ids["Carla"]},
	}}
	code, env := a.do(http.MethodPut, base+"/exclusions", edits, organizer)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.False(t, decode[services.Feasibility](t, env.Data).Feasible)

	code, env = a.do(http.MethodPost, base+"/lock", nil, organizer)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.Len(t, env.Blocking, 1)
	assert.Equal(t, "Ana", env.Blocking[0].Name)

	code, env = a.do(http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"stage":"open"`)
}

func TestBadRequests(t *testing.T) {
	a := newAPI(t)

	code, _ := a.do(http.MethodGet, "/api/events/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodPost, "/api/events", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.do(http.MethodGet, "/api/events/00000000-0000-0000-0000-000000000001", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
