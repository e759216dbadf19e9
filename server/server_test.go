package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphicsoft-com/RHA-simulation/core"
	"github.com/graphicsoft-com/RHA-simulation/internal/testutil"
	"github.com/graphicsoft-com/RHA-simulation/room"
	"github.com/graphicsoft-com/RHA-simulation/session"
)

type fixture struct {
	registry *room.Registry
	store    *session.InMemoryStore
	srv      *httptest.Server
}

func newFixture(t *testing.T, cfg room.Config) *fixture {
	t.Helper()
	store := session.NewInMemoryStore()
	registry := room.New(func(o *room.Options) {
		o.Config = cfg
		o.Store = store
		o.Generator = testutil.NewScriptedGenerator()
	})
	t.Cleanup(func() { registry.Close(context.Background()) })

	api := New(registry, func(o *Options) {
		o.Store = store
		o.MetricsHandler = nil
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &fixture{registry: registry, store: store, srv: srv}
}

func fastCfg() room.Config {
	return room.Config{TurnsPerSession: 2, AckTimeout: 5 * time.Millisecond, SettlePause: time.Millisecond}
}

func parkedCfg() room.Config {
	return room.Config{TurnsPerSession: 30, AckTimeout: time.Minute, SettlePause: time.Millisecond}
}

func doJSON(t *testing.T, method, url string) (int, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func waitIdle(t *testing.T, reg *room.Registry, roomID string) {
	t.Helper()
	require.Eventually(t, func() bool { return !reg.IsRunning(roomID) },
		5*time.Second, 2*time.Millisecond)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, fastCfg())

	status, body := doJSON(t, http.MethodGet, f.srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `"ok"`, string(body["status"]))
}

func TestStartAndStop(t *testing.T) {
	f := newFixture(t, parkedCfg())

	status, body := doJSON(t, http.MethodPost, f.srv.URL+"/api/simulation/start/room1")
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `true`, string(body["success"]))

	var sess core.Session
	require.NoError(t, json.Unmarshal(body["data"], &sess))
	assert.Equal(t, "room1", sess.RoomID)
	assert.Equal(t, core.SessionActive, sess.Status)

	status, body = doJSON(t, http.MethodPost, f.srv.URL+"/api/simulation/start/room1")
	assert.Equal(t, http.StatusConflict, status)
	assert.JSONEq(t, `false`, string(body["success"]))

	status, _ = doJSON(t, http.MethodPost, f.srv.URL+"/api/simulation/stop/room1")
	assert.Equal(t, http.StatusOK, status)

	// The loop is parked on its ack wait; acknowledging lets it reach the
	// boundary where the stop takes effect.
	require.Eventually(t, func() bool {
		f.registry.Acknowledge("room1")
		return !f.registry.IsRunning("room1")
	}, 5*time.Second, 2*time.Millisecond)
}

func TestStartUnknownRoom(t *testing.T) {
	f := newFixture(t, fastCfg())

	status, body := doJSON(t, http.MethodPost, f.srv.URL+"/api/simulation/start/room99")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `false`, string(body["success"]))
}

func TestStopIdleRoom(t *testing.T) {
	f := newFixture(t, fastCfg())

	status, _ := doJSON(t, http.MethodPost, f.srv.URL+"/api/simulation/stop/room1")
	assert.Equal(t, http.StatusConflict, status)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, parkedCfg())

	_, err := f.registry.Start(context.Background(), "room2")
	require.NoError(t, err)

	status, body := doJSON(t, http.MethodGet, f.srv.URL+"/api/simulation/status")
	require.Equal(t, http.StatusOK, status)

	var data struct {
		Rooms []roomStatus `json:"rooms"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &data))
	require.Len(t, data.Rooms, 6)

	byID := map[string]roomStatus{}
	for _, rs := range data.Rooms {
		byID[rs.RoomID] = rs
	}
	assert.True(t, byID["room2"].IsActive)
	assert.NotEmpty(t, byID["room2"].SessionID)
	assert.False(t, byID["room1"].IsActive)
	assert.Empty(t, byID["room1"].SessionID)
}

func TestTranscripts(t *testing.T) {
	f := newFixture(t, fastCfg())

	sess, err := f.registry.Start(context.Background(), "room1")
	require.NoError(t, err)
	waitIdle(t, f.registry, "room1")

	status, body := doJSON(t, http.MethodGet, f.srv.URL+"/api/transcripts/room1")
	require.Equal(t, http.StatusOK, status)

	var data struct {
		Sessions   []core.Session `json:"sessions"`
		Page       int            `json:"page"`
		Total      int64          `json:"total"`
		TotalPages int64          `json:"totalPages"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &data))
	require.Len(t, data.Sessions, 1)
	assert.Equal(t, sess.ID, data.Sessions[0].ID)
	assert.Equal(t, core.SessionStopped, data.Sessions[0].Status)
	assert.Equal(t, 1, data.Page)
	assert.EqualValues(t, 1, data.Total)
	assert.EqualValues(t, 1, data.TotalPages)

	status, _ = doJSON(t, http.MethodGet, f.srv.URL+"/api/transcripts/room99")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSessionMessages(t *testing.T) {
	f := newFixture(t, fastCfg())

	sess, err := f.registry.Start(context.Background(), "room1")
	require.NoError(t, err)
	waitIdle(t, f.registry, "room1")

	status, body := doJSON(t, http.MethodGet, f.srv.URL+"/api/transcripts/"+sess.ID+"/messages")
	require.Equal(t, http.StatusOK, status)

	var data struct {
		Session  core.Session   `json:"session"`
		Messages []core.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body["data"], &data))
	assert.Equal(t, sess.ID, data.Session.ID)
	require.Len(t, data.Messages, 2)
	assert.Equal(t, core.RoleClinician, data.Messages[0].Role)
	assert.Equal(t, core.RolePatient, data.Messages[1].Role)

	status, _ = doJSON(t, http.MethodGet, f.srv.URL+"/api/transcripts/nope/messages")
	assert.Equal(t, http.StatusNotFound, status)
}
