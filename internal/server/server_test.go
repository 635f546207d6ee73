package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/asyncdoc/internal/config"
	"github.com/yourorg/asyncdoc/internal/store"
	"github.com/yourorg/asyncdoc/pkg/types"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Output.Dir = t.TempDir()

	srv, err := New(cfg, st, zerolog.Nop())
	require.NoError(t, err)
	return srv, st
}

func importBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body := map[string]any{
		"origin": "unit-test",
		"records": []map[string]any{
			{"topic": "line/1/temperature", "payload": map[string]any{"value": 21.5, "unit": "C"}},
			{"topic": "line/2/temperature", "payload": map[string]any{"value": 22.5, "unit": "C"}},
		},
	}
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(body))
	return buf
}

func importSession(t *testing.T, srv *Server) string {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", importBody(t)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["session_id"])
	return resp["session_id"]
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestImportAndListSessions(t *testing.T) {
	srv, _ := newTestServer(t)
	id := importSession(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []types.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, 2, sessions[0].MessageCount)
	assert.Equal(t, "captured", sessions[0].Status)
}

func TestImportRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []string{
		`{broken`,
		`{}`,
		`{"records":[]}`,
		`{"records":[{"topic":"","payload":1}]}`,
		`{"records":[{"topic":"dev/state"}]}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestImportSucceedsWhenBuildFails(t *testing.T) {
	srv, st := newTestServer(t)
	srv.cfg.Generator.Dialect = "z"

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", importBody(t)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The records are persisted even though no document could be built.
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	msgs, err := st.GetMessages(resp["session_id"])
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestSessionDetail(t *testing.T) {
	srv, _ := newTestServer(t)
	id := importSession(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Session  types.Session         `json:"session"`
		Messages []types.StoredMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.Session.ID)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "line/1/temperature", resp.Messages[0].Topic)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	id := importSession(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/document", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2.6.0", doc["asyncapi"])
	channels, ok := doc["channels"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, channels, 2)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/document?format=yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "yaml")
	assert.Contains(t, rec.Body.String(), "asyncapi: 2.6.0")
}

func TestSessionSchemas(t *testing.T) {
	srv, _ := newTestServer(t)
	id := importSession(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/schemas", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Schemas map[string]any `json:"schemas"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Schemas, 1)
}

func TestDeleteSession(t *testing.T) {
	srv, st := newTestServer(t)
	id := importSession(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := st.GetSession(id)
	assert.Error(t, err)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexServesUI(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "asyncdoc")
}

func TestWebsocketBroadcast(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	srv.Hub().Broadcast(map[string]string{"sessionId": "sess_x"})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]string
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "sess_x", msg["sessionId"])
}

func TestImportBroadcastsDocument(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.Hub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", importBody(t))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.NotEmpty(t, msg["sessionId"])
	require.NotNil(t, msg["document"])
}

func TestSessionIDsAreSequential(t *testing.T) {
	srv, _ := newTestServer(t)
	first := importSession(t, srv)
	second := importSession(t, srv)
	assert.NotEqual(t, first, second)
	prefix := fmt.Sprintf("sess_%s_", time.Now().UTC().Format("20060102"))
	assert.True(t, strings.HasPrefix(first, prefix))
	assert.True(t, strings.HasPrefix(second, prefix))
}
