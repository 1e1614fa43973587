package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	authapp "barnyard/internal/app/auth"
	"barnyard/internal/app/journal"
	worldapp "barnyard/internal/app/world"
	domainworld "barnyard/internal/domain/world"
)

const operatorPassword = "barn-door-key"

type stubEventLog struct {
	entries []journal.Entry
	err     error
	limit   int
}

func (s *stubEventLog) Recent(_ context.Context, limit int) ([]journal.Entry, error) {
	s.limit = limit
	return s.entries, s.err
}

func newTestServer(t *testing.T, events EventLog) (*httptest.Server, *worldapp.Service) {
	t.Helper()
	tiles := domainworld.FilledTileMap(40, 30, domainworld.TileGrass)
	sim, err := domainworld.New(tiles, domainworld.Config{Seed: 1, PlayerStart: domainworld.Point{X: 400, Y: 400}})
	require.NoError(t, err)
	world := worldapp.NewService(zerolog.Nop(), nil, nil, sim, 60, 1)

	auth, err := authapp.NewService(operatorPassword, "test-secret", time.Hour)
	require.NoError(t, err)

	h := NewHandler(zerolog.Nop(), auth, world, events, "*", 1<<20)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	t.Cleanup(world.Stop)
	return srv, world
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func operatorToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/v1/auth/token", "", map[string]string{"password": operatorPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res authapp.AuthResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestHealthAndState(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/v1/world/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state struct {
		Player struct {
			X int `json:"x"`
		} `json:"player"`
		Clock struct {
			Daytime bool `json:"daytime"`
		} `json:"clock"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.Equal(t, 400, state.Player.X)
	require.True(t, state.Clock.Daytime)
}

func TestTokenRejectsWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp := postJSON(t, srv.URL+"/v1/auth/token", "", map[string]string{"password": "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/v1/auth/token", "", map[string]string{"password": operatorPassword, "extra": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSpawnRequiresOperator(t *testing.T) {
	srv, world := newTestServer(t, nil)

	resp := postJSON(t, srv.URL+"/v1/world/spawn", "", domainworld.Point{X: 64, Y: 64})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := operatorToken(t, srv)
	resp = postJSON(t, srv.URL+"/v1/world/spawn", token, domainworld.Point{X: 64, Y: 64})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Kind  domainworld.Kind `json:"kind"`
		State string           `json:"state"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, domainworld.KindChicken, created.Kind)
	require.NotEmpty(t, created.State)

	resp = postJSON(t, srv.URL+"/v1/world/spawn", token, domainworld.Point{X: 70, Y: 70})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, [2]int{1, 0}, world.Census()[domainworld.KindChicken])
}

func TestEventsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/v1/world/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	stub := &stubEventLog{entries: []journal.Entry{{Kind: domainworld.EventNightfall, Tick: 1200}}}
	srv, _ = newTestServer(t, stub)
	resp, err = http.Get(srv.URL + "/v1/world/events?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 5, stub.limit)
	var body struct {
		Items []journal.Entry `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	require.Equal(t, domainworld.EventNightfall, body.Items[0].Kind)

	resp, err = http.Get(srv.URL + "/v1/world/events?limit=zero")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	stub.err = errors.New("db down")
	resp, err = http.Get(srv.URL + "/v1/world/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func dialWorld(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/world/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, msgType string) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == msgType {
			return msg
		}
	}
}

func TestSpectatorStreamRejectsInput(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	conn := dialWorld(t, srv, "")

	welcome := readUntil(t, conn, "welcome")
	require.Equal(t, false, welcome["operator"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "input", "move": 2}))
	msg := readUntil(t, conn, "error")
	require.Equal(t, "spectators cannot send input", msg["message"])
}

func TestOperatorInputDrivesPlayer(t *testing.T) {
	srv, world := newTestServer(t, nil)
	token := operatorToken(t, srv)
	conn := dialWorld(t, srv, token)

	welcome := readUntil(t, conn, "welcome")
	require.Equal(t, true, welcome["operator"])

	start := world.WorldState().Player.X
	world.Start()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "input", "move": int(domainworld.MoveRight)}))
	require.Eventually(t, func() bool {
		return world.WorldState().Player.X > start
	}, 3*time.Second, 10*time.Millisecond)

	snap := readUntil(t, conn, "snapshot")
	require.NotNil(t, snap["world"])
}

func TestInvalidTokenRefusesUpgrade(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/world/ws?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
