package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	authapp "barnyard/internal/app/auth"
	"barnyard/internal/app/journal"
	worldapp "barnyard/internal/app/world"
	domainworld "barnyard/internal/domain/world"
)

// EventLog serves the journal read side; nil when postgres is not configured.
type EventLog interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

type Handler struct {
	logger      zerolog.Logger
	auth        *authapp.Service
	world       *worldapp.Service
	events      EventLog
	corsOrigin  string
	maxBodySize int64
}

type contextKey string

const sessionIDContextKey contextKey = "session_id"

func NewHandler(logger zerolog.Logger, auth *authapp.Service, world *worldapp.Service, events EventLog, corsOrigin string, maxBodySize int64) *Handler {
	return &Handler{logger: logger, auth: auth, world: world, events: events, corsOrigin: corsOrigin, maxBodySize: maxBodySize}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.cors)

	r.Get("/healthz", h.health)
	r.Get("/readyz", h.ready)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/world/ws", h.worldWS)

		v1.Group(func(api chi.Router) {
			api.Use(middleware.Timeout(20 * time.Second))
			api.Post("/auth/token", h.token)
			api.Get("/world/state", h.worldState)
			api.Get("/world/census", h.worldCensus)
			api.Get("/world/stats", h.worldStats)
			api.Get("/world/events", h.worldEvents)

			api.Group(func(protected chi.Router) {
				protected.Use(h.authMiddleware)
				protected.Post("/world/spawn", h.spawn)
			})
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, _ *http.Request) {
	st := h.world.Stats()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "frame": st.Frames})
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !h.decodeBody(w, r, &req) {
		return
	}
	res, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, authapp.ErrOperatorDisabled) {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}
	h.logger.Info().Str("session_id", res.SessionID.String()).Msg("operator token issued")
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) worldState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.world.WorldState())
}

func (h *Handler) worldCensus(w http.ResponseWriter, _ *http.Request) {
	out := make(map[domainworld.Kind]map[string]int)
	for kind, n := range h.world.Census() {
		out[kind] = map[string]int{"alive": n[0], "dead": n[1]}
	}
	writeJSON(w, http.StatusOK, map[string]any{"census": out})
}

func (h *Handler) worldStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.world.Stats())
}

func (h *Handler) worldEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "event journal disabled"})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("list world events failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *Handler) spawn(w http.ResponseWriter, r *http.Request) {
	var req domainworld.Point
	if !h.decodeBody(w, r, &req) {
		return
	}
	c, err := h.world.Spawn(req)
	if sid, ok := sessionIDFromCtx(r.Context()); ok {
		h.logger.Debug().Str("session_id", sid.String()).Bool("ok", err == nil).Msg("spawn requested")
	}
	if err != nil {
		if errors.Is(err, worldapp.ErrSiteOccupied) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// worldWS streams the world. A valid operator token makes the connection the
// controlling one; without a token the client only watches.
func (h *Handler) worldWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	sessionID := uuid.New()
	operator := false
	if token != "" {
		sid, err := h.auth.ParseToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid token"})
			return
		}
		sessionID, operator = sid, true
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := h.world.RegisterClient(conn, sessionID, operator)
	go h.writePump(client)
	h.readPump(client)
}

type inputMessage struct {
	Type   string             `json:"type"`
	Move   uint8              `json:"move"`
	Attack bool               `json:"attack"`
	Jump   bool               `json:"jump"`
	Talk   bool               `json:"talk"`
	Select int                `json:"select"`
	Spawn  *domainworld.Point `json:"spawn"`
}

func (m inputMessage) intent() domainworld.Intent {
	in := domainworld.Intent{
		Move:   domainworld.Move(m.Move) & (domainworld.MoveLeft | domainworld.MoveRight | domainworld.MoveUp | domainworld.MoveDown),
		Attack: m.Attack,
		Jump:   m.Jump,
		Talk:   m.Talk,
	}
	if m.Select > 0 {
		in.Select = m.Select
	}
	if m.Spawn != nil {
		in.Spawns = []domainworld.Point{*m.Spawn}
	}
	return in
}

func (h *Handler) readPump(client *worldapp.Client) {
	defer h.world.UnregisterClient(client)
	if client.Conn == nil {
		return
	}
	client.Conn.SetReadLimit(2048)
	_ = client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		_ = client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var msg inputMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		switch msg.Type {
		case "input":
			if err := h.world.Submit(client, msg.intent()); err != nil {
				h.sendError(client, "spectators cannot send input")
			}
		default:
			h.sendError(client, "unknown message type")
		}
	}
}

func (h *Handler) writePump(client *worldapp.Client) {
	if client.Conn == nil {
		return
	}
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) sendError(client *worldapp.Client, msg string) {
	h.world.Notify(client, map[string]any{"type": "error", "message": msg})
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing bearer token"})
			return
		}
		sid, err := h.auth.ParseToken(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid token"})
			return
		}
		ctx := context.WithValue(r.Context(), sessionIDContextKey, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	sid, ok := ctx.Value(sessionIDContextKey).(uuid.UUID)
	return sid, ok
}

func bearerToken(r *http.Request) string {
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
}

func (h *Handler) cors(next http.Handler) http.Handler {
	origin := h.corsOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
