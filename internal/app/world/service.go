package world

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	domainworld "barnyard/internal/domain/world"
	"barnyard/internal/platform/mq"
)

const publishTimeout = 2 * time.Second

var (
	ErrSpectator    = errors.New("client is not an operator")
	ErrSiteOccupied = errors.New("spawn site is occupied or not walkable")
)

// EventSink receives every event the simulation produces. Record must not
// block the tick loop.
type EventSink interface {
	Record(evt domainworld.Event)
}

type Client struct {
	Conn      *websocket.Conn
	SessionID uuid.UUID
	Operator  bool
	Send      chan []byte
}

// Stats are running totals over the lifetime of the service.
type Stats struct {
	Frames   uint64 `json:"frames"`
	Spawns   int    `json:"spawns"`
	Deaths   int    `json:"deaths"`
	Days     int    `json:"days"`
	Nights   int    `json:"nights"`
	Clients  int    `json:"clients"`
	Operator bool   `json:"operator_connected"`
}

type Service struct {
	logger        zerolog.Logger
	pub           mq.Publisher
	journal       EventSink
	tickRate      int
	snapshotEvery int

	mu      sync.RWMutex
	sim     *domainworld.Simulation
	clients map[*Client]struct{}
	pending domainworld.Intent
	stats   Stats
	quit    chan struct{}
	started bool
}

func NewService(logger zerolog.Logger, pub mq.Publisher, journal EventSink, sim *domainworld.Simulation, tickRate, snapshotEvery int) *Service {
	if pub == nil {
		pub = mq.NewNoopPublisher()
	}
	if tickRate <= 0 {
		tickRate = domainworld.TicksPerSecond
	}
	if snapshotEvery <= 0 {
		snapshotEvery = 1
	}
	return &Service{
		logger:        logger,
		pub:           pub,
		journal:       journal,
		tickRate:      tickRate,
		snapshotEvery: snapshotEvery,
		sim:           sim,
		clients:       make(map[*Client]struct{}),
	}
}

func (s *Service) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	quit := make(chan struct{})
	s.quit = quit
	s.mu.Unlock()

	interval := time.Second / time.Duration(s.tickRate)
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.tickWorld()
			case <-quit:
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.quit)
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		close(c.Send)
		clients = append(clients, c)
	}
	s.clients = map[*Client]struct{}{}
	s.mu.Unlock()

	for _, c := range clients {
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	}
}

func (s *Service) RegisterClient(conn *websocket.Conn, sessionID uuid.UUID, operator bool) *Client {
	c := &Client{Conn: conn, SessionID: sessionID, Operator: operator, Send: make(chan []byte, 128)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	nonBlockingSendJSON(c.Send, map[string]any{
		"type":       "welcome",
		"session_id": sessionID,
		"operator":   operator,
		"world":      s.sim.Snapshot(),
	})
	s.mu.Unlock()

	s.logger.Info().Str("session_id", sessionID.String()).Bool("operator", operator).Msg("client joined")
	return c
}

func (s *Service) UnregisterClient(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	if ok {
		delete(s.clients, c)
		close(c.Send)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.logger.Info().Str("session_id", c.SessionID.String()).Msg("client left")
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

// Submit queues input for the next frame. Pulses submitted between two frames
// are kept; the latest movement wins.
func (s *Service) Submit(c *Client, in domainworld.Intent) error {
	if c == nil || !c.Operator {
		return ErrSpectator
	}
	s.mu.Lock()
	s.pending = s.pending.Merge(in)
	s.mu.Unlock()
	return nil
}

// Spawn places a chicken immediately, outside the input queue.
func (s *Service) Spawn(p domainworld.Point) (domainworld.CreatureState, error) {
	s.mu.Lock()
	c, ok := s.sim.SpawnAt(domainworld.KindChicken, p)
	var state domainworld.CreatureState
	if ok {
		state = c.Snapshot()
	}
	s.mu.Unlock()
	if !ok {
		return domainworld.CreatureState{}, ErrSiteOccupied
	}
	s.logger.Debug().Str("creature_id", state.ID.String()).Int("x", p.X).Int("y", p.Y).Msg("operator spawn")
	return state, nil
}

func (s *Service) tickWorld() {
	s.mu.Lock()
	in := s.pending
	s.pending = domainworld.Intent{}
	events := s.sim.Step(in)
	s.stats.Frames = s.sim.Frame()
	s.countLocked(events)
	var snapshot *domainworld.WorldState
	if s.sim.Frame()%uint64(s.snapshotEvery) == 0 {
		ws := s.sim.Snapshot()
		snapshot = &ws
	}
	s.mu.Unlock()

	for _, evt := range events {
		s.dispatch(evt)
	}
	if snapshot != nil {
		s.broadcast(map[string]any{"type": "snapshot", "world": snapshot})
	}
}

func (s *Service) countLocked(events []domainworld.Event) {
	for _, evt := range events {
		switch evt.Kind {
		case domainworld.EventCreatureSpawned:
			s.stats.Spawns++
		case domainworld.EventCreatureDied:
			s.stats.Deaths++
		case domainworld.EventDaybreak:
			s.stats.Days++
		case domainworld.EventNightfall:
			s.stats.Nights++
		}
	}
}

func (s *Service) dispatch(evt domainworld.Event) {
	log := s.logger.Debug()
	if evt.Kind == domainworld.EventNightfall || evt.Kind == domainworld.EventDaybreak {
		log = s.logger.Info()
	}
	log.Str("event", string(evt.Kind)).Uint64("frame", evt.Frame).Str("kind", string(evt.CreatureKind)).Msg("world event")

	if s.journal != nil {
		s.journal.Record(evt)
	}
	b, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal world event failed")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := s.pub.Publish(ctx, "world."+string(evt.Kind), b); err != nil {
		s.logger.Warn().Err(err).Str("event", string(evt.Kind)).Msg("publish world event failed")
	}
	s.broadcast(map[string]any{"type": "event", "event": evt})
}

func (s *Service) broadcast(payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal ws payload failed")
		return
	}

	// Send channels are only closed under the write lock.
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		nonBlockingSend(c.Send, b)
	}
}

// Notify sends payload to a single client if it is still registered.
func (s *Service) Notify(c *Client, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Msg("marshal ws payload failed")
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.clients[c]; ok {
		nonBlockingSend(c.Send, b)
	}
}

func (s *Service) WorldState() domainworld.WorldState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sim.Snapshot()
}

func (s *Service) Census() map[domainworld.Kind][2]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sim.Census()
}

func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Clients = len(s.clients)
	for c := range s.clients {
		if c.Operator {
			st.Operator = true
			break
		}
	}
	return st
}

func nonBlockingSend(ch chan []byte, msg []byte) {
	select {
	case ch <- msg:
	default:
	}
}

func nonBlockingSendJSON(ch chan []byte, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	nonBlockingSend(ch, b)
}
