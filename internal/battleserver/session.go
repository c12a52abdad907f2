// Package battleserver hosts independent battle sessions behind a gRPC
// service. Each session owns one combat.Engine; sessions share nothing but the
// enemy controller and the report store.
package battleserver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
	"github.com/cory-johannsen/skirmish/internal/storage"
)

// ErrSessionNotFound is returned when a session lookup yields no results.
var ErrSessionNotFound = errors.New("session not found")

// ErrTooManySessions is returned by Create once the session cap is reached.
var ErrTooManySessions = errors.New("too many sessions")

// watchBuffer is the per-subscriber snapshot backlog. A subscriber that falls
// further behind misses intermediate snapshots, never the latest one.
const watchBuffer = 16

// Session is one hosted battle.
type Session struct {
	ID      string
	Engine  *combat.Engine
	Created time.Time

	mu       sync.Mutex
	watchers map[int]chan *combat.State
	nextSub  int
	saveOnce sync.Once
	saved    chan struct{}
	stored   storage.StoredReport
	saveErr  error
}

// Subscribe returns a channel receiving every snapshot published from now on
// and a cancel func that closes it.
func (s *Session) Subscribe() (<-chan *combat.State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan *combat.State, watchBuffer)
	s.watchers[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.watchers[id]; ok {
			delete(s.watchers, id)
			close(c)
		}
	}
}

func (s *Session) publish(st *combat.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- st:
		default:
			// Drop the oldest queued snapshot to make room for the newest.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

func (s *Session) closeWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.watchers {
		delete(s.watchers, id)
		close(ch)
	}
}

// Saved is closed once the session's final report has been persisted.
func (s *Session) Saved() <-chan struct{} { return s.saved }

// StoredReport returns the persisted report once Saved is closed.
func (s *Session) StoredReport() (storage.StoredReport, error) {
	select {
	case <-s.saved:
		return s.stored, s.saveErr
	default:
		return storage.StoredReport{}, combat.ErrBattleInProgress
	}
}

// CreateOptions tunes a new session.
type CreateOptions struct {
	// Seed overrides the configured dice seed when non-zero.
	Seed int64
	// Autopilot lets the controller drive the player faction as well.
	Autopilot bool
}

// Manager tracks live sessions.
//
// Invariant: every tracked session has a loaded battle.
type Manager struct {
	cfg        config.EngineConfig
	controller combat.EnemyController
	store      storage.ReportStore
	logger     *zap.Logger
	limit      int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// DefaultSessionLimit caps concurrent sessions when NewManager gets limit <= 0.
const DefaultSessionLimit = 256

// NewManager creates an empty Manager.
//
// Precondition: controller, store and logger must not be nil.
func NewManager(cfg config.EngineConfig, controller combat.EnemyController, store storage.ReportStore, logger *zap.Logger, limit int) *Manager {
	if controller == nil || store == nil || logger == nil {
		panic("battleserver.NewManager: controller, store and logger must not be nil")
	}
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	return &Manager{
		cfg:        cfg,
		controller: controller,
		store:      store,
		logger:     logger,
		limit:      limit,
		sessions:   make(map[string]*Session),
	}
}

// Create starts a session for doc.
//
// Postcondition: on error no session is tracked.
func (m *Manager) Create(ctx context.Context, doc *scenario.Document, opts CreateOptions) (*Session, error) {
	m.mu.RLock()
	full := len(m.sessions) >= m.limit
	m.mu.RUnlock()
	if full {
		return nil, ErrTooManySessions
	}

	cfg := m.cfg
	if opts.Seed != 0 {
		cfg.Seed = opts.Seed
	}
	id := uuid.NewString()
	logger := m.logger.With(zap.String("session", id))
	sess := &Session{
		ID:       id,
		Created:  time.Now(),
		watchers: make(map[int]chan *combat.State),
		saved:    make(chan struct{}),
	}
	sess.Engine = combat.NewEngine(combat.Options{Config: cfg, Logger: logger, Autopilot: opts.Autopilot})
	sess.Engine.SetEnemyController(m.controller)
	sess.Engine.OnPublish(func(st *combat.State) {
		sess.publish(st)
		if st.Ended() {
			sess.saveOnce.Do(func() { go m.persist(sess) })
		}
	})

	if _, err := sess.Engine.LoadBattle(ctx, doc); err != nil {
		sess.Engine.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	logger.Info("session created",
		zap.String("battle_id", doc.BattleID),
		zap.Bool("autopilot", opts.Autopilot),
	)
	return sess, nil
}

// persist stores the final report of sess and closes its Saved channel.
func (m *Manager) persist(sess *Session) {
	defer close(sess.saved)
	rep, err := sess.Engine.Report()
	if err != nil {
		sess.saveErr = err
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sess.stored, sess.saveErr = m.store.Save(ctx, rep)
	if sess.saveErr != nil {
		m.logger.Error("saving battle report", zap.String("session", sess.ID), zap.Error(sess.saveErr))
		return
	}
	m.logger.Info("battle report saved",
		zap.String("session", sess.ID),
		zap.String("report_id", sess.stored.ID),
		zap.String("outcome", string(rep.Outcome)),
		zap.Int("rounds", rep.Rounds),
	)
}

// Get returns the session with the given ID.
//
// Postcondition: returns ErrSessionNotFound if the ID is unknown.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Close stops and forgets the session with the given ID.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Engine.Close()
	sess.closeWatchers()
	m.logger.Info("session closed", zap.String("session", id))
	return nil
}

// CloseAll stops every session.
func (m *Manager) CloseAll() {
	for _, id := range m.IDs() {
		_ = m.Close(id)
	}
}

// IDs lists live session IDs in creation order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].Created.Before(all[j].Created) })
	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ID
	}
	return ids
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Tick advances the animations of every session to now.
func (m *Manager) Tick(now time.Time) {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()
	for _, s := range all {
		s.Engine.Tick(now)
	}
}
