package combat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/character"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

const tracerName = "github.com/cory-johannsen/skirmish/internal/game/combat"

// DefaultMaxRounds applies when Options.Config leaves MaxRounds unset.
const DefaultMaxRounds = 100

var (
	// ErrProtocol reports a driver that broke the roll protocol: a roll with
	// nothing pending, a die out of range, or a roll the phase does not take.
	ErrProtocol = errors.New("combat: protocol violation")
	// ErrNoBattle is returned by operations invoked before LoadBattle.
	ErrNoBattle = errors.New("combat: no battle loaded")
	// ErrBattleInProgress is returned by Report before the battle has ended.
	ErrBattleInProgress = errors.New("combat: battle still in progress")
)

// EnemyController decides what an engine-controlled combatant does with its turn.
type EnemyController interface {
	TakeTurn(ctx context.Context, t *Turn) error
}

// Options configures an Engine.
type Options struct {
	Config config.EngineConfig
	Logger *zap.Logger
	// Source supplies internal dice; nil selects dice.NewSource(Config.Seed).
	Source dice.Source
	// Conditions defines condition mechanics; nil selects condition.Builtin().
	Conditions *condition.Registry
	// Autopilot hands player combatants to the controller as well and rolls
	// every die internally.
	Autopilot bool
}

type waiter struct {
	id string
	ch chan struct{}
}

// Engine orchestrates one battle at a time. Every transition clones the
// current snapshot, mutates the clone and publishes it. AI turns and
// opportunity attacks run in a single worker task; player commands are
// ignored while it runs.
type Engine struct {
	cfg       config.EngineConfig
	base      *zap.Logger
	logger    atomic.Pointer[zap.Logger]
	roller    *dice.Roller
	conds     *condition.Registry
	pacer     *Pacer
	tracer    trace.Tracer
	autopilot bool

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        *State
	controller   EnemyController
	observers    []func(*State)
	battleCtx    context.Context
	battleCancel context.CancelFunc
	running      bool
	done         chan struct{}
	parked       chan struct{}
	rollCh       chan []int
	waiters      []waiter
	lastTick     time.Time

	notifyMu sync.Mutex
	notified uint64
}

// NewEngine creates an Engine with no battle loaded.
//
// Precondition: opts.Logger is non-nil.
// Postcondition: Snapshot returns nil until LoadBattle succeeds.
func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		panic("combat: NewEngine requires a logger")
	}
	src := opts.Source
	if src == nil {
		src = dice.NewSource(opts.Config.Seed)
	}
	if opts.Config.MaxRounds < 1 {
		opts.Config.MaxRounds = DefaultMaxRounds
	}
	conds := opts.Conditions
	if conds == nil {
		conds = condition.Builtin()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       opts.Config,
		base:      opts.Logger,
		roller:    dice.NewLoggedRoller(src, opts.Logger),
		conds:     conds,
		pacer:     NewPacer(opts.Config.AIActionDelay),
		tracer:    otel.Tracer(tracerName),
		autopilot: opts.Autopilot,
		ctx:       ctx,
		cancel:    cancel,
	}
	e.logger.Store(opts.Logger)
	return e
}

// SetEnemyController binds the controller used for engine-driven turns.
func (e *Engine) SetEnemyController(c EnemyController) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.controller = c
}

// OnPublish registers fn to observe every published snapshot. Observers run
// outside the engine lock and may call Snapshot.
func (e *Engine) OnPublish(fn func(*State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Close abandons any worker task. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.cancel()
}

// Snapshot returns the current published state, or nil before LoadBattle.
func (e *Engine) Snapshot() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Autopilot reports whether the engine drives player combatants as well.
func (e *Engine) Autopilot() bool { return e.autopilot }

func (e *Engine) lg() *zap.Logger { return e.logger.Load() }

// LoadBattle replaces any current battle with the one described by doc and
// publishes it in the initiative phase. In autopilot mode initiative is rolled
// and the battle starts running immediately.
//
// Postcondition: on error no state is committed.
func (e *Engine) LoadBattle(ctx context.Context, doc *scenario.Document) (*State, error) {
	ctx, span := e.tracer.Start(ctx, "combat.LoadBattle")
	defer span.End()
	if doc == nil {
		return nil, errors.New("combat: loading battle: nil document")
	}
	if err := doc.Validate(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("combat: loading battle %q: %w", doc.BattleID, err)
	}
	span.SetAttributes(attribute.String("battle.id", doc.BattleID))

	e.mu.Lock()
	if e.battleCancel != nil {
		e.battleCancel()
	}
	e.mu.Unlock()
	if err := e.awaitTask(ctx); err != nil {
		return nil, fmt.Errorf("combat: loading battle %q: %w", doc.BattleID, err)
	}

	chars := doc.Characters()
	var first *character.Character
	for _, c := range chars {
		if c.IsPlayer() {
			first = c
			break
		}
	}
	s := &State{
		Phase: PhaseInitiativeRoll,
		Battle: &Battle{
			ID:          doc.BattleID,
			Description: doc.EnvironmentDescription,
			Width:       doc.GridSize.Width,
			Height:      doc.GridSize.Height,
			Features:    doc.Features(),
		},
		Characters:  chars,
		TurnIndex:   -1,
		ActiveID:    first.ID,
		PendingRoll: &RollRequest{Kind: RollInitiative, ActorID: first.ID, Count: 1, Sides: 20},
	}
	s.logf(LogInfo, "The battle begins! Roll for initiative.")

	e.logger.Store(observability.BattleLogger(e.base, doc.BattleID))
	e.mu.Lock()
	if e.state != nil {
		s.Version = e.state.Version + 1
	}
	e.state = s
	e.lastTick = time.Time{}
	e.waiters = nil
	e.rollCh = nil
	e.battleCtx, e.battleCancel = context.WithCancel(e.ctx)
	e.mu.Unlock()
	e.notify(s)
	e.lg().Info("battle loaded", zap.Int("combatants", len(chars)), zap.Bool("autopilot", e.autopilot))

	if e.autopilot {
		e.update(func(s *State) { e.resolveInitiative(s, e.roller.D20()) })
		e.startBattle()
	}
	return e.Snapshot(), nil
}

// startBattle advances into the first turn and kicks off any AI work.
func (e *Engine) startBattle() {
	e.mu.Lock()
	next := e.applyLocked(e.advanceTurn)
	e.kickLocked()
	e.mu.Unlock()
	e.notify(next)
}

// AdvanceTurn ends the active player's turn.
func (e *Engine) AdvanceTurn(ctx context.Context) (*State, error) {
	return e.command(ctx, "AdvanceTurn", func(s *State, actor *character.Character) {
		switch s.Phase {
		case PhaseIdle, PhaseAwaitingMoveTarget, PhaseAwaitingAttackTarget,
			PhaseAwaitingSpellTarget, PhaseAwaitingExtraAttack, PhaseAwaitingShoveTarget:
		default:
			return
		}
		s.Highlighted = nil
		s.logf(LogInfo, "%s ends the turn.", b(actor.Name))
		e.advanceTurn(s)
	})
}

// SubmitRoll delivers externally rolled dice to the pending roll request.
//
// Postcondition: a wrapped ErrProtocol is returned, and nothing changes, when
// no roll is pending, a value lies outside 1..sides, more dice than requested
// are supplied, or the phase does not take a roll.
func (e *Engine) SubmitRoll(ctx context.Context, values ...int) (*State, error) {
	_, span := e.tracer.Start(ctx, "combat.SubmitRoll")
	defer span.End()

	e.mu.Lock()
	s := e.state
	if s == nil {
		e.mu.Unlock()
		return nil, ErrNoBattle
	}
	if err := validateRoll(s.PendingRoll, values); err != nil {
		e.mu.Unlock()
		span.RecordError(err)
		e.lg().Warn("roll rejected", zap.Error(err), zap.String("phase", string(s.Phase)), zap.Ints("values", values))
		return s, err
	}

	if ch := e.rollCh; ch != nil {
		e.rollCh = nil
		e.parked = make(chan struct{})
		next := e.applyLocked(func(s *State) { s.PendingRoll = nil })
		e.mu.Unlock()
		e.notify(next)
		ch <- values
		return next, nil
	}

	var fn func(*State)
	switch s.Phase {
	case PhaseInitiativeRoll:
		fn = func(s *State) { e.resolveInitiative(s, values[0]) }
	case PhaseRollingAttack:
		fn = func(s *State) { e.resolveAttackRoll(s, values) }
	case PhaseAwaitingDamageRoll:
		fn = func(s *State) { e.resolveDamageRoll(s, values) }
	case PhaseRollingHeal:
		fn = func(s *State) { e.resolveHealingRoll(s, values) }
	default:
		e.mu.Unlock()
		err := fmt.Errorf("%w: phase %s does not take a roll", ErrProtocol, s.Phase)
		span.RecordError(err)
		return s, err
	}
	next := e.applyLocked(fn)
	e.kickLocked()
	e.mu.Unlock()
	e.notify(next)

	if next.Phase == PhaseInitiativeResolved {
		e.startBattle()
		next = e.Snapshot()
	}
	return next, nil
}

func validateRoll(req *RollRequest, values []int) error {
	if req == nil {
		return fmt.Errorf("%w: no roll is pending", ErrProtocol)
	}
	if len(values) == 0 || len(values) > req.Count {
		return fmt.Errorf("%w: %s roll expects 1..%d dice, got %d", ErrProtocol, req.Kind, req.Count, len(values))
	}
	for _, v := range values {
		if v < 1 || v > req.Sides {
			return fmt.Errorf("%w: die value %d outside 1..%d", ErrProtocol, v, req.Sides)
		}
	}
	return nil
}

// Wait blocks until no worker task is running, or the running task is parked
// on an external roll. With non-zero animation durations some caller must keep
// calling Tick for tasks to progress.
func (e *Engine) Wait(ctx context.Context) error {
	for {
		e.mu.Lock()
		running, parked := e.running, e.rollCh != nil
		done, parkCh := e.done, e.parked
		e.mu.Unlock()
		if !running || parked {
			return nil
		}
		select {
		case <-done:
		case <-parkCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) awaitTask(ctx context.Context) error {
	for {
		e.mu.Lock()
		running, done := e.running, e.done
		e.mu.Unlock()
		if !running {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tick advances animations and floating texts to now. Move completion is the
// point where logical positions change.
func (e *Engine) Tick(now time.Time) *State {
	e.mu.Lock()
	s := e.state
	if s == nil {
		e.mu.Unlock()
		return nil
	}
	var dt time.Duration
	if !e.lastTick.IsZero() {
		dt = now.Sub(e.lastTick)
	}
	e.lastTick = now
	if dt <= 0 || !animating(s) {
		e.mu.Unlock()
		return s
	}
	next := e.applyLocked(func(s *State) { e.advanceAnimations(s, dt) })
	e.kickLocked()
	e.mu.Unlock()
	e.notify(next)
	return next
}

func animating(s *State) bool {
	if len(s.FloatingTexts) > 0 {
		return true
	}
	for _, c := range s.Characters {
		if c.Anim.Busy() {
			return true
		}
	}
	return false
}

func (e *Engine) advanceAnimations(s *State, dt time.Duration) {
	for _, c := range s.Characters {
		if c.Anim.Moving() {
			c.Anim.Elapsed += dt
			total := time.Duration(len(c.Anim.Path)-1) * e.cfg.MoveCellDuration
			if c.Anim.Elapsed >= total {
				e.completeMove(s, c)
			}
		}
		if c.Anim.Dying {
			c.Anim.FadeElapsed += dt
			if c.Anim.FadeElapsed >= e.cfg.DeathFadeDuration {
				c.Anim.Dying, c.Anim.Faded = false, true
			}
		}
	}
	kept := s.FloatingTexts[:0]
	for _, ft := range s.FloatingTexts {
		if ft.Delay > 0 {
			ft.Delay = max(0, ft.Delay-dt)
			kept = append(kept, ft)
			continue
		}
		ft.Age += dt
		if ft.Age < e.cfg.FloatingTextDuration {
			kept = append(kept, ft)
		}
	}
	s.FloatingTexts = kept
}

// update applies fn to a draft of the current state and publishes it.
func (e *Engine) update(fn func(*State)) *State {
	e.mu.Lock()
	next := e.applyLocked(fn)
	e.mu.Unlock()
	e.notify(next)
	return next
}

// applyLocked must be called with e.mu held.
func (e *Engine) applyLocked(fn func(*State)) *State {
	next := e.state.Clone()
	fn(next)
	next.Version = e.state.Version + 1
	e.state = next
	e.releaseWaitersLocked(next)
	return next
}

func (e *Engine) notify(s *State) {
	e.mu.Lock()
	obs := e.observers
	e.mu.Unlock()
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	if s.Version != 0 && s.Version <= e.notified {
		return
	}
	e.notified = s.Version
	for _, fn := range obs {
		fn(s)
	}
}

func (e *Engine) releaseWaitersLocked(s *State) {
	kept := e.waiters[:0]
	for _, w := range e.waiters {
		if c := s.Character(w.id); c == nil || !c.Anim.Busy() {
			close(w.ch)
			continue
		}
		kept = append(kept, w)
	}
	e.waiters = kept
}

// awaitIdle blocks until id has no move or death animation in flight.
func (e *Engine) awaitIdle(ctx context.Context, id string) error {
	e.mu.Lock()
	c := e.state.Character(id)
	if c == nil || !c.Anim.Busy() {
		e.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	e.waiters = append(e.waiters, waiter{id: id, ch: ch})
	e.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// requestRoll parks the worker until SubmitRoll delivers dice for req. prepare
// runs on the draft that publishes the request.
//
// Precondition: no other request is outstanding.
func (e *Engine) requestRoll(ctx context.Context, req RollRequest, prepare func(*State)) ([]int, error) {
	e.mu.Lock()
	if e.rollCh != nil {
		e.mu.Unlock()
		panic("combat: a roll request is already outstanding")
	}
	ch := make(chan []int, 1)
	e.rollCh = ch
	next := e.applyLocked(func(s *State) {
		prepare(s)
		s.PendingRoll = &req
	})
	close(e.parked)
	e.mu.Unlock()
	e.notify(next)
	e.lg().Debug("awaiting external roll", zap.String("kind", string(req.Kind)), zap.String("actor", req.ActorID))

	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		e.mu.Lock()
		if e.rollCh == ch {
			e.rollCh = nil
			e.parked = make(chan struct{})
		}
		e.mu.Unlock()
		return nil, ctx.Err()
	}
}

// spawnLocked starts fn as the worker task unless one is running.
func (e *Engine) spawnLocked(name string, fn func(ctx context.Context) error) {
	if e.running {
		return
	}
	e.running = true
	done := make(chan struct{})
	e.done = done
	e.parked = make(chan struct{})
	ctx := e.battleCtx
	go func() {
		err := fn(ctx)
		if err != nil {
			e.lg().Info("worker task stopped", zap.String("task", name), zap.Error(err))
		}
		e.mu.Lock()
		e.running = false
		close(done)
		e.kickLocked()
		e.mu.Unlock()
	}()
}

// kickLocked starts the worker task the current state calls for.
func (e *Engine) kickLocked() {
	s := e.state
	if s == nil || s.Ended() || e.running || e.battleCtx.Err() != nil {
		return
	}
	switch s.Phase {
	case PhaseOpportunityAttack:
		if len(s.OpportunityAttacks) == 0 {
			return
		}
		if m := s.Character(s.OpportunityAttacks[0].TargetID); m != nil && m.Anim.Moving() {
			return
		}
		e.spawnLocked("opportunity attacks", e.runOpportunityAttacks)
	case PhaseEnemyTurn:
		e.spawnLocked("ai turns", e.runEngineTurns)
	}
}

// human reports whether c takes its decisions and dice from outside the engine.
func (e *Engine) human(c *character.Character) bool {
	return c != nil && c.IsPlayer() && !e.autopilot
}

// command runs fn against a draft when the active combatant is a human player
// who may act now. Otherwise the call is ignored and the current state returned.
func (e *Engine) command(ctx context.Context, op string, fn func(s *State, actor *character.Character)) (*State, error) {
	_, span := e.tracer.Start(ctx, "combat."+op)
	defer span.End()

	e.mu.Lock()
	s := e.state
	if s == nil {
		e.mu.Unlock()
		return nil, ErrNoBattle
	}
	span.SetAttributes(attribute.String("battle.id", s.Battle.ID), attribute.String("phase", string(s.Phase)))
	if reason := e.blockedLocked(s); reason != "" {
		e.mu.Unlock()
		e.lg().Debug("command ignored", zap.String("op", op), zap.String("reason", reason), zap.String("phase", string(s.Phase)))
		return s, nil
	}
	next := e.applyLocked(func(d *State) { fn(d, d.Active()) })
	e.kickLocked()
	e.mu.Unlock()
	e.notify(next)
	return next, nil
}

func (e *Engine) blockedLocked(s *State) string {
	switch {
	case e.running:
		return "worker busy"
	case s.Ended():
		return "battle ended"
	case !e.human(s.Active()):
		return "not a player turn"
	case !s.Active().Alive():
		return "active combatant is down"
	case s.PendingRoll != nil:
		return "roll pending"
	case s.Phase == PhaseOpportunityAttack:
		return "opportunity attacks pending"
	}
	for _, c := range s.Characters {
		if c.Anim.Busy() {
			return "animation in flight"
		}
	}
	return ""
}

// turnPhase is the phase a turn rests in between actions.
func (e *Engine) turnPhase(s *State) Phase {
	if e.human(s.Active()) {
		return PhaseIdle
	}
	return PhaseEnemyTurn
}

// runEngineTurns plays consecutive engine-controlled turns until a human
// turn begins or the battle ends.
func (e *Engine) runEngineTurns(ctx context.Context) error {
	for {
		s := e.Snapshot()
		if s.Ended() || s.Phase != PhaseEnemyTurn {
			return nil
		}
		actor := s.Active()
		if err := e.pacer.Pause(ctx); err != nil {
			return err
		}
		e.mu.Lock()
		ctrl := e.controller
		e.mu.Unlock()
		if ctrl == nil {
			e.update(func(s *State) { s.logf(LogInfo, "%s does nothing.", b(actor.Name)) })
		} else if err := ctrl.TakeTurn(ctx, &Turn{e: e, id: actor.ID}); err != nil {
			if ctx.Err() != nil {
				return err
			}
			e.lg().Error("controller failed", zap.String("actor", actor.ID), zap.Error(err))
		}
		if e.Snapshot().Ended() {
			return nil
		}
		if err := e.pacer.Beat(ctx); err != nil {
			return err
		}
		e.update(func(s *State) {
			if !s.Ended() {
				s.Phase = PhaseEnemyTurn
				e.advanceTurn(s)
			}
		})
	}
}

func (e *Engine) runOpportunityAttacks(ctx context.Context) error {
	return e.resolveOpportunityAttacks(ctx)
}

// resolveOpportunityAttacks drains the queue, then returns the battle to the
// active combatant's turn phase. A player felled by an attack loses the rest
// of the turn; engine turns are advanced by runEngineTurns.
func (e *Engine) resolveOpportunityAttacks(ctx context.Context) error {
	var queue []OpportunityAttack
	e.update(func(s *State) {
		queue = s.OpportunityAttacks
		s.OpportunityAttacks = nil
	})
	for _, oa := range queue {
		if e.Snapshot().Ended() {
			break
		}
		if err := e.aiAttack(ctx, oa.AttackerID, oa.TargetID, true); err != nil {
			return err
		}
		e.update(func(s *State) { e.checkBattleEnd(s) })
	}
	e.update(func(s *State) {
		if s.Ended() {
			return
		}
		if a := s.Active(); e.human(a) && !a.Alive() {
			e.advanceTurn(s)
			return
		}
		s.Phase = e.turnPhase(s)
	})
	return nil
}

// Report builds the final report of an ended battle.
func (e *Engine) Report() (Report, error) {
	s := e.Snapshot()
	if s == nil {
		return Report{}, ErrNoBattle
	}
	return BuildReport(s)
}
