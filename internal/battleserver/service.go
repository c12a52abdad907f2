package battleserver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "skirmish.v1.BattleService"

// BattleServiceServer is the server API of the battle service. Every message
// is a google.protobuf.Struct.
type BattleServiceServer interface {
	// CreateSession loads a battle. Fields: scenario (JSON or YAML text) or
	// builtin (name), seed, autopilot. Returns session_id and state.
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetState returns the latest snapshot of session_id.
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// SubmitRoll delivers values for the pending roll of session_id.
	SubmitRoll(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Command runs one player command against session_id.
	Command(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetReport returns the final report of an ended battle.
	GetReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// CloseSession stops session_id.
	CloseSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Watch streams every snapshot of session_id until the battle ends.
	Watch(*structpb.Struct, grpc.ServerStream) error
}

// Service implements BattleServiceServer on top of a Manager.
type Service struct {
	sessions *Manager
	logger   *zap.Logger
}

// NewService creates a Service.
//
// Precondition: sessions and logger must not be nil.
func NewService(sessions *Manager, logger *zap.Logger) *Service {
	if sessions == nil || logger == nil {
		panic("battleserver.NewService: sessions and logger must not be nil")
	}
	return &Service{sessions: sessions, logger: logger}
}

// CreateSession implements BattleServiceServer.
func (s *Service) CreateSession(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := newRequest(in)
	var (
		doc *scenario.Document
		err error
	)
	switch {
	case req.str("scenario") != "":
		doc, err = scenario.Parse([]byte(req.str("scenario")))
	case req.str("builtin") != "":
		doc, err = scenario.Builtin(req.str("builtin"))
	default:
		return nil, status.Error(codes.InvalidArgument, "one of scenario or builtin is required")
	}
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	seed, _ := req.integer("seed")
	sess, err := s.sessions.Create(ctx, doc, CreateOptions{Seed: seed, Autopilot: req.boolean("autopilot")})
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"session_id": sess.ID, "state": sess.Engine.Snapshot()})
}

// GetState implements BattleServiceServer.
func (s *Service) GetState(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	return stateReply(sess.Engine.Snapshot(), nil)
}

// SubmitRoll implements BattleServiceServer.
func (s *Service) SubmitRoll(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	values, ok := newRequest(in).ints("values")
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "values must be a list of whole numbers")
	}
	return stateReply(sess.Engine.SubmitRoll(ctx, values...))
}

// Command implements BattleServiceServer.
func (s *Service) Command(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	req := newRequest(in)
	e := sess.Engine
	cmd := req.str("command")
	switch cmd {
	case "advance_turn":
		return stateReply(e.AdvanceTurn(ctx))
	case "begin_targeting":
		return stateReply(e.BeginTargeting(ctx, combat.TargetMode(req.str("mode"))))
	case "select_attack_target":
		return stateReply(e.SelectAttackTarget(ctx, req.str("target_id")))
	case "select_spell_target":
		return stateReply(e.SelectSpellTarget(ctx, req.str("target_id"), req.str("spell_id")))
	case "perform_action":
		return stateReply(e.PerformAction(ctx, combat.ActionKind(req.str("action")), req.str("target_id")))
	case "select_move_target", "select_cell", "inspect_cell":
		cell, ok := req.cell()
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "%s needs whole-number x and y", cmd)
		}
		switch cmd {
		case "select_move_target":
			return stateReply(e.SelectMoveTarget(ctx, cell))
		case "select_cell":
			return stateReply(e.SelectCell(ctx, cell))
		default:
			return stateReply(e.InspectCell(ctx, cell))
		}
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown command %q", cmd)
	}
}

// GetReport implements BattleServiceServer. Once the report has been
// persisted the reply also carries its report_id.
func (s *Service) GetReport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.session(in)
	if err != nil {
		return nil, err
	}
	rep, err := sess.Engine.Report()
	if err != nil {
		return nil, toStatus(err)
	}
	out := map[string]any{"report": rep}
	select {
	case <-sess.Saved():
	case <-ctx.Done():
		return nil, status.FromContextError(ctx.Err()).Err()
	}
	if stored, err := sess.StoredReport(); err == nil {
		out["report_id"] = stored.ID
	}
	return reply(out)
}

// CloseSession implements BattleServiceServer.
func (s *Service) CloseSession(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.sessions.Close(newRequest(in).str("session_id")); err != nil {
		return nil, toStatus(err)
	}
	return &structpb.Struct{}, nil
}

// Watch implements BattleServiceServer. The current snapshot is sent first.
func (s *Service) Watch(in *structpb.Struct, stream grpc.ServerStream) error {
	sess, err := s.session(in)
	if err != nil {
		return err
	}
	updates, cancel := sess.Subscribe()
	defer cancel()

	send := func(st *combat.State) error {
		msg, err := stateReply(st, nil)
		if err != nil {
			return err
		}
		return stream.SendMsg(msg)
	}
	current := sess.Engine.Snapshot()
	if err := send(current); err != nil {
		return err
	}
	if current.Ended() {
		return nil
	}
	for {
		select {
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			if st.Version <= current.Version {
				continue
			}
			current = st
			if err := send(st); err != nil {
				return err
			}
			if st.Ended() {
				return nil
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}

func (s *Service) session(in *structpb.Struct) (*Session, error) {
	id := newRequest(in).str("session_id")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id is required")
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return sess, nil
}

func reply(v map[string]any) (*structpb.Struct, error) {
	out, err := encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// stateReply wraps an engine command result. Rejected commands still publish
// the current snapshot, so the error is returned alone.
func stateReply(st *combat.State, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"state": st})
}

// toStatus maps domain errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrTooManySessions):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, combat.ErrProtocol):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, combat.ErrNoBattle), errors.Is(err, combat.ErrBattleInProgress):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.InvalidArgument, fmt.Sprintf("battle: %v", err))
	}
}

var _ BattleServiceServer = (*Service)(nil)
