package battleserver_test

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/skirmish/internal/battleserver"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/storage/sqlite"
)

// testGRPCServer starts an in-process battle service backed by a temporary
// sqlite store and returns a connected client.
func testGRPCServer(t *testing.T) (*battleserver.Client, *sqlite.Store) {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	m := testManager(t, store, 0)
	svc := battleserver.NewService(m, zaptest.NewLogger(t))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	battleserver.RegisterBattleServiceServer(grpcServer, svc)

	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(func() { grpcServer.Stop() })

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return battleserver.NewClient(conn), store
}

func field(s *structpb.Struct, path ...string) *structpb.Value {
	v := structpb.NewStructValue(s)
	for _, key := range path {
		v = v.GetStructValue().GetFields()[key]
	}
	return v
}

func phaseOf(resp *structpb.Struct) string {
	return field(resp, "state", "phase").GetStringValue()
}

func TestGRPCService_InteractiveSession(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.CreateSession(ctx, map[string]any{"builtin": "test_still"})
	require.NoError(t, err)
	id := field(resp, "session_id").GetStringValue()
	require.NotEmpty(t, id)
	assert.Equal(t, string(combat.PhaseInitiativeRoll), phaseOf(resp))

	// A natural 20 plus the DEX bonus beats anything the dummy can roll.
	resp, err = client.SubmitRoll(ctx, id, []int{20})
	require.NoError(t, err)
	assert.Equal(t, string(combat.PhaseIdle), phaseOf(resp))
	assert.Equal(t, "pc-garanzia", field(resp, "state", "active_id").GetStringValue())

	resp, err = client.Command(ctx, id, "begin_targeting", map[string]any{"mode": "move"})
	require.NoError(t, err)
	assert.Equal(t, string(combat.PhaseAwaitingMoveTarget), phaseOf(resp))

	resp, err = client.Command(ctx, id, "inspect_cell", map[string]any{"x": 10, "y": 7})
	require.NoError(t, err)
	assert.Equal(t, "Training Dummy", field(resp, "state", "inspected", "name").GetStringValue())

	resp, err = client.GetState(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, field(resp, "state", "battle").GetStructValue())

	_, err = client.GetReport(ctx, id)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	require.NoError(t, client.CloseSession(ctx, id))
	_, err = client.GetState(ctx, id)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPCService_RejectsBadRequests(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.CreateSession(ctx, map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.CreateSession(ctx, map[string]any{"builtin": "no_such_battle"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetState(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))

	resp, err := client.CreateSession(ctx, map[string]any{"builtin": "test_still"})
	require.NoError(t, err)
	id := field(resp, "session_id").GetStringValue()

	_, err = client.Command(ctx, id, "cast_fireball", nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Command(ctx, id, "select_cell", map[string]any{"x": 1.5, "y": 2})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.SubmitRoll(ctx, id, []int{21})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Command(ctx, id, "begin_targeting", map[string]any{"mode": "teleport"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCService_AutopilotWatchAndReport(t *testing.T) {
	client, store := testGRPCServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := client.CreateSession(ctx, map[string]any{"builtin": "test_still", "autopilot": true, "seed": 11})
	require.NoError(t, err)
	id := field(resp, "session_id").GetStringValue()

	stream, err := client.Watch(ctx, id)
	require.NoError(t, err)
	var last *structpb.Struct
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		last = msg
	}
	require.NotNil(t, last)
	assert.Equal(t, string(combat.PhaseBattleEnded), phaseOf(last))

	resp, err = client.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "TEST_STILL_01", field(resp, "report", "battle_id").GetStringValue())
	reportID := field(resp, "report_id").GetStringValue()
	require.NotEmpty(t, reportID)

	stored, err := store.Get(ctx, reportID)
	require.NoError(t, err)
	assert.Equal(t, "TEST_STILL_01", stored.Report.BattleID)
	assert.Len(t, stored.Report.Combatants, 2)
}
