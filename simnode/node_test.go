package simnode

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/setprotocol/set-v2-harness/testlog"
)

func setupNode(t *testing.T, opts ...Option) *rpc.Client {
	node, err := New(testlog.Logger(t, slog.LevelDebug), opts...)
	require.NoError(t, err)
	t.Cleanup(node.Close)
	cl := node.Attach()
	t.Cleanup(cl.Close)
	return cl
}

func mine(t *testing.T, cl *rpc.Client) uint64 {
	var num hexutil.Uint64
	require.NoError(t, cl.CallContext(context.Background(), &num, "evm_mine"))
	return uint64(num)
}

func head(t *testing.T, cl *rpc.Client) *types.Header {
	var header *types.Header
	require.NoError(t, cl.CallContext(context.Background(), &header, "eth_getBlockByNumber", "latest", false))
	require.NotNil(t, header)
	return header
}

func TestSnapshotRevertRestoresChain(t *testing.T) {
	cl := setupNode(t)
	ctx := context.Background()

	mine(t, cl)
	mine(t, cl)
	before := head(t, cl)

	var handle hexutil.Uint64
	require.NoError(t, cl.CallContext(ctx, &handle, "evm_snapshot"))

	mine(t, cl)
	mine(t, cl)
	require.Equal(t, uint64(4), head(t, cl).Number.Uint64())

	var ok bool
	require.NoError(t, cl.CallContext(ctx, &ok, "evm_revert", handle))
	require.True(t, ok)

	after := head(t, cl)
	require.Equal(t, before.Number.Uint64(), after.Number.Uint64())
	require.Equal(t, before.Time, after.Time)

	// the handle is consumed by the revert
	require.NoError(t, cl.CallContext(ctx, &ok, "evm_revert", handle))
	require.False(t, ok)
}

func TestRevertInvalidatesLaterSnapshots(t *testing.T) {
	cl := setupNode(t)
	ctx := context.Background()

	var early, late hexutil.Uint64
	require.NoError(t, cl.CallContext(ctx, &early, "evm_snapshot"))
	mine(t, cl)
	require.NoError(t, cl.CallContext(ctx, &late, "evm_snapshot"))

	var ok bool
	require.NoError(t, cl.CallContext(ctx, &ok, "evm_revert", early))
	require.True(t, ok)
	require.NoError(t, cl.CallContext(ctx, &ok, "evm_revert", late))
	require.False(t, ok, "snapshots taken after the revert point are gone")
}

func TestGenesisHandleSurvivesReverts(t *testing.T) {
	cl := setupNode(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mine(t, cl)
		mine(t, cl)
		var ok bool
		require.NoError(t, cl.CallContext(ctx, &ok, "evm_revert", hexutil.Uint64(1)))
		require.True(t, ok, "genesis handle stays valid, round %d", i)
		h := head(t, cl)
		require.Zero(t, h.Number.Uint64())
		require.Equal(t, uint64(DefaultGenesisTime), h.Time)
	}
}

func TestIncreaseTimeAppliesToNextBlock(t *testing.T) {
	cl := setupNode(t)
	ctx := context.Background()

	before := head(t, cl)
	var total hexutil.Uint64
	require.NoError(t, cl.CallContext(ctx, &total, "evm_increaseTime", hexutil.Uint64(600)))
	require.Equal(t, hexutil.Uint64(600), total)
	require.NoError(t, cl.CallContext(ctx, &total, "evm_increaseTime", hexutil.Uint64(30)))
	require.Equal(t, hexutil.Uint64(630), total, "offsets accumulate until mined")

	// no block mined yet, timestamp unchanged
	require.Equal(t, before.Time, head(t, cl).Time)

	mine(t, cl)
	first := head(t, cl)
	require.Equal(t, before.Time+630+1, first.Time, "offset plus block interval")

	// offset is consumed by the block that mined it
	mine(t, cl)
	require.Equal(t, first.Time+1, head(t, cl).Time)
}

func TestSetNextBlockTimestampOverridesOffset(t *testing.T) {
	cl := setupNode(t)
	ctx := context.Background()

	target := uint64(DefaultGenesisTime) + 5000
	require.NoError(t, cl.CallContext(ctx, nil, "evm_increaseTime", hexutil.Uint64(3600)))
	require.NoError(t, cl.CallContext(ctx, nil, "evm_setNextBlockTimestamp", hexutil.Uint64(target)))

	mine(t, cl)
	require.Equal(t, target, head(t, cl).Time, "absolute override wins over pending offset")
}

func TestSetNextBlockTimestampRejectsPast(t *testing.T) {
	cl := setupNode(t)
	err := cl.CallContext(context.Background(), nil, "evm_setNextBlockTimestamp", hexutil.Uint64(DefaultGenesisTime))
	require.ErrorContains(t, err, "not past the head block time")
}

func TestTimestampsMonotonic(t *testing.T) {
	cl := setupNode(t, WithBlockInterval(0))

	prev := head(t, cl).Time
	for i := 0; i < 5; i++ {
		mine(t, cl)
		now := head(t, cl).Time
		require.Greater(t, now, prev)
		prev = now
	}
}

func TestGetBlockByNumber(t *testing.T) {
	cl := setupNode(t)
	ctx := context.Background()
	mine(t, cl)

	var header *types.Header
	require.NoError(t, cl.CallContext(ctx, &header, "eth_getBlockByNumber", "0x0", false))
	require.NotNil(t, header)
	require.Zero(t, header.Number.Uint64())

	require.NoError(t, cl.CallContext(ctx, &header, "eth_getBlockByNumber", "0x1", false))
	require.NotNil(t, header)
	require.Equal(t, head(t, cl).Hash(), header.Hash())

	header = nil
	require.NoError(t, cl.CallContext(ctx, &header, "eth_getBlockByNumber", "0x99", false))
	require.Nil(t, header, "unknown blocks resolve to null")
}

func TestChainID(t *testing.T) {
	cl := setupNode(t, WithChainID(1337))
	var id hexutil.Big
	require.NoError(t, cl.CallContext(context.Background(), &id, "eth_chainId"))
	require.Equal(t, uint64(1337), id.ToInt().Uint64())
}
