package fixtures_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/setprotocol/set-v2-harness/devkeys"
	"github.com/setprotocol/set-v2-harness/fixtures"
)

func TestLocalFixtureLifecycle(t *testing.T) {
	chain := fixtures.Local(t)
	ctx := context.Background()

	num, err := chain.Chain.BlockNumber(ctx)
	require.NoError(t, err)
	require.Zero(t, num)

	deployer, err := chain.Keys.Address(devkeys.DeployerRole)
	require.NoError(t, err)
	require.NotZero(t, deployer)
}

func TestIsolateRestoresStateBetweenTests(t *testing.T) {
	chain := fixtures.Local(t)
	ctx := context.Background()

	require.NoError(t, chain.Chain.WaitBlocks(ctx, 2))
	baseline, err := chain.Chain.BlockNumber(ctx)
	require.NoError(t, err)

	t.Run("mutating subtest", func(t *testing.T) {
		chain.Isolate(t)
		require.NoError(t, chain.Chain.IncreaseTime(ctx, time.Hour))
		require.NoError(t, chain.Chain.WaitBlocks(ctx, 5))
	})

	num, err := chain.Chain.BlockNumber(ctx)
	require.NoError(t, err)
	require.Equal(t, baseline, num, "subtest mutations are rolled back")
}

// The full deterministic-time scenario, run through the fixture exactly as a
// protocol test would use it.
func TestTimeControlScenario(t *testing.T) {
	chain := fixtures.Local(t)
	ctx := context.Background()
	chain.Isolate(t)

	tsBefore, err := chain.Chain.CurrentTimestamp(ctx)
	require.NoError(t, err)

	require.NoError(t, chain.Chain.IncreaseTime(ctx, time.Hour))
	require.NoError(t, chain.Chain.WaitBlocks(ctx, 1))

	tsAfter, err := chain.Chain.CurrentTimestamp(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, tsAfter, tsBefore+3600)
	require.LessOrEqual(t, tsAfter, tsBefore+3602)
}

func TestAnvilBlockchain(t *testing.T) {
	chain := fixtures.AnvilBlockchain(t)
	ctx := context.Background()

	require.NoError(t, chain.Chain.Snapshot(ctx))
	require.NoError(t, chain.Chain.WaitBlocks(ctx, 2))
	require.NoError(t, chain.Chain.Revert(ctx))
}
