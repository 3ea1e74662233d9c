// Package fixtures wires the harness pieces into ready-to-use test setups:
// a chain-state controller, deterministic accounts and a test logger bound
// to a simulated or external execution node.
package fixtures

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/setprotocol/set-v2-harness/chainstate"
	"github.com/setprotocol/set-v2-harness/client"
	"github.com/setprotocol/set-v2-harness/devkeys"
	"github.com/setprotocol/set-v2-harness/simnode"
	"github.com/setprotocol/set-v2-harness/testlog"
)

// Blockchain is the per-suite handle on an execution node: the controller
// for snapshot/time/mining control, the raw connection for anything beyond
// it, and the deterministic account universe.
type Blockchain struct {
	Log    log.Logger
	Client client.RPC
	Chain  *chainstate.Controller
	Keys   *devkeys.MnemonicDevKeys
}

// Local starts an in-process simulated node and binds a fixture to it.
// Everything is torn down with the test.
func Local(t *testing.T, opts ...simnode.Option) *Blockchain {
	lgr := testlog.Logger(t, slog.LevelInfo)
	node, err := simnode.New(lgr, opts...)
	require.NoError(t, err)
	t.Cleanup(node.Close)

	cl := client.NewBaseRPCClient(node.Attach())
	t.Cleanup(cl.Close)

	keys, err := devkeys.NewMnemonicDevKeys(devkeys.TestMnemonic)
	require.NoError(t, err)

	return &Blockchain{
		Log:    lgr,
		Client: cl,
		Chain:  chainstate.NewController(lgr, cl),
		Keys:   keys,
	}
}

// Dial binds a fixture to an externally managed node, e.g. a long-running
// anvil or hardhat instance. The caller owns the node's lifecycle; the
// returned fixture owns only the connection.
func Dial(ctx context.Context, lgr log.Logger, url string, opts ...client.RPCOption) (*Blockchain, error) {
	cl, err := client.NewRPC(ctx, lgr, url, opts...)
	if err != nil {
		return nil, err
	}
	keys, err := devkeys.NewMnemonicDevKeys(devkeys.TestMnemonic)
	if err != nil {
		cl.Close()
		return nil, err
	}
	return &Blockchain{
		Log:    lgr,
		Client: cl,
		Chain:  chainstate.NewController(lgr, cl),
		Keys:   keys,
	}, nil
}

// Isolate checkpoints the chain now and restores it when the test finishes,
// so state mutations cannot leak into the next test. The snapshot must
// succeed; a broken baseline would silently poison every later assertion.
func (b *Blockchain) Isolate(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, b.Chain.Snapshot(ctx), "failed to checkpoint baseline state")
	handle := b.Chain.LastSnapshot()
	t.Cleanup(func() {
		require.NoError(t, b.Chain.Revert(ctx),
			"failed to restore baseline state (handle %s); later tests run on dirty state", handle)
	})
}
