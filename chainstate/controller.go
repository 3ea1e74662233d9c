// Package chainstate checkpoints and restores the state of an external
// execution node, and manipulates its clock and block production, so tests
// can run against deterministic preconditions.
//
// Every operation is a thin pass-through to a single node request: failures
// propagate unchanged to the caller, with no retries and no local recovery.
// Masking a failure here would hide real test-environment problems behind
// silent state drift.
package chainstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/setprotocol/set-v2-harness/client"
)

// Handle identifies a node-side state snapshot. Handles are opaque: the node
// picks the value and decides how long it stays valid. Most dev nodes consume
// a handle on revert, so reverting twice in a row without re-snapshotting is
// not something callers may rely on.
type Handle string

// GenesisHandle is the well-known handle of the node's initial state.
// Reverting to it discards all chain history accumulated by the test suite.
const GenesisHandle Handle = "0x1"

var ErrNoBlock = errors.New("node returned no block")

// Controller drives the snapshot/time/mining control surface of a single
// execution node. It holds at most one snapshot handle at a time; taking a
// new snapshot overwrites the previous one. A Controller expects exactly one
// sequential caller and performs no locking of its own.
type Controller struct {
	log log.Logger
	rpc client.RPC

	// handle of the last successful snapshot. The zero value is sent as-is
	// if Revert is called before Snapshot; the node decides whether that is
	// a no-op or an error. This is a documented limitation, not a case the
	// controller second-guesses.
	snapshotID Handle
}

func NewController(lgr log.Logger, rpc client.RPC) *Controller {
	return &Controller{log: lgr, rpc: rpc}
}

// Snapshot checkpoints the node's full state (balances, storage, block
// number, timestamp). The returned handle is stored for the next Revert;
// it is only updated once the node has acknowledged the snapshot.
func (c *Controller) Snapshot(ctx context.Context) error {
	var id Handle
	if err := c.rpc.CallContext(ctx, &id, "evm_snapshot"); err != nil {
		return fmt.Errorf("failed to take snapshot: %w", err)
	}
	c.snapshotID = id
	c.log.Debug("Took chain snapshot", "handle", id)
	return nil
}

// LastSnapshot returns the handle of the most recent successful snapshot,
// or the zero Handle if none was taken.
func (c *Controller) LastSnapshot() Handle {
	return c.snapshotID
}

// Revert restores the node to the last snapshot. The stored handle is kept
// rather than cleared: whether it remains usable afterwards is a property of
// the node, not of this controller.
func (c *Controller) Revert(ctx context.Context) error {
	return c.RevertTo(ctx, c.snapshotID)
}

// Reset restores the node to its initial state, independent of any snapshot
// this controller took.
func (c *Controller) Reset(ctx context.Context) error {
	return c.RevertTo(ctx, GenesisHandle)
}

// RevertTo restores the node to an explicit handle, e.g. one recorded by an
// earlier process. The stored handle is not touched.
func (c *Controller) RevertTo(ctx context.Context, id Handle) error {
	var ok bool
	if err := c.rpc.CallContext(ctx, &ok, "evm_revert", id); err != nil {
		return fmt.Errorf("failed to revert to snapshot %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("node rejected revert to snapshot %s", id)
	}
	c.log.Debug("Reverted chain state", "handle", id)
	return nil
}

// IncreaseTime offsets the timestamp of the next mined block by d,
// truncated to whole seconds. It does not mine a block itself.
// Negative durations are rejected: time only moves forward, and the wire
// encoding is unsigned.
func (c *Controller) IncreaseTime(ctx context.Context, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("cannot increase next block time by negative duration %s", d)
	}
	seconds := hexutil.Uint64(d / time.Second)
	if err := c.rpc.CallContext(ctx, nil, "evm_increaseTime", seconds); err != nil {
		return fmt.Errorf("failed to increase next block time by %ds: %w", uint64(seconds), err)
	}
	return nil
}

// SetNextBlockTimestamp fixes the exact timestamp of the next mined block,
// overriding any pending additive time offset for that block.
func (c *Controller) SetNextBlockTimestamp(ctx context.Context, timestamp uint64) error {
	if err := c.rpc.CallContext(ctx, nil, "evm_setNextBlockTimestamp", hexutil.Uint64(timestamp)); err != nil {
		return fmt.Errorf("failed to set next block timestamp to %d: %w", timestamp, err)
	}
	return nil
}

// MineBlock asks the node to produce exactly one block.
func (c *Controller) MineBlock(ctx context.Context) error {
	if err := c.rpc.CallContext(ctx, nil, "evm_mine"); err != nil {
		return fmt.Errorf("failed to mine block: %w", err)
	}
	return nil
}

// WaitBlocks mines n blocks, one at a time. Each mining request is awaited
// before the next is sent, so blocks are produced strictly in order.
func (c *Controller) WaitBlocks(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := c.MineBlock(ctx); err != nil {
			return fmt.Errorf("failed to mine block %d of %d: %w", i+1, n, err)
		}
	}
	return nil
}

// CurrentTimestamp returns the timestamp of the most recently mined block.
// The value is fetched from the node on every call, never cached.
func (c *Controller) CurrentTimestamp(ctx context.Context) (uint64, error) {
	var head *types.Header
	if err := c.rpc.CallContext(ctx, &head, "eth_getBlockByNumber", "latest", false); err != nil {
		return 0, fmt.Errorf("failed to fetch latest block: %w", err)
	}
	if head == nil {
		return 0, ErrNoBlock
	}
	return head.Time, nil
}

// BlockNumber returns the number of the most recently mined block.
func (c *Controller) BlockNumber(ctx context.Context) (uint64, error) {
	var num hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &num, "eth_blockNumber"); err != nil {
		return 0, fmt.Errorf("failed to fetch block number: %w", err)
	}
	return uint64(num), nil
}
