package simnode

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// genesisSnapshotID is the handle pinned to the node's initial state. Unlike
// user snapshots it survives reverts, so full-suite resets stay repeatable.
const genesisSnapshotID = 1

// backend is the chain state behind the RPC surface: a header chain plus the
// pending time adjustments for the next block. Snapshots capture all of it.
//
// Headers are immutable once appended, so snapshots share them and only copy
// the slice.
type backend struct {
	mu sync.Mutex

	chainID       *big.Int
	blockInterval uint64 // seconds added to the parent timestamp per block
	gasLimit      uint64

	headers []*types.Header // index == block number

	timeOffset    uint64  // pending additive offset, consumed by the next mined block
	nextTimestamp *uint64 // absolute override for the next block; wins over timeOffset

	snapshots      map[uint64]*snapshotState
	nextSnapshotID uint64
}

type snapshotState struct {
	headers       []*types.Header
	timeOffset    uint64
	nextTimestamp *uint64
}

func newBackend(chainID *big.Int, genesisTime uint64, blockInterval uint64, gasLimit uint64) *backend {
	genesis := &types.Header{
		ParentHash:  common.Hash{},
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    common.Address{},
		Root:        types.EmptyRootHash,
		TxHash:      types.EmptyTxsHash,
		ReceiptHash: types.EmptyReceiptsHash,
		Bloom:       types.Bloom{},
		Difficulty:  big.NewInt(1),
		Number:      big.NewInt(0),
		GasLimit:    gasLimit,
		GasUsed:     0,
		Time:        genesisTime,
		Extra:       []byte{},
		BaseFee:     big.NewInt(params.InitialBaseFee),
	}
	b := &backend{
		chainID:        chainID,
		blockInterval:  blockInterval,
		gasLimit:       gasLimit,
		headers:        []*types.Header{genesis},
		snapshots:      make(map[uint64]*snapshotState),
		nextSnapshotID: genesisSnapshotID,
	}
	// The genesis snapshot backs reverts to the well-known initial handle.
	b.snapshots[b.nextSnapshotID] = b.capture()
	b.nextSnapshotID++
	return b
}

func (b *backend) capture() *snapshotState {
	s := &snapshotState{
		headers:    make([]*types.Header, len(b.headers)),
		timeOffset: b.timeOffset,
	}
	copy(s.headers, b.headers)
	if b.nextTimestamp != nil {
		ts := *b.nextTimestamp
		s.nextTimestamp = &ts
	}
	return s
}

func (b *backend) restore(s *snapshotState) {
	b.headers = make([]*types.Header, len(s.headers))
	copy(b.headers, s.headers)
	b.timeOffset = s.timeOffset
	b.nextTimestamp = nil
	if s.nextTimestamp != nil {
		ts := *s.nextTimestamp
		b.nextTimestamp = &ts
	}
}

func (b *backend) head() *types.Header {
	return b.headers[len(b.headers)-1]
}

// snapshot captures the current state and returns its handle.
// Handles are never reused, even after reverts.
func (b *backend) snapshot() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextSnapshotID
	b.nextSnapshotID++
	b.snapshots[id] = b.capture()
	return id
}

// revert restores the state captured at the given handle. The handle and all
// handles taken after it are consumed, except the pinned genesis handle.
// It reports whether the handle was known.
func (b *backend) revert(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.snapshots[id]
	if !ok {
		return false
	}
	b.restore(s)
	for k := range b.snapshots {
		if k >= id && k != genesisSnapshotID {
			delete(b.snapshots, k)
		}
	}
	return true
}

// increaseTime adds the given number of seconds to the pending offset and
// returns the new total. The offset is applied to the next mined block.
func (b *backend) increaseTime(seconds uint64) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeOffset += seconds
	return b.timeOffset
}

// setNextTimestamp fixes the absolute timestamp of the next mined block.
// Timestamps must move forward.
func (b *backend) setNextTimestamp(ts uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if head := b.head().Time; ts <= head {
		return fmt.Errorf("timestamp %d is not past the head block time %d", ts, head)
	}
	b.nextTimestamp = &ts
	return nil
}

// mine appends one block. An absolute next-timestamp override wins over the
// additive offset; both are consumed by the mined block. Timestamps are kept
// strictly monotonic.
func (b *backend) mine() *types.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	parent := b.head()
	ts := parent.Time + b.blockInterval + b.timeOffset
	if b.nextTimestamp != nil {
		ts = *b.nextTimestamp
		b.nextTimestamp = nil
	}
	if ts <= parent.Time {
		ts = parent.Time + 1
	}
	b.timeOffset = 0
	header := &types.Header{
		ParentHash:  parent.Hash(),
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    common.Address{},
		Root:        types.EmptyRootHash,
		TxHash:      types.EmptyTxsHash,
		ReceiptHash: types.EmptyReceiptsHash,
		Bloom:       types.Bloom{},
		Difficulty:  big.NewInt(1),
		Number:      new(big.Int).Add(parent.Number, big.NewInt(1)),
		GasLimit:    b.gasLimit,
		GasUsed:     0,
		Time:        ts,
		Extra:       []byte{},
		BaseFee:     big.NewInt(params.InitialBaseFee),
	}
	b.headers = append(b.headers, header)
	return header
}

func (b *backend) headerByNumber(number int64) *types.Header {
	b.mu.Lock()
	defer b.mu.Unlock()
	if number < 0 || number >= int64(len(b.headers)) {
		// negative numbers are the "latest"-style labels; the head serves
		// all of them in a node without a txpool or finality gadget
		if number < 0 {
			return b.head()
		}
		return nil
	}
	return b.headers[number]
}

func (b *backend) blockNumber() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head().Number.Uint64()
}
