// Package simnode is an in-memory stand-in for a development execution node.
// It serves the snapshot, time-manipulation and mining methods the harness
// drives, plus the handful of eth_ queries needed to observe the results, so
// controller logic can be tested without a real node process.
//
// It maintains a header chain only: no transactions, no state trie. That is
// all the chain-state controller needs to be exercised against.
package simnode

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	// DefaultChainID matches the common dev-node default.
	DefaultChainID = 31337
	// DefaultGenesisTime is an arbitrary fixed point in time, so test runs
	// are reproducible regardless of the wall clock.
	DefaultGenesisTime = 1700000000

	defaultBlockInterval = 1
	defaultGasLimit      = 30_000_000
)

type config struct {
	chainID       *big.Int
	genesisTime   uint64
	blockInterval uint64
	gasLimit      uint64
}

type Option func(cfg *config)

func WithChainID(id uint64) Option {
	return func(cfg *config) {
		cfg.chainID = new(big.Int).SetUint64(id)
	}
}

func WithGenesisTime(ts uint64) Option {
	return func(cfg *config) {
		cfg.genesisTime = ts
	}
}

// WithBlockInterval sets the seconds added to the parent timestamp for each
// mined block, before any pending time adjustments.
func WithBlockInterval(seconds uint64) Option {
	return func(cfg *config) {
		cfg.blockInterval = seconds
	}
}

// Node hosts the simulated chain behind a go-ethereum RPC server.
type Node struct {
	log     log.Logger
	srv     *rpc.Server
	backend *backend
}

func New(lgr log.Logger, opts ...Option) (*Node, error) {
	cfg := &config{
		chainID:       big.NewInt(DefaultChainID),
		genesisTime:   DefaultGenesisTime,
		blockInterval: defaultBlockInterval,
		gasLimit:      defaultGasLimit,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	n := &Node{
		log:     lgr,
		srv:     rpc.NewServer(),
		backend: newBackend(cfg.chainID, cfg.genesisTime, cfg.blockInterval, cfg.gasLimit),
	}
	if err := n.srv.RegisterName("evm", &evmAPI{log: lgr, b: n.backend}); err != nil {
		return nil, err
	}
	if err := n.srv.RegisterName("eth", &ethAPI{b: n.backend}); err != nil {
		return nil, err
	}
	return n, nil
}

// Attach returns an in-process client connected to the node.
// The caller owns the client and must Close it.
func (n *Node) Attach() *rpc.Client {
	return rpc.DialInProc(n.srv)
}

func (n *Node) Close() {
	n.srv.Stop()
}

// evmAPI serves the dev-node state-control namespace.
type evmAPI struct {
	log log.Logger
	b   *backend
}

func (api *evmAPI) Snapshot() hexutil.Uint64 {
	id := api.b.snapshot()
	api.log.Debug("Snapshot taken", "handle", hexutil.Uint64(id))
	return hexutil.Uint64(id)
}

func (api *evmAPI) Revert(id hexutil.Uint64) bool {
	ok := api.b.revert(uint64(id))
	api.log.Debug("Revert requested", "handle", id, "ok", ok)
	return ok
}

func (api *evmAPI) IncreaseTime(seconds hexutil.Uint64) hexutil.Uint64 {
	return hexutil.Uint64(api.b.increaseTime(uint64(seconds)))
}

func (api *evmAPI) SetNextBlockTimestamp(ts hexutil.Uint64) error {
	return api.b.setNextTimestamp(uint64(ts))
}

func (api *evmAPI) Mine() hexutil.Uint64 {
	header := api.b.mine()
	api.log.Debug("Mined block", "number", header.Number, "time", header.Time)
	return hexutil.Uint64(header.Number.Uint64())
}

// ethAPI serves the read-only queries the harness asserts against.
type ethAPI struct {
	b *backend
}

func (api *ethAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(api.b.chainID)
}

func (api *ethAPI) BlockNumber() hexutil.Uint64 {
	return hexutil.Uint64(api.b.blockNumber())
}

// GetBlockByNumber returns the header of the requested block, or nil if the
// block does not exist. Transaction bodies are never available; the fullTx
// flag is accepted for interface compatibility and ignored.
func (api *ethAPI) GetBlockByNumber(number rpc.BlockNumber, fullTx bool) *types.Header {
	return api.b.headerByNumber(number.Int64())
}
