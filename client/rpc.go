package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

// RPC is the minimal request surface the harness needs from an execution-node
// connection: send a method with params, wait for the response. The harness
// issues calls strictly sequentially, so implementations do not need to
// support concurrent callers.
type RPC interface {
	Close()
	CallContext(ctx context.Context, result any, method string, args ...any) error
	BatchCallContext(ctx context.Context, b []rpc.BatchElem) error
}

type rpcConfig struct {
	callTimeout      time.Duration
	batchCallTimeout time.Duration
	metrics          Metricer
}

type RPCOption func(cfg *rpcConfig) error

// WithCallTimeout bounds the duration of a single call.
// A timeout of 0 disables the bound entirely.
func WithCallTimeout(d time.Duration) RPCOption {
	return func(cfg *rpcConfig) error {
		cfg.callTimeout = d
		return nil
	}
}

// WithBatchCallTimeout bounds the duration of a batch call.
// A timeout of 0 disables the bound entirely.
func WithBatchCallTimeout(d time.Duration) RPCOption {
	return func(cfg *rpcConfig) error {
		cfg.batchCallTimeout = d
		return nil
	}
}

// WithMetrics records per-method request counts and durations on the
// returned client.
func WithMetrics(m Metricer) RPCOption {
	return func(cfg *rpcConfig) error {
		cfg.metrics = m
		return nil
	}
}

// NewRPC dials the given address and wraps the connection in the harness
// client. The URL scheme decides the transport (http(s), ws(s), or IPC path),
// matching go-ethereum dial behavior.
func NewRPC(ctx context.Context, lgr log.Logger, addr string, opts ...RPCOption) (RPC, error) {
	var cfg rpcConfig
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("rpc option %d failed to apply: %w", i, err)
		}
	}
	underlying, err := rpc.DialContext(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %q: %w", addr, err)
	}
	lgr.Debug("Connected to execution node", "addr", addr)

	var wrapped RPC = NewBaseRPCClientWithTimeout(underlying, cfg.callTimeout, cfg.batchCallTimeout)
	if cfg.metrics != nil {
		wrapped = NewInstrumentedRPC(wrapped, cfg.metrics)
	}
	return wrapped, nil
}

// BaseRPCClient is an RPC implementation on top of a go-ethereum rpc.Client,
// with optional per-call timeouts. Errors from the node pass through
// unchanged, except that JSON-RPC error data (when present) is appended to
// the message so test failures show the full node-side reason.
type BaseRPCClient struct {
	c                *rpc.Client
	callTimeout      time.Duration
	batchCallTimeout time.Duration
}

var _ RPC = (*BaseRPCClient)(nil)

func NewBaseRPCClient(c *rpc.Client) *BaseRPCClient {
	return &BaseRPCClient{c: c}
}

func NewBaseRPCClientWithTimeout(c *rpc.Client, callTimeout, batchTimeout time.Duration) *BaseRPCClient {
	return &BaseRPCClient{c: c, callTimeout: callTimeout, batchCallTimeout: batchTimeout}
}

func (b *BaseRPCClient) Close() {
	b.c.Close()
}

func (b *BaseRPCClient) CallContext(ctx context.Context, result any, method string, args ...any) error {
	if b.callTimeout > 0 {
		cCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()
		ctx = cCtx
	}
	return wrapErrorData(b.c.CallContext(ctx, result, method, args...))
}

func (b *BaseRPCClient) BatchCallContext(ctx context.Context, batch []rpc.BatchElem) error {
	if b.batchCallTimeout > 0 {
		cCtx, cancel := context.WithTimeout(ctx, b.batchCallTimeout)
		defer cancel()
		ctx = cCtx
	}
	return wrapErrorData(b.c.BatchCallContext(ctx, batch))
}

// wrapErrorData surfaces the "data" field of a JSON-RPC error, which
// go-ethereum drops from the message. Errors without data are returned as-is.
func wrapErrorData(err error) error {
	if err == nil {
		return nil
	}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return fmt.Errorf("%w (data: %v)", err, dataErr.ErrorData())
	}
	return err
}
