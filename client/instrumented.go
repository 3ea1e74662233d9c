package client

import (
	"context"

	"github.com/ethereum/go-ethereum/rpc"
)

// Metricer records client-side request metrics. It is implemented by
// metrics.RPCMetrics, and kept as an interface here so the client package
// does not force a metrics registry on every consumer.
type Metricer interface {
	RecordRequest(method string) func(err error)
}

// InstrumentedRPCClient is an RPC client that tracks requests and responses
// on a Metricer.
type InstrumentedRPCClient struct {
	c RPC
	m Metricer
}

var _ RPC = (*InstrumentedRPCClient)(nil)

func NewInstrumentedRPC(c RPC, m Metricer) *InstrumentedRPCClient {
	return &InstrumentedRPCClient{c: c, m: m}
}

func (ic *InstrumentedRPCClient) Close() {
	ic.c.Close()
}

func (ic *InstrumentedRPCClient) CallContext(ctx context.Context, result any, method string, args ...any) error {
	record := ic.m.RecordRequest(method)
	err := ic.c.CallContext(ctx, result, method, args...)
	record(err)
	return err
}

func (ic *InstrumentedRPCClient) BatchCallContext(ctx context.Context, b []rpc.BatchElem) error {
	record := ic.m.RecordRequest("<batch>")
	err := ic.c.BatchCallContext(ctx, b)
	record(err)
	return err
}
