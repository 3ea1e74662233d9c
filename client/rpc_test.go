package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/setprotocol/set-v2-harness/client"
	"github.com/setprotocol/set-v2-harness/metrics"
)

func startTestJSONRPCServer(errFields map[string]interface{}) *httptest.Server {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"jsonrpc": "2.0",
			"error":   errFields,
			"id":      "0",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	})
	return httptest.NewServer(handler)
}

func TestBaseRPCClientCallContextJSONRPCError(t *testing.T) {
	server := startTestJSONRPCServer(map[string]interface{}{
		"code":    -32000,
		"message": "snapshot not found",
		"data":    "handle 0x5 already consumed",
	})
	defer server.Close()
	rpcClient, err := rpc.DialHTTP(server.URL)
	require.NoError(t, err)
	cl := client.NewBaseRPCClient(rpcClient)
	var result any
	err = cl.CallContext(context.Background(), &result, "evm_revert", "0x5")
	require.Contains(t, err.Error(), "snapshot not found", "error should contain message field")
	require.Contains(t, err.Error(), "handle 0x5 already consumed", "error should contain data field")
}

func TestBaseRPCClientCallContextJSONRPCErrorNoData(t *testing.T) {
	server := startTestJSONRPCServer(map[string]interface{}{
		"code":    -32000,
		"message": "snapshot not found",
	})
	defer server.Close()
	rpcClient, err := rpc.DialHTTP(server.URL)
	require.NoError(t, err)
	cl := client.NewBaseRPCClient(rpcClient)
	var result any
	err = cl.CallContext(context.Background(), &result, "evm_revert", "0x5")
	require.Exactly(t, "snapshot not found", err.Error(), "error should exactly match the message field")
}

// startTestBatchJSONRPCServer answers a JSON-RPC batch request with one
// successful result per element, numbered in request order. A non-zero delay
// holds the response until the client gives up or the request is canceled.
func startTestBatchJSONRPCServer(delay time.Duration) *httptest.Server {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		var reqs []struct {
			ID json.RawMessage `json:"id"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &reqs)
		responses := make([]map[string]interface{}, 0, len(reqs))
		for i, req := range reqs {
			responses = append(responses, map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  fmt.Sprintf("0x%x", i+1),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(responses)
	})
	return httptest.NewServer(handler)
}

func TestBaseRPCClientBatchCallContext(t *testing.T) {
	server := startTestBatchJSONRPCServer(0)
	defer server.Close()
	rpcClient, err := rpc.DialHTTP(server.URL)
	require.NoError(t, err)
	cl := client.NewBaseRPCClient(rpcClient)
	defer cl.Close()

	var first, second string
	batch := []rpc.BatchElem{
		{Method: "evm_snapshot", Result: &first},
		{Method: "evm_snapshot", Result: &second},
	}
	require.NoError(t, cl.BatchCallContext(context.Background(), batch))
	for _, elem := range batch {
		require.NoError(t, elem.Error)
	}
	require.Equal(t, "0x1", first)
	require.Equal(t, "0x2", second)
}

func TestBaseRPCClientBatchCallTimeout(t *testing.T) {
	server := startTestBatchJSONRPCServer(time.Minute)
	defer server.Close()
	rpcClient, err := rpc.DialHTTP(server.URL)
	require.NoError(t, err)
	cl := client.NewBaseRPCClientWithTimeout(rpcClient, 0, 50*time.Millisecond)
	defer cl.Close()

	var result string
	err = cl.BatchCallContext(context.Background(), []rpc.BatchElem{
		{Method: "evm_mine", Result: &result},
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

type countingMetricer struct {
	requests   int
	responses  int
	lastMethod string
	lastErr    error
}

func (c *countingMetricer) RecordRequest(method string) func(err error) {
	c.requests++
	c.lastMethod = method
	return func(err error) {
		c.responses++
		c.lastErr = err
	}
}

func TestInstrumentedRPCRecordsRequests(t *testing.T) {
	server := startTestJSONRPCServer(map[string]interface{}{
		"code":    -32601,
		"message": "the method does not exist",
	})
	defer server.Close()
	rpcClient, err := rpc.DialHTTP(server.URL)
	require.NoError(t, err)
	m := &countingMetricer{}
	cl := client.NewInstrumentedRPC(client.NewBaseRPCClient(rpcClient), m)
	defer cl.Close()

	var result any
	err = cl.CallContext(context.Background(), &result, "evm_snapshot")
	require.Error(t, err)
	require.Equal(t, 1, m.requests)
	require.Equal(t, 1, m.responses)
	require.Equal(t, err, m.lastErr)
}

func TestInstrumentedRPCRecordsBatches(t *testing.T) {
	server := startTestBatchJSONRPCServer(0)
	defer server.Close()
	rpcClient, err := rpc.DialHTTP(server.URL)
	require.NoError(t, err)
	m := &countingMetricer{}
	cl := client.NewInstrumentedRPC(client.NewBaseRPCClient(rpcClient), m)
	defer cl.Close()

	var result string
	err = cl.BatchCallContext(context.Background(), []rpc.BatchElem{
		{Method: "evm_mine", Result: &result},
	})
	require.NoError(t, err)
	require.Equal(t, 1, m.requests)
	require.Equal(t, 1, m.responses)
	require.Equal(t, "<batch>", m.lastMethod)
	require.NoError(t, m.lastErr)
}

func TestRPCMetricsImplementsMetricer(t *testing.T) {
	var m client.Metricer = metrics.MakeRPCMetrics("set_harness", prometheus.NewRegistry())
	done := m.RecordRequest("evm_mine")
	done(nil)
}
