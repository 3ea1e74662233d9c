package fixtures

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/setprotocol/set-v2-harness/simnode"
	"github.com/setprotocol/set-v2-harness/testlog"
)

// Anvil runs a real anvil dev-node process, for suites that need actual
// EVM execution underneath the chain-state controller. The process listens
// on an ephemeral port, discovered from its own startup output.
type Anvil struct {
	args      map[string]string
	proc      *exec.Cmd
	stdout    io.ReadCloser
	stderr    io.ReadCloser
	logger    log.Logger
	startedCh chan struct{}
	wg        sync.WaitGroup
	port      int32
}

type AnvilOption func(*Anvil)

func AnvilWithChainID(id uint64) AnvilOption {
	return func(a *Anvil) {
		a.args["--chain-id"] = strconv.FormatUint(id, 10)
	}
}

func AnvilWithBlockTime(seconds int) AnvilOption {
	if seconds < 0 {
		panic("block time must be non-negative")
	}
	return func(a *Anvil) {
		a.args["--block-time"] = strconv.Itoa(seconds)
	}
}

func AnvilWithForkURL(url string) AnvilOption {
	return func(a *Anvil) {
		a.args["--fork-url"] = url
	}
}

func NewAnvil(logger log.Logger, opts ...AnvilOption) (*Anvil, error) {
	if _, err := exec.LookPath("anvil"); err != nil {
		return nil, fmt.Errorf("anvil not found in PATH: %w", err)
	}
	a := &Anvil{
		args: map[string]string{
			"--port": "0",
		},
		logger:    logger,
		startedCh: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Anvil) Start() error {
	var args []string
	for k, v := range a.args {
		args = append(args, k, v)
	}
	proc := exec.Command("anvil", args...)
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return err
	}

	a.proc = proc
	a.stdout = stdout
	a.stderr = stderr

	if err := a.proc.Start(); err != nil {
		return err
	}

	a.wg.Add(2)
	go a.outputStream(a.stdout)
	go a.outputStream(a.stderr)

	timeout := time.NewTimer(5 * time.Second)
	defer timeout.Stop()

	select {
	case <-a.startedCh:
		return nil
	case <-timeout.C:
		_ = a.Stop()
		return fmt.Errorf("anvil did not start in time")
	}
}

func (a *Anvil) Stop() error {
	if a.proc == nil {
		return nil
	}
	if err := a.proc.Process.Signal(os.Interrupt); err != nil {
		return err
	}
	// make sure the output streams close
	defer a.wg.Wait()
	return a.proc.Wait()
}

func (a *Anvil) outputStream(stream io.ReadCloser) {
	defer a.wg.Done()
	scanner := bufio.NewScanner(stream)
	listenLine := "Listening on 127.0.0.1"

	for scanner.Scan() {
		line := scanner.Text()

		if strings.Contains(line, listenLine) && atomic.LoadInt32(&a.port) == 0 {
			split := strings.Split(line, ":")
			port, err := strconv.Atoi(strings.TrimSpace(split[len(split)-1]))
			if err == nil {
				atomic.StoreInt32(&a.port, int32(port))
				a.startedCh <- struct{}{}
			} else {
				a.logger.Error("failed to parse port from anvil output", "err", err)
			}
		}

		a.logger.Debug("[ANVIL] " + line)
	}
}

func (a *Anvil) RPCUrl() string {
	port := atomic.LoadInt32(&a.port)
	if port == 0 {
		panic("anvil not started")
	}
	return fmt.Sprintf("http://localhost:%d", port)
}

// AnvilBlockchain starts an anvil process and binds a fixture to it, with
// the default dev chain ID. Tests calling this are skipped when the anvil
// binary is not installed, so the suite stays runnable on bare CI images.
func AnvilBlockchain(t *testing.T, opts ...AnvilOption) *Blockchain {
	lgr := testlog.Logger(t, slog.LevelInfo)
	opts = append([]AnvilOption{AnvilWithChainID(simnode.DefaultChainID)}, opts...)
	anvil, err := NewAnvil(lgr, opts...)
	if err != nil {
		t.Skipf("skipping, no anvil available: %v", err)
	}
	require.NoError(t, anvil.Start())
	t.Cleanup(func() {
		require.NoError(t, anvil.Stop())
	})

	chain, err := Dial(context.Background(), lgr, anvil.RPCUrl())
	require.NoError(t, err)
	t.Cleanup(func() { chain.Client.Close() })
	return chain
}
