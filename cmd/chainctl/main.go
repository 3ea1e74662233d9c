// chainctl drives the state-control surface of a development execution node
// from the command line: snapshots, reverts, time shifts and block mining.
// It is a debugging companion to the programmatic harness.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/setprotocol/set-v2-harness/chainstate"
	"github.com/setprotocol/set-v2-harness/client"
)

const EnvVarPrefix = "SET_CHAINCTL"

var (
	GitCommit = ""
	GitDate   = ""
	Version   = "v0.1.0"
)

// formatVersion folds the build metadata injected via ldflags into the
// version string.
func formatVersion() string {
	v := Version
	if GitCommit != "" {
		commit := GitCommit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		v += "-" + commit
	}
	if GitDate != "" {
		v += "-" + GitDate
	}
	return v
}

var (
	rpcURLFlag = &cli.StringFlag{
		Name:    "rpc-url",
		Usage:   "RPC endpoint of the execution node",
		Value:   "http://localhost:8545",
		EnvVars: []string{EnvVarPrefix + "_RPC_URL"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log.level",
		Usage:   "Lowest log level that will be output",
		Value:   "info",
		EnvVars: []string{EnvVarPrefix + "_LOG_LEVEL"},
	}
	handleFlag = &cli.StringFlag{
		Name:  "handle",
		Usage: "Snapshot handle to revert to",
	}
	blocksFlag = &cli.IntFlag{
		Name:  "blocks",
		Usage: "Number of blocks to mine",
		Value: 1,
	}
	secondsFlag = &cli.Uint64Flag{
		Name:  "seconds",
		Usage: "Seconds to add to the next block's timestamp",
	}
	timestampFlag = &cli.Uint64Flag{
		Name:  "timestamp",
		Usage: "Exact unix timestamp for the next block",
	}
)

func main() {
	app := cli.NewApp()
	app.Version = formatVersion()
	app.Name = "chainctl"
	app.Usage = "Dev-node chain state control"
	app.Description = "CLI to checkpoint, restore and time-shift a development execution node"
	app.Flags = []cli.Flag{rpcURLFlag, logLevelFlag}
	app.Commands = []*cli.Command{
		{
			Name:  "status",
			Usage: "Print the latest block number and timestamp",
			Action: withController(func(cliCtx *cli.Context, ctrl *chainstate.Controller) error {
				num, err := ctrl.BlockNumber(cliCtx.Context)
				if err != nil {
					return err
				}
				ts, err := ctrl.CurrentTimestamp(cliCtx.Context)
				if err != nil {
					return err
				}
				fmt.Fprintf(cliCtx.App.Writer, "block: %d\ntimestamp: %d (%s)\n",
					num, ts, time.Unix(int64(ts), 0).UTC().Format(time.RFC3339))
				return nil
			}),
		},
		{
			Name:  "snapshot",
			Usage: "Take a snapshot and print its handle",
			Action: withController(func(cliCtx *cli.Context, ctrl *chainstate.Controller) error {
				if err := ctrl.Snapshot(cliCtx.Context); err != nil {
					return err
				}
				fmt.Fprintf(cliCtx.App.Writer, "%s\n", ctrl.LastSnapshot())
				return nil
			}),
		},
		{
			Name:  "revert",
			Usage: "Revert to a snapshot handle",
			Flags: []cli.Flag{handleFlag},
			Action: withController(func(cliCtx *cli.Context, ctrl *chainstate.Controller) error {
				handle := chainstate.Handle(cliCtx.String(handleFlag.Name))
				if handle == "" {
					return fmt.Errorf("--%s is required", handleFlag.Name)
				}
				return ctrl.RevertTo(cliCtx.Context, handle)
			}),
		},
		{
			Name:  "reset",
			Usage: "Discard all chain history and return to the initial state",
			Action: withController(func(cliCtx *cli.Context, ctrl *chainstate.Controller) error {
				return ctrl.Reset(cliCtx.Context)
			}),
		},
		{
			Name:  "mine",
			Usage: "Mine blocks one at a time",
			Flags: []cli.Flag{blocksFlag},
			Action: withController(func(cliCtx *cli.Context, ctrl *chainstate.Controller) error {
				n := cliCtx.Int(blocksFlag.Name)
				if n < 1 {
					return fmt.Errorf("--%s must be at least 1", blocksFlag.Name)
				}
				return ctrl.WaitBlocks(cliCtx.Context, n)
			}),
		},
		{
			Name:  "time",
			Usage: "Manipulate the timestamp of the next mined block",
			Subcommands: []*cli.Command{
				{
					Name:  "advance",
					Usage: "Add an offset to the next block's timestamp",
					Flags: []cli.Flag{secondsFlag},
					Action: withController(func(cliCtx *cli.Context, ctrl *chainstate.Controller) error {
						d := time.Duration(cliCtx.Uint64(secondsFlag.Name)) * time.Second
						return ctrl.IncreaseTime(cliCtx.Context, d)
					}),
				},
				{
					Name:  "set-next",
					Usage: "Fix the exact timestamp of the next block",
					Flags: []cli.Flag{timestampFlag},
					Action: withController(func(cliCtx *cli.Context, ctrl *chainstate.Controller) error {
						return ctrl.SetNextBlockTimestamp(cliCtx.Context, cliCtx.Uint64(timestampFlag.Name))
					}),
				},
			},
		},
	}
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// withController dials the node once per command and hands the controller to
// the action.
func withController(action func(cliCtx *cli.Context, ctrl *chainstate.Controller) error) cli.ActionFunc {
	return func(cliCtx *cli.Context) error {
		lgr, err := newLogger(cliCtx.String(logLevelFlag.Name))
		if err != nil {
			return err
		}
		cl, err := client.NewRPC(cliCtx.Context, lgr, cliCtx.String(rpcURLFlag.Name),
			client.WithCallTimeout(30*time.Second))
		if err != nil {
			return err
		}
		defer cl.Close()
		return action(cliCtx, chainstate.NewController(lgr, cl))
	}
}

func newLogger(level string) (log.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)), nil
}
