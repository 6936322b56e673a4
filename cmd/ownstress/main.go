// Package main implements the ownstress CLI tool.
//
// ownstress hammers the ownership runtime's counter protocols from many
// goroutines and verifies their invariants from the outside:
//
//	ownstress run                         # built-in default profile
//	ownstress run --config profile.yml    # profile from YAML
//	ownstress run --workers 32 --iters 100000
//
// Scenarios:
//
//	churn    — workers clone an arc handle, read through it, drop it
//	upgrade  — weak upgraders race the final strong drop
//	counter  — clone per worker, locked increment, drop; count must be N
//	refcell  — single-goroutine guard interleavings over a tracked cell
//
// With --metrics the tool serves the runtime's Prometheus collectors so
// the counter/gauge traffic can be watched live.
package main

import (
	"os"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/kolkov/ownrt"
	"github.com/kolkov/ownrt/internal/diag"
)

func main() {
	app := cli.NewApp()
	app.Name = "ownstress"
	app.Usage = "stress-test the ownership runtime's aliasing and counting invariants"
	app.Version = ownrt.Version
	app.Commands = []cli.Command{
		newRunCommand(),
	}

	if err := app.Run(os.Args); err != nil {
		diag.L().Fatal("ownstress failed", zap.Error(err))
	}
}

// newRunCommand creates the run command.
func newRunCommand() cli.Command {
	return cli.Command{
		Name:   "run",
		Usage:  "run stress scenarios against the runtime",
		Action: runStress,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "config, c", Usage: "YAML profile path"},
			cli.IntFlag{Name: "workers, w", Usage: "override worker count"},
			cli.IntFlag{Name: "iters, i", Usage: "override iterations per worker"},
			cli.StringFlag{Name: "metrics", Usage: "serve Prometheus metrics on this address"},
		},
	}
}
