package launcher

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/rony4d/go-relay-accord/flags"
)

var app = flags.NewApp()

func init() {
	app.Action = relayd
	app.Commands = []cli.Command{
		{
			Name:   "dumpconfig",
			Usage:  "Print the merged configuration as YAML and exit",
			Action: dumpConfig,
		},
	}
}

// Launch parses args and runs the node until it is interrupted.
func Launch(args []string) error {
	return app.Run(args)
}

// relayd is the main entry point: it assembles the node and runs it until
// SIGINT or SIGTERM.
func relayd(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}

	node, err := NewNode(cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer node.Close()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return node.Run(sigCtx)
}

// dumpConfig prints the configuration relayd would run with. Flags are given
// before the command name, so they are read from the parent context.
func dumpConfig(ctx *cli.Context) error {
	parent := ctx.Parent()
	if parent == nil {
		parent = ctx
	}
	cfg, err := MakeAllConfigs(parent)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(app.Writer, string(out))
	return err
}
