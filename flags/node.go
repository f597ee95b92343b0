package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NodeFlags holds knobs specific to the local node instance (identity, storage, background sweeps).

func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "identity",
			Usage: "Custom node name shown in logs",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "Megabytes of memory allocated to the database cache",
			Value: 256,
		},
		cli.IntFlag{
			Name:  "handles",
			Usage: "Number of open file handles for the database",
			Value: 256,
		},
		cli.BoolFlag{
			Name:  "nosweep",
			Usage: "Disable the background settlement and expiry sweeps",
		},
		cli.DurationFlag{
			Name:  "sweep.interval",
			Usage: "Time between two background sweeps",
		},
		cli.StringFlag{
			Name:  "sweep.account",
			Usage: "Account the sweeps are issued as (defaults to the genesis owner)",
		},
	}
}
