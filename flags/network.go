package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags select the network rules and the genesis the ledger starts from.

func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network rules to run (main|test|fake)",
			Value: "fake",
		},
		cli.IntFlag{
			Name:  "fakenet",
			Usage: "Run a local fake network with N funded fake accounts",
		},
		cli.StringFlag{
			Name:  "fakenet.balance",
			Usage: "Genesis balance of every fake account (decimal or 0x hex)",
		},
		cli.StringFlag{
			Name:  "genesis",
			Usage: "YAML genesis file (required outside fake networks)",
		},
	}
}

// APIFlags configure the HTTP API and its event history.
func APIFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "http.disable",
			Usage: "Do not serve the HTTP API",
		},
		cli.StringFlag{
			Name:  "http.addr",
			Usage: "HTTP API listening interface",
			Value: "127.0.0.1",
		},
		cli.IntFlag{
			Name:  "http.port",
			Usage: "HTTP API listening port",
			Value: 18645,
		},
		cli.Float64Flag{
			Name:  "http.ratelimit",
			Usage: "Requests per second allowed per caller (0 disables throttling)",
		},
		cli.IntFlag{
			Name:  "http.burst",
			Usage: "Request burst allowed per caller",
		},
		cli.IntFlag{
			Name:  "events.journal",
			Usage: "Number of ledger notifications kept in memory",
		},
		cli.StringFlag{
			Name:  "db.source",
			Usage: "PostgreSQL connection string for the event index (empty disables it)",
		},
	}
}
