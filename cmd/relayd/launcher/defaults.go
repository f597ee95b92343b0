package launcher

import (
	"time"

	"github.com/rony4d/go-relay-accord/eventlog"
	"github.com/rony4d/go-relay-accord/sweeper"
)

// Defaults bundles the baseline configuration values the launcher uses
// before presets, config files, environment and flags override them.

type Defaults struct {
	Node    NodeDefaults
	Network NetworkDefaults
	Storage StorageDefaults
	HTTP    HTTPDefaults
	Sweeper SweeperDefaults
	Logging LoggingDefaults
}

// NodeDefaults captures top-level node settings (datadir, identity).

type NodeDefaults struct {
	DataDir string //	Filesystem root where the node stores everything (chaindata holds both the ledger tables and the host state). Changing it lets you run multiple nodes or keep test data isolated.
	Name    string //	Human-readable node identity attached to every log entry; helps operators distinguish instances shipping to one log sink.
}

// NetworkDefaults holds the network rules and fake network sizing.
type NetworkDefaults struct {
	Name        string //	Network whose rules the ledger runs (main, test or fake). Rules fix the relayer share, the challenge window and penalty sizing for the life of the database, so a datadir must never switch networks.
	FakeNet     bool   //	When true the node builds a deterministic genesis from fake accounts instead of reading a genesis file. Only meant for development and CI.
	FakeNetSize int    //	Number of funded fake accounts. Account 1 owns the ledger and account 2 holds the challenger role; 6 covers owner, challenger, relayer, subscriber, reporter and a spare keeper.
	FakeBalance string //	Genesis balance of every fake account, as a decimal or 0x-prefixed integer. Large enough that stakes and subscriptions never run a fake account dry.
}

// StorageDefaults configures database/cache behaviour.
type StorageDefaults struct {
	CacheSizeMB int //	Amount of memory (in megabytes) reserved for the LevelDB block cache. Larger values reduce disk I/O but increase RAM footprint.
	Handles     int //	Number of file handles LevelDB may keep open; higher values allow more concurrent table reads but risk running out of OS resources.
}

// HTTPDefaults captures the HTTP API options.
type HTTPDefaults struct {
	Enabled        bool    //	Toggle for the HTTP API; when false the node only runs its background sweeps.
	Addr           string  //	IP/interface the API binds to (e.g., 0.0.0.0 for all interfaces or 127.0.0.1 for local-only). The API trusts the X-Caller header, so never expose it beyond a trusted gateway.
	Port           int     //	TCP port clients connect to; default 18645 to stay clear of common JSON-RPC ports.
	RateLimitRPS   float64 //	Sustained requests per second allowed per caller account (or remote address when no caller is set); 0 disables throttling.
	RateLimitBurst int     //	Requests a caller may issue at once before the per-second budget applies.
	JournalSize    int     //	Number of ledger notifications kept in memory and served by /v1/events.
	DBSource       string  //	PostgreSQL connection string of the optional event index; when set, notifications are also written to the ledger_events table.
}

// SweeperDefaults configures the background settlement and expiry sweeps.
type SweeperDefaults struct {
	Enabled  bool          //	Whether the node settles expired subscriptions and expires unchallenged reports on its own. Without it somebody has to call the sweep endpoints.
	Interval time.Duration //	Time between two sweeps; settlement and penalty lag is bounded by one interval.
	Account  string        //	Account the sweeps are issued as; empty uses the genesis owner. Sweeps move no caller funds, so any account works.
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    //	Log level numeric (0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace).
	Format    string //	Log output format (text vs json).
	Color     bool   //	Whether to use ANSI color codes in logs (helpful on terminals, best disabled when piping to files).
	SentryDSN string //	Sentry project DSN; when set, error, fatal and panic entries are reported to Sentry as well.
}

// DefaultConfig returns a fully populated Defaults instance.

func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.relayd",
			Name:    "relayd",
		},
		Network: NetworkDefaults{
			Name:        "fake",
			FakeNet:     true,
			FakeNetSize: 6,
			FakeBalance: "1000000000000000000000", // 1000 units of 18 decimals
		},
		Storage: StorageDefaults{
			CacheSizeMB: 256,
			Handles:     256,
		},
		HTTP: HTTPDefaults{
			Enabled:        true,
			Addr:           "127.0.0.1",
			Port:           18645,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			JournalSize:    eventlog.DefaultMemoryCapacity,
		},
		Sweeper: SweeperDefaults{
			Enabled:  true,
			Interval: sweeper.DefaultInterval,
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     true,
		},
	}
}
