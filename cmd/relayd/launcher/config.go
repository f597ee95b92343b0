// This file maps defaults, presets, the YAML config file, the environment and
// CLI context onto one config struct.

package launcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/integration"
	"github.com/rony4d/go-relay-accord/inter"
)

// Environment variables read after the config file and before the flags.
const (
	envDBSource  = "RELAYD_DB_SOURCE"
	envHTTPPort  = "RELAYD_HTTP_PORT"
	envSentryDSN = "RELAYD_SENTRY_DSN"
)

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Preset  string        `yaml:"-"`
	Node    NodeConfig    `yaml:"node"`
	Network NetworkConfig `yaml:"network"`
	Storage StoreConfig   `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Indexer IndexerConfig `yaml:"indexer"`
	Sweeper SweeperConfig `yaml:"sweeper"`
	Logging LoggingConfig `yaml:"logging"`
}

type NodeConfig struct {
	DataDir string `yaml:"datadir"`
	Name    string `yaml:"name"`
}

type NetworkConfig struct {
	Name        string `yaml:"name"`
	FakeNet     bool   `yaml:"fakenet"`
	FakeNetSize int    `yaml:"fakenetSize"`
	FakeBalance string `yaml:"fakeBalance"`
	Genesis     string `yaml:"genesis"`
}

type StoreConfig struct {
	Path    string `yaml:"path"`
	CacheMB int    `yaml:"cacheMB"`
	Handles int    `yaml:"handles"`
}

type HTTPConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Addr           string  `yaml:"addr"`
	Port           int     `yaml:"port"`
	RateLimitRPS   float64 `yaml:"rateLimit"`
	RateLimitBurst int     `yaml:"burst"`
	JournalSize    int     `yaml:"journal"`
}

type IndexerConfig struct {
	DBSource string `yaml:"dbSource"`
}

type SweeperConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Account  string        `yaml:"account"`
}

type LoggingConfig struct {
	Verbosity int    `yaml:"verbosity"`
	Format    string `yaml:"format"`
	Color     bool   `yaml:"color"`
	SentryDSN string `yaml:"sentryDSN"`
}

// -----------------------------------------------------------------------------
// Default config + builders
// -----------------------------------------------------------------------------

//	defaultConfig builds the config object from DefaultConfig in defaults.go
//	so this file stays in sync with the documented defaults

func defaultConfig() Config {
	def := DefaultConfig()
	return Config{
		Node: NodeConfig{
			DataDir: resolvePath(def.Node.DataDir),
			Name:    def.Node.Name,
		},
		Network: NetworkConfig{
			Name:        def.Network.Name,
			FakeNet:     def.Network.FakeNet,
			FakeNetSize: def.Network.FakeNetSize,
			FakeBalance: def.Network.FakeBalance,
		},
		Storage: StoreConfig{
			Path:    "chaindata",
			CacheMB: def.Storage.CacheSizeMB,
			Handles: def.Storage.Handles,
		},
		HTTP: HTTPConfig{
			Enabled:        def.HTTP.Enabled,
			Addr:           def.HTTP.Addr,
			Port:           def.HTTP.Port,
			RateLimitRPS:   def.HTTP.RateLimitRPS,
			RateLimitBurst: def.HTTP.RateLimitBurst,
			JournalSize:    def.HTTP.JournalSize,
		},
		Indexer: IndexerConfig{DBSource: def.HTTP.DBSource},
		Sweeper: SweeperConfig{
			Enabled:  def.Sweeper.Enabled,
			Interval: def.Sweeper.Interval,
			Account:  def.Sweeper.Account,
		},
		Logging: LoggingConfig{
			Verbosity: def.Logging.Verbosity,
			Format:    def.Logging.Format,
			Color:     def.Logging.Color,
			SentryDSN: def.Logging.SentryDSN,
		},
	}
}

// MakeAllConfigs merges, in increasing precedence: defaults, the --preset
// profile, the --config file, environment variables and CLI flags.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if name := ctx.String("preset"); name != "" {
		preset, err := integration.GetPresetByName(name)
		if err != nil {
			return Config{}, err
		}
		cfg.applyPreset(preset)
	}

	if file := ctx.String("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", file, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	applyCLIOverrides(ctx, &cfg)

	cfg.Node.DataDir = resolvePath(cfg.Node.DataDir)
	if cfg.Network.Genesis != "" {
		cfg.Network.Genesis = resolvePath(cfg.Network.Genesis)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the merged configuration before any resource is opened.
func (c Config) Validate() error {
	if _, err := accord.RulesByName(c.Network.Name); err != nil {
		return err
	}
	if c.Network.FakeNet {
		if c.Network.FakeNetSize < 2 {
			return fmt.Errorf("fake network needs at least 2 accounts, got %d", c.Network.FakeNetSize)
		}
		if _, err := c.FakeBalance(); err != nil {
			return err
		}
	} else if c.Network.Genesis == "" {
		return fmt.Errorf("network %q needs a genesis file", c.Network.Name)
	}
	if c.Sweeper.Account != "" {
		if _, err := inter.ParseAccount(c.Sweeper.Account); err != nil {
			return fmt.Errorf("sweeper account: %w", err)
		}
	}
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %v", c.Sweeper.Interval)
	}
	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.HTTP.RateLimitRPS < 0 {
		return errors.New("rate limit must not be negative")
	}
	if _, err := logLevel(c.Logging.Verbosity); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("unknown log format %q (valid: text, json)", c.Logging.Format)
	}
	return nil
}

// FakeBalance parses the genesis balance of a fake account.
func (c Config) FakeBalance() (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(c.Network.FakeBalance), 0)
	if !ok {
		return nil, fmt.Errorf("invalid fake balance %q", c.Network.FakeBalance)
	}
	if err := inter.CheckAmount(amount); err != nil {
		return nil, fmt.Errorf("fake balance: %w", err)
	}
	return amount, nil
}

// ChainDataDir is the directory of the node database.
func (c Config) ChainDataDir() string {
	if filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(c.Node.DataDir, c.Storage.Path)
}

// applyPreset overlays a named preset on the tunables it covers.
func (c *Config) applyPreset(preset integration.PresetConfig) {
	current := integration.PresetConfig{
		Name:           c.Preset,
		CacheMB:        c.Storage.CacheMB,
		Handles:        c.Storage.Handles,
		SweepInterval:  c.Sweeper.Interval,
		RateLimitRPS:   c.HTTP.RateLimitRPS,
		RateLimitBurst: c.HTTP.RateLimitBurst,
		JournalSize:    c.HTTP.JournalSize,
		LogFormat:      c.Logging.Format,
		LogVerbosity:   c.Logging.Verbosity,
	}
	integration.ApplyPreset(&current, preset)

	c.Preset = current.Name
	c.Storage.CacheMB = current.CacheMB
	c.Storage.Handles = current.Handles
	c.Sweeper.Interval = current.SweepInterval
	c.HTTP.RateLimitRPS = current.RateLimitRPS
	c.HTTP.RateLimitBurst = current.RateLimitBurst
	c.HTTP.JournalSize = current.JournalSize
	c.Logging.Format = current.LogFormat
	c.Logging.Verbosity = current.LogVerbosity
}

// -----------------------------------------------------------------------------
// Config-file / env / CLI wiring
// -----------------------------------------------------------------------------

// loadConfigFile decodes a YAML file over cfg. Keys absent from the file keep
// their current values; unknown keys are rejected.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(resolvePath(path))
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// empty file
			return nil
		}
		return err
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if src := strings.TrimSpace(os.Getenv(envDBSource)); src != "" {
		cfg.Indexer.DBSource = src
	}
	if dsn := strings.TrimSpace(os.Getenv(envSentryDSN)); dsn != "" {
		cfg.Logging.SentryDSN = dsn
	}
	if raw := strings.TrimSpace(os.Getenv(envHTTPPort)); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", envHTTPPort, err)
		}
		cfg.HTTP.Port = port
	}
	return nil
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet("datadir") {
		cfg.Node.DataDir = ctx.String("datadir")
	}
	if ctx.IsSet("identity") {
		cfg.Node.Name = ctx.String("identity")
	}

	if ctx.IsSet("network") {
		cfg.Network.Name = ctx.String("network")
		cfg.Network.FakeNet = cfg.Network.Name == "fake" || cfg.Network.Name == "fakenet"
	}
	if ctx.IsSet("fakenet") {
		cfg.Network.FakeNet = true
		cfg.Network.Name = "fake"
		cfg.Network.FakeNetSize = ctx.Int("fakenet")
	}
	if ctx.IsSet("fakenet.balance") {
		cfg.Network.FakeBalance = ctx.String("fakenet.balance")
	}
	if ctx.IsSet("genesis") {
		cfg.Network.Genesis = ctx.String("genesis")
		cfg.Network.FakeNet = false
	}

	if ctx.IsSet("cache") {
		cfg.Storage.CacheMB = ctx.Int("cache")
	}
	if ctx.IsSet("handles") {
		cfg.Storage.Handles = ctx.Int("handles")
	}

	if ctx.Bool("http.disable") {
		cfg.HTTP.Enabled = false
	}
	if ctx.IsSet("http.addr") {
		cfg.HTTP.Addr = ctx.String("http.addr")
	}
	if ctx.IsSet("http.port") {
		cfg.HTTP.Port = ctx.Int("http.port")
	}
	if ctx.IsSet("http.ratelimit") {
		cfg.HTTP.RateLimitRPS = ctx.Float64("http.ratelimit")
	}
	if ctx.IsSet("http.burst") {
		cfg.HTTP.RateLimitBurst = ctx.Int("http.burst")
	}
	if ctx.IsSet("events.journal") {
		cfg.HTTP.JournalSize = ctx.Int("events.journal")
	}
	if ctx.IsSet("db.source") {
		cfg.Indexer.DBSource = ctx.String("db.source")
	}

	if ctx.Bool("nosweep") {
		cfg.Sweeper.Enabled = false
	}
	if ctx.IsSet("sweep.interval") {
		cfg.Sweeper.Interval = ctx.Duration("sweep.interval")
	}
	if ctx.IsSet("sweep.account") {
		cfg.Sweeper.Account = ctx.String("sweep.account")
	}

	if ctx.IsSet("log.format") {
		cfg.Logging.Format = ctx.String("log.format")
	}
	if ctx.IsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.Int("log.verbosity")
	}
	if ctx.IsSet("log.color") {
		cfg.Logging.Color = ctx.Bool("log.color")
	}
	if ctx.IsSet("sentry.dsn") {
		cfg.Logging.SentryDSN = ctx.String("sentry.dsn")
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
