package genesis

import (
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/rony4d/go-relay-accord/accord"
	"github.com/rony4d/go-relay-accord/inter"
)

// fileGenesis is the YAML layout of a genesis file:
//
//	network: test
//	rules:
//	  disputes:
//	    challengeWindow: 600
//	owner: "0x..."
//	challenger: "0x..."
//	time: 1700000000
//	balances:
//	  "0x...": "1000000000000000000"
//
// rules is optional and overrides the named network's rules field by field.
type fileGenesis struct {
	Network    string            `yaml:"network"`
	Rules      yaml.Node         `yaml:"rules"`
	Owner      string            `yaml:"owner"`
	Challenger string            `yaml:"challenger"`
	Treasury   string            `yaml:"treasury"`
	Time       int64             `yaml:"time"`
	Balances   map[string]string `yaml:"balances"`
}

// ReadFile loads and validates a YAML genesis file.
func ReadFile(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}
	g, err := Parse(data)
	if err != nil {
		return Genesis{}, fmt.Errorf("genesis %s: %w", path, err)
	}
	return g, nil
}

// Parse decodes and validates a YAML genesis document. An empty treasury
// defaults to accord.DefaultTreasury.
func Parse(data []byte) (Genesis, error) {
	var f fileGenesis
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Genesis{}, err
	}
	if f.Network == "" {
		f.Network = "main"
	}

	var (
		g   Genesis
		err error
	)
	if g.Rules, err = accord.RulesByName(f.Network); err != nil {
		return Genesis{}, err
	}
	if !f.Rules.IsZero() {
		if err := f.Rules.Decode(&g.Rules); err != nil {
			return Genesis{}, fmt.Errorf("rules: %w", err)
		}
	}

	if g.Owner, err = inter.ParseAccount(f.Owner); err != nil {
		return Genesis{}, fmt.Errorf("owner: %w", err)
	}
	if f.Challenger != "" {
		if g.Challenger, err = inter.ParseAccount(f.Challenger); err != nil {
			return Genesis{}, fmt.Errorf("challenger: %w", err)
		}
	}
	g.Treasury = accord.DefaultTreasury
	if f.Treasury != "" {
		if g.Treasury, err = inter.ParseAccount(f.Treasury); err != nil {
			return Genesis{}, fmt.Errorf("treasury: %w", err)
		}
	}

	if f.Time <= 0 {
		return Genesis{}, errors.New("genesis time is not set")
	}
	g.Time = inter.FromUnix(f.Time)

	g.Balances = make(map[common.Address]*big.Int, len(f.Balances))
	for raw, value := range f.Balances {
		acc, err := inter.ParseAccount(raw)
		if err != nil {
			return Genesis{}, fmt.Errorf("balance account %q: %w", raw, err)
		}
		amount, ok := new(big.Int).SetString(value, 0)
		if !ok {
			return Genesis{}, fmt.Errorf("balance of %s: invalid amount %q", acc.Hex(), value)
		}
		g.Balances[acc] = amount
	}

	if err := g.Validate(); err != nil {
		return Genesis{}, err
	}
	return g, nil
}
