package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"github.com/trebuchet-org/govlock/internal/domain/config"
)

// ConfigFileName is the project configuration file looked up in the project root
const ConfigFileName = "govlock.toml"

// GovlockFile is the raw govlock.toml structure. Addresses and amounts stay
// strings until Apply so ${VAR} references can be expanded first.
type GovlockFile struct {
	Governor GovernorSection   `toml:"governor,omitempty"`
	Timelock TimelockSection   `toml:"timelock,omitempty"`
	Clock    ClockSection      `toml:"clock,omitempty"`
	Storage  StorageSection    `toml:"storage,omitempty"`
	Treasury TreasurySection   `toml:"treasury,omitempty"`
	Genesis  []GenesisSection  `toml:"genesis,omitempty"`
	Accounts map[string]string `toml:"accounts,omitempty"`
}

type GovernorSection struct {
	Name              string  `toml:"name,omitempty"`
	Address           string  `toml:"address,omitempty"`
	VotingDelay       *uint64 `toml:"voting_delay,omitempty"`
	VotingPeriod      *uint64 `toml:"voting_period,omitempty"`
	ProposalThreshold string  `toml:"proposal_threshold,omitempty"`
	QuorumBps         *uint32 `toml:"quorum_bps,omitempty"`
	QuorumCounting    string  `toml:"quorum_counting,omitempty"`
	GracePeriod       *uint64 `toml:"grace_period,omitempty"`
	Guardian          string  `toml:"guardian,omitempty"`
}

type TimelockSection struct {
	Address    string   `toml:"address,omitempty"`
	MinDelay   *uint64  `toml:"min_delay,omitempty"`
	Admin      string   `toml:"admin,omitempty"`
	Proposers  []string `toml:"proposers,omitempty"`
	Executors  []string `toml:"executors,omitempty"`
	Cancellers []string `toml:"cancellers,omitempty"`
}

type ClockSection struct {
	Mode          string `toml:"mode,omitempty"`
	Genesis       uint64 `toml:"genesis,omitempty"`
	BlockInterval string `toml:"block_interval,omitempty"`
}

type StorageSection struct {
	Backend string `toml:"backend,omitempty"`
	Path    string `toml:"path,omitempty"`
}

type TreasurySection struct {
	Symbol  string `toml:"symbol,omitempty"`
	Address string `toml:"address,omitempty"`
	Supply  string `toml:"supply,omitempty"`
}

type GenesisSection struct {
	Account string `toml:"account,omitempty"`
	Votes   string `toml:"votes,omitempty"`
	// Delegate is an address, an account name, or "self"
	Delegate string `toml:"delegate,omitempty"`
}

// LoadGovlockFile loads .env files and parses govlock.toml from projectRoot.
// It returns nil without error when the project has no config file.
func LoadGovlockFile(projectRoot string) (*GovlockFile, error) {
	loadEnvFiles(projectRoot)

	path := filepath.Join(projectRoot, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	var file GovlockFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}
	return &file, nil
}

// loadEnvFiles loads .env and .env.local without overriding the environment
func loadEnvFiles(projectRoot string) {
	for _, name := range []string{".env", ".env.local"} {
		envFile := filepath.Join(projectRoot, name)
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				// Log warning but don't fail
				fmt.Fprintf(os.Stderr, "Warning: Failed to load %s: %v\n", envFile, err)
			}
		}
	}
}

// Apply overlays the file onto cfg
func (f *GovlockFile) Apply(cfg *config.RuntimeConfig) error {
	if cfg.Accounts == nil {
		cfg.Accounts = make(map[string]common.Address)
	}
	for name, raw := range f.Accounts {
		addr, err := parseAddress(raw)
		if err != nil {
			return fmt.Errorf("accounts.%s: %w", name, err)
		}
		cfg.Accounts[strings.ToLower(name)] = addr
	}

	if err := f.Governor.apply(cfg, &cfg.Governor); err != nil {
		return fmt.Errorf("governor: %w", err)
	}
	if err := f.Timelock.apply(cfg, &cfg.Timelock); err != nil {
		return fmt.Errorf("timelock: %w", err)
	}

	if f.Clock.Mode != "" {
		cfg.Clock.Mode = config.ClockMode(strings.ToLower(f.Clock.Mode))
	}
	if f.Clock.Genesis != 0 {
		cfg.Clock.Genesis = f.Clock.Genesis
	}
	if f.Clock.BlockInterval != "" {
		interval, err := time.ParseDuration(f.Clock.BlockInterval)
		if err != nil {
			return fmt.Errorf("clock.block_interval: %w", err)
		}
		cfg.Clock.BlockInterval = interval
	}

	if f.Storage.Backend != "" {
		cfg.Storage.Backend = config.StorageBackend(strings.ToLower(f.Storage.Backend))
	}
	if f.Storage.Path != "" {
		cfg.Storage.Path = os.ExpandEnv(f.Storage.Path)
	}

	if f.Treasury.Symbol != "" {
		cfg.Treasury.Symbol = f.Treasury.Symbol
	}
	if f.Treasury.Address != "" {
		addr, err := resolve(cfg, f.Treasury.Address)
		if err != nil {
			return fmt.Errorf("treasury.address: %w", err)
		}
		cfg.Treasury.Address = addr
	}
	if f.Treasury.Supply != "" {
		supply, err := ParseAmount(f.Treasury.Supply)
		if err != nil {
			return fmt.Errorf("treasury.supply: %w", err)
		}
		cfg.Treasury.Supply = supply
	}

	if len(f.Genesis) > 0 {
		cfg.Genesis = cfg.Genesis[:0]
	}
	for i, g := range f.Genesis {
		account, err := resolve(cfg, g.Account)
		if err != nil {
			return fmt.Errorf("genesis[%d].account: %w", i, err)
		}
		alloc := config.GenesisAllocation{Account: account}
		if g.Votes != "" {
			if alloc.Votes, err = ParseAmount(g.Votes); err != nil {
				return fmt.Errorf("genesis[%d].votes: %w", i, err)
			}
		}
		switch strings.ToLower(strings.TrimSpace(g.Delegate)) {
		case "":
		case "self":
			alloc.Delegate = account
		default:
			if alloc.Delegate, err = resolve(cfg, g.Delegate); err != nil {
				return fmt.Errorf("genesis[%d].delegate: %w", i, err)
			}
		}
		cfg.Genesis = append(cfg.Genesis, alloc)
	}
	return nil
}

func (s GovernorSection) apply(cfg *config.RuntimeConfig, g *config.GovernorSettings) error {
	var err error
	if s.Name != "" {
		g.Name = s.Name
	}
	if s.Address != "" {
		if g.Address, err = parseAddress(s.Address); err != nil {
			return fmt.Errorf("address: %w", err)
		}
	}
	if s.VotingDelay != nil {
		g.VotingDelay = *s.VotingDelay
	}
	if s.VotingPeriod != nil {
		g.VotingPeriod = *s.VotingPeriod
	}
	if s.ProposalThreshold != "" {
		if g.ProposalThreshold, err = ParseAmount(s.ProposalThreshold); err != nil {
			return fmt.Errorf("proposal_threshold: %w", err)
		}
	}
	if s.QuorumBps != nil {
		g.QuorumBps = *s.QuorumBps
	}
	if s.QuorumCounting != "" {
		g.QuorumCounting = config.QuorumCounting(strings.ToLower(s.QuorumCounting))
	}
	if s.GracePeriod != nil {
		g.GracePeriod = *s.GracePeriod
	}
	if s.Guardian != "" {
		if g.Guardian, err = resolve(cfg, s.Guardian); err != nil {
			return fmt.Errorf("guardian: %w", err)
		}
	}
	return nil
}

func (s TimelockSection) apply(cfg *config.RuntimeConfig, t *config.TimelockSettings) error {
	var err error
	if s.Address != "" {
		if t.Address, err = parseAddress(s.Address); err != nil {
			return fmt.Errorf("address: %w", err)
		}
	}
	if s.MinDelay != nil {
		t.MinDelay = *s.MinDelay
	}
	if s.Admin != "" {
		if t.Admin, err = resolve(cfg, s.Admin); err != nil {
			return fmt.Errorf("admin: %w", err)
		}
	}
	lists := []struct {
		name string
		raw  []string
		dst  *[]common.Address
	}{
		{"proposers", s.Proposers, &t.Proposers},
		{"executors", s.Executors, &t.Executors},
		{"cancellers", s.Cancellers, &t.Cancellers},
	}
	for _, l := range lists {
		if l.raw == nil {
			continue
		}
		addrs := make([]common.Address, 0, len(l.raw))
		for _, raw := range l.raw {
			addr, err := resolve(cfg, raw)
			if err != nil {
				return fmt.Errorf("%s: %w", l.name, err)
			}
			addrs = append(addrs, addr)
		}
		*l.dst = addrs
	}
	return nil
}

// resolve expands env references and accepts "anyone" for the zero address
func resolve(cfg *config.RuntimeConfig, raw string) (common.Address, error) {
	value := strings.TrimSpace(os.ExpandEnv(raw))
	if strings.EqualFold(value, "anyone") {
		return common.Address{}, nil
	}
	return cfg.ResolveAccount(value)
}

func parseAddress(raw string) (common.Address, error) {
	value := strings.TrimSpace(os.ExpandEnv(raw))
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(value), nil
}

// ParseAmount parses a decimal or 0x-prefixed integer. Underscores are
// ignored and an "e<N>" suffix multiplies by 10^N, so "1_000e18" works.
func ParseAmount(raw string) (*uint256.Int, error) {
	value := strings.ReplaceAll(strings.TrimSpace(os.ExpandEnv(raw)), "_", "")
	if value == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		b, ok := new(big.Int).SetString(value[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q", raw)
		}
		n, overflow := uint256.FromBig(b)
		if overflow {
			return nil, fmt.Errorf("amount %q overflows uint256", raw)
		}
		return n, nil
	}

	mantissa, exp := value, ""
	if i := strings.IndexAny(value, "eE"); i >= 0 {
		mantissa, exp = value[:i], value[i+1:]
	}
	n, err := uint256.FromDecimal(mantissa)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if exp != "" {
		e, err := uint256.FromDecimal(exp)
		if err != nil || !e.IsUint64() || e.Uint64() > 77 {
			return nil, fmt.Errorf("invalid exponent in %q", raw)
		}
		scale := new(uint256.Int).Exp(uint256.NewInt(10), e)
		if _, overflow := n.MulOverflow(n, scale); overflow {
			return nil, fmt.Errorf("amount %q overflows uint256", raw)
		}
	}
	return n, nil
}

// Starter returns the govlock.toml written by init: the default governor and
// timelock with two named signers, the first holding self-delegated votes
func Starter() *GovlockFile {
	u64 := func(v uint64) *uint64 { return &v }
	quorum := uint32(400)
	return &GovlockFile{
		Accounts: map[string]string{
			"alice": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
			"bob":   "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		},
		Governor: GovernorSection{
			Name:              "govlock",
			VotingDelay:       u64(1),
			VotingPeriod:      u64(5),
			ProposalThreshold: "0",
			QuorumBps:         &quorum,
			QuorumCounting:    string(config.QuorumCountingForAbstain),
		},
		Timelock: TimelockSection{
			MinDelay:  u64(5),
			Proposers: []string{"governor"},
			Executors: []string{"anyone"},
		},
		Clock:    ClockSection{Mode: string(config.ClockModeBlockNumber), Genesis: 1, BlockInterval: "14s"},
		Storage:  StorageSection{Backend: string(config.StorageBackendFile)},
		Treasury: TreasurySection{Symbol: "SRC", Supply: "100_000_000e18"},
		Genesis: []GenesisSection{
			{Account: "alice", Votes: "1_000_000e18", Delegate: "self"},
		},
	}
}

// Write encodes the file to path, refusing to replace an existing file
// unless overwrite is set
func (f *GovlockFile) Write(path string, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	out, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintf(out, "# govlock project configuration\n# Amounts accept underscores and an e<N> suffix; addresses accept ${VAR}.\n\n")
	if err := toml.NewEncoder(out).Encode(f); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return nil
}
