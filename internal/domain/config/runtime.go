package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ClockMode describes the unit of every point the engine sees
type ClockMode string

const (
	ClockModeBlockNumber ClockMode = "blocknumber"
	ClockModeTimestamp   ClockMode = "timestamp"
)

// QuorumCounting selects which vote buckets count towards quorum
type QuorumCounting string

const (
	// QuorumCountingForAbstain counts for + abstain votes
	QuorumCountingForAbstain QuorumCounting = "for_abstain"
	// QuorumCountingAll counts for + against + abstain votes
	QuorumCountingAll QuorumCounting = "all"
)

// StorageBackend names a repository implementation
type StorageBackend string

const (
	StorageBackendMemory StorageBackend = "memory"
	StorageBackendFile   StorageBackend = "file"
	StorageBackendBolt   StorageBackend = "bolt"
)

// MaxQuorumBps is the basis point denominator
const MaxQuorumBps = 10_000

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string
	ConfigFile  string // empty when running on defaults

	// Execution settings
	Debug          bool
	JSON           bool // Output in JSON format
	NonInteractive bool // Never prompt, fail on ambiguous input instead
	Timeout        time.Duration

	// Resolved configurations
	Governor GovernorSettings
	Timelock TimelockSettings
	Clock    ClockSettings
	Storage  StorageSettings
	Treasury TreasurySettings
	Genesis  []GenesisAllocation

	// Accounts maps names usable on the command line to addresses
	Accounts map[string]common.Address
}

// ResolveAccount accepts a hex address or a configured account name
func (c *RuntimeConfig) ResolveAccount(s string) (common.Address, error) {
	name := strings.TrimSpace(s)
	if addr, ok := c.Accounts[strings.ToLower(name)]; ok {
		return addr, nil
	}
	switch strings.ToLower(name) {
	case "governor":
		return c.Governor.Address, nil
	case "timelock":
		return c.Timelock.Address, nil
	case "treasury":
		return c.Treasury.Address, nil
	case "guardian":
		if c.Governor.Guardian != (common.Address{}) {
			return c.Governor.Guardian, nil
		}
	}
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	return common.Address{}, fmt.Errorf("unknown account %q: not an address or configured name", s)
}

// AccountName returns the configured name of addr, or its hex form
func (c *RuntimeConfig) AccountName(addr common.Address) string {
	found := ""
	for name, a := range c.Accounts {
		if a == addr && (found == "" || name < found) {
			found = name
		}
	}
	if found != "" {
		return found
	}
	switch addr {
	case c.Governor.Address:
		return "governor"
	case c.Timelock.Address:
		return "timelock"
	case c.Treasury.Address:
		return "treasury"
	}
	return addr.Hex()
}

// GovernorSettings configures proposal lifecycle and vote counting
type GovernorSettings struct {
	Name              string
	Address           common.Address
	VotingDelay       uint64
	VotingPeriod      uint64
	ProposalThreshold *uint256.Int
	QuorumBps         uint32
	QuorumCounting    QuorumCounting
	// GracePeriod is how long a ready operation may wait before the proposal
	// expires. Zero disables expiry.
	GracePeriod uint64
	// Guardian may cancel any proposal that is not yet final. Zero disables
	// the override.
	Guardian common.Address
}

// TimelockSettings configures the delayed execution queue
type TimelockSettings struct {
	Address  common.Address
	MinDelay uint64
	// Admin is an optional bootstrap admin next to the timelock itself
	Admin      common.Address
	Proposers  []common.Address
	Executors  []common.Address
	Cancellers []common.Address
}

// ClockSettings configures the devnet clock
type ClockSettings struct {
	Mode          ClockMode
	BlockInterval time.Duration
	Genesis       uint64
}

// StorageSettings selects and locates the repository backend
type StorageSettings struct {
	Backend StorageBackend
	Path    string
}

// TreasurySettings describes the token held by the timelock at genesis
type TreasurySettings struct {
	Symbol  string
	Address common.Address
	Supply  *uint256.Int
}

// GenesisAllocation seeds a stakeholder with governance tokens
type GenesisAllocation struct {
	Account  common.Address
	Votes    *uint256.Int
	Delegate common.Address // zero means no delegation
}

// DefaultGovernorSettings mirrors the demo governor used by the grant scenario
func DefaultGovernorSettings() GovernorSettings {
	return GovernorSettings{
		Name:              "govlock",
		Address:           common.HexToAddress("0x00000000000000000000000000000000006f7665"),
		VotingDelay:       1,
		VotingPeriod:      5,
		ProposalThreshold: uint256.NewInt(0),
		QuorumBps:         400,
		QuorumCounting:    QuorumCountingForAbstain,
	}
}

// DefaultTimelockSettings returns a self-administered timelock with an open
// executor role and the default governor as its only proposer
func DefaultTimelockSettings() TimelockSettings {
	return TimelockSettings{
		Address:   common.HexToAddress("0x000000000000000000000000000000000074696d"),
		MinDelay:  5,
		Proposers: []common.Address{DefaultGovernorSettings().Address},
		Executors: []common.Address{{}},
	}
}

// Validate checks settings the engine cannot run without
func (c *RuntimeConfig) Validate() error {
	if err := c.Governor.Validate(); err != nil {
		return err
	}
	if c.Timelock.Address == (common.Address{}) {
		return fmt.Errorf("timelock address is required")
	}
	if c.Timelock.Address == c.Governor.Address {
		return fmt.Errorf("timelock and governor must use different addresses")
	}
	switch c.Clock.Mode {
	case ClockModeBlockNumber, ClockModeTimestamp:
	default:
		return fmt.Errorf("unknown clock mode %q", c.Clock.Mode)
	}
	switch c.Storage.Backend {
	case StorageBackendMemory, StorageBackendFile, StorageBackendBolt:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Validate checks the governor settings
func (g GovernorSettings) Validate() error {
	if g.Address == (common.Address{}) {
		return fmt.Errorf("governor address is required")
	}
	// The snapshot point must be final before the first vote reads it.
	if g.VotingDelay == 0 {
		return fmt.Errorf("voting delay must be at least 1")
	}
	if g.VotingPeriod == 0 {
		return fmt.Errorf("voting period must be at least 1")
	}
	if g.QuorumBps > MaxQuorumBps {
		return fmt.Errorf("quorum %d bps exceeds %d", g.QuorumBps, MaxQuorumBps)
	}
	switch g.QuorumCounting {
	case QuorumCountingForAbstain, QuorumCountingAll:
	default:
		return fmt.Errorf("unknown quorum counting %q", g.QuorumCounting)
	}
	if g.ProposalThreshold == nil {
		return fmt.Errorf("proposal threshold is required")
	}
	return nil
}
