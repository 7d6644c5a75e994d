package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/govlock/internal/domain/config"
)

// DataDirName is the per-project state directory
const DataDirName = ".govlock"

// Provider creates RuntimeConfig for Wire dependency injection
func Provider(v *viper.Viper) (*config.RuntimeConfig, error) {
	projectRoot := v.GetString("project_root")
	if projectRoot == "" {
		var err error
		projectRoot, err = FindProjectRoot()
		if err != nil {
			return nil, fmt.Errorf("failed to find project root: %w", err)
		}
	}

	cfg := Defaults(projectRoot)
	cfg.Debug = v.GetBool("debug")
	cfg.JSON = v.GetBool("json")
	cfg.NonInteractive = v.GetBool("non_interactive")
	cfg.Timeout = v.GetDuration("timeout")

	file, err := LoadGovlockFile(projectRoot)
	if err != nil {
		return nil, err
	}
	if file != nil {
		cfg.ConfigFile = filepath.Join(projectRoot, ConfigFileName)
		if err := file.Apply(cfg); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFileName, err)
		}
	}

	// Flags and GOVLOCK_* variables win over the file
	if backend := v.GetString("storage"); backend != "" {
		cfg.Storage.Backend = config.StorageBackend(strings.ToLower(backend))
	}
	if mode := v.GetString("clock"); mode != "" {
		cfg.Clock.Mode = config.ClockMode(strings.ToLower(mode))
	}
	if dataDir := v.GetString("data_dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = cfg.DataDir
	}
	if !filepath.IsAbs(cfg.Storage.Path) {
		cfg.Storage.Path = filepath.Join(projectRoot, cfg.Storage.Path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the configuration used when govlock.toml is absent: the
// grant scenario governor and timelock, a block number clock and file storage.
func Defaults(projectRoot string) *config.RuntimeConfig {
	return &config.RuntimeConfig{
		ProjectRoot: projectRoot,
		DataDir:     filepath.Join(projectRoot, DataDirName),
		Timeout:     5 * time.Minute,
		Governor:    config.DefaultGovernorSettings(),
		Timelock:    config.DefaultTimelockSettings(),
		Clock: config.ClockSettings{
			Mode:          config.ClockModeBlockNumber,
			BlockInterval: 14 * time.Second,
			Genesis:       1,
		},
		Storage: config.StorageSettings{Backend: config.StorageBackendFile},
		Treasury: config.TreasurySettings{
			Symbol:  "SRC",
			Address: common.HexToAddress("0x0000000000000000000000000000000000005352"),
			Supply:  new(uint256.Int).Mul(uint256.NewInt(100_000_000), ether),
		},
		Accounts: make(map[string]common.Address),
	}
}

var ether = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))

// FindProjectRoot walks up from the current directory to find govlock.toml.
// Without one, the current directory is the project root.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}

// SetupViper creates and configures a viper instance
func SetupViper(projectRoot string, cmd *cobra.Command) *viper.Viper {
	v := viper.New()

	// Set up environment variables
	v.SetEnvPrefix("GOVLOCK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	// Set defaults
	v.SetDefault("timeout", "5m")
	v.SetDefault("debug", false)
	v.SetDefault("json", false)
	v.SetDefault("non_interactive", false)
	v.SetDefault("project_root", projectRoot)

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if err := v.BindPFlag(key, f); err != nil {
			panic(err)
		}
	})

	return v
}
