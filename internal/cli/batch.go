package cli

import (
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/govlock/internal/adapters/abi"
	"github.com/trebuchet-org/govlock/internal/app"
	"github.com/trebuchet-org/govlock/internal/config"
	"github.com/trebuchet-org/govlock/internal/domain/models"
	"gopkg.in/yaml.v3"
)

// BatchFile is the YAML form of a proposal:
//
//	description: "Proposal #1: Give grant to signer 2"
//	calls:
//	  - target: treasury
//	    signature: transfer(address,uint256)
//	    args: [bob, 1_000_000e18]
type BatchFile struct {
	Description string     `yaml:"description"`
	Calls       []CallSpec `yaml:"calls"`
}

// CallSpec is one call of a batch file. Either Signature with Args, or raw
// Data may be given.
type CallSpec struct {
	Target    string   `yaml:"target"`
	Value     string   `yaml:"value"`
	Signature string   `yaml:"signature"`
	Args      []string `yaml:"args"`
	Data      string   `yaml:"data"`
}

var amountPattern = regexp.MustCompile(`^[0-9][0-9_]*([eE][0-9]+)?$`)

// batchFlags describes a batch either through --file or a single inline call
type batchFlags struct {
	file        string
	description string
	target      string
	value       string
	signature   string
	args        []string
	data        string
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML batch file")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "Proposal description (overrides the file)")
	cmd.Flags().StringVar(&f.target, "target", "", "Target of a single call (name or address)")
	cmd.Flags().StringVar(&f.value, "value", "", "Value sent with the single call")
	cmd.Flags().StringVar(&f.signature, "sig", "", "Function signature of the single call, e.g. transfer(address,uint256)")
	cmd.Flags().StringArrayVar(&f.args, "arg", nil, "Argument of the single call (repeatable)")
	cmd.Flags().StringVar(&f.data, "data", "", "Raw calldata of the single call")
}

// load builds the batch and description from the flags
func (f *batchFlags) load(a *app.App) (models.Batch, string, error) {
	var spec BatchFile
	switch {
	case f.file != "" && f.target != "":
		return models.Batch{}, "", fmt.Errorf("use either --file or --target, not both")
	case f.file != "":
		raw, err := os.ReadFile(f.file)
		if err != nil {
			return models.Batch{}, "", fmt.Errorf("failed to read batch file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &spec); err != nil {
			return models.Batch{}, "", fmt.Errorf("failed to parse batch file %s: %w", f.file, err)
		}
	case f.target != "":
		spec.Calls = []CallSpec{{Target: f.target, Value: f.value, Signature: f.signature, Args: f.args, Data: f.data}}
	default:
		return models.Batch{}, "", fmt.Errorf("a batch is required: pass --file or --target")
	}
	if f.description != "" {
		spec.Description = f.description
	}

	batch, err := spec.Build(func(s string) (common.Address, error) { return resolveAccount(a, s) })
	if err != nil {
		return models.Batch{}, "", err
	}
	return batch, spec.Description, nil
}

// Build encodes every call. Address arguments may be account names and
// integer arguments may use the amount notation of govlock.toml.
func (b *BatchFile) Build(resolve func(string) (common.Address, error)) (models.Batch, error) {
	calls := make([]models.Call, 0, len(b.Calls))
	for i, c := range b.Calls {
		call, err := c.build(resolve)
		if err != nil {
			return models.Batch{}, fmt.Errorf("call %d: %w", i, err)
		}
		calls = append(calls, call)
	}
	batch := models.NewBatch(calls...)
	if err := batch.Validate(); err != nil {
		return models.Batch{}, err
	}
	return batch, nil
}

func (c CallSpec) build(resolve func(string) (common.Address, error)) (models.Call, error) {
	target, err := resolve(c.Target)
	if err != nil {
		return models.Call{}, fmt.Errorf("target: %w", err)
	}
	call := models.Call{Target: target, Value: new(big.Int)}

	if c.Value != "" {
		v, err := config.ParseAmount(c.Value)
		if err != nil {
			return models.Call{}, fmt.Errorf("value: %w", err)
		}
		call.Value = v.ToBig()
	}

	switch {
	case c.Signature != "" && c.Data != "":
		return models.Call{}, fmt.Errorf("give either a signature or raw data, not both")
	case c.Signature != "":
		args := make([]string, len(c.Args))
		for i, arg := range c.Args {
			if args[i], err = normalizeArg(arg, resolve); err != nil {
				return models.Call{}, fmt.Errorf("argument %d: %w", i, err)
			}
		}
		if call.Data, err = abi.EncodeCall(c.Signature, args); err != nil {
			return models.Call{}, err
		}
	case c.Data != "":
		if call.Data, err = hexutil.Decode(c.Data); err != nil {
			return models.Call{}, fmt.Errorf("data: %w", err)
		}
	}
	return call, nil
}

// normalizeArg turns account names into addresses, role names into role ids
// and amounts such as 1_000e18 into plain integers. Anything else is passed
// through.
func normalizeArg(arg string, resolve func(string) (common.Address, error)) (string, error) {
	trimmed := strings.TrimSpace(arg)
	if amountPattern.MatchString(trimmed) {
		n, err := config.ParseAmount(trimmed)
		if err != nil {
			return "", err
		}
		return n.Dec(), nil
	}
	if strings.HasPrefix(trimmed, "0x") || trimmed == "" {
		return trimmed, nil
	}
	if addr, err := resolve(trimmed); err == nil {
		return addr.Hex(), nil
	}
	if role, err := models.ParseRole(trimmed); err == nil {
		return role.ID().Hex(), nil
	}
	return trimmed, nil
}
