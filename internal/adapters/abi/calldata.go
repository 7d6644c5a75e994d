package abi

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/govlock/internal/domain/models"
)

// EncodeCall builds calldata from a signature such as
// "transfer(address,uint256)" and one string argument per parameter.
// Tuples and arrays are not supported.
func EncodeCall(signature string, args []string) ([]byte, error) {
	name, typeNames, err := splitSignature(signature)
	if err != nil {
		return nil, err
	}
	if len(typeNames) != len(args) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", signature, len(typeNames), len(args))
	}

	arguments := make(abi.Arguments, len(typeNames))
	values := make([]any, len(typeNames))
	canonical := make([]string, len(typeNames))
	for i, typeName := range typeNames {
		t, err := abi.NewType(typeName, "", nil)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		v, err := parseArg(t, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i, typeName, err)
		}
		arguments[i] = abi.Argument{Type: t}
		values[i] = v
		canonical[i] = t.String()
	}

	packed, err := arguments.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", signature, err)
	}
	selector := crypto.Keccak256([]byte(name + "(" + strings.Join(canonical, ",") + ")"))[:4]
	return append(selector, packed...), nil
}

// DecodedCall is calldata matched against one of the known ABIs
type DecodedCall struct {
	Signature string
	Names     []string
	Args      []any
}

func (c *DecodedCall) String() string {
	return c.Describe(func(a common.Address) string { return a.Hex() })
}

// Describe renders the call with addresses passed through name
func (c *DecodedCall) Describe(name func(common.Address) string) string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		switch v := a.(type) {
		case common.Address:
			parts[i] = name(v)
		case [32]byte:
			if role, err := models.RoleFromID(common.Hash(v)); err == nil {
				parts[i] = role.String()
			} else {
				parts[i] = hexutil.Encode(v[:])
			}
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	fn := c.Signature
	if i := strings.Index(fn, "("); i >= 0 {
		fn = fn[:i]
	}
	return fmt.Sprintf("%s(%s)", fn, strings.Join(parts, ", "))
}

// DecodeCall matches data against the known ABIs
func DecodeCall(data []byte) (*DecodedCall, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata too short: %d bytes", len(data))
	}
	for _, known := range []*abi.ABI{ERC20, Timelock} {
		method, err := known.MethodById(data[:4])
		if err != nil {
			continue
		}
		args, err := method.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, fmt.Errorf("failed to unpack %s: %w", method.Sig, err)
		}
		names := make([]string, len(method.Inputs))
		for i, in := range method.Inputs {
			names[i] = in.Name
		}
		return &DecodedCall{Signature: method.Sig, Names: names, Args: args}, nil
	}
	return nil, fmt.Errorf("unknown selector %s", hexutil.Encode(data[:4]))
}

func splitSignature(signature string) (string, []string, error) {
	signature = strings.ReplaceAll(signature, " ", "")
	open := strings.Index(signature, "(")
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return "", nil, fmt.Errorf("invalid signature %q", signature)
	}
	name := signature[:open]
	inner := signature[open+1 : len(signature)-1]
	if strings.ContainsAny(inner, "()[]") {
		return "", nil, fmt.Errorf("unsupported signature %q: tuples and arrays are not supported", signature)
	}
	if inner == "" {
		return name, nil, nil
	}
	return name, strings.Split(inner, ","), nil
}

func parseArg(t abi.Type, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch t.T {
	case abi.AddressTy:
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(raw), nil
	case abi.BoolTy:
		return strconv.ParseBool(raw)
	case abi.StringTy:
		return raw, nil
	case abi.BytesTy:
		return hexutil.Decode(raw)
	case abi.FixedBytesTy:
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit bytes%d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(common.RightPadBytes(b, t.Size)))
		return arr.Interface(), nil
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(raw, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("negative value for %s", t)
		}
		limit := t.Size
		if t.T == abi.IntTy {
			limit--
		}
		if n.BitLen() > limit {
			return nil, fmt.Errorf("%s does not fit %s", raw, t)
		}
		if t.GetType() == reflect.TypeOf(n) {
			return n, nil
		}
		if t.T == abi.UintTy {
			return reflect.ValueOf(n.Uint64()).Convert(t.GetType()).Interface(), nil
		}
		return reflect.ValueOf(n.Int64()).Convert(t.GetType()).Interface(), nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}
