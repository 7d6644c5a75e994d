package models

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Batch is an ordered list of calls carried by a proposal or timelock operation.
// The engine never interprets it; it is hashed and forwarded as is.
type Batch struct {
	Targets   []common.Address `json:"targets"`
	Values    []*big.Int       `json:"values"`
	Calldatas []hexutil.Bytes  `json:"calldatas"`
}

// Call is a single entry of a Batch
type Call struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

// NewBatch builds a batch from calls
func NewBatch(calls ...Call) Batch {
	b := Batch{
		Targets:   make([]common.Address, 0, len(calls)),
		Values:    make([]*big.Int, 0, len(calls)),
		Calldatas: make([]hexutil.Bytes, 0, len(calls)),
	}
	for _, c := range calls {
		value := c.Value
		if value == nil {
			value = new(big.Int)
		}
		b.Targets = append(b.Targets, c.Target)
		b.Values = append(b.Values, new(big.Int).Set(value))
		b.Calldatas = append(b.Calldatas, common.CopyBytes(c.Data))
	}
	return b
}

// Len returns the number of calls in the batch
func (b Batch) Len() int {
	return len(b.Targets)
}

// Calls returns the batch as a list of calls
func (b Batch) Calls() []Call {
	calls := make([]Call, len(b.Targets))
	for i := range b.Targets {
		calls[i] = Call{
			Target: b.Targets[i],
			Value:  new(big.Int).Set(b.Values[i]),
			Data:   common.CopyBytes(b.Calldatas[i]),
		}
	}
	return calls
}

// RawCalldatas returns the calldata entries as plain byte slices
func (b Batch) RawCalldatas() [][]byte {
	out := make([][]byte, len(b.Calldatas))
	for i, data := range b.Calldatas {
		out[i] = data
	}
	return out
}

// Validate checks that the batch is well formed
func (b Batch) Validate() error {
	if len(b.Targets) == 0 {
		return fmt.Errorf("empty proposal")
	}
	if len(b.Values) != len(b.Targets) || len(b.Calldatas) != len(b.Targets) {
		return fmt.Errorf("invalid proposal length: %d targets, %d values, %d calldatas",
			len(b.Targets), len(b.Values), len(b.Calldatas))
	}
	for i, v := range b.Values {
		if v == nil {
			return fmt.Errorf("value %d is missing", i)
		}
		if v.Sign() < 0 || v.BitLen() > 256 {
			return fmt.Errorf("value %d does not fit uint256", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the batch
func (b Batch) Clone() Batch {
	out := Batch{
		Targets:   append([]common.Address(nil), b.Targets...),
		Values:    make([]*big.Int, len(b.Values)),
		Calldatas: make([]hexutil.Bytes, len(b.Calldatas)),
	}
	for i, v := range b.Values {
		if v != nil {
			out.Values[i] = new(big.Int).Set(v)
		}
	}
	for i, data := range b.Calldatas {
		out.Calldatas[i] = common.CopyBytes(data)
	}
	return out
}

// ExecutionResult is what an operation executor reports for a batch
type ExecutionResult struct {
	ReturnData []hexutil.Bytes `json:"returnData"`
}
