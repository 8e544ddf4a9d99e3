package proxy

import (
	"errors"
	"fmt"

	"github.com/chainflow-labs/ethproxy/abi"
)

// Constructor describes one overload of a contract's constructor: the
// parameter shape the ABI registry needs to pick encoders, matched against
// the arguments a caller actually supplies to Publish/PublishWithValue.
type Constructor struct {
	Params []abi.AbiParam
}

// SmartContract is the minimal façade spec.md §6 mentions in passing (the
// "SmartContract façade, which uses the ABI registry to encode calls"):
// creation bytecode plus the overload set Publish matches supplied
// arguments against.
type SmartContract struct {
	Bytecode     []byte
	Constructors []Constructor
}

// NoConstructorMatchError is NoConstructorMatch from spec.md §7: raised
// synchronously when the arguments supplied to Publish match no declared
// constructor overload.
type NoConstructorMatchError struct {
	ArgCount int
}

func (e *NoConstructorMatchError) Error() string {
	return fmt.Sprintf("proxy: no constructor overload accepts %d argument(s)", e.ArgCount)
}

// encodeConstructorCall picks the first constructor overload whose arity
// matches args; parameter types play no part in that choice, and no other
// overload of the same arity is tried. Each argument is then encoded with
// the first registered encoder for its parameter that accepts the value
// (the registry's "first accepting converter wins" rule — spec.md §8
// property 5), and an argument no encoder accepts is an error. The result
// is the bytecode followed by each encoded argument in declaration order.
//
// This concatenation is a deliberate simplification of full Solidity
// head/tail ABI packing: the registry resolves per-parameter encoders the
// same way contract-call encoding would, but dynamic-tail relocation for
// constructor arguments is out of scope for the matching behavior this
// package is responsible for (spec.md §7 only specifies NoConstructorMatch
// and the published contract address, not the wire layout of constructor
// arguments).
func encodeConstructorCall(registry *abi.Registry, c SmartContract, args []any) ([]byte, error) {
	ctor, ok := matchConstructor(c, args)
	if !ok {
		return nil, &NoConstructorMatchError{ArgCount: len(args)}
	}

	data := append([]byte(nil), c.Bytecode...)
	for i, param := range ctor.Params {
		encoders, err := registry.GetEncoders(param)
		if err != nil {
			return nil, err
		}
		enc, err := firstAccepting(encoders, args[i])
		if err != nil {
			return nil, err
		}
		packed, err := enc.Encode(args[i])
		if err != nil {
			return nil, fmt.Errorf("proxy: encode constructor arg %d: %w", i, err)
		}
		data = append(data, packed...)
	}
	return data, nil
}

func matchConstructor(c SmartContract, args []any) (Constructor, bool) {
	for _, ctor := range c.Constructors {
		if len(ctor.Params) == len(args) {
			return ctor, true
		}
	}
	if len(args) == 0 && len(c.Constructors) == 0 {
		return Constructor{}, true
	}
	return Constructor{}, false
}

var errNoAccepting = errors.New("proxy: no registered encoder accepts the supplied argument")

func firstAccepting(encoders []abi.Encoder, v any) (abi.Encoder, error) {
	for _, enc := range encoders {
		if enc.CanEncode(v) {
			return enc, nil
		}
	}
	return nil, errNoAccepting
}
