package abi

import (
	"errors"
	"math/big"
	"reflect"
	"testing"
)

func TestGetEncodersScalar(t *testing.T) {
	r := NewRegistry()
	encs, err := r.GetEncoders(AbiParam{TypeName: "uint256"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(encs) != 1 {
		t.Fatalf("want 1 encoder, got %d", len(encs))
	}
	out, err := encs[0].Encode(big.NewInt(42))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(out) != 32 {
		t.Fatalf("want 32-byte word, got %d bytes", len(out))
	}
}

func TestGetEncodersUnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetEncoders(AbiParam{TypeName: "nosuchtype"})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("want ErrUnknownType, got %v", err)
	}
}

// TestDynamicArrayEncodersS6 exercises scenario S6: a dynamic uint256[]
// resolves to one encoder per registered dynamic collection factory, each
// built from the scalar uint256 encoder list and no size argument.
func TestDynamicArrayEncodersS6(t *testing.T) {
	r := NewRegistry()
	p := AbiParam{TypeName: "uint256", IsArray: true, IsDynamic: true}
	encs, err := r.GetEncoders(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(encs) != 1 {
		t.Fatalf("want 1 collection encoder (one default factory registered), got %d", len(encs))
	}
	out, err := encs[0].Encode([]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(out) != 32*4 { // length word + 3 elements
		t.Fatalf("unexpected encoded length: %d", len(out))
	}
}

func TestBytesAlwaysUsesDynamicDecoder(t *testing.T) {
	r := NewRegistry()
	decs, err := r.GetDecoders(AbiParam{TypeName: "bytes", IsArray: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decs) != 1 {
		t.Fatalf("want 1 decoder, got %d", len(decs))
	}
}

func TestNoDecoderForUnregisteredGroup(t *testing.T) {
	r := &Registry{
		encoders:  map[SolidityTypeGroup][]Encoder{},
		decoders:  map[SolidityTypeGroup][]Decoder{},
		voidTypes: map[reflect.Type]bool{},
	}
	_, err := r.GetDecoders(AbiParam{TypeName: "uint256"})
	if !errors.Is(err, ErrNoDecoderForType) {
		t.Fatalf("want ErrNoDecoderForType, got %v", err)
	}
}
