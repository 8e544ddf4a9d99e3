// Copyright 2016 The go-ethereum Authors
// This file is part of the go-ethereum library.
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package abi

import (
	"errors"
	"fmt"
	"reflect"
)

// SolidityTypeGroup is the coarse converter-registry key shared by every
// width of a given Solidity family (all of uint8..uint256 share one group).
type SolidityTypeGroup int

const (
	UnknownGroup SolidityTypeGroup = iota
	IntGroup
	UintGroup
	BoolGroup
	AddressGroup
	StringGroup
	BytesGroup
	FixedBytesGroup
)

func (g SolidityTypeGroup) String() string {
	switch g {
	case IntGroup:
		return "int"
	case UintGroup:
		return "uint"
	case BoolGroup:
		return "bool"
	case AddressGroup:
		return "address"
	case StringGroup:
		return "string"
	case BytesGroup:
		return "bytes"
	case FixedBytesGroup:
		return "fixedBytes"
	default:
		return "unknown"
	}
}

func groupOf(t Type) SolidityTypeGroup {
	switch t.T {
	case IntTy:
		return IntGroup
	case UintTy:
		return UintGroup
	case BoolTy:
		return BoolGroup
	case AddressTy:
		return AddressGroup
	case StringTy:
		return StringGroup
	case BytesTy:
		return BytesGroup
	case FixedBytesTy:
		return FixedBytesGroup
	default:
		return UnknownGroup
	}
}

// AbiParam describes a single call argument or return slot the way the
// registry consumes it: a scalar type name plus the collection shape wrapped
// around it, kept separate from Type so callers never have to construct a
// full ABI type string just to ask for a converter.
type AbiParam struct {
	TypeName  string
	IsArray   bool
	IsDynamic bool
	ArraySize int
}

func (p AbiParam) elemType() (Type, error) {
	t, err := NewType(p.TypeName)
	if err != nil {
		return Type{}, fmt.Errorf("%w: %s", ErrUnknownType, p.TypeName)
	}
	return t, nil
}

// Encoder turns a host value into its ABI wire representation. CanEncode
// lets a registry hold several encoders per group so that more than one host
// representation (e.g. *big.Int and a fixed-width Go integer) can serve the
// same on-wire type; callers try them in registration order and keep the
// first that accepts the value.
type Encoder interface {
	CanEncode(v any) bool
	Encode(v any) ([]byte, error)
}

// Decoder turns an ABI wire representation back into a host value.
type Decoder interface {
	Decode(data []byte) (any, error)
}

// DynamicCollectionEncoderFactory builds an Encoder for a variable-length
// collection (T[] or bytes/string) out of the inner element encoders.
type DynamicCollectionEncoderFactory interface {
	NewEncoder(inner []Encoder) (Encoder, error)
}

// FixedCollectionEncoderFactory builds an Encoder for a fixed-length
// collection (T[N]) out of the inner element encoders and the declared size.
type FixedCollectionEncoderFactory interface {
	NewEncoder(inner []Encoder, size int) (Encoder, error)
}

// DynamicCollectionDecoderFactory is the decode-side counterpart of
// DynamicCollectionEncoderFactory.
type DynamicCollectionDecoderFactory interface {
	NewDecoder(inner []Decoder) (Decoder, error)
}

// FixedCollectionDecoderFactory is the decode-side counterpart of
// FixedCollectionEncoderFactory.
type FixedCollectionDecoderFactory interface {
	NewDecoder(inner []Decoder, size int) (Decoder, error)
}

var (
	ErrUnknownType           = errors.New("abi: unknown solidity type")
	ErrNoEncoderForType      = errors.New("abi: no encoder registered for type")
	ErrNoDecoderForType      = errors.New("abi: no decoder registered for type")
	ErrConverterConstruction = errors.New("abi: collection converter construction failed")
)

// Registry resolves per-type encoders and decoders, including the
// array/bytes collection variants. Registration is append-only: callers try
// converters in registration order and keep the first that accepts the host
// value, so later calls to AddEncoder/AddDecoder only ever widen what a
// group accepts, never narrow it.
type Registry struct {
	encoders map[SolidityTypeGroup][]Encoder
	decoders map[SolidityTypeGroup][]Decoder

	dynEncoderFactories   []DynamicCollectionEncoderFactory
	fixedEncoderFactories []FixedCollectionEncoderFactory
	dynDecoderFactories   []DynamicCollectionDecoderFactory
	fixedDecoderFactories []FixedCollectionDecoderFactory

	voidTypes map[reflect.Type]bool
}

// NewRegistry returns a registry pre-populated with the default scalar
// converters (one reflect-based converter per group, built directly on top
// of Type.pack/toGoType) and the default dynamic/fixed collection factories.
func NewRegistry() *Registry {
	r := &Registry{
		encoders:  make(map[SolidityTypeGroup][]Encoder),
		decoders:  make(map[SolidityTypeGroup][]Decoder),
		voidTypes: make(map[reflect.Type]bool),
	}
	for _, group := range []SolidityTypeGroup{IntGroup, UintGroup, BoolGroup, AddressGroup, StringGroup, BytesGroup, FixedBytesGroup} {
		r.encoders[group] = nil
		r.decoders[group] = nil
	}
	registerDefaultScalarConverters(r)
	r.dynEncoderFactories = append(r.dynEncoderFactories, sliceEncoderFactory{})
	r.fixedEncoderFactories = append(r.fixedEncoderFactories, arrayEncoderFactory{})
	r.dynDecoderFactories = append(r.dynDecoderFactories, sliceDecoderFactory{})
	r.fixedDecoderFactories = append(r.fixedDecoderFactories, arrayDecoderFactory{})
	r.voidTypes[reflect.TypeOf(struct{}{})] = true
	return r
}

// AddEncoder appends an additional host-value representation to the group's
// encoder list.
func (r *Registry) AddEncoder(group SolidityTypeGroup, enc Encoder) {
	r.encoders[group] = append(r.encoders[group], enc)
}

// AddDecoder appends an additional decoder to the group's decoder list.
func (r *Registry) AddDecoder(group SolidityTypeGroup, dec Decoder) {
	r.decoders[group] = append(r.decoders[group], dec)
}

// AddListEncoder registers a collection-encoder factory. The factory must
// implement either DynamicCollectionEncoderFactory or
// FixedCollectionEncoderFactory; which shape it implements determines
// whether it fires for isArray&&isDynamic or isArray&&!isDynamic params.
func (r *Registry) AddListEncoder(factory any) error {
	switch f := factory.(type) {
	case DynamicCollectionEncoderFactory:
		r.dynEncoderFactories = append(r.dynEncoderFactories, f)
	case FixedCollectionEncoderFactory:
		r.fixedEncoderFactories = append(r.fixedEncoderFactories, f)
	default:
		return fmt.Errorf("abi: %T implements neither collection encoder factory shape", factory)
	}
	return nil
}

// AddListDecoder is the decode-side counterpart of AddListEncoder.
func (r *Registry) AddListDecoder(factory any) error {
	switch f := factory.(type) {
	case DynamicCollectionDecoderFactory:
		r.dynDecoderFactories = append(r.dynDecoderFactories, f)
	case FixedCollectionDecoderFactory:
		r.fixedDecoderFactories = append(r.fixedDecoderFactories, f)
	default:
		return fmt.Errorf("abi: %T implements neither collection decoder factory shape", factory)
	}
	return nil
}

// AddVoidClass registers a host type as carrying no return value.
func (r *Registry) AddVoidClass(t reflect.Type) {
	r.voidTypes[t] = true
}

// IsVoidType reports whether cls was registered as a "no return value" type.
func (r *Registry) IsVoidType(cls reflect.Type) bool {
	return r.voidTypes[cls]
}

// GetEncoders resolves the ordered encoder list for abiParam.
func (r *Registry) GetEncoders(p AbiParam) ([]Encoder, error) {
	elem, err := p.elemType()
	if err != nil {
		return nil, err
	}
	group := groupOf(elem)
	inner := r.encoders[group]

	if !p.IsArray {
		if len(inner) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoEncoderForType, p.TypeName)
		}
		return inner, nil
	}
	if len(inner) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEncoderForType, p.TypeName)
	}
	if p.IsDynamic {
		out := make([]Encoder, 0, len(r.dynEncoderFactories))
		for _, f := range r.dynEncoderFactories {
			e, err := f.NewEncoder(inner)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConverterConstruction, err)
			}
			out = append(out, e)
		}
		return out, nil
	}
	out := make([]Encoder, 0, len(r.fixedEncoderFactories))
	for _, f := range r.fixedEncoderFactories {
		e, err := f.NewEncoder(inner, p.ArraySize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConverterConstruction, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// GetDecoders resolves the ordered decoder list for abiParam. bytes is
// always routed through the dynamic collection path regardless of
// abiParam.IsArray, matching its wire representation as a length-prefixed
// byte sequence rather than the caller's array flag.
func (r *Registry) GetDecoders(p AbiParam) ([]Decoder, error) {
	elem, err := p.elemType()
	if err != nil {
		return nil, err
	}
	group := groupOf(elem)
	asCollection := p.IsArray || group == BytesGroup
	dynamic := p.IsDynamic || group == BytesGroup

	inner := r.decoders[group]
	if !asCollection {
		if len(inner) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoDecoderForType, p.TypeName)
		}
		return inner, nil
	}
	if len(inner) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDecoderForType, p.TypeName)
	}
	if dynamic {
		out := make([]Decoder, 0, len(r.dynDecoderFactories))
		for _, f := range r.dynDecoderFactories {
			d, err := f.NewDecoder(inner)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConverterConstruction, err)
			}
			out = append(out, d)
		}
		return out, nil
	}
	out := make([]Decoder, 0, len(r.fixedDecoderFactories))
	for _, f := range r.fixedDecoderFactories {
		d, err := f.NewDecoder(inner, p.ArraySize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConverterConstruction, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// reflectScalarEncoder/reflectScalarDecoder are the default converters
// registered per group: they delegate straight to the low-level Type.pack
// and toGoType machinery for one fixed Type chosen at registration
// (int256, uint256, bool, address, string, bytes, bytes32). The same
// instance is returned for every width in the group, and it encodes and
// decodes with that registered Type, not the width the AbiParam names.
type reflectScalarEncoder struct{ typ Type }

func (e reflectScalarEncoder) CanEncode(v any) bool {
	return typeCheck(e.typ, indirect(reflect.ValueOf(v))) == nil
}

func (e reflectScalarEncoder) Encode(v any) ([]byte, error) {
	return e.typ.pack(reflect.ValueOf(v))
}

type reflectScalarDecoder struct{ typ Type }

func (d reflectScalarDecoder) Decode(data []byte) (any, error) {
	padded := data
	if len(padded) < 32 {
		padded = append(make([]byte, 32-len(padded)), padded...)
	}
	return toGoType(0, d.typ, padded)
}

func registerDefaultScalarConverters(r *Registry) {
	widths := []struct {
		group SolidityTypeGroup
		name  string
	}{
		{IntGroup, "int256"},
		{UintGroup, "uint256"},
		{BoolGroup, "bool"},
		{AddressGroup, "address"},
		{StringGroup, "string"},
		{BytesGroup, "bytes"},
		{FixedBytesGroup, "bytes32"},
	}
	for _, w := range widths {
		t, err := NewType(w.name)
		if err != nil {
			panic(err)
		}
		r.encoders[w.group] = append(r.encoders[w.group], reflectScalarEncoder{typ: t})
		r.decoders[w.group] = append(r.decoders[w.group], reflectScalarDecoder{typ: t})
	}
}

// collectionEncoder/collectionDecoder, built by sliceEncoderFactory,
// arrayEncoderFactory, sliceDecoderFactory and arrayDecoderFactory, implement
// the default dynamic and fixed collection factories by driving the same
// Type-based pack/toGoType machinery used for scalars, over a
// SliceTy/ArrayTy wrapper Type built from the inner element's elemType.
type collectionEncoder struct {
	elem Type
	arr  bool
	size int
}

func (c collectionEncoder) CanEncode(v any) bool {
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func (c collectionEncoder) Encode(v any) ([]byte, error) {
	t := c.wrapperType()
	return t.pack(reflect.ValueOf(v))
}

func (c collectionEncoder) wrapperType() Type {
	if c.arr {
		return Type{T: ArrayTy, Elem: &c.elem, Size: c.size}
	}
	return Type{T: SliceTy, Elem: &c.elem}
}

type collectionDecoder struct {
	elem Type
	arr  bool
	size int
}

func (c collectionDecoder) Decode(data []byte) (any, error) {
	t := c.wrapperType()
	return toGoType(0, t, data)
}

func (c collectionDecoder) wrapperType() Type {
	if c.arr {
		return Type{T: ArrayTy, Elem: &c.elem, Size: c.size}
	}
	return Type{T: SliceTy, Elem: &c.elem}
}

func innerElemType(inner []Encoder) (Type, error) {
	for _, e := range inner {
		if re, ok := e.(reflectScalarEncoder); ok {
			return re.typ, nil
		}
	}
	return Type{}, fmt.Errorf("abi: no reflect-based scalar encoder to derive element type from")
}

func innerElemTypeDec(inner []Decoder) (Type, error) {
	for _, d := range inner {
		if rd, ok := d.(reflectScalarDecoder); ok {
			return rd.typ, nil
		}
	}
	return Type{}, fmt.Errorf("abi: no reflect-based scalar decoder to derive element type from")
}

type sliceEncoderFactory struct{}

func (sliceEncoderFactory) NewEncoder(inner []Encoder) (Encoder, error) {
	elem, err := innerElemType(inner)
	if err != nil {
		return nil, err
	}
	return collectionEncoder{elem: elem, arr: false}, nil
}

type arrayEncoderFactory struct{}

func (arrayEncoderFactory) NewEncoder(inner []Encoder, size int) (Encoder, error) {
	elem, err := innerElemType(inner)
	if err != nil {
		return nil, err
	}
	return collectionEncoder{elem: elem, arr: true, size: size}, nil
}

type sliceDecoderFactory struct{}

func (sliceDecoderFactory) NewDecoder(inner []Decoder) (Decoder, error) {
	elem, err := innerElemTypeDec(inner)
	if err != nil {
		return nil, err
	}
	return collectionDecoder{elem: elem, arr: false}, nil
}

type arrayDecoderFactory struct{}

func (arrayDecoderFactory) NewDecoder(inner []Decoder, size int) (Decoder, error) {
	elem, err := innerElemTypeDec(inner)
	if err != nil {
		return nil, err
	}
	return collectionDecoder{elem: elem, arr: true, size: size}, nil
}
