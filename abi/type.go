package abi

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Type enumerates the Solidity shapes abi.Registry resolves converters
// for. The teacher's accounts/abi carries tuple, function-selector and
// fixed-point variants too, but nothing in this module ever builds an
// AbiParam for a tuple, a function type or a fixed-point number — the
// registry only ever asks for a scalar name plus an array/slice wrapper
// around it — so those branches have no caller here and are not kept.
const (
	IntTy byte = iota
	UintTy
	BoolTy
	StringTy
	SliceTy
	ArrayTy
	AddressTy
	FixedBytesTy
	BytesTy
)

// Type is the parsed form of a Solidity scalar type name, or a
// slice/array built around one, resolved on demand from the string an
// AbiParam carries.
type Type struct {
	Elem *Type
	Size int
	T    byte

	stringKind string
}

var (
	typeRegex      = regexp.MustCompile("([a-zA-Z]+)(([0-9]+)(x([0-9]+))?)?")
	sliceSizeRegex = regexp.MustCompile("[0-9]+")
)

// NewType parses a Solidity type name such as "uint256", "address" or
// "bytes32", with an optional "[]"/"[N]" array suffix, into a Type.
func NewType(t string) (typ Type, err error) {
	if strings.Count(t, "[") != strings.Count(t, "]") {
		return Type{}, errors.New("abi: invalid arg type " + t)
	}
	typ.stringKind = t

	if strings.Count(t, "[") != 0 {
		i := strings.LastIndex(t, "[")
		embedded, err := NewType(t[:i])
		if err != nil {
			return Type{}, err
		}
		sliced := t[i:]
		sizes := sliceSizeRegex.FindAllString(sliced, -1)
		switch len(sizes) {
		case 0:
			typ.T = SliceTy
			typ.Elem = &embedded
			typ.stringKind = embedded.stringKind + sliced
		case 1:
			typ.T = ArrayTy
			typ.Elem = &embedded
			typ.Size, err = strconv.Atoi(sizes[0])
			if err != nil {
				return Type{}, fmt.Errorf("abi: bad array size in %q: %w", t, err)
			}
			typ.stringKind = embedded.stringKind + sliced
		default:
			return Type{}, fmt.Errorf("abi: invalid array type %q", t)
		}
		return typ, nil
	}

	matches := typeRegex.FindAllStringSubmatch(t, -1)
	if len(matches) == 0 {
		return Type{}, fmt.Errorf("abi: invalid type %q", t)
	}
	parsed := matches[0]

	var size int
	if len(parsed[3]) > 0 {
		size, err = strconv.Atoi(parsed[2])
		if err != nil {
			return Type{}, fmt.Errorf("abi: bad width in %q: %w", t, err)
		}
	} else if parsed[1] == "uint" || parsed[1] == "int" {
		return Type{}, fmt.Errorf("abi: %q needs an explicit width", t)
	}

	switch parsed[1] {
	case "int":
		typ.T, typ.Size = IntTy, size
	case "uint":
		typ.T, typ.Size = UintTy, size
	case "bool":
		typ.T = BoolTy
	case "address":
		typ.T, typ.Size = AddressTy, 20
	case "string":
		typ.T = StringTy
	case "bytes":
		switch {
		case size == 0:
			typ.T = BytesTy
		case size <= 32:
			typ.T, typ.Size = FixedBytesTy, size
		default:
			return Type{}, fmt.Errorf("abi: bytes width %d exceeds 32", size)
		}
	default:
		return Type{}, fmt.Errorf("abi: unsupported type %q", t)
	}
	return typ, nil
}

// GetType returns the reflection type backing t.
func (t Type) GetType() reflect.Type {
	switch t.T {
	case IntTy:
		return reflectIntType(false, t.Size)
	case UintTy:
		return reflectIntType(true, t.Size)
	case BoolTy:
		return reflect.TypeFor[bool]()
	case StringTy:
		return reflect.TypeFor[string]()
	case SliceTy:
		return reflect.SliceOf(t.Elem.GetType())
	case ArrayTy:
		return reflect.ArrayOf(t.Size, t.Elem.GetType())
	case AddressTy:
		return reflect.TypeFor[common.Address]()
	case FixedBytesTy:
		return reflect.ArrayOf(t.Size, reflect.TypeFor[byte]())
	case BytesTy:
		return reflect.TypeFor[[]byte]()
	default:
		panic("abi: invalid type")
	}
}

// String implements Stringer.
func (t Type) String() string {
	return t.stringKind
}

func (t Type) pack(v reflect.Value) ([]byte, error) {
	v = indirect(v)
	if err := typeCheck(t, v); err != nil {
		return nil, err
	}

	if t.T != SliceTy && t.T != ArrayTy {
		return packElement(t, v)
	}

	var ret []byte
	if t.requiresLengthPrefix() {
		ret = append(ret, packNum(reflect.ValueOf(v.Len()))...)
	}

	offset := 0
	offsetReq := isDynamicType(*t.Elem)
	if offsetReq {
		offset = getTypeSize(*t.Elem) * v.Len()
	}
	var tail []byte
	for i := 0; i < v.Len(); i++ {
		val, err := t.Elem.pack(v.Index(i))
		if err != nil {
			return nil, err
		}
		if !offsetReq {
			ret = append(ret, val...)
			continue
		}
		ret = append(ret, packNum(reflect.ValueOf(offset))...)
		offset += len(val)
		tail = append(tail, val...)
	}
	return append(ret, tail...), nil
}

// requiresLengthPrefix returns whether the type requires any sort of
// length prefixing.
func (t Type) requiresLengthPrefix() bool {
	return t.T == StringTy || t.T == BytesTy || t.T == SliceTy
}

// isDynamicType reports whether t's wire encoding is length-prefixed
// rather than in-place: bytes, string, T[] for any T, and T[k] when T
// itself is dynamic.
func isDynamicType(t Type) bool {
	return t.T == StringTy || t.T == BytesTy || t.T == SliceTy || (t.T == ArrayTy && isDynamicType(*t.Elem))
}

// getTypeSize returns the number of bytes t occupies in a static
// encoding context: 32 for every dynamic or scalar type, and
// size*elemSize for a static array of a static element.
func getTypeSize(t Type) int {
	if t.T == ArrayTy && !isDynamicType(*t.Elem) {
		if t.Elem.T == ArrayTy {
			return t.Size * getTypeSize(*t.Elem)
		}
		return t.Size * 32
	}
	return 32
}
