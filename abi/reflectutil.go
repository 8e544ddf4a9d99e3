package abi

import (
	"math/big"
	"reflect"
)

// reflectIntType returns the Go integer type for the given size and
// signedness, falling back to *big.Int for the sizeless (256-bit) case.
func reflectIntType(unsigned bool, size int) reflect.Type {
	if unsigned {
		switch size {
		case 8:
			return reflect.TypeOf(uint8(0))
		case 16:
			return reflect.TypeOf(uint16(0))
		case 32:
			return reflect.TypeOf(uint32(0))
		case 64:
			return reflect.TypeOf(uint64(0))
		}
	}
	switch size {
	case 8:
		return reflect.TypeOf(int8(0))
	case 16:
		return reflect.TypeOf(int16(0))
	case 32:
		return reflect.TypeOf(int32(0))
	case 64:
		return reflect.TypeOf(int64(0))
	}
	return reflect.TypeOf(&big.Int{})
}

var derefBigT = reflect.TypeOf(big.Int{})

// indirect dereferences v until it either lands on a concrete value or
// a *big.Int, which packElement/typeCheck want to see as a pointer.
func indirect(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Ptr && v.Elem().Type() != derefBigT {
		return indirect(v.Elem())
	}
	return v
}

// mustArrayToByteSlice copies a fixed-size byte array into a freshly
// allocated []byte of the same length.
func mustArrayToByteSlice(value reflect.Value) reflect.Value {
	slice := reflect.MakeSlice(reflect.TypeOf([]byte{}), value.Len(), value.Len())
	reflect.Copy(slice, value)
	return slice
}
