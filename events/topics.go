package events

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/chainflow-labs/ethproxy/chaintypes"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signature returns the Keccak256 hash of a canonical event signature, the
// value every non-anonymous event carries in topic[0].
func Signature(canonical string) chaintypes.Hash {
	return chaintypes.NewHash(crypto.Keccak256Hash([]byte(canonical)))
}

// BySignature builds a SolidityEvent.Match predicate that accepts any log
// whose first topic equals sig, the minimal match spec.md's
// SolidityEvent.match is expected to perform for a named, non-anonymous
// event.
func BySignature(sig chaintypes.Hash) func(chaintypes.EventData) bool {
	return func(d chaintypes.EventData) bool {
		return len(d.Topics) > 0 && d.Topics[0] == sig
	}
}

// MakeTopics converts indexed-argument rule values into the topic-list
// shape FilterQuery expects, following monetha's log_filterer.go
// makeTopics: hashes are copied as-is, addresses, integers, bools and fixed
// byte arrays are right-aligned into a 32-byte topic word, and strings and
// byte slices are replaced by their Keccak256 hash.
func MakeTopics(query ...[]any) ([][]common.Hash, error) {
	topics := make([][]common.Hash, len(query))
	for i, filter := range query {
		for _, rule := range filter {
			topic, err := topicFor(rule)
			if err != nil {
				return nil, err
			}
			topics[i] = append(topics[i], topic)
		}
	}
	return topics, nil
}

func topicFor(rule any) (common.Hash, error) {
	var topic common.Hash
	switch v := rule.(type) {
	case common.Hash:
		copy(topic[:], v[:])
	case chaintypes.Hash:
		h := v.Common()
		copy(topic[:], h[:])
	case common.Address:
		copy(topic[common.HashLength-common.AddressLength:], v[:])
	case chaintypes.Address:
		a := v.Common()
		copy(topic[common.HashLength-common.AddressLength:], a[:])
	case *big.Int:
		blob := v.Bytes()
		copy(topic[common.HashLength-len(blob):], blob)
	case bool:
		if v {
			topic[common.HashLength-1] = 1
		}
	case string:
		h := crypto.Keccak256Hash([]byte(v))
		copy(topic[:], h[:])
	case []byte:
		h := crypto.Keccak256Hash(v)
		copy(topic[:], h[:])
	default:
		rv := reflect.ValueOf(rule)
		if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
			reflect.Copy(reflect.ValueOf(topic[common.HashLength-rv.Len():]), rv)
			return topic, nil
		}
		return topic, fmt.Errorf("events: unsupported indexed type %T", rule)
	}
	return topic, nil
}
