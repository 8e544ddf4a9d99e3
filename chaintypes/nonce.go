package chaintypes

// Nonce is a per-address transaction counter. It never decreases once a
// higher value has been observed from the backend.
type Nonce uint64

// Add returns the nonce offset by delta, used to derive the next nonce from
// a base value and a count of in-flight transactions.
func (n Nonce) Add(delta uint32) Nonce { return n + Nonce(delta) }

// Uint64 returns the underlying counter value.
func (n Nonce) Uint64() uint64 { return uint64(n) }
