package models

import "sync"

// Encoding is the wire format of a transaction payload.
type Encoding int

const (
	EncodingLegacy Encoding = iota + 1
	EncodingVersioned
)

func (e Encoding) String() string {
	switch e {
	case EncodingLegacy:
		return "legacy"
	case EncodingVersioned:
		return "versioned"
	default:
		return "unknown"
	}
}

// UnsignedTransaction is one serialized transaction returned by a backend.
type UnsignedTransaction struct {
	Payload        []byte
	Encoding       Encoding
	ExpectedSigner string
}

// UnsignedTransactionSet is the ordered output of a transaction request.
// Order is significant: setup transactions precede the swap.
type UnsignedTransactionSet struct {
	Chain        Chain
	Backend      Backend
	Transactions []UnsignedTransaction
}

type SignedTransaction struct {
	Payload  []byte
	Encoding Encoding
	Signer   string
	// Signature is the base58 first signature, which is the transaction id.
	Signature string
}

type SignedTransactionSet struct {
	Transactions []SignedTransaction
}

// Capability is what a wallet handle can do.
type Capability int

const (
	CapabilityExternalSigner Capability = iota + 1
	CapabilityLocalKeypair
)

func (c Capability) String() string {
	switch c {
	case CapabilityExternalSigner:
		return "external_signer"
	case CapabilityLocalKeypair:
		return "local_keypair"
	default:
		return "unknown"
	}
}

// SignatureLog is an append-only, deduplicated list of submitted signatures.
type SignatureLog struct {
	mu   sync.Mutex
	sigs []string
	seen map[string]struct{}
}

func NewSignatureLog() *SignatureLog {
	return &SignatureLog{seen: make(map[string]struct{})}
}

// Append records sig and reports whether it was new.
func (l *SignatureLog) Append(sig string) bool {
	if sig == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	if _, ok := l.seen[sig]; ok {
		return false
	}
	l.seen[sig] = struct{}{}
	l.sigs = append(l.sigs, sig)
	return true
}

func (l *SignatureLog) Contains(sig string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[sig]
	return ok
}

// List returns a copy of the recorded signatures in submission order.
func (l *SignatureLog) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.sigs))
	copy(out, l.sigs)
	return out
}

func (l *SignatureLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sigs)
}
