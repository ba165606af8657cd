package idempotency

import "context"

// Record is a finished bulk operation stored under its idempotency key.
type Record struct {
	Caller string
	OpType string
	Result []byte
}

// Matches reports whether a new request by caller for opType may replay r.
func (r Record) Matches(caller, opType string) bool {
	return r.Caller == caller && r.OpType == opType
}

// Store records the result of a bulk operation under a client-supplied key.
type Store interface {
	// Check returns the record stored for key and whether the key has been seen.
	Check(ctx context.Context, key string) (Record, bool, error)
	Store(ctx context.Context, key, caller, opType string, result []byte) error
}
