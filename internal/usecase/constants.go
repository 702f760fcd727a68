package usecase

import "time"

const (
	// DefaultMaxTransactionEntries bounds the size of one atomic engine
	// submission.
	DefaultMaxTransactionEntries = 100

	// DefaultPageSize is used when a list request omits limit.
	DefaultPageSize = 50

	// MaxPageSize clamps list requests.
	MaxPageSize = 1000

	// DefaultBalanceCacheTTL is how long engine balance lookups are cached.
	DefaultBalanceCacheTTL = 5 * time.Second

	// transferCode is the engine transfer code for ledger entries.
	transferCode uint16 = 1

	// accountCode is the engine account code for ledger accounts.
	accountCode uint16 = 1

	// controlAccountCode marks derived control and settlement accounts.
	controlAccountCode uint16 = 2
)
