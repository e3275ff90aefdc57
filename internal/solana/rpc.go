package solana

import "context"

// MaxSlotLeadersLimit is the largest range getSlotLeaders accepts per call.
const MaxSlotLeadersLimit = 5000

// RPCClient is the JSON-RPC surface used for validator enrichment.
type RPCClient interface {
	// GetSlotLeaders returns leader identities for limit slots starting at startSlot.
	// limit must be in [1, MaxSlotLeadersLimit].
	GetSlotLeaders(ctx context.Context, startSlot int64, limit int) ([]string, error)
}
