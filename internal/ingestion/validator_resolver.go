package ingestion

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"solana-sandwich-lab/internal/domain"
	"solana-sandwich-lab/internal/solana"
)

// ValidatorResolver fills missing validator fields with the slot leader.
type ValidatorResolver struct {
	rpc       solana.RPCClient
	log       zerolog.Logger
	chunkSize int
}

// NewValidatorResolver creates a resolver backed by rpc.
func NewValidatorResolver(rpc solana.RPCClient, log zerolog.Logger) *ValidatorResolver {
	return &ValidatorResolver{
		rpc:       rpc,
		log:       log,
		chunkSize: solana.MaxSlotLeadersLimit,
	}
}

// Enrich returns copies of events whose validator is set from getSlotLeaders.
// Events that already name a validator keep it; input events are not modified.
// The returned capabilities enable validator statistics with source "rpc".
func (r *ValidatorResolver) Enrich(ctx context.Context, events []*domain.TradeEvent, caps domain.Capabilities) ([]*domain.TradeEvent, domain.Capabilities, error) {
	slots := missingValidatorSlots(events)
	if len(slots) == 0 {
		return events, caps, nil
	}

	leaders, err := r.resolveLeaders(ctx, slots)
	if err != nil {
		return nil, caps, err
	}

	out := make([]*domain.TradeEvent, len(events))
	resolved := 0
	for i, e := range events {
		copy := *e
		if copy.Validator == "" {
			if leader, ok := leaders[copy.Slot]; ok {
				copy.Validator = leader
				resolved++
			}
		}
		out[i] = &copy
	}

	r.log.Info().
		Int("slots", len(slots)).
		Int("events_resolved", resolved).
		Msg("validator enrichment finished")

	caps.HasValidator = true
	caps.ValidatorSource = domain.ValidatorSourceRPC
	return out, caps, nil
}

// resolveLeaders fetches leaders for ascending slots in ranges of at most chunkSize.
func (r *ValidatorResolver) resolveLeaders(ctx context.Context, slots []int64) (map[int64]string, error) {
	leaders := make(map[int64]string, len(slots))

	for i := 0; i < len(slots); {
		start := slots[i]
		limit := int(slots[len(slots)-1] - start + 1)
		if limit > r.chunkSize {
			limit = r.chunkSize
		}

		got, err := r.rpc.GetSlotLeaders(ctx, start, limit)
		if err != nil {
			return nil, fmt.Errorf("get slot leaders from %d: %w", start, err)
		}
		for j, leader := range got {
			if leader != "" {
				leaders[start+int64(j)] = leader
			}
		}

		r.log.Debug().Int64("start_slot", start).Int("limit", limit).Msg("slot leaders fetched")

		// Skip every slot covered by this range
		end := start + int64(limit)
		for i < len(slots) && slots[i] < end {
			i++
		}
	}

	return leaders, nil
}

// missingValidatorSlots returns distinct ascending slots of events without a validator.
func missingValidatorSlots(events []*domain.TradeEvent) []int64 {
	seen := make(map[int64]struct{})
	var slots []int64
	for _, e := range events {
		if e.Validator != "" {
			continue
		}
		if _, ok := seen[e.Slot]; ok {
			continue
		}
		seen[e.Slot] = struct{}{}
		slots = append(slots, e.Slot)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}
