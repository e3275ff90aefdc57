package domain

// Validator sources recorded in run metadata.
const (
	ValidatorSourceInput = "input"
	ValidatorSourceRPC   = "rpc"
)

// Capabilities describes which optional fields the input carries.
// Computed once at ingestion and threaded through the detector.
type Capabilities struct {
	HasVenue        bool   // partition by venue; otherwise a single "All" partition
	HasValidator    bool   // validator statistics available
	HasTokenPair    bool   // token-pair reversal check enabled
	ValidatorSource string // "input" | "rpc" | ""
}

// DisabledFeatures lists the features turned off by missing optional fields.
func (c Capabilities) DisabledFeatures() []string {
	var disabled []string
	if !c.HasVenue {
		disabled = append(disabled, "venue_partitioning")
	}
	if !c.HasValidator {
		disabled = append(disabled, "validator_stats")
	}
	if !c.HasTokenPair {
		disabled = append(disabled, "token_pair_check")
	}
	return disabled
}
