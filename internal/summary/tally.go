package summary

import "github.com/tgeclaim/engine/internal/store"

// Batch outcomes
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Counts aggregates a batch of settlement results.
type Counts struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Staked    int `json:"staked"`
}

// Tally counts successes, failures and stakes.
func Tally(results []store.SettlementResult) Counts {
	c := Counts{Total: len(results)}
	for _, r := range results {
		if r.Success {
			c.Succeeded++
		} else {
			c.Failed++
		}
		if r.Staked {
			c.Staked++
		}
	}
	return c
}

// Outcome classifies the batch as a whole.
func (c Counts) Outcome() string {
	switch {
	case c.Succeeded > 0 && c.Failed == 0:
		return OutcomeSuccess
	case c.Succeeded > 0:
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}
