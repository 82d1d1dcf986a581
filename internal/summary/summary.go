// Package summary derives totals from the catalog, the selection and the
// staking decisions. Everything here is a pure function of its inputs.
package summary

import (
	"slices"

	"github.com/tgeclaim/engine/internal/rewards"
	"github.com/tgeclaim/engine/internal/store"
)

// Summary is a snapshot of the pending batch.
type Summary struct {
	// TotalClaimable counts catalog offers that can be claimed at all
	TotalClaimable int `json:"totalClaimable"`

	// Selected lists selected claimable offer IDs in catalog order
	Selected []string `json:"selected"`

	// ActiveDecisions are stake decisions that will take effect
	ActiveDecisions []store.StakingDecision `json:"activeDecisions"`

	EstimatedTotalRewards float64 `json:"estimatedTotalRewards"`
}

// SelectedCount is the number of claimable offers in the batch.
func (s Summary) SelectedCount() int {
	return len(s.Selected)
}

// StakingCount is the number of offers that will be staked.
func (s Summary) StakingCount() int {
	return len(s.ActiveDecisions)
}

// Summarize computes the batch summary. A decision only counts when it is a
// stake decision for a selected offer that is claimable; selections of
// non-claimable offers are ignored.
func Summarize(offers []store.Offer, selected []string, decisions map[string]store.StakingDecision) Summary {
	s := Summary{
		Selected:        []string{},
		ActiveDecisions: []store.StakingDecision{},
	}

	var estimates []float64
	for _, offer := range offers {
		if !offer.Claimable {
			continue
		}
		s.TotalClaimable++

		if !slices.Contains(selected, offer.ID) {
			continue
		}
		s.Selected = append(s.Selected, offer.ID)

		if d, ok := decisions[offer.ID]; ok && d.WillStake {
			s.ActiveDecisions = append(s.ActiveDecisions, d)
			estimates = append(estimates, d.EstimatedRewards)
		}
	}

	s.EstimatedTotalRewards = rewards.Sum(estimates...)
	return s
}

// LegacySummary summarizes the multi-chain reward flow.
type LegacySummary struct {
	TotalClaimableChains int      `json:"totalClaimableChains"`
	TotalUSDValue        float64  `json:"totalUsdValue"`
	EstimatedGasFee      float64  `json:"estimatedGasFee"`
	Selected             []string `json:"selectedChains"`
}

// SummarizeLegacy totals USD value and gas over the selected, claimable
// chain rewards.
func SummarizeLegacy(chains []store.Offer, selected []string) LegacySummary {
	s := LegacySummary{Selected: []string{}}

	var usd, gas []float64
	for _, chain := range chains {
		if !chain.Claimable {
			continue
		}
		s.TotalClaimableChains++

		if slices.Contains(selected, chain.ID) {
			s.Selected = append(s.Selected, chain.ID)
			usd = append(usd, chain.USDValue)
			gas = append(gas, chain.EstimatedGas)
		}
	}

	s.TotalUSDValue = rewards.Sum(usd...)
	s.EstimatedGasFee = rewards.Sum(gas...)
	return s
}
