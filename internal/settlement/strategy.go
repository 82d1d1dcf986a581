package settlement

import (
	"fmt"
	"strings"

	"github.com/tgeclaim/engine/internal/store"
)

// Strategy names
const (
	StrategyClaimAll   = "claim-all"
	StrategyMultiChain = "multi-chain"
)

// Failure reasons reported per item
const (
	ReasonInsufficientBalance = "insufficient balance"
	ReasonNetworkError        = "network error"
	ReasonNotClaimable        = "offer not claimable"
	ReasonUnexpected          = "unexpected error"
)

// Strategy decides the outcome of one item once its delay has elapsed.
type Strategy interface {
	Name() string
	Resolve(offer store.Offer, decision store.StakingDecision, outcomes OutcomeProvider) store.SettlementResult
}

// ClaimAll settles every item successfully.
type ClaimAll struct{}

// Name implements Strategy.
func (ClaimAll) Name() string { return StrategyClaimAll }

// Resolve implements Strategy.
func (ClaimAll) Resolve(offer store.Offer, decision store.StakingDecision, outcomes OutcomeProvider) store.SettlementResult {
	return store.SettlementResult{
		OfferID: offer.ID,
		Success: true,
		Claimed: true,
		Staked:  decision.WillStake,
		TxHash:  outcomes.TxHash(offer.ID),
	}
}

// MultiChain settles each item with a chain-specific success probability.
type MultiChain struct{}

// Name implements Strategy.
func (MultiChain) Name() string { return StrategyMultiChain }

// Resolve implements Strategy.
func (MultiChain) Resolve(offer store.Offer, decision store.StakingDecision, outcomes OutcomeProvider) store.SettlementResult {
	if !outcomes.Succeeds(offer.Chain) {
		return store.SettlementResult{
			OfferID: offer.ID,
			Error:   FailureReason(offer.Chain),
		}
	}

	return store.SettlementResult{
		OfferID: offer.ID,
		Success: true,
		Claimed: true,
		Staked:  decision.WillStake,
		TxHash:  outcomes.TxHash(offer.Chain),
	}
}

// FailureReason explains a failed claim on chain.
func FailureReason(chain string) string {
	if strings.EqualFold(chain, "base") {
		return ReasonInsufficientBalance
	}
	return ReasonNetworkError
}

// StrategyByName returns the named strategy.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case StrategyClaimAll:
		return ClaimAll{}, nil
	case StrategyMultiChain:
		return MultiChain{}, nil
	default:
		return nil, fmt.Errorf("unknown settlement strategy %q", name)
	}
}
