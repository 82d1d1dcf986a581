package dashboard

import (
	"time"

	"github.com/tgeclaim/engine/internal/store"
)

const day = 24 * time.Hour

// SeedDemo fills d with the demo positions and their claim history,
// dated relative to now.
func SeedDemo(d *Dashboard, now time.Time) {
	positions := []store.StakedPosition{
		{
			ID:               "stake-1",
			OfferID:          "enso-chain",
			ProjectName:      "ENSO",
			TokenSymbol:      "$ENSO",
			ChainName:        "ENSO",
			StakedAmount:     85,
			StakingAPR:       18,
			LockDuration:     store.Duration3M,
			StakingStartDate: now.Add(-85 * day),
			UnlockDate:       now.Add(5 * day),
			EstimatedRewards: 3.8,
			AccruedRewards:   3.6,
			Status:           store.PositionLocked,
		},
		{
			ID:               "stake-2",
			OfferID:          "plasma-chain",
			ProjectName:      "Plasma",
			TokenSymbol:      "$XPL",
			ChainName:        "Plasma",
			StakedAmount:     150,
			StakingAPR:       12,
			LockDuration:     store.Duration6M,
			StakingStartDate: now.Add(-30 * day),
			UnlockDate:       now.Add(150 * day),
			EstimatedRewards: 18,
			AccruedRewards:   3.2,
			Status:           store.PositionLocked,
		},
		{
			ID:               "stake-3",
			OfferID:          "allora-cosmos",
			ProjectName:      "Allora Network",
			TokenSymbol:      "$ALLO",
			ChainName:        "COSMOS L1",
			StakedAmount:     230,
			StakingAPR:       9,
			LockDuration:     store.Duration6M,
			StakingStartDate: now.Add(-45 * day),
			UnlockDate:       now.Add(135 * day),
			EstimatedRewards: 20.7,
			AccruedRewards:   4.8,
			Status:           store.PositionLocked,
		},
	}

	hashes := []string{"0x3234...5680", "0x1234...5678", "0x2234...5679"}
	for _, p := range positions {
		d.AddPosition(p)
	}
	// Oldest first so the newest claim ends up on top
	order := []int{0, 2, 1}
	for _, i := range order {
		p := positions[i]
		d.AddClaim(store.ClaimRecord{
			ID:                "claim-" + p.ID[len("stake-"):],
			OfferID:           p.OfferID,
			ProjectName:       p.ProjectName,
			TokenSymbol:       p.TokenSymbol,
			ChainName:         p.ChainName,
			ClaimedAmount:     p.StakedAmount,
			ClaimDate:         p.StakingStartDate,
			TxHash:            hashes[i],
			WasStaked:         true,
			StakingPositionID: p.ID,
		})
	}
}
