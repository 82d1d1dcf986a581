package catalog

import "github.com/tgeclaim/engine/internal/store"

// MockWalletAddress is the address attached by the mock wallet connector.
const MockWalletAddress = "0xABCD...1234"

func options(apr1, apr3, apr6 float64) []store.StakingOption {
	return []store.StakingOption{
		{Duration: store.Duration1M, APR: apr1, DisplayName: "1 month"},
		{Duration: store.Duration3M, APR: apr3, DisplayName: "3 months"},
		{Duration: store.Duration6M, APR: apr6, DisplayName: "6 months"},
	}
}

// TGEOffers returns the built-in TGE airdrop offers.
func TGEOffers() []store.Offer {
	return []store.Offer{
		{
			ID:             "enso-chain",
			ProjectName:    "ENSO",
			Chain:          "ENSO",
			Token:          "$ENSO",
			Amount:         85,
			Claimable:      true,
			TGEDate:        "2025-10-01",
			StakingOptions: options(6, 12, 18),
		},
		{
			ID:            "plasma-chain",
			ProjectName:   "Plasma",
			Chain:         "Plasma",
			Token:         "$XPL",
			Amount:        0,
			Claimable:     false,
			TGEDate:       "2025-09-25",
			AlreadyStaked: true,
			OnChainStaking: &store.OnChainStaking{
				StakedAmount:     500,
				StakingAPR:       12,
				LockDuration:     "6 months",
				UnlockDate:       "2025-03-25",
				EstimatedRewards: 30,
				AccruedRewards:   15.5,
			},
			StakingOptions: options(4, 8, 12),
		},
		{
			ID:             "allora-cosmos",
			ProjectName:    "Allora Network",
			Chain:          "COSMOS L1",
			Token:          "$ALLO",
			Amount:         230,
			Claimable:      true,
			TGEDate:        "2025-10-15",
			StakingOptions: options(3, 6, 9),
		},
		{
			ID:             "mira-multichain",
			ProjectName:    "Mira Network",
			Chain:          "BSC, Base",
			Token:          "$MIRA",
			Amount:         0,
			Claimable:      false,
			TGEDate:        "2025-09-26",
			StakingOptions: options(5, 10, 15),
		},
		{
			ID:             "opensea-ethereum",
			ProjectName:    "Opensea",
			Chain:          "Ethereum",
			Token:          "$SEA",
			Amount:         120,
			Claimable:      true,
			TGEDate:        "2025-11-01",
			StakingOptions: options(4, 8, 14),
		},
	}
}

// LegacyRewards returns the per-chain rewards of the older multi-chain
// claim flow. The offer ID is the chain ID.
func LegacyRewards() []store.Offer {
	return []store.Offer{
		{
			ID:           "zksync",
			ProjectName:  "zkSync",
			Chain:        "zksync",
			Token:        "ZK",
			Amount:       120,
			Claimable:    true,
			USDValue:     240.5,
			EstimatedGas: 15,
		},
		{
			ID:          "base",
			ProjectName: "Base",
			Chain:       "base",
			Token:       "BASE",
			Amount:      0,
			Claimable:   false,
		},
		{
			ID:           "linea",
			ProjectName:  "Linea",
			Chain:        "linea",
			Token:        "LIN",
			Amount:       45,
			Claimable:    true,
			USDValue:     85.3,
			EstimatedGas: 12,
		},
	}
}

// Default returns the built-in TGE catalog.
func Default() *Catalog {
	c, err := New(TGEOffers())
	if err != nil {
		panic(err)
	}
	return c
}

// Legacy returns the built-in legacy chain catalog.
func Legacy() *Catalog {
	c, err := New(LegacyRewards())
	if err != nil {
		panic(err)
	}
	return c
}
