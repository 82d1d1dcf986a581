// Package store provides the data models shared by the claim engine.
package store

import "time"

// Duration is a staking lock period.
type Duration string

// Supported lock periods.
const (
	Duration1M Duration = "1M"
	Duration3M Duration = "3M"
	Duration6M Duration = "6M"
)

// DisplayName returns the human-readable form of a lock period.
func (d Duration) DisplayName() string {
	switch d {
	case Duration1M:
		return "1 month"
	case Duration3M:
		return "3 months"
	case Duration6M:
		return "6 months"
	default:
		return string(d)
	}
}

// StakingOption is one lock period an offer can be staked for.
type StakingOption struct {
	Duration    Duration `json:"duration" yaml:"duration"`
	APR         float64  `json:"apr" yaml:"apr"`
	DisplayName string   `json:"displayName" yaml:"displayName"`
}

// OnChainStaking describes a stake that already exists for an offer.
type OnChainStaking struct {
	StakedAmount     float64 `json:"stakedAmount" yaml:"stakedAmount"`
	StakingAPR       float64 `json:"stakingApr" yaml:"stakingApr"`
	LockDuration     string  `json:"lockDuration" yaml:"lockDuration"`
	UnlockDate       string  `json:"unlockDate" yaml:"unlockDate"`
	EstimatedRewards float64 `json:"estimatedRewards" yaml:"estimatedRewards"`
	AccruedRewards   float64 `json:"accruedRewards" yaml:"accruedRewards"`
}

// Offer is a single airdrop entry in the catalog.
type Offer struct {
	// ID uniquely identifies the offer within a catalog
	ID string `json:"id" yaml:"id"`

	// ProjectName is the issuing project
	ProjectName string `json:"projectName" yaml:"projectName"`

	// Chain is the chain the token lives on (also drives mock success rates)
	Chain string `json:"chain" yaml:"chain"`

	// Token is the token symbol, e.g. $ENSO
	Token string `json:"token" yaml:"token"`

	// Amount is the fixed claimable quantity
	Amount float64 `json:"amount" yaml:"amount"`

	// Claimable is false for already-staked or not-yet-eligible offers
	Claimable bool `json:"claimable" yaml:"claimable"`

	StakingOptions []StakingOption `json:"stakingOptions" yaml:"stakingOptions"`

	TGEDate        string          `json:"tgeDate,omitempty" yaml:"tgeDate,omitempty"`
	AlreadyStaked  bool            `json:"alreadyStaked,omitempty" yaml:"alreadyStaked,omitempty"`
	OnChainStaking *OnChainStaking `json:"onChainStaking,omitempty" yaml:"onChainStaking,omitempty"`

	// USDValue and EstimatedGas are only populated for legacy chain rewards
	USDValue     float64 `json:"usdValue,omitempty" yaml:"usdValue,omitempty"`
	EstimatedGas float64 `json:"estimatedGas,omitempty" yaml:"estimatedGas,omitempty"`
}

// Option returns the staking option for the given duration, if offered.
func (o Offer) Option(d Duration) (StakingOption, bool) {
	for _, opt := range o.StakingOptions {
		if opt.Duration == d {
			return opt, true
		}
	}
	return StakingOption{}, false
}

// StakingDecision is a user's choice to stake (or not) a selected offer.
// Duration, APR and EstimatedRewards are only set when WillStake is true.
type StakingDecision struct {
	OfferID          string   `json:"offerId"`
	WillStake        bool     `json:"willStake"`
	Duration         Duration `json:"duration,omitempty"`
	APR              float64  `json:"apr,omitempty"`
	EstimatedRewards float64  `json:"estimatedRewards,omitempty"`
}

// SettlementResult is the outcome of settling one offer.
type SettlementResult struct {
	OfferID string `json:"offerId"`
	Success bool   `json:"success"`
	Claimed bool   `json:"claimed"`
	Staked  bool   `json:"staked"`

	// TxHash is synthetic and has no on-chain meaning
	TxHash string `json:"txHash,omitempty"`
	Error  string `json:"error,omitempty"`
}

// WalletState is a point-in-time view of the wallet session.
// An empty Address means no address is attached.
type WalletState struct {
	Connected  bool   `json:"connected"`
	Address    string `json:"address,omitempty"`
	Connecting bool   `json:"connecting"`
}

// Position statuses
const (
	PositionLocked   = "locked"
	PositionUnlocked = "unlocked"
	PositionClaimed  = "claimed"
)

// StakedPosition is a staked amount locked until UnlockDate.
type StakedPosition struct {
	ID               string    `json:"id"`
	OfferID          string    `json:"offerId"`
	ProjectName      string    `json:"projectName"`
	TokenSymbol      string    `json:"tokenSymbol"`
	ChainName        string    `json:"chainName"`
	StakedAmount     float64   `json:"stakedAmount"`
	StakingAPR       float64   `json:"stakingApr"`
	LockDuration     Duration  `json:"lockDuration"`
	StakingStartDate time.Time `json:"stakingStartDate"`
	UnlockDate       time.Time `json:"unlockDate"`
	EstimatedRewards float64   `json:"estimatedRewards"`
	AccruedRewards   float64   `json:"accruedRewards"`
	Status           string    `json:"status"`
}

// ClaimRecord is one entry in the claim history.
type ClaimRecord struct {
	ID                string    `json:"id"`
	OfferID           string    `json:"offerId"`
	ProjectName       string    `json:"projectName"`
	TokenSymbol       string    `json:"tokenSymbol"`
	ChainName         string    `json:"chainName"`
	ClaimedAmount     float64   `json:"claimedAmount"`
	ClaimDate         time.Time `json:"claimDate"`
	TxHash            string    `json:"txHash"`
	WasStaked         bool      `json:"wasStaked"`
	StakingPositionID string    `json:"stakingPositionId,omitempty"`
}
