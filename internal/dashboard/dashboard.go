// Package dashboard tracks staked positions and the claim history built up
// by settled batches.
package dashboard

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tgeclaim/engine/internal/rewards"
	"github.com/tgeclaim/engine/internal/store"
)

var (
	// ErrUnknownPosition is returned for a position ID that does not exist.
	ErrUnknownPosition = errors.New("unknown staking position")
	// ErrPositionLocked is returned when claiming a position before unlock.
	ErrPositionLocked = errors.New("staking position is still locked")
)

// Data is a point-in-time view of the dashboard.
type Data struct {
	TotalStakedValue    float64                `json:"totalStakedValue"`
	TotalPendingRewards float64                `json:"totalPendingRewards"`
	ActivePositions     []store.StakedPosition `json:"activePositions"`
	UnlockedPositions   []store.StakedPosition `json:"unlockedPositions"`
	ClaimHistory        []store.ClaimRecord    `json:"claimHistory"`
}

// Remaining is the time left until a position unlocks.
type Remaining struct {
	Days       int  `json:"days"`
	Hours      int  `json:"hours"`
	Minutes    int  `json:"minutes"`
	IsUnlocked bool `json:"isUnlocked"`
}

// TimeRemaining splits the time until unlock into days, hours and minutes.
func TimeRemaining(unlock, now time.Time) Remaining {
	diff := unlock.Sub(now)
	if diff <= 0 {
		return Remaining{IsUnlocked: true}
	}
	return Remaining{
		Days:    int(diff / (24 * time.Hour)),
		Hours:   int(diff % (24 * time.Hour) / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
	}
}

// HashFunc produces a synthetic transaction hash for identity.
type HashFunc func(identity string) string

// Dashboard owns staked positions and the claim history.
type Dashboard struct {
	now  func() time.Time
	hash HashFunc

	mu        sync.RWMutex
	positions []store.StakedPosition
	history   []store.ClaimRecord
}

// New creates an empty dashboard.
func New(now func() time.Time, hash HashFunc) *Dashboard {
	if now == nil {
		now = time.Now
	}
	return &Dashboard{
		now:  now,
		hash: hash,
	}
}

// Data returns the dashboard with position statuses derived from the
// current time. Newest history entries come first.
func (d *Dashboard) Data() Data {
	d.mu.RLock()
	defer d.mu.RUnlock()

	now := d.now()
	data := Data{
		ActivePositions:   []store.StakedPosition{},
		UnlockedPositions: []store.StakedPosition{},
		ClaimHistory:      slices.Clone(d.history),
	}
	if data.ClaimHistory == nil {
		data.ClaimHistory = []store.ClaimRecord{}
	}

	var staked, pending []float64
	for _, p := range d.positions {
		if p.Status == store.PositionClaimed {
			continue
		}
		if TimeRemaining(p.UnlockDate, now).IsUnlocked {
			p.Status = store.PositionUnlocked
			data.UnlockedPositions = append(data.UnlockedPositions, p)
			continue
		}
		p.Status = store.PositionLocked
		data.ActivePositions = append(data.ActivePositions, p)
		staked = append(staked, p.StakedAmount)
		pending = append(pending, p.AccruedRewards)
	}

	data.TotalStakedValue = rewards.Sum(staked...)
	data.TotalPendingRewards = rewards.Sum(pending...)
	return data
}

// Refresh recomputes accrued rewards of locked positions.
func (d *Dashboard) Refresh() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for i := range d.positions {
		p := &d.positions[i]
		if p.Status == store.PositionClaimed || !now.Before(p.UnlockDate) {
			continue
		}
		p.AccruedRewards = rewards.Accrued(p.StakedAmount, p.StakingAPR, p.StakingStartDate, now, p.EstimatedRewards)
	}
}

// AddPosition stores a position as-is. It is used to seed existing stakes.
func (d *Dashboard) AddPosition(p store.StakedPosition) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p.ID == "" {
		p.ID = "stake-" + uuid.NewString()
	}
	d.positions = append(d.positions, p)
}

// AddClaim prepends a record to the claim history.
func (d *Dashboard) AddClaim(r store.ClaimRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.ID == "" {
		r.ID = "claim-" + uuid.NewString()
	}
	d.history = append([]store.ClaimRecord{r}, d.history...)
}

// ClaimPosition withdraws an unlocked position with its rewards and
// records the withdrawal in the claim history.
func (d *Dashboard) ClaimPosition(id string) (store.ClaimRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := slices.IndexFunc(d.positions, func(p store.StakedPosition) bool {
		return p.ID == id && p.Status != store.PositionClaimed
	})
	if idx < 0 {
		return store.ClaimRecord{}, fmt.Errorf("%w: %s", ErrUnknownPosition, id)
	}

	p := &d.positions[idx]
	now := d.now()
	if now.Before(p.UnlockDate) {
		return store.ClaimRecord{}, fmt.Errorf("%w: unlocks %s", ErrPositionLocked, p.UnlockDate.Format(time.DateOnly))
	}

	p.Status = store.PositionClaimed
	record := store.ClaimRecord{
		ID:                "reward-claim-" + uuid.NewString(),
		OfferID:           p.OfferID,
		ProjectName:       p.ProjectName,
		TokenSymbol:       p.TokenSymbol,
		ChainName:         p.ChainName,
		ClaimedAmount:     rewards.Sum(p.StakedAmount, p.EstimatedRewards),
		ClaimDate:         now,
		TxHash:            d.hash(p.OfferID),
		WasStaked:         true,
		StakingPositionID: p.ID,
	}
	d.history = append([]store.ClaimRecord{record}, d.history...)

	slog.Info("position_claimed",
		"position", p.ID,
		"offer", p.OfferID,
		"amount", record.ClaimedAmount,
	)
	return record, nil
}

// Record adds the successful items of a settled batch to the history and
// opens a position for every staked item.
func (d *Dashboard) Record(offers []store.Offer, results []store.SettlementResult, decisions map[string]store.StakingDecision) {
	byID := make(map[string]store.Offer, len(offers))
	for _, o := range offers {
		byID[o.ID] = o
	}

	now := d.now()
	for _, r := range results {
		if !r.Success {
			continue
		}
		offer, ok := byID[r.OfferID]
		if !ok {
			continue
		}

		record := store.ClaimRecord{
			ID:            "claim-" + uuid.NewString(),
			OfferID:       offer.ID,
			ProjectName:   offer.ProjectName,
			TokenSymbol:   offer.Token,
			ChainName:     offer.Chain,
			ClaimedAmount: offer.Amount,
			ClaimDate:     now,
			TxHash:        r.TxHash,
			WasStaked:     r.Staked,
		}

		if decision := decisions[offer.ID]; r.Staked && decision.WillStake {
			months, err := rewards.Months(decision.Duration)
			if err != nil {
				slog.Warn("position_skipped", "offer", offer.ID, "error", err)
			} else {
				position := store.StakedPosition{
					ID:               "stake-" + uuid.NewString(),
					OfferID:          offer.ID,
					ProjectName:      offer.ProjectName,
					TokenSymbol:      offer.Token,
					ChainName:        offer.Chain,
					StakedAmount:     offer.Amount,
					StakingAPR:       decision.APR,
					LockDuration:     decision.Duration,
					StakingStartDate: now,
					UnlockDate:       now.AddDate(0, int(months), 0),
					EstimatedRewards: decision.EstimatedRewards,
					Status:           store.PositionLocked,
				}
				record.StakingPositionID = position.ID
				d.AddPosition(position)
			}
		}

		d.AddClaim(record)
	}
}
