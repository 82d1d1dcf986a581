// Package selection tracks which offers are chosen for the next batch claim
// and the staking decision attached to each.
package selection

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tgeclaim/engine/internal/rewards"
	"github.com/tgeclaim/engine/internal/store"
)

var (
	// ErrUnknownOffer is returned for an offer ID not in the catalog.
	ErrUnknownOffer = errors.New("unknown offer")
	// ErrMissingStakingField is returned when a stake decision lacks its terms.
	ErrMissingStakingField = errors.New("missing staking field")
	// ErrBusy is returned when a batch is already being processed.
	ErrBusy = errors.New("a claim is already being processed")
)

// Catalog is the subset of the offer catalog the selection needs.
type Catalog interface {
	Has(id string) bool
}

// StakeTerms are the inputs of a staking decision.
type StakeTerms struct {
	Duration  store.Duration
	APR       float64
	Principal float64
}

// Snapshot is an immutable view of the selection state.
type Snapshot struct {
	// Selected holds offer IDs in the order they were selected
	Selected []string

	// Decisions is keyed by offer ID, one per offer
	Decisions map[string]store.StakingDecision

	Processing bool
}

// IsSelected reports whether id is in the selection.
func (s Snapshot) IsSelected(id string) bool {
	return slices.Contains(s.Selected, id)
}

// Decision returns the staking decision recorded for id.
func (s Snapshot) Decision(id string) (store.StakingDecision, bool) {
	d, ok := s.Decisions[id]
	return d, ok
}

func (s Snapshot) clone() Snapshot {
	decisions := make(map[string]store.StakingDecision, len(s.Decisions))
	for k, v := range s.Decisions {
		decisions[k] = v
	}
	return Snapshot{
		Selected:   slices.Clone(s.Selected),
		Decisions:  decisions,
		Processing: s.Processing,
	}
}

// State owns the selection and staking decisions. Every change replaces
// the whole snapshot; readers never observe a partial update.
type State struct {
	catalog Catalog

	mu   sync.RWMutex
	snap Snapshot
}

// NewState creates an empty selection over catalog.
func NewState(catalog Catalog) *State {
	return &State{
		catalog: catalog,
		snap:    Snapshot{Decisions: map[string]store.StakingDecision{}},
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Toggle flips offerID's membership in the selection and reports whether
// it is selected afterwards.
func (s *State) Toggle(offerID string) (bool, error) {
	if !s.catalog.Has(offerID) {
		return false, fmt.Errorf("%w: %s", ErrUnknownOffer, offerID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.clone()
	if idx := slices.Index(next.Selected, offerID); idx >= 0 {
		next.Selected = slices.Delete(next.Selected, idx, idx+1)
	} else {
		next.Selected = append(next.Selected, offerID)
	}
	selected := next.IsSelected(offerID)
	s.snap = next

	return selected, nil
}

// SetStakingDecision records a decision for offerID, replacing any earlier
// one. When willStake is true, terms must carry a duration; the estimated
// reward is computed now and not recomputed later. When willStake is false
// terms are ignored and the stored decision carries no terms.
func (s *State) SetStakingDecision(offerID string, willStake bool, terms *StakeTerms) (store.StakingDecision, error) {
	if !s.catalog.Has(offerID) {
		return store.StakingDecision{}, fmt.Errorf("%w: %s", ErrUnknownOffer, offerID)
	}

	decision := store.StakingDecision{OfferID: offerID}

	if willStake {
		if terms == nil {
			return store.StakingDecision{}, fmt.Errorf("%w: duration, apr and principal are required", ErrMissingStakingField)
		}
		if terms.Duration == "" {
			return store.StakingDecision{}, fmt.Errorf("%w: duration", ErrMissingStakingField)
		}

		estimated, err := rewards.EstimateReward(terms.Principal, terms.APR, terms.Duration)
		if err != nil {
			return store.StakingDecision{}, err
		}

		decision.WillStake = true
		decision.Duration = terms.Duration
		decision.APR = terms.APR
		decision.EstimatedRewards = estimated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.clone()
	next.Decisions[offerID] = decision
	s.snap = next

	return decision, nil
}

// BeginProcessing marks a batch as in flight. It fails with ErrBusy when
// one already is.
func (s *State) BeginProcessing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.Processing {
		return ErrBusy
	}
	next := s.snap.clone()
	next.Processing = true
	s.snap = next
	return nil
}

// EndProcessing clears the in-flight flag.
func (s *State) EndProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.clone()
	next.Processing = false
	s.snap = next
}

// Reset clears the selection and all decisions.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{Decisions: map[string]store.StakingDecision{}}
}
