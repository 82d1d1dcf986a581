package selection

import (
	"errors"
	"testing"

	"github.com/tgeclaim/engine/internal/catalog"
	"github.com/tgeclaim/engine/internal/rewards"
	"github.com/tgeclaim/engine/internal/store"
)

func TestToggle(t *testing.T) {
	s := NewState(catalog.Default())

	selected, err := s.Toggle("enso-chain")
	if err != nil || !selected {
		t.Fatalf("Expected enso-chain to be selected, got %v, %v", selected, err)
	}
	if !s.Snapshot().IsSelected("enso-chain") {
		t.Error("Expected snapshot to contain enso-chain")
	}

	// Toggling twice returns to the original state
	selected, err = s.Toggle("enso-chain")
	if err != nil || selected {
		t.Fatalf("Expected enso-chain to be deselected, got %v, %v", selected, err)
	}
	if s.Snapshot().IsSelected("enso-chain") {
		t.Error("Expected snapshot to not contain enso-chain")
	}
	if len(s.Snapshot().Selected) != 0 {
		t.Errorf("Expected empty selection, got %v", s.Snapshot().Selected)
	}
}

func TestToggleUnknownOffer(t *testing.T) {
	s := NewState(catalog.Default())

	if _, err := s.Toggle("nope"); !errors.Is(err, ErrUnknownOffer) {
		t.Errorf("Expected ErrUnknownOffer, got %v", err)
	}
	if len(s.Snapshot().Selected) != 0 {
		t.Error("Expected selection to be unchanged")
	}
}

func TestToggleKeepsSelectionOrder(t *testing.T) {
	s := NewState(catalog.Default())
	s.Toggle("opensea-ethereum")
	s.Toggle("enso-chain")
	s.Toggle("allora-cosmos")
	s.Toggle("enso-chain")

	got := s.Snapshot().Selected
	if len(got) != 2 || got[0] != "opensea-ethereum" || got[1] != "allora-cosmos" {
		t.Errorf("Unexpected selection order: %v", got)
	}
}

func TestSetStakingDecision(t *testing.T) {
	s := NewState(catalog.Default())

	d, err := s.SetStakingDecision("enso-chain", true, &StakeTerms{Duration: store.Duration3M, APR: 12, Principal: 85})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.WillStake || d.Duration != store.Duration3M || d.APR != 12 || d.EstimatedRewards != 2.55 {
		t.Errorf("Unexpected decision: %+v", d)
	}

	// Opting out clears the terms
	d, err = s.SetStakingDecision("enso-chain", false, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, ok := s.Snapshot().Decision("enso-chain")
	if !ok {
		t.Fatal("Expected a stored decision")
	}
	if stored.WillStake || stored.Duration != "" || stored.APR != 0 || stored.EstimatedRewards != 0 {
		t.Errorf("Expected cleared decision, got %+v", stored)
	}
	if d != stored {
		t.Errorf("Returned decision %+v differs from stored %+v", d, stored)
	}
}

func TestSetStakingDecisionLastWriteWins(t *testing.T) {
	s := NewState(catalog.Default())

	s.SetStakingDecision("allora-cosmos", true, &StakeTerms{Duration: store.Duration1M, APR: 3, Principal: 230})
	s.SetStakingDecision("allora-cosmos", true, &StakeTerms{Duration: store.Duration6M, APR: 9, Principal: 230})

	snap := s.Snapshot()
	if len(snap.Decisions) != 1 {
		t.Fatalf("Expected one decision, got %d", len(snap.Decisions))
	}
	d := snap.Decisions["allora-cosmos"]
	if d.Duration != store.Duration6M || d.EstimatedRewards != 10.35 {
		t.Errorf("Expected latest decision to win, got %+v", d)
	}
}

func TestSetStakingDecisionValidation(t *testing.T) {
	s := NewState(catalog.Default())

	if _, err := s.SetStakingDecision("enso-chain", true, nil); !errors.Is(err, ErrMissingStakingField) {
		t.Errorf("Expected ErrMissingStakingField, got %v", err)
	}
	if _, err := s.SetStakingDecision("enso-chain", true, &StakeTerms{APR: 12, Principal: 85}); !errors.Is(err, ErrMissingStakingField) {
		t.Errorf("Expected ErrMissingStakingField for missing duration, got %v", err)
	}
	if _, err := s.SetStakingDecision("enso-chain", true, &StakeTerms{Duration: "9M", APR: 12, Principal: 85}); !errors.Is(err, rewards.ErrInvalidDuration) {
		t.Errorf("Expected ErrInvalidDuration, got %v", err)
	}
	if _, err := s.SetStakingDecision("ghost", false, nil); !errors.Is(err, ErrUnknownOffer) {
		t.Errorf("Expected ErrUnknownOffer, got %v", err)
	}

	if len(s.Snapshot().Decisions) != 0 {
		t.Error("Expected rejected decisions not to be stored")
	}
}

func TestDecisionSurvivesDeselect(t *testing.T) {
	s := NewState(catalog.Default())
	s.Toggle("enso-chain")
	s.SetStakingDecision("enso-chain", true, &StakeTerms{Duration: store.Duration3M, APR: 12, Principal: 85})
	s.Toggle("enso-chain")

	if _, ok := s.Snapshot().Decision("enso-chain"); !ok {
		t.Error("Expected decision to be kept after deselecting")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewState(catalog.Default())
	s.Toggle("enso-chain")

	snap := s.Snapshot()
	snap.Selected[0] = "tampered"
	snap.Decisions["enso-chain"] = store.StakingDecision{OfferID: "enso-chain", WillStake: true}

	fresh := s.Snapshot()
	if fresh.Selected[0] != "enso-chain" {
		t.Error("Expected internal selection to be unaffected")
	}
	if _, ok := fresh.Decisions["enso-chain"]; ok {
		t.Error("Expected internal decisions to be unaffected")
	}
}

func TestProcessingGuard(t *testing.T) {
	s := NewState(catalog.Default())

	if err := s.BeginProcessing(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.BeginProcessing(); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	s.EndProcessing()
	if err := s.BeginProcessing(); err != nil {
		t.Errorf("Expected processing to be available again, got %v", err)
	}
}

func TestReset(t *testing.T) {
	s := NewState(catalog.Default())
	s.Toggle("enso-chain")
	s.SetStakingDecision("enso-chain", false, nil)
	s.BeginProcessing()

	s.Reset()
	snap := s.Snapshot()
	if len(snap.Selected) != 0 || len(snap.Decisions) != 0 || snap.Processing {
		t.Errorf("Expected empty state after reset, got %+v", snap)
	}
}
