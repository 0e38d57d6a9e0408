package core

import (
	"testing"
)

func TestSyncingRejectsImmediately(t *testing.T) {
	sm := NewStateManager()
	res := sm.TryAdmit()
	if res.Admitted || res.Wait != nil {
		t.Fatalf("expected immediate rejection while syncing")
	}
	if res.Err == nil {
		t.Fatalf("expected an error while syncing")
	}
}

func TestActiveAdmitsImmediately(t *testing.T) {
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	res := sm.TryAdmit()
	if !res.Admitted {
		t.Fatalf("expected immediate admission in Active state")
	}
	if sm.InFlight() != 1 {
		t.Fatalf("expected in-flight count 1, got %d", sm.InFlight())
	}
	sm.SignalCompletion()
	if sm.InFlight() != 0 {
		t.Fatalf("expected in-flight count 0 after completion, got %d", sm.InFlight())
	}
}

// TestReOrgCycleReleasesParked covers scenario S5: 3 in-flight requests,
// transition to ReOrgPending, 3x signal completion auto-advances to
// ReOrg, then Transition(Active) releases all parked requests with
// "admit".
func TestReOrgCycleReleasesParked(t *testing.T) {
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition to Active failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if res := sm.TryAdmit(); !res.Admitted {
			t.Fatalf("expected immediate admission %d", i)
		}
	}
	if err := sm.Transition(StateReOrgPending); err != nil {
		t.Fatalf("Transition to ReOrgPending failed: %v", err)
	}

	// New requests park while draining.
	park := sm.TryAdmit()
	if park.Wait == nil {
		t.Fatalf("expected new requests to park during ReOrgPending")
	}

	for i := 0; i < 3; i++ {
		sm.SignalCompletion()
	}
	if sm.State() != StateReOrg {
		t.Fatalf("expected auto-transition to ReOrg once in-flight hit zero, got %s", sm.State())
	}

	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition to Active failed: %v", err)
	}
	if verdict := <-park.Wait; !verdict {
		t.Fatalf("expected parked request to be released with admit")
	}
}

// TestParkingCapacityEvictsOldest covers invariant 7.
func TestParkingCapacityEvictsOldest(t *testing.T) {
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if err := sm.Transition(StateReOrgPending); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	waits := make([]<-chan bool, 0, parkQueueCapacity+1)
	for i := 0; i < parkQueueCapacity+1; i++ {
		res := sm.TryAdmit()
		if res.Wait == nil {
			t.Fatalf("expected parking at index %d", i)
		}
		waits = append(waits, res.Wait)
	}

	if verdict := <-waits[0]; verdict {
		t.Fatalf("expected the oldest parked entry to be rejected with overflow")
	}
	select {
	case <-waits[1]:
		t.Fatalf("expected later entries to remain parked, not resolved yet")
	default:
	}
}

// TestReOrgPendingWithNoInFlightAdvancesImmediately covers the case where
// Transition(ReOrgPending) is called with nothing in flight: there is no
// SignalCompletion call left to trigger the auto-advance, so the manager
// must advance to ReOrg itself instead of stalling in ReOrgPending.
func TestReOrgPendingWithNoInFlightAdvancesImmediately(t *testing.T) {
	sm := NewStateManager()
	if err := sm.Transition(StateActive); err != nil {
		t.Fatalf("Transition to Active failed: %v", err)
	}
	if err := sm.Transition(StateReOrgPending); err != nil {
		t.Fatalf("Transition to ReOrgPending failed: %v", err)
	}
	if sm.State() != StateReOrg {
		t.Fatalf("expected immediate advance to ReOrg with zero in-flight, got %s", sm.State())
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	sm := NewStateManager()
	if err := sm.Transition(StateReOrg); err == nil {
		t.Fatalf("expected invalid transition from Syncing to ReOrg to fail")
	}
}
