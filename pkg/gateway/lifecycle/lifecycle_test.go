package lifecycle

import (
	"testing"
	"time"
)

func TestZeroValueIsNotDraining(t *testing.T) {
	var lc Lifecycle
	if lc.Draining() {
		t.Error("zero value reports draining")
	}
	if _, ok := lc.DrainingSince(); ok {
		t.Error("zero value reports a drain start time")
	}
}

func TestBeginDrainRecordsFirstStart(t *testing.T) {
	var lc Lifecycle
	before := time.Now()
	lc.BeginDrain()

	if !lc.Draining() {
		t.Fatal("not draining after BeginDrain")
	}
	first, ok := lc.DrainingSince()
	if !ok {
		t.Fatal("DrainingSince not set")
	}
	if first.Before(before.Add(-time.Second)) || first.After(time.Now().Add(time.Second)) {
		t.Errorf("drain start %v out of range", first)
	}

	// A repeated call must not move the recorded start.
	lc.BeginDrain()
	if again, _ := lc.DrainingSince(); !again.Equal(first) {
		t.Errorf("drain start moved from %v to %v", first, again)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var lc *Lifecycle
	lc.BeginDrain()
	if lc.Draining() {
		t.Error("nil receiver reports draining")
	}
}
