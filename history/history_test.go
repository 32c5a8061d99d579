package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndListEvents(t *testing.T) {
	dir := t.TempDir()
	led, err := Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer led.Close()

	runID := NewRunID()
	now := time.Unix(1000, 0)
	if err := led.Record(runID, EventSimStarted, now, "ports=4"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := led.Record(runID, EventSTPRootChange, now.Add(time.Second), "new root=bridge-a"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := led.ListEvents(10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != EventSTPRootChange {
		t.Fatalf("expected most recent first, got %v", events[0].Kind)
	}
}

func TestEventsForRunFiltersByRunID(t *testing.T) {
	dir := t.TempDir()
	led, err := Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer led.Close()

	runA, runB := NewRunID(), NewRunID()
	now := time.Unix(0, 0)
	_ = led.Record(runA, EventSimStarted, now, "")
	_ = led.Record(runB, EventSimStarted, now, "")
	_ = led.Record(runA, EventSimStopped, now, "")

	events, err := led.EventsForRun(runA)
	if err != nil {
		t.Fatalf("EventsForRun: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events for runA, got %d", len(events))
	}
	for _, ev := range events {
		if ev.RunID != runA {
			t.Fatalf("unexpected event from run %q", ev.RunID)
		}
	}
}
