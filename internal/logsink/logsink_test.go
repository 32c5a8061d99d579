package logsink

import "testing"

func TestConsoleSinkLevelFiltering(t *testing.T) {
	s := NewConsoleSink(Warn)
	if s.Enabled(L2, Debug) {
		t.Fatalf("expected Debug disabled at global Warn level")
	}
	if !s.Enabled(L2, Error) {
		t.Fatalf("expected Error enabled at global Warn level")
	}
	s.SetCategoryLevel(L2, Trace)
	if !s.Enabled(L2, Trace) {
		t.Fatalf("expected Trace enabled after per-category override")
	}
	if s.Enabled(STP(), Trace) {
		t.Fatalf("expected other categories to stay at global level")
	}
}

// STP is a tiny helper so the test reads naturally without importing
// the stp package (which would create an import cycle risk); it just
// returns a Category value.
func STP() Category { return Category("STP-LIKE") }

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	if s.Enabled(System, Fatal) {
		t.Fatalf("NopSink should never be enabled")
	}
	s.Log(System, Fatal, "should not panic %d", 1)
}
