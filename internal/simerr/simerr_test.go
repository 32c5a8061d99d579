package simerr

import (
	"errors"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := New("packetbuf", "Resize", OutOfBounds, "offset 10 exceeds capacity 4")
	want := "packetbuf: Resize: out of bounds: offset 10 exceeds capacity 4"
	if got := e.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap("routing", "Add", ResourceExhausted, cause)
	if !errors.Is(e, cause) {
		t.Fatalf("expected wrapped cause to satisfy errors.Is")
	}
	if got := Of(e); got != ResourceExhausted {
		t.Fatalf("Of() = %v, want %v", got, ResourceExhausted)
	}
}

func TestSentinelIs(t *testing.T) {
	err := New("stp", "Enable", AlreadyInitialized, "")
	if !errors.Is(err, Sentinel(AlreadyInitialized)) {
		t.Fatalf("expected Is to match sentinel of same kind")
	}
	if errors.Is(err, Sentinel(NotFound)) {
		t.Fatalf("expected Is to not match sentinel of different kind")
	}
}

func TestOfUnknownForPlainError(t *testing.T) {
	if got := Of(errors.New("plain")); got != UnknownError {
		t.Fatalf("Of() = %v, want UnknownError", got)
	}
}
