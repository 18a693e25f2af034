package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := Wrap(Dimension, "vector mismatch", fmt.Errorf("inner"))
	if !errors.Is(err, New(Dimension, "")) {
		t.Fatal("expected errors.Is to match on code")
	}
	if errors.Is(err, New(Capacity, "")) {
		t.Fatal("expected errors.Is to reject differing code")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(Io, "checkpoint failed", cause)
	if errors.Unwrap(err) != cause {
		t.Fatal("expected Unwrap to return cause")
	}
}

func TestCodeString(t *testing.T) {
	if Dimension.String() != "Dimension" {
		t.Fatalf("unexpected string: %s", Dimension.String())
	}
}
