package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormattingIncludesOpCodeAndOrders(t *testing.T) {
	err := New(
		"engine/finalize",
		CodeInfeasible,
		WithMessage("orders left unpaid after all phases"),
		WithOrderIDs("ORDER3", "ORDER7"),
		WithCause(errors.New("capacity exhausted")),
	)

	out := err.Error()
	if !strings.Contains(out, "op=engine/finalize") {
		t.Fatalf("expected op marker in error string: %s", out)
	}
	if !strings.Contains(out, "code=infeasible_allocation") {
		t.Fatalf("expected code marker in error string: %s", out)
	}
	if !strings.Contains(out, "orders=ORDER3,ORDER7") {
		t.Fatalf("expected order ids in error string: %s", out)
	}
	if !strings.Contains(out, `cause="capacity exhausted"`) {
		t.Fatalf("expected cause in error string: %s", out)
	}
}

func TestWithOrderIDsSkipsBlankEntries(t *testing.T) {
	err := New("loader/orders", CodeDuplicateID, WithOrderIDs("  ", "ORDER1", ""))
	if len(err.OrderIDs) != 1 || err.OrderIDs[0] != "ORDER1" {
		t.Fatalf("unexpected order ids: %v", err.OrderIDs)
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := New("engine/phase3", CodeTimeout, WithCause(cause))
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match the cause")
	}
}

func TestIsCodeMatchesWrappedEnvelope(t *testing.T) {
	inner := New("loader/instruments", CodeValidation, WithMessage("discount out of range"))
	wrapped := fmt.Errorf("load instruments: %w", inner)

	if !IsCode(wrapped, CodeValidation) {
		t.Fatalf("expected IsCode to match wrapped envelope")
	}
	if IsCode(wrapped, CodeTimeout) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(errors.New("plain"), CodeValidation) {
		t.Fatalf("plain errors must not match")
	}
}

func TestNilEnvelopeFormatsSafely(t *testing.T) {
	var e *E
	if got := e.Error(); got != "<nil>" {
		t.Fatalf("unexpected nil formatting: %s", got)
	}
}
