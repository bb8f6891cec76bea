package errs

import (
	"errors"
	"testing"
)

func TestKindOfWrappedTypedError(t *testing.T) {
	base := Conflict(CodeDuplicateQuote, "contractor %s already quoted", "c-1")
	wrapped := Wrap(Wrap(base, "submit quote"), "handle request")

	if got := KindOf(wrapped); got != KindConflict {
		t.Fatalf("KindOf() = %q, want %q", got, KindConflict)
	}
	if !IsCode(wrapped, CodeDuplicateQuote) {
		t.Fatalf("IsCode() = false, want true for %v", wrapped)
	}
	if IsCode(wrapped, CodeJobNotOpen) {
		t.Fatalf("IsCode(JobNotOpen) = true, want false")
	}
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("KindOf() = %q", got)
	}
	if CodeOf(nil) != "" {
		t.Fatalf("CodeOf(nil) should be empty")
	}
}

func TestNotFoundKeepsCause(t *testing.T) {
	cause := errors.New("record not found")
	err := NotFound(cause, "job %s", "j-1")
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is() = false, want cause in chain")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("KindOf() = %q", KindOf(err))
	}
}

func TestWithStackDoesNotDoubleCapture(t *testing.T) {
	first := WithStack(errors.New("root"))
	second := WithStack(Wrap(first, "outer"))

	var se *StackError
	if !errors.As(second, &se) {
		t.Fatalf("expected StackError in chain")
	}
	if len(se.Stack()) == 0 {
		t.Fatalf("expected captured stack")
	}
	if len(ErrorChainStrings(second)) != 3 {
		t.Fatalf("chain = %#v", ErrorChainStrings(second))
	}
}
