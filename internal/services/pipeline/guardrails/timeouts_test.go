package guardrails

import (
	"context"
	"testing"
	"time"
)

func TestWithRecordAppliesBudget(t *testing.T) {
	ctx, cancel := WithRecord(context.Background(), Timeouts{Record: time.Minute})
	defer cancel()

	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	if until := time.Until(dl); until > time.Minute || until < 50*time.Second {
		t.Fatalf("deadline %v off budget", until)
	}
}

func TestZeroBudgetMeansNoDeadline(t *testing.T) {
	ctx, cancel := ForTransfer(context.Background(), Timeouts{})
	defer cancel()

	if _, ok := ctx.Deadline(); ok {
		t.Fatal("zero budget must not set a deadline")
	}
}

func TestChildNeverExtendsParent(t *testing.T) {
	parent, pcancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer pcancel()

	ctx, cancel := ForQuery(parent, Timeouts{Query: time.Hour})
	defer cancel()

	dl, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline")
	}
	pdl, _ := parent.Deadline()
	if dl.After(pdl) {
		t.Fatalf("child deadline %v extends parent %v", dl, pdl)
	}
}

func TestRemaining(t *testing.T) {
	if got := Remaining(context.Background()); got != 0 {
		t.Fatalf("no deadline should report zero, got %v", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if got := Remaining(ctx); got <= 0 || got > time.Second {
		t.Fatalf("remaining = %v", got)
	}
}
