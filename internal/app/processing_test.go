package app

import (
	"context"
	"testing"
	"time"
)

func TestMemoryProcessingFlagExclusivity(t *testing.T) {
	flag := NewMemoryProcessingFlag()
	ctx := context.Background()

	ok, err := flag.Acquire(ctx, "cust_42", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, got ok=%t err=%v", ok, err)
	}
	ok, err = flag.Acquire(ctx, "cust_42", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second acquire to be rejected, got ok=%t err=%v", ok, err)
	}

	// A different customer is unaffected.
	ok, err = flag.Acquire(ctx, "cust_99", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected other customer's acquire to succeed, got ok=%t err=%v", ok, err)
	}

	if err := flag.Release(ctx, "cust_42"); err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
	ok, err = flag.Acquire(ctx, "cust_42", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected acquire after release to succeed, got ok=%t err=%v", ok, err)
	}
}

func TestMemoryProcessingFlagExpires(t *testing.T) {
	flag := NewMemoryProcessingFlag()
	ctx := context.Background()

	ok, err := flag.Acquire(ctx, "cust_42", 10*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("expected acquire to succeed, got ok=%t err=%v", ok, err)
	}

	time.Sleep(20 * time.Millisecond)

	// The TTL bounds how long an orphaned flag can block the customer.
	ok, err = flag.Acquire(ctx, "cust_42", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected acquire after expiry to succeed, got ok=%t err=%v", ok, err)
	}
}
