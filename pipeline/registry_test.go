package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryRejectsSecondRun(t *testing.T) {
	r := NewRegistry()
	_, release, err := r.Acquire(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, _, err := r.Acquire(context.Background(), "s1"); !errors.Is(err, ErrGenerationInProgress) {
		t.Fatalf("second Acquire() error = %v, want ErrGenerationInProgress", err)
	}
	if _, rel2, err := r.Acquire(context.Background(), "s2"); err != nil {
		t.Fatalf("other series should not be blocked: %v", err)
	} else {
		rel2()
	}

	release()
	release()
	if r.Active("s1") {
		t.Fatal("slot still held after release")
	}
	if _, rel, err := r.Acquire(context.Background(), "s1"); err != nil {
		t.Fatalf("re-acquire error = %v", err)
	} else {
		rel()
	}
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()
	if r.Cancel("missing") {
		t.Fatal("Cancel on idle series should report false")
	}
	ctx, release, _ := r.Acquire(context.Background(), "s1")
	defer release()

	if !r.Cancel("s1") {
		t.Fatal("Cancel should find the live run")
	}
	select {
	case <-ctx.Done():
	default:
		t.Fatal("run context not canceled")
	}
}
