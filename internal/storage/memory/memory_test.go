package memory

import (
	"context"
	"testing"
)

func TestMemoryStoreLoadAndSave(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, err := s.Load(ctx, "transactions"); ok || err != nil {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	value := []byte(`[]`)
	if err := s.Save(ctx, "transactions", value); err != nil {
		t.Fatalf("save: %v", err)
	}
	value[0] = 'x' // caller's buffer must not alias the stored one

	got, ok, err := s.Load(ctx, "transactions")
	if err != nil || !ok || string(got) != "[]" {
		t.Fatalf("unexpected load: %q ok=%v err=%v", got, ok, err)
	}

	if err := s.Save(ctx, "transactions", []byte(`[1]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _, _ = s.Load(ctx, "transactions")
	if string(got) != "[1]" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}
