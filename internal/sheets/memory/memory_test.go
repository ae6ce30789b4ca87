package memory

import (
	"context"
	"testing"
)

func TestStoreWriteRows(t *testing.T) {
	s := New()

	ref, err := s.WriteRows(context.Background(), "Invoices", []string{"Number"}, [][]string{{"INV-1"}, {"INV-2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "mem:Invoices!3" {
		t.Fatalf("unexpected ref %q", ref)
	}

	// a second export replaces the first
	if _, err := s.WriteRows(context.Background(), "Invoices", []string{"Number"}, [][]string{{"INV-3"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Sheet("Invoices")
	if len(got) != 2 || got[1][0] != "INV-3" {
		t.Fatalf("unexpected sheet contents: %v", got)
	}
	if s.Writes() != 2 {
		t.Fatalf("expected 2 writes, got %d", s.Writes())
	}

	if _, err := s.WriteRows(context.Background(), "", nil, nil); err == nil {
		t.Fatal("expected error for empty sheet name")
	}
}
