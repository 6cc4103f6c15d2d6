package compstore

import "testing"

func TestSparseSetAddRemove(t *testing.T) {
	s := NewSparseSet[int]()
	for _, k := range []int{10, 20, 30} {
		if err := s.Add(k); err != nil {
			t.Fatalf("Add(%d): %v", k, err)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("expected len 3, got %d", s.Len())
	}
	if err := s.Remove(20); err != nil {
		t.Fatalf("Remove(20): %v", err)
	}
	if s.Contains(20) {
		t.Fatal("20 should have been removed")
	}
	if !s.Contains(10) || !s.Contains(30) {
		t.Fatal("remaining keys should still be present")
	}
	if s.Len() != 2 {
		t.Fatalf("expected len 2 after remove, got %d", s.Len())
	}
}

func TestSparseSetDuplicateAddFails(t *testing.T) {
	s := NewSparseSet[string]()
	if err := s.Add("a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("a"); err == nil {
		t.Fatal("expected error adding duplicate key")
	}
}

func TestSparseSetRemoveMissingFails(t *testing.T) {
	s := NewSparseSet[string]()
	if err := s.Remove("missing"); err == nil {
		t.Fatal("expected error removing absent key")
	}
}
