package grid

import (
	"testing"
)

func TestSelection_ResetPerGeneration(t *testing.T) {
	var s Selection

	s.Reset(1, 5)
	if idx, ok := s.Index(); !ok || idx != 0 {
		t.Errorf("non-empty stream selection = %d, %v; want 0, true", idx, ok)
	}

	s.Select(1, 4)
	s.Reset(2, 3)
	if idx, ok := s.Index(); !ok || idx != 0 {
		t.Errorf("selection after new stream = %d, %v; want 0, true", idx, ok)
	}

	s.Reset(3, 0)
	if _, ok := s.Index(); ok {
		t.Error("empty stream should have no selection")
	}
}

func TestSelection_SelectRejectsOtherGenerations(t *testing.T) {
	var s Selection
	s.Reset(7, 10)

	tests := []struct {
		name string
		gen  uint64
		idx  int
		want bool
	}{
		{"current generation", 7, 3, true},
		{"stale generation", 6, 2, false},
		{"past end", 7, 10, false},
		{"negative", 7, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Select(tt.gen, tt.idx); got != tt.want {
				t.Errorf("Select(%d, %d) = %v, want %v", tt.gen, tt.idx, got, tt.want)
			}
		})
	}

	if idx, _ := s.Index(); idx != 3 {
		t.Errorf("rejected selects changed index to %d", idx)
	}
}

func TestSelection_Move(t *testing.T) {
	var s Selection
	s.Reset(1, 4)

	s.Move(-1)
	if idx, _ := s.Index(); idx != 0 {
		t.Errorf("Move(-1) from 0 = %d", idx)
	}
	s.Move(10)
	if idx, _ := s.Index(); idx != 3 {
		t.Errorf("Move(10) = %d, want 3", idx)
	}
	s.Home()
	if idx, _ := s.Index(); idx != 0 {
		t.Errorf("Home() = %d", idx)
	}
	s.End()
	if idx, _ := s.Index(); idx != 3 {
		t.Errorf("End() = %d", idx)
	}

	var empty Selection
	empty.Reset(2, 0)
	empty.Move(1)
	empty.End()
	if _, ok := empty.Index(); ok {
		t.Error("moving in an empty stream selected something")
	}
}
