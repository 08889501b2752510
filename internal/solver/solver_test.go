package solver

import (
	"testing"
)

func TestSolveFindsKnownSolvableSets(t *testing.T) {
	s := New()

	cases := [][4]int{
		{1, 2, 3, 4},
		{4, 6, 1, 1},
		{2, 2, 6, 6},
		{3, 3, 8, 8}, // requires fractional intermediates
		{5, 5, 5, 1},
		{13, 12, 1, 1},
	}
	for _, numbers := range cases {
		expr, ok := s.Solve(numbers, 24)
		if !ok {
			t.Errorf("Solve(%v, 24) = not solvable, want a solution", numbers)
			continue
		}
		if expr == "" {
			t.Errorf("Solve(%v, 24) returned ok with empty expression", numbers)
		}
	}
}

func TestSolveRejectsUnsolvableSets(t *testing.T) {
	s := New()

	cases := [][4]int{
		{1, 1, 1, 1},
		{13, 13, 13, 13},
	}
	for _, numbers := range cases {
		if expr, ok := s.Solve(numbers, 24); ok {
			t.Errorf("Solve(%v, 24) = %q, want not solvable", numbers, expr)
		}
	}
}

func TestIsSolvableAgreesWithSolve(t *testing.T) {
	s := New()

	for _, numbers := range [][4]int{{1, 2, 3, 4}, {1, 1, 1, 1}, {3, 3, 8, 8}} {
		_, ok := s.Solve(numbers, 24)
		if got := s.IsSolvable(numbers, 24); got != ok {
			t.Errorf("IsSolvable(%v, 24) = %v, Solve says %v", numbers, got, ok)
		}
	}
}

func TestSolveHonorsTarget(t *testing.T) {
	s := New()

	if _, ok := s.Solve([4]int{2, 2, 2, 2}, 16); !ok {
		t.Errorf("Solve({2,2,2,2}, 16) = not solvable, want 2*2*2*2")
	}
	if expr, ok := s.Solve([4]int{1, 1, 1, 1}, 4); !ok {
		t.Errorf("Solve({1,1,1,1}, 4) = not solvable, want 1+1+1+1")
	} else if expr == "" {
		t.Errorf("Solve({1,1,1,1}, 4) returned empty expression")
	}
}
