// Package solver implements the arithmetic puzzle oracle: a bounded
// brute-force search that combines four numbers into a target value using
// +, -, * and /. It is pure and safe for concurrent use.
package solver

import (
	"fmt"
	"math"
)

const epsilon = 1e-6

type Solver struct{}

func New() *Solver {
	return &Solver{}
}

// IsSolvable reports whether the four numbers can reach the target.
func (s *Solver) IsSolvable(numbers [4]int, target int) bool {
	_, ok := s.Solve(numbers, target)
	return ok
}

// Solve returns one canonical solution expression, preferring solutions
// whose intermediate results never go negative. The boolean is false when
// no combination of the four numbers reaches the target.
func (s *Solver) Solve(numbers [4]int, target int) (string, bool) {
	terms := make([]term, 0, 4)
	for _, n := range numbers {
		terms = append(terms, term{value: float64(n), expr: fmt.Sprintf("%d", n)})
	}

	if expr, ok := reduce(terms, float64(target), false); ok {
		return expr, true
	}
	// Fall back to solutions that pass through negative intermediates.
	if expr, ok := reduce(terms, float64(target), true); ok {
		return expr, true
	}
	return "", false
}

type term struct {
	value float64
	expr  string
}

// reduce repeatedly replaces a pair of terms with the result of one
// operation until a single term remains, backtracking over every pairing
// and operator.
func reduce(terms []term, target float64, allowNegative bool) (string, bool) {
	if len(terms) == 1 {
		if math.Abs(terms[0].value-target) < epsilon {
			return terms[0].expr, true
		}
		return "", false
	}

	for i := 0; i < len(terms); i++ {
		for j := 0; j < len(terms); j++ {
			if i == j {
				continue
			}
			a, b := terms[i], terms[j]

			rest := make([]term, 0, len(terms)-1)
			for k, t := range terms {
				if k != i && k != j {
					rest = append(rest, t)
				}
			}

			for _, combined := range combine(a, b) {
				if !allowNegative && combined.value < -epsilon {
					continue
				}
				next := append(rest[:len(rest):len(rest)], combined)
				if expr, ok := reduce(next, target, allowNegative); ok {
					return expr, true
				}
			}
		}
	}
	return "", false
}

func combine(a, b term) []term {
	out := []term{
		{value: a.value + b.value, expr: fmt.Sprintf("(%s + %s)", a.expr, b.expr)},
		{value: a.value - b.value, expr: fmt.Sprintf("(%s - %s)", a.expr, b.expr)},
		{value: a.value * b.value, expr: fmt.Sprintf("(%s * %s)", a.expr, b.expr)},
	}
	if math.Abs(b.value) > epsilon {
		out = append(out, term{value: a.value / b.value, expr: fmt.Sprintf("(%s / %s)", a.expr, b.expr)})
	}
	return out
}
