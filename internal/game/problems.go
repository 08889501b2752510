package game

import (
	"log"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/scythe504/race24-backend/internal"
)

// Oracle is the puzzle-solving collaborator: given four numbers and a
// target it reports solvability and one canonical solution. Implementations
// must be pure and safe for concurrent use.
type Oracle interface {
	IsSolvable(numbers [4]int, target int) bool
	Solve(numbers [4]int, target int) (string, bool)
}

// GenerateProblems produces count solvable problems with distinct number
// multisets, retrying random draws until the attempt budget runs out. It
// returns ErrProblemGeneration only when not a single problem could be
// produced; a short set is accepted with a warning, matching the bounded
// retry-with-budget contract.
func GenerateProblems(oracle Oracle, rng *rand.Rand, count, target, maxAttempts int) ([]internal.Problem, error) {
	problems := make([]internal.Problem, 0, count)
	usedMultisets := make(map[[4]int]bool)
	attempts := 0

	for len(problems) < count && attempts < maxAttempts {
		attempts++

		var numbers [4]int
		for i := range numbers {
			numbers[i] = internal.ProblemNumberMin + rng.Intn(internal.ProblemNumberMax-internal.ProblemNumberMin+1)
		}

		key := multisetKey(numbers)
		if usedMultisets[key] {
			continue
		}

		solution, ok := oracle.Solve(numbers, target)
		if !ok {
			continue
		}

		problems = append(problems, internal.Problem{
			ID:                uuid.New(),
			Numbers:           numbers,
			CanonicalSolution: solution,
		})
		usedMultisets[key] = true
	}

	if len(problems) == 0 {
		return nil, ErrProblemGeneration
	}
	if len(problems) < count {
		log.Printf("[GenerateProblems] only generated %d/%d problems after %d attempts", len(problems), count, attempts)
	}
	return problems, nil
}

func multisetKey(numbers [4]int) [4]int {
	key := numbers
	sort.Ints(key[:])
	return key
}
