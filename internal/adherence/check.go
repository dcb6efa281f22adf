package adherence

import "fmt"

// Result is the outcome of one adherence check, with the roll retained
// for auditability.
type Result struct {
	Roll   int  `json:"roll"`
	Passed bool `json:"passed"`
}

// Checker rolls against adherence or preference scores.
type Checker struct {
	source RollSource
}

// NewChecker creates a checker using the given roll source.
// A nil source falls back to crypto/rand.
func NewChecker(source RollSource) *Checker {
	if source == nil {
		source = CryptoSource{}
	}
	return &Checker{source: source}
}

// Check rolls 1-100 against the character's adherence score. The check
// passes when roll <= score, so a score of 100 always passes and 0 never
// does.
func (c *Checker) Check(score int) (Result, error) {
	if score < 0 || score > 100 {
		return Result{}, fmt.Errorf("adherence score %d out of range [0,100]", score)
	}
	roll := c.source.Roll()
	return Result{Roll: roll, Passed: roll <= score}, nil
}

// CheckPreference rolls against an externally supplied preference score
// instead of the raw adherence score. Used when the decision is tied to a
// specific attribute preference rather than a generic trust gate.
func (c *Checker) CheckPreference(prefScore int) (Result, error) {
	if prefScore < 0 || prefScore > 100 {
		return Result{}, fmt.Errorf("preference score %d out of range [0,100]", prefScore)
	}
	roll := c.source.Roll()
	return Result{Roll: roll, Passed: roll <= prefScore}, nil
}
