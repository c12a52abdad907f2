package dice

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression represents a parsed "NdM[+K]" dice expression.
//
// Invariant: Count >= 0; Sides >= 1 whenever Count > 0. "0d0" is the
// empty expression that always totals its modifier.
type Expression struct {
	Raw      string // original input string
	Count    int    // number of dice
	Sides    int    // faces per die
	Modifier int    // flat modifier (may be negative)
}

// IsZero reports whether the expression rolls no dice.
func (e Expression) IsZero() bool { return e.Count == 0 }

// WithCount returns a copy of e rolling count dice of the same size. The raw
// text is rewritten so audit logs show the dice actually rolled.
//
// Precondition: count >= 0.
func (e Expression) WithCount(count int) Expression {
	if count < 0 {
		panic("dice: WithCount called with a negative count")
	}
	e.Count = count
	e.Raw = fmt.Sprintf("%dd%d", count, e.Sides)
	if e.Modifier != 0 {
		e.Raw += fmt.Sprintf("%+d", e.Modifier)
	}
	return e
}

// Parse parses a dice expression string into an Expression.
// Supported forms: "d20", "2d6", "2d6+3", "4d8-2", "0d0".
//
// Precondition: expr must be a non-empty string.
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(expr string) (Expression, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}
	s := strings.ToLower(raw)

	dIdx := strings.Index(s, "d")
	if dIdx < 0 {
		return Expression{}, fmt.Errorf("dice: missing 'd' in expression %q", raw)
	}

	count := 1
	if countStr := s[:dIdx]; countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", raw, err)
		}
		if count < 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 0", raw)
		}
	}

	rest := s[dIdx+1:]
	sidesStr, modStr := rest, ""
	if i := strings.IndexAny(rest, "+-"); i >= 0 {
		sidesStr, modStr = rest[:i], rest[i:]
	}

	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", raw, err)
	}
	if sides < 0 || (count > 0 && sides < 1) {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 1", raw)
	}

	modifier := 0
	if modStr != "" {
		modifier, err = strconv.Atoi(modStr)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", raw, err)
		}
	}

	return Expression{Raw: raw, Count: count, Sides: sides, Modifier: modifier}, nil
}

// MustParse parses expr and panics on error. Useful for package-level constants.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}
