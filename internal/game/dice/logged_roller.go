package dice

import "go.uber.org/zap"

// D20 is the expression for a single twenty-sided die.
var D20 = MustParse("1d20")

// Roller wraps a Source and logger to provide audited dice rolling.
// All rolls are logged at debug level with expression, dice values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil || logger == nil {
		panic("dice: NewLoggedRoller requires a non-nil source and logger")
	}
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr and logs the result at debug level.
func (r *Roller) Roll(expr Expression) RollResult {
	result := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result
}

// RollExpr parses expr and rolls it, logging the result.
//
// Postcondition: Returns a RollResult or a parse error.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// D20 rolls a single d20 and returns the natural value.
func (r *Roller) D20() int {
	return r.Roll(D20).Total()
}

// Chance reports true with probability percent/100.
//
// Precondition: 0 <= percent <= 100.
func (r *Roller) Chance(percent int) bool {
	return r.src.Intn(100) < percent
}

// Intn exposes the underlying source for non-dice decisions such as shuffles.
func (r *Roller) Intn(n int) int {
	return r.src.Intn(n)
}

// Shuffle permutes n elements in place via swap using a Fisher-Yates walk.
func (r *Roller) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		swap(i, r.src.Intn(i+1))
	}
}
