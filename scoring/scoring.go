package scoring

import "math"

// Calculator awards points for an answer. A correct answer earns Base points plus a time
// bonus of up to Base*TimeBonusMultiplier that shrinks linearly to zero at the time limit.
type Calculator struct {
	Base                int
	TimeBonusMultiplier float64
}

func New(base int, timeBonusMultiplier float64) Calculator {
	return Calculator{
		Base:                base,
		TimeBonusMultiplier: timeBonusMultiplier,
	}
}

func (c Calculator) Score(isCorrect bool, elapsedMs, timeLimitMs int64) int {
	if !isCorrect {
		return 0
	}

	bonus := 0.0
	if timeLimitMs > 0 {
		bonus = math.Max(0, 1-float64(elapsedMs)/float64(timeLimitMs))
	}

	return int(math.Round(float64(c.Base) * (1 + bonus*c.TimeBonusMultiplier)))
}
