package models

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: For any price and target, an 'above' rule and a 'below' rule on
// the same target partition the price line: exactly one of them matches,
// except at the target itself where both fire.
func TestProperty_CrossedPartitionsPriceLine(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	priceGen := gen.Float64Range(0.0001, 1e9)
	targetGen := gen.Float64Range(0.0001, 1e9)

	properties.Property("above and below partition the price line", prop.ForAll(
		func(price, target float64) bool {
			if math.IsNaN(price) || math.IsNaN(target) {
				return true
			}

			above := AlertRule{Target: target, Direction: DirectionAbove}
			below := AlertRule{Target: target, Direction: DirectionBelow}

			switch {
			case price > target:
				return above.Crossed(price) && !below.Crossed(price)
			case price < target:
				return !above.Crossed(price) && below.Crossed(price)
			default:
				// Equality fires both ways.
				return above.Crossed(price) && below.Crossed(price)
			}
		},
		priceGen,
		targetGen,
	))

	properties.Property("crossing is monotone in price for above rules", prop.ForAll(
		func(target, price, bump float64) bool {
			rule := AlertRule{Target: target, Direction: DirectionAbove}
			if rule.Crossed(price) {
				return rule.Crossed(price + math.Abs(bump))
			}
			return true
		},
		gen.Float64Range(1, 1e6),
		gen.Float64Range(1, 1e6),
		gen.Float64Range(0, 1e6),
	))

	properties.TestingRun(t)
}
