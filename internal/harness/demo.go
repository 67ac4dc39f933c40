package harness

import (
	"context"
	"fmt"

	"github.com/roach88/notebook/internal/notebook"
)

// DemoTag marks the demo cases.
const DemoTag = "experiment"

// Square is the placeholder numerical method the demo experiments exercise.
func Square(x int) int {
	return x * x
}

// DemoCases returns the square experiment for x in [-4, 4).
// Each case checks that the result is non-negative and records it as "y".
func DemoCases() []Case {
	values := make([]any, 0, 8)
	for x := -4; x < 4; x++ {
		values = append(values, x)
	}

	base := Case{
		Name: "test_my_algorithm",
		Tags: []string{DemoTag},
		Act: func(_ context.Context, nb *notebook.Notebook) error {
			x, ok := nb.Parameters()["x"].(int)
			if !ok {
				return fmt.Errorf("parameter x is %T, want int", nb.Parameters()["x"])
			}
			y := Square(x)
			if y < 0 {
				return fmt.Errorf("square(%d) = %d is negative", x, y)
			}
			return nb.Record("y", y)
		},
	}
	return Parametrize(base, "x", values...)
}
