package solver

import (
	"math"
	"testing"

	"github.com/san-kum/thermnet/internal/plant"
)

func TestStalled(t *testing.T) {
	cases := []struct {
		name    string
		history []float64
		want    bool
	}{
		{"too short", []float64{10, 10, 10}, false},
		{"still moving", []float64{100, 50, 20, 8, 3, 1}, false},
		{"flatlined", []float64{10, 10, 10, 10, 10, 9.9}, true},
		{"flat but converged", []float64{1e-4, 1e-4, 1e-4, 1e-4, 1e-4, 1e-4}, false},
	}
	for _, tc := range cases {
		if got := stalled(tc.history, 1e-3); got != tc.want {
			t.Errorf("%s: stalled = %v", tc.name, got)
		}
	}
}

func TestQuantityName(t *testing.T) {
	for col, want := range []string{"m", "p", "h"} {
		if got := quantityName(col); got != want {
			t.Errorf("quantityName(%d) = %q", col, got)
		}
	}
}

func TestInitFreeVars(t *testing.T) {
	nan := plant.NewParameter()
	set := plant.NewParameter()
	set.Val = 42
	l := &layout{compVars: []*plant.Parameter{nan, set}}

	l.initFreeVars()
	if nan.Val != 1 {
		t.Errorf("NaN variable: %g", nan.Val)
	}
	if set.Val != 42 {
		t.Errorf("finite variable touched: %g", set.Val)
	}
	if math.IsNaN(nan.Val) {
		t.Error("variable still NaN")
	}
}
