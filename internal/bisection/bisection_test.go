package bisection

import (
	"math"
	"testing"
)

func linear(slope float64) Func {
	return func(x float64) float64 { return slope * x }
}

func TestSolve_Increasing(t *testing.T) {
	res := Solve(linear(1), 642.3, 0, 1000, Increasing, Options{Tolerance: 1e-9})
	if math.Abs(res.X-642.3) > DefaultMinWidth {
		t.Errorf("expected root ≈ 642.3, got %g", res.X)
	}
	if !res.Converged {
		t.Error("bracketed root should report converged")
	}
}

func TestSolve_Decreasing(t *testing.T) {
	res := Solve(linear(-1), -310.7, 0, 1000, Decreasing, Options{Tolerance: 1e-9})
	if math.Abs(res.X-310.7) > DefaultMinWidth {
		t.Errorf("expected root ≈ 310.7, got %g", res.X)
	}
	if !res.Converged {
		t.Error("bracketed root should report converged")
	}
}

func TestSolve_EarlyExitOnTolerance(t *testing.T) {
	// First midpoint is 500; f(500) = 500 is within 1 of 500.5.
	res := Solve(linear(1), 500.5, 0, 1000, Increasing, Options{Tolerance: 1})
	if res.Iterations != 1 {
		t.Errorf("expected exit after 1 iteration, got %d", res.Iterations)
	}
	if res.X != 500 {
		t.Errorf("expected first midpoint 500, got %g", res.X)
	}
	if !res.Converged {
		t.Error("tolerance hit should report converged")
	}
	if math.Abs(res.Residual+0.5) > 1e-12 {
		t.Errorf("expected residual -0.5, got %g", res.Residual)
	}
}

func TestSolve_TargetAboveRange(t *testing.T) {
	res := Solve(linear(1), 5000, 100, 900, Increasing, Options{Tolerance: 0.01})
	if res.X < 900-DefaultMinWidth || res.X > 900 {
		t.Errorf("unreachable target should clamp to upper bound, got %g", res.X)
	}
	if res.Converged {
		t.Error("unreachable target must not report converged")
	}
}

func TestSolve_TargetBelowRange(t *testing.T) {
	res := Solve(linear(-1), 0, 100, 900, Decreasing, Options{Tolerance: 0.01})
	// f(x) = -x is always below 0 on [100, 900]; best effort is x → 100.
	if res.X < 100 || res.X > 100+DefaultMinWidth {
		t.Errorf("unreachable target should clamp to lower bound, got %g", res.X)
	}
	if res.Converged {
		t.Error("unreachable target must not report converged")
	}
}

func TestSolve_RespectsMaxIterations(t *testing.T) {
	calls := 0
	f := func(x float64) float64 {
		calls++
		return x
	}
	res := Solve(f, 1e6, 0, 1e12, Increasing, Options{MaxIterations: 7, MinWidth: 1e-9})
	if res.Iterations != 7 {
		t.Errorf("expected 7 iterations, got %d", res.Iterations)
	}
	// 7 midpoints plus the final point; the bracket ends are never checked
	// while the bracket is still wider than MinWidth.
	if calls != 8 {
		t.Errorf("expected 8 evaluations, got %d", calls)
	}
	if res.Converged {
		t.Error("search cut short by the iteration cap must not report converged")
	}
}

func TestSolve_IterationCapWithTargetInsideBracket(t *testing.T) {
	// 642.3 is inside [0, 1000], but two halvings leave a 250-wide bracket.
	res := Solve(linear(1), 642.3, 0, 1000, Increasing, Options{Tolerance: 0.01, MaxIterations: 2})
	if res.Iterations != 2 {
		t.Errorf("expected 2 iterations, got %d", res.Iterations)
	}
	if res.Converged {
		t.Errorf("wide final bracket must not report converged, got x=%g residual=%g", res.X, res.Residual)
	}
}

func TestSolve_StraddleAtWidthFloorConverges(t *testing.T) {
	// Tolerance is unreachable; the search ends on the width floor instead.
	res := Solve(linear(1), 3.3, 0, 8, Increasing, Options{Tolerance: 1e-12})
	if !res.Converged {
		t.Errorf("bracket narrowed to MinWidth around the target should converge, got x=%g", res.X)
	}
}

func TestSolve_StopsOnMinWidth(t *testing.T) {
	res := Solve(linear(1), 3.3, 0, 8, Increasing, Options{})
	// 8 → 4 → 2 → 1 → 0.5: four halvings reach the 0.5 floor.
	if res.Iterations != 4 {
		t.Errorf("expected 4 iterations, got %d", res.Iterations)
	}
}

func TestSolve_EmptyBracket(t *testing.T) {
	res := Solve(linear(1), 10, 42, 42, Increasing, Options{Tolerance: 0.1})
	if res.Iterations != 0 || res.X != 42 {
		t.Errorf("degenerate bracket should return the bound, got x=%g iters=%d", res.X, res.Iterations)
	}
}

func TestSolve_DefaultsApplied(t *testing.T) {
	o := Options{}.withDefaults()
	if o.MaxIterations != DefaultMaxIterations {
		t.Errorf("expected default max iterations %d, got %d", DefaultMaxIterations, o.MaxIterations)
	}
	if o.MinWidth != DefaultMinWidth {
		t.Errorf("expected default min width %g, got %g", DefaultMinWidth, o.MinWidth)
	}
}
