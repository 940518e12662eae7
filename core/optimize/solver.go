package optimize

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// slotProblem is the integer program for a single time slot. Slots are
// independent: no constraint couples cells in different slots, so the window
// ILP decomposes exactly into one slotProblem per slot.
type slotProblem struct {
	demand   []float64 // per-route cell demand, all > 0
	lo, hi   []int     // headway bounds on the buses variables
	fleet    int
	capacity int
	busCost  float64 // cost of running one bus for one slot
	penalty  float64 // cost per overloaded passenger
}

const intTol = 1e-6

// errNodeInfeasible marks a branch whose LP relaxation has no solution.
var errNodeInfeasible = errors.New("relaxation infeasible")

// lpSolve points to the relaxation solver so tests can simulate failures.
var lpSolve = solveRelaxation

// solveRelaxation solves the LP relaxation of p with the buses variables
// bounded by [lo, hi]. Variables are x = [buses_0..n-1, overload_0..n-1].
func solveRelaxation(p slotProblem, lo, hi []float64) (buses, overload []float64, obj float64, err error) {
	n := len(p.demand)
	nv := 2 * n
	c := make([]float64, nv)
	for i := 0; i < n; i++ {
		c[i] = p.busCost
		c[n+i] = p.penalty
	}

	// Inequality rows: fleet, per-route capacity, buses upper and lower
	// bounds, overload nonnegativity.
	rows := 1 + 4*n
	g := mat.NewDense(rows, nv, nil)
	h := make([]float64, rows)
	for i := 0; i < n; i++ {
		g.Set(0, i, 1)
	}
	h[0] = float64(p.fleet)
	for i := 0; i < n; i++ {
		g.Set(1+i, i, -float64(p.capacity))
		g.Set(1+i, n+i, -1)
		h[1+i] = -p.demand[i]

		g.Set(1+n+i, i, 1)
		h[1+n+i] = hi[i]

		g.Set(1+2*n+i, i, -1)
		h[1+2*n+i] = -lo[i]

		g.Set(1+3*n+i, n+i, -1)
		h[1+3*n+i] = 0
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, nil, nil)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, 1e-9, nil)
	if err != nil {
		return nil, nil, 0, errNodeInfeasible
	}

	// Convert splits each variable into positive and negative halves; the
	// first nv entries of sol are the positive parts.
	buses = make([]float64, n)
	overload = make([]float64, n)
	for i := 0; i < n; i++ {
		buses[i] = sol[i] - sol[nv+i]
		overload[i] = sol[n+i] - sol[nv+n+i]
		obj += c[i]*buses[i] + c[n+i]*overload[i]
	}
	return buses, overload, obj, nil
}

// solveSlot runs branch and bound on the buses variables. It always returns
// a feasible integer solution; timedOut is set when the deadline elapsed
// before optimality was proven.
func solveSlot(p slotProblem, deadline time.Time) (buses []int, obj float64, timedOut bool) {
	incumbent, incObj := greedyIncumbent(p)
	if !time.Now().Before(deadline) {
		return incumbent, incObj, true
	}

	n := len(p.demand)
	type node struct{ lo, hi []float64 }
	root := node{lo: make([]float64, n), hi: make([]float64, n)}
	for i := 0; i < n; i++ {
		root.lo[i] = float64(p.lo[i])
		root.hi[i] = float64(p.hi[i])
	}
	stack := []node{root}

	for len(stack) > 0 {
		if !time.Now().Before(deadline) {
			return incumbent, incObj, true
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		rb, _, bound, err := lpSolve(p, nd.lo, nd.hi)
		if err != nil {
			continue
		}
		if bound >= incObj-1e-9 {
			continue
		}

		branch := -1
		frac := intTol
		for i, b := range rb {
			if f := math.Abs(b - math.Round(b)); f > frac {
				frac = f
				branch = i
			}
		}
		if branch < 0 {
			cand := make([]int, n)
			for i, b := range rb {
				cand[i] = int(math.Round(b))
			}
			if co := p.objective(cand); co < incObj {
				incumbent, incObj = cand, co
			}
			continue
		}

		down := node{lo: append([]float64(nil), nd.lo...), hi: append([]float64(nil), nd.hi...)}
		down.hi[branch] = math.Floor(rb[branch])
		up := node{lo: append([]float64(nil), nd.lo...), hi: append([]float64(nil), nd.hi...)}
		up.lo[branch] = math.Ceil(rb[branch])
		stack = append(stack, down, up)
	}
	return incumbent, incObj, false
}

// objective evaluates an integer bus assignment, charging the minimal
// overload each cell then needs.
func (p slotProblem) objective(buses []int) float64 {
	obj := 0.0
	for i, b := range buses {
		obj += float64(b) * p.busCost
		if over := p.demand[i] - float64(b*p.capacity); over > 0 {
			obj += over * p.penalty
		}
	}
	return obj
}

// overloads returns the minimal per-cell overload for an integer assignment.
func (p slotProblem) overloads(buses []int) []float64 {
	out := make([]float64, len(buses))
	for i, b := range buses {
		if over := p.demand[i] - float64(b*p.capacity); over > 0 {
			out[i] = over
		}
	}
	return out
}

// greedyIncumbent builds a feasible starting solution: headway floors first,
// then one bus at a time wherever it lowers the objective, largest shortfall
// first, while the fleet and headway ceilings allow.
func greedyIncumbent(p slotProblem) ([]int, float64) {
	n := len(p.demand)
	buses := make([]int, n)
	used := 0
	for i := 0; i < n; i++ {
		buses[i] = p.lo[i]
		used += p.lo[i]
	}
	for used < p.fleet {
		best, bestGain := -1, 0.0
		for i := 0; i < n; i++ {
			if buses[i] >= p.hi[i] {
				continue
			}
			short := p.demand[i] - float64(buses[i]*p.capacity)
			if short <= 0 {
				continue
			}
			gain := math.Min(short, float64(p.capacity))*p.penalty - p.busCost
			if gain > bestGain {
				best, bestGain = i, gain
			}
		}
		if best < 0 {
			break
		}
		buses[best]++
		used++
	}
	return buses, p.objective(buses)
}
