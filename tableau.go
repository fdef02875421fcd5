package route

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// pivotTol is the smallest tableau entry used as a pivot.
	pivotTol = 1e-9
	// ratioTol groups ratio test candidates considered tied.
	ratioTol = 1e-11
	// feasTol is the phase one infeasibility accepted as feasible, relative to the right hand sides.
	feasTol = 1e-8
	// blandAfter is the number of consecutive degenerate pivots before Bland's rule takes over.
	blandAfter = 50
)

// tableau is a bounded-variable primal simplex on a dense tableau. Columns are the
// structural variables of a block, then one logical per row, then the artificials.
// Every basic column starts as a singleton of A, so the initial basis is diagonal.
type tableau struct {
	m, n, ncol int
	data       []float64 // row-major B⁻¹A
	stride     int
	lo, hi     []float64
	x          []float64
	cost       []float64
	d          []float64 // reduced costs
	basis      []int     // column basic in each row
	where      []int     // row of a basic column, -1 when nonbasic
	nArt       int

	// Original rows, for the final refinement of the basic values.
	rowsA  [][]entry
	b      []float64
	artRow []int // row of each artificial
	artSig []float64

	vars     []int
	tol      float64
	deadline time.Time
	iter     int
	maxIter  int
	bland    bool
}

// initialValue is the nonbasic starting value of a column: its bound nearest zero.
func initialValue(lo, hi float64) float64 {
	switch {
	case !math.IsInf(lo, -1) && !math.IsInf(hi, 1):
		if math.Abs(hi) < math.Abs(lo) {
			return hi
		}
		return lo
	case !math.IsInf(lo, -1):
		return lo
	case !math.IsInf(hi, 1):
		return hi
	default:
		return 0
	}
}

func logicalBounds(s Sense) (lo, hi float64) {
	switch s {
	case SenseLE:
		return 0, math.Inf(1)
	case SenseGE:
		return math.Inf(-1), 0
	default:
		return 0, 0
	}
}

func newTableau(p *presolver, blk block, tol float64, deadline time.Time) *tableau {
	m, n := len(blk.rows), len(blk.vars)
	local := make(map[int]int, n)
	for j, v := range blk.vars {
		local[v] = j
	}
	t := &tableau{m: m, n: n, vars: blk.vars, tol: tol, deadline: deadline}
	t.rowsA = make([][]entry, m)
	t.b = make([]float64, m)
	colRows := make([]int, n) // number of rows holding each structural
	for i, ri := range blk.rows {
		r := p.rows[ri]
		row := make([]entry, len(r.e))
		for k, x := range r.e {
			row[k] = entry{local[x.v], x.a}
			colRows[local[x.v]]++
		}
		t.rowsA[i] = row
		t.b[i] = r.rhs
	}

	// Structural and logical columns.
	lo := make([]float64, n+m)
	hi := make([]float64, n+m)
	x := make([]float64, n+m)
	cost := make([]float64, n+m)
	for j, v := range blk.vars {
		lo[j], hi[j] = p.lower[v], p.upper[v]
		x[j] = initialValue(lo[j], hi[j])
		cost[j] = p.cost[v]
	}
	basis := make([]int, m)
	scale := make([]float64, m) // coefficient of the basic column in its row
	for i, ri := range blk.rows {
		lo[n+i], hi[n+i] = logicalBounds(p.rows[ri].sense)
	}

	// Pick a feasible basic column per row when possible: the logical, else a
	// structural singleton, else an artificial.
	isBasic := make([]bool, n)
	for i, row := range t.rowsA {
		rho := t.b[i]
		for _, e := range row {
			rho -= e.a * x[e.v]
		}
		l := n + i
		if rho >= lo[l] && rho <= hi[l] {
			basis[i], scale[i], x[l] = l, 1, rho
			continue
		}
		x[l] = math.Max(lo[l], math.Min(hi[l], rho))
		excess := rho - x[l]
		basis[i] = -1
		for _, e := range row {
			j := e.v
			if colRows[j] != 1 || isBasic[j] {
				continue
			}
			if nx := x[j] + excess/e.a; nx >= lo[j] && nx <= hi[j] {
				x[j] = nx
				basis[i], scale[i] = j, e.a
				isBasic[j] = true
				break
			}
		}
		if basis[i] < 0 {
			sig := 1.0
			if excess < 0 {
				sig = -1
			}
			t.artRow = append(t.artRow, i)
			t.artSig = append(t.artSig, sig)
			basis[i], scale[i] = n+m+len(t.artRow)-1, sig
			x = append(x, math.Abs(excess))
			lo = append(lo, 0)
			hi = append(hi, math.Inf(1))
			cost = append(cost, 0)
		}
	}
	t.nArt = len(t.artRow)
	t.ncol = n + m + t.nArt
	t.lo, t.hi, t.x, t.cost, t.basis = lo, hi, x, cost, basis

	tab := mat.NewDense(m, t.ncol, nil)
	raw := tab.RawMatrix()
	t.data, t.stride = raw.Data, raw.Stride
	for i, row := range t.rowsA {
		r := t.row(i)
		for _, e := range row {
			r[e.v] = e.a
		}
		r[n+i] = 1
	}
	for k, i := range t.artRow {
		t.row(i)[n+m+k] = t.artSig[k]
	}
	for i := range t.rowsA {
		if scale[i] != 1 {
			floats.Scale(1/scale[i], t.row(i))
		}
	}
	t.where = make([]int, t.ncol)
	for j := range t.where {
		t.where[j] = -1
	}
	for i, c := range basis {
		t.where[c] = i
	}
	t.d = make([]float64, t.ncol)
	t.maxIter = 20*(m+t.ncol) + 1000
	return t
}

func (t *tableau) row(i int) []float64 {
	return t.data[i*t.stride : i*t.stride+t.ncol]
}

// solve runs phase one when artificials exist, then phase two.
func (t *tableau) solve() (Status, error) {
	if t.nArt > 0 {
		phase1 := make([]float64, t.ncol)
		for k := 0; k < t.nArt; k++ {
			phase1[t.n+t.m+k] = 1
		}
		st, err := t.run(phase1)
		switch {
		case st == StatusUnbounded:
			return StatusNotSolved, errors.New("phase one reported an unbounded direction")
		case st != StatusOptimal:
			return st, err
		}
		var infeas, bmax float64
		for k := 0; k < t.nArt; k++ {
			infeas += t.x[t.n+t.m+k]
		}
		for _, b := range t.b {
			bmax = math.Max(bmax, math.Abs(b))
		}
		if infeas > feasTol*(1+bmax) {
			return StatusInfeasible, nil
		}
		for k := 0; k < t.nArt; k++ {
			j := t.n + t.m + k
			t.hi[j] = 0
			if t.where[j] < 0 {
				t.x[j] = 0
			}
		}
		t.driveOutArtificials()
	}
	st, err := t.run(t.cost)
	if st == StatusOptimal {
		t.refine()
	}
	return st, err
}

// run iterates until no nonbasic column improves the objective cost.
func (t *tableau) run(cost []float64) (Status, error) {
	t.price(cost)
	degenerate := 0
	for {
		if !t.deadline.IsZero() && time.Now().After(t.deadline) {
			return StatusTimeLimit, nil
		}
		if t.iter >= t.maxIter {
			return StatusNotSolved, errors.Errorf("iteration limit %d reached", t.maxIter)
		}
		q, dir := t.entering()
		if q < 0 {
			return StatusOptimal, nil
		}
		r, theta := t.ratio(q, dir)
		if math.IsInf(theta, 1) {
			return StatusUnbounded, nil
		}
		t.move(q, dir, r, theta)
		if r >= 0 {
			t.pivot(r, q)
		}
		t.iter++
		if theta <= ratioTol {
			degenerate++
			t.bland = degenerate > blandAfter
		} else {
			degenerate = 0
			t.bland = false
		}
	}
}

// price computes the reduced costs of cost for the current basis.
func (t *tableau) price(cost []float64) {
	copy(t.d, cost)
	for i, c := range t.basis {
		if cb := cost[c]; cb != 0 {
			floats.AddScaled(t.d, -cb, t.row(i))
		}
	}
	for _, c := range t.basis {
		t.d[c] = 0
	}
}

// entering returns the column to move and its direction, or -1 at optimality.
// Dantzig's rule is used, Bland's rule while pivots stay degenerate.
func (t *tableau) entering() (int, float64) {
	best, dir := -1, 0.0
	var score float64
	for j := 0; j < t.ncol; j++ {
		if t.where[j] >= 0 || t.lo[j] == t.hi[j] {
			continue
		}
		dj := t.d[j]
		var s float64
		switch {
		case dj < -t.tol && t.x[j] < t.hi[j]:
			s = 1
		case dj > t.tol && t.x[j] > t.lo[j]:
			s = -1
		default:
			continue
		}
		if t.bland {
			return j, s
		}
		if math.Abs(dj) > score {
			best, dir, score = j, s, math.Abs(dj)
		}
	}
	return best, dir
}

// ratio returns the row leaving the basis when column q moves in direction dir,
// -1 for a bound flip of q, and the step length.
func (t *tableau) ratio(q int, dir float64) (int, float64) {
	limit := func(i int) (float64, bool) {
		a := t.data[i*t.stride+q]
		if math.Abs(a) <= pivotTol {
			return 0, false
		}
		g := -dir * a
		c := t.basis[i]
		var lim float64
		if g < 0 {
			if math.IsInf(t.lo[c], -1) {
				return 0, false
			}
			lim = (t.x[c] - t.lo[c]) / -g
		} else {
			if math.IsInf(t.hi[c], 1) {
				return 0, false
			}
			lim = (t.hi[c] - t.x[c]) / g
		}
		return math.Max(lim, 0), true
	}
	theta := math.Inf(1)
	for i := 0; i < t.m; i++ {
		if lim, ok := limit(i); ok && lim < theta {
			theta = lim
		}
	}
	if flip := t.hi[q] - t.lo[q]; flip <= theta {
		return -1, flip
	}
	if math.IsInf(theta, 1) {
		return -1, theta
	}
	r := -1
	for i := 0; i < t.m; i++ {
		lim, ok := limit(i)
		if !ok || lim > theta+ratioTol {
			continue
		}
		switch {
		case r < 0:
			r = i
		case t.bland:
			if t.basis[i] < t.basis[r] {
				r = i
			}
		case math.Abs(t.data[i*t.stride+q]) > math.Abs(t.data[r*t.stride+q]):
			r = i
		}
	}
	return r, theta
}

// move applies a step of length theta, leaving the blocking variable exactly on its bound.
func (t *tableau) move(q int, dir float64, r int, theta float64) {
	if theta > 0 {
		t.x[q] += dir * theta
		for i := 0; i < t.m; i++ {
			if a := t.data[i*t.stride+q]; a != 0 {
				t.x[t.basis[i]] -= dir * a * theta
			}
		}
	}
	if r < 0 {
		if dir > 0 {
			t.x[q] = t.hi[q]
		} else {
			t.x[q] = t.lo[q]
		}
		return
	}
	c := t.basis[r]
	if -dir*t.data[r*t.stride+q] < 0 {
		t.x[c] = t.lo[c]
	} else {
		t.x[c] = t.hi[c]
	}
}

func (t *tableau) pivot(r, q int) {
	pr := t.row(r)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i := 0; i < t.m; i++ {
		if i == r {
			continue
		}
		ri := t.row(i)
		if f := ri[q]; f != 0 {
			floats.AddScaled(ri, -f, pr)
			ri[q] = 0
		}
	}
	if f := t.d[q]; f != 0 {
		floats.AddScaled(t.d, -f, pr)
		t.d[q] = 0
	}
	t.where[t.basis[r]] = -1
	t.basis[r] = q
	t.where[q] = r
}

// driveOutArtificials replaces the artificials left basic at zero after phase one.
// An artificial with no replacement marks a redundant row and stays basic at zero.
func (t *tableau) driveOutArtificials() {
	first := t.n + t.m
	for i, c := range t.basis {
		if c < first {
			continue
		}
		r := t.row(i)
		for j := 0; j < first; j++ {
			if t.where[j] < 0 && math.Abs(r[j]) > 1e-7 {
				t.x[c] = 0
				t.pivot(i, j)
				break
			}
		}
	}
}

// refine recomputes the basic values from the nonbasic ones. The logical
// columns of the tableau hold B⁻¹.
func (t *tableau) refine() {
	rhs := make([]float64, t.m)
	for i, row := range t.rowsA {
		v := t.b[i]
		for _, e := range row {
			if t.where[e.v] < 0 {
				v -= e.a * t.x[e.v]
			}
		}
		if l := t.n + i; t.where[l] < 0 {
			v -= t.x[l]
		}
		rhs[i] = v
	}
	for k, i := range t.artRow {
		if j := t.n + t.m + k; t.where[j] < 0 {
			rhs[i] -= t.artSig[k] * t.x[j]
		}
	}
	for r, c := range t.basis {
		row := t.row(r)
		var v float64
		for i := 0; i < t.m; i++ {
			v += row[t.n+i] * rhs[i]
		}
		t.x[c] = v
	}
}

// store copies the structural values into values, indexed by model variable.
func (t *tableau) store(values []float64) {
	for j, v := range t.vars {
		values[v] = t.x[j]
	}
}
