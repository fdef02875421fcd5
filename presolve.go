package route

import (
	"math"
	"sort"
)

const (
	// presolveTol is the bound tolerance of the reductions.
	presolveTol = 1e-9
	// cancelTol drops coefficients cancelled by a substitution, relative to the operands.
	cancelTol = 1e-12
	// impliedFreeMaxLen bounds the rows scanned for implied free bounded variables.
	impliedFreeMaxLen = 64
)

// entry is a nonzero coefficient of a sparse row.
type entry struct {
	v int
	a float64
}

// sparseRow is a constraint being reduced. Entries are sorted by variable.
type sparseRow struct {
	e     []entry
	sense Sense
	rhs   float64
	dead  bool
}

func (r *sparseRow) find(v int) int {
	i := sort.Search(len(r.e), func(i int) bool { return r.e[i].v >= v })
	if i < len(r.e) && r.e[i].v == v {
		return i
	}
	return -1
}

type postKind uint8

const (
	postFix   postKind = iota // x = value
	postSubst                 // x = (rhs - Σ e) / a
	postRaise                 // x = (rhs - Σ e) / a, clamped to the bound on the side given by up
)

// postStep restores the value of an eliminated variable.
type postStep struct {
	kind  postKind
	v     int
	value float64
	e     []entry
	rhs   float64
	a     float64
	up    bool
}

// presolver reduces a model before the simplex. It fixes variables, substitutes
// variables defined by equalities, drops rows which a zero cost column can always
// satisfy, and finally splits what remains into independent blocks.
type presolver struct {
	n            int
	lower, upper []float64
	cost         []float64
	rows         []*sparseRow
	cols         [][]int // rows which may hold each variable; stale entries are skipped
	count        []int   // number of live rows holding each variable
	gone         []bool
	steps        []postStep
	status       Status
}

func newPresolver(m *Model) *presolver {
	n := m.NumVariables()
	p := &presolver{
		n:      n,
		lower:  append([]float64(nil), m.lower...),
		upper:  append([]float64(nil), m.upper...),
		cost:   append([]float64(nil), m.cost...),
		cols:   make([][]int, n),
		count:  make([]int, n),
		gone:   make([]bool, n),
		status: StatusOptimal,
	}
	for _, ct := range m.constraints {
		e := make([]entry, 0, len(ct.Terms))
		for _, t := range ct.Terms {
			e = append(e, entry{int(t.Var), t.Coef})
		}
		sort.Slice(e, func(i, j int) bool { return e[i].v < e[j].v })
		merged := e[:0]
		for _, x := range e {
			if k := len(merged); k > 0 && merged[k-1].v == x.v {
				merged[k-1].a += x.a
				continue
			}
			merged = append(merged, x)
		}
		nz := merged[:0]
		for _, x := range merged {
			if x.a != 0 {
				nz = append(nz, x)
			}
		}
		ri := len(p.rows)
		p.rows = append(p.rows, &sparseRow{e: nz, sense: ct.Sense, rhs: ct.RHS})
		for _, x := range nz {
			p.cols[x.v] = append(p.cols[x.v], ri)
			p.count[x.v]++
		}
	}
	return p
}

// run applies the reductions until none applies. It returns StatusOptimal unless
// the model was found infeasible or unbounded.
func (p *presolver) run() Status {
	for changed := true; changed; {
		changed = false
		for ri, r := range p.rows {
			if r.dead {
				continue
			}
			if p.reduceRow(ri) {
				changed = true
			}
			if p.status != StatusOptimal {
				return p.status
			}
		}
		if p.reduceColumns() {
			changed = true
		}
		if p.status != StatusOptimal {
			return p.status
		}
	}
	return p.status
}

func (p *presolver) reduceRow(ri int) bool {
	r := p.rows[ri]
	switch {
	case len(r.e) == 0:
		if !senseHolds(0, r.sense, r.rhs, presolveTol) {
			p.status = StatusInfeasible
		}
		r.dead = true
		return true
	case len(r.e) == 1:
		p.singletonRow(ri)
		return true
	case r.sense == SenseEQ:
		return p.eliminate(ri)
	default:
		return p.columnSingleton(ri)
	}
}

// singletonRow turns a row on a single variable into a bound or a fixed value.
func (p *presolver) singletonRow(ri int) {
	r := p.rows[ri]
	x := r.e[0]
	bound := r.rhs / x.a
	p.killRow(ri)
	lo, hi := p.lower[x.v], p.upper[x.v]
	if r.sense == SenseEQ {
		if bound < lo-presolveTol || bound > hi+presolveTol {
			p.status = StatusInfeasible
			return
		}
		p.fix(x.v, bound)
		return
	}
	if (r.sense == SenseLE) == (x.a > 0) {
		hi = math.Min(hi, bound)
	} else {
		lo = math.Max(lo, bound)
	}
	switch {
	case lo > hi+presolveTol:
		p.status = StatusInfeasible
	case hi-lo <= presolveTol:
		p.fix(x.v, lo)
	default:
		p.lower[x.v], p.upper[x.v] = lo, hi
	}
}

// eliminate substitutes a free (or implied free) variable of an equality row.
// The candidate held by the fewest rows is chosen to limit fill.
func (p *presolver) eliminate(ri int) bool {
	r := p.rows[ri]
	var maxA float64
	for _, x := range r.e {
		maxA = math.Max(maxA, math.Abs(x.a))
	}
	best := -1
	for i, x := range r.e {
		if math.Abs(x.a) < 1e-7*maxA || !p.impliedFree(r, i) {
			continue
		}
		if best < 0 || p.count[x.v] < p.count[r.e[best].v] {
			best = i
		}
	}
	if best < 0 {
		return false
	}
	p.substitute(ri, best)
	return true
}

func (p *presolver) impliedFree(r *sparseRow, i int) bool {
	v := r.e[i].v
	lo, hi := p.lower[v], p.upper[v]
	if math.IsInf(lo, -1) && math.IsInf(hi, 1) {
		return true
	}
	if len(r.e) > impliedFreeMaxLen {
		return false
	}
	ilo, ihi := p.implied(r, i)
	return ilo >= lo-presolveTol && ihi <= hi+presolveTol
}

// implied returns the range of the i-th variable of r when r holds with equality.
func (p *presolver) implied(r *sparseRow, i int) (lo, hi float64) {
	var minAct, maxAct float64
	for k, x := range r.e {
		if k == i {
			continue
		}
		l, u := p.lower[x.v], p.upper[x.v]
		if x.a > 0 {
			minAct += x.a * l
			maxAct += x.a * u
		} else {
			minAct += x.a * u
			maxAct += x.a * l
		}
	}
	a := r.e[i].a
	if a > 0 {
		return (r.rhs - maxAct) / a, (r.rhs - minAct) / a
	}
	return (r.rhs - minAct) / a, (r.rhs - maxAct) / a
}

// columnSingleton looks for a variable held only by the inequality row ri. With a
// zero cost it can always satisfy the row, which is then dropped. With a cost pushing
// it against the row, the row is tight at the optimum and the variable is substituted.
func (p *presolver) columnSingleton(ri int) bool {
	r := p.rows[ri]
	for i, x := range r.e {
		v := x.v
		if p.count[v] != 1 {
			continue
		}
		up := (r.sense == SenseGE) == (x.a > 0) // the row bounds v from below
		c := p.cost[v]
		switch {
		case c == 0 && (up && math.IsInf(p.upper[v], 1) || !up && math.IsInf(p.lower[v], -1)):
			rest := without(r.e, i)
			p.steps = append(p.steps, postStep{kind: postRaise, v: v, e: rest, rhs: r.rhs, a: x.a, up: up})
			p.killRow(ri)
			p.drop(v)
			return true
		case c != 0 && (c > 0) == up:
			lo, hi := p.implied(r, i)
			if lo >= p.lower[v]-presolveTol && hi <= p.upper[v]+presolveTol {
				r.sense = SenseEQ
				p.substitute(ri, i)
				return true
			}
		}
	}
	return false
}

// reduceColumns fixes variables with equal bounds and resolves variables held by no row.
func (p *presolver) reduceColumns() bool {
	changed := false
	for v := 0; v < p.n; v++ {
		if p.gone[v] {
			continue
		}
		lo, hi := p.lower[v], p.upper[v]
		if p.count[v] > 0 {
			if lo == hi {
				p.fix(v, lo)
				changed = true
			}
			continue
		}
		var val float64
		switch c := p.cost[v]; {
		case c > 0:
			if math.IsInf(lo, -1) {
				p.status = StatusUnbounded
				return true
			}
			val = lo
		case c < 0:
			if math.IsInf(hi, 1) {
				p.status = StatusUnbounded
				return true
			}
			val = hi
		default:
			val = math.Max(lo, math.Min(hi, 0))
		}
		p.fix(v, val)
		changed = true
	}
	return changed
}

// fix removes v from every row at the provided value.
func (p *presolver) fix(v int, val float64) {
	for _, ri := range p.cols[v] {
		r := p.rows[ri]
		if r.dead {
			continue
		}
		if i := r.find(v); i >= 0 {
			r.rhs -= r.e[i].a * val
			r.e = append(r.e[:i], r.e[i+1:]...)
		}
	}
	p.steps = append(p.steps, postStep{kind: postFix, v: v, value: val})
	p.drop(v)
}

// substitute eliminates the i-th variable of row ri from every other row and the objective.
func (p *presolver) substitute(ri, i int) {
	r := p.rows[ri]
	piv := r.e[i]
	v := piv.v
	rest := without(r.e, i)
	p.steps = append(p.steps, postStep{kind: postSubst, v: v, e: rest, rhs: r.rhs, a: piv.a})
	p.killRow(ri)
	if c := p.cost[v]; c != 0 {
		for _, x := range rest {
			p.cost[x.v] -= c * x.a / piv.a
		}
		p.cost[v] = 0
	}
	for _, oi := range p.cols[v] {
		o := p.rows[oi]
		if o.dead {
			continue
		}
		k := o.find(v)
		if k < 0 {
			continue
		}
		f := o.e[k].a / piv.a
		o.rhs -= f * r.rhs
		p.combine(oi, f, rest, v)
	}
	p.drop(v)
}

// combine sets row oi to row oi - f·rest, without the variable drop.
func (p *presolver) combine(oi int, f float64, rest []entry, drop int) {
	o := p.rows[oi]
	out := make([]entry, 0, len(o.e)+len(rest))
	i, j := 0, 0
	for i < len(o.e) || j < len(rest) {
		switch {
		case j == len(rest) || (i < len(o.e) && o.e[i].v < rest[j].v):
			if o.e[i].v != drop {
				out = append(out, o.e[i])
			}
			i++
		case i == len(o.e) || rest[j].v < o.e[i].v:
			x := rest[j]
			j++
			if a := -f * x.a; a != 0 {
				out = append(out, entry{x.v, a})
				p.cols[x.v] = append(p.cols[x.v], oi)
				p.count[x.v]++
			}
		default:
			x, y := o.e[i], rest[j]
			i++
			j++
			a := x.a - f*y.a
			if math.Abs(a) <= cancelTol*math.Max(math.Abs(x.a), math.Abs(f*y.a)) {
				p.count[x.v]--
				continue
			}
			out = append(out, entry{x.v, a})
		}
	}
	o.e = out
}

func (p *presolver) killRow(ri int) {
	r := p.rows[ri]
	r.dead = true
	for _, x := range r.e {
		p.count[x.v]--
	}
}

func (p *presolver) drop(v int) {
	p.gone[v] = true
	p.cols[v] = nil
	p.count[v] = 0
}

func without(e []entry, i int) []entry {
	rest := make([]entry, 0, len(e)-1)
	rest = append(rest, e[:i]...)
	return append(rest, e[i+1:]...)
}

func senseHolds(lhs float64, sense Sense, rhs, tol float64) bool {
	switch sense {
	case SenseEQ:
		return math.Abs(lhs-rhs) <= tol
	case SenseLE:
		return lhs <= rhs+tol
	default:
		return lhs >= rhs-tol
	}
}

// block is a set of live rows sharing no variable with any other block.
type block struct {
	rows []int
	vars []int
}

// denseEntries returns the size of the tableau of b, artificial columns included.
func (b block) denseEntries() float64 {
	m := float64(len(b.rows))
	return m * (float64(len(b.vars)) + 2*m)
}

// blocks splits the live rows into independent blocks.
func (p *presolver) blocks() []block {
	parent := make([]int, len(p.rows))
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	owner := make([]int, p.n)
	for v := range owner {
		owner[v] = -1
	}
	for ri, r := range p.rows {
		parent[ri] = ri
		if r.dead {
			continue
		}
		for _, x := range r.e {
			if owner[x.v] < 0 {
				owner[x.v] = ri
				continue
			}
			if a, b := find(ri), find(owner[x.v]); a != b {
				parent[a] = b
			}
		}
	}
	index := map[int]int{}
	var blocks []block
	for ri, r := range p.rows {
		if r.dead {
			continue
		}
		root := find(ri)
		k, ok := index[root]
		if !ok {
			k = len(blocks)
			index[root] = k
			blocks = append(blocks, block{})
		}
		blocks[k].rows = append(blocks[k].rows, ri)
	}
	for v, ri := range owner {
		if ri >= 0 {
			k := index[find(ri)]
			blocks[k].vars = append(blocks[k].vars, v)
		}
	}
	return blocks
}

// postsolve completes values, which holds the block variables, with the eliminated ones.
func (p *presolver) postsolve(values []float64) {
	for i := len(p.steps) - 1; i >= 0; i-- {
		s := p.steps[i]
		if s.kind == postFix {
			values[s.v] = s.value
			continue
		}
		x := s.rhs
		for _, t := range s.e {
			x -= t.a * values[t.v]
		}
		x /= s.a
		if s.kind == postRaise {
			if s.up {
				x = math.Max(x, p.lower[s.v])
			} else {
				x = math.Min(x, p.upper[s.v])
			}
		}
		values[s.v] = x
	}
}
