package route

import (
	"fmt"
	"math"
)

// Sense is the relation of a linear constraint.
type Sense uint8

const (
	// SenseEQ is Σ aᵢxᵢ = b.
	SenseEQ Sense = iota + 1
	// SenseLE is Σ aᵢxᵢ ≤ b.
	SenseLE
	// SenseGE is Σ aᵢxᵢ ≥ b.
	SenseGE
)

func (s Sense) String() string {
	switch s {
	case SenseEQ:
		return "=="
	case SenseLE:
		return "<="
	case SenseGE:
		return ">="
	default:
		panic(fmt.Errorf("unknown sense %d", s))
	}
}

// Variable is the index of a decision variable in a Model.
type Variable int

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Variable
	Coef float64
}

// Constraint is a named linear relation between terms and a right hand side.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a linear program being assembled: variables are allocated by index and never removed.
// A Model is not safe for concurrent use.
type Model struct {
	Name         string
	names        []string
	lower, upper []float64
	cost         []float64
	constraints  []Constraint
}

// NewModel returns an empty minimization model.
func NewModel(name string) *Model {
	return &Model{Name: name}
}

// AddVariable adds a variable bounded by [lower, upper]; use math.Inf for unbounded sides.
func (m *Model) AddVariable(name string, lower, upper float64) Variable {
	if lower > upper || math.IsNaN(lower) || math.IsNaN(upper) {
		panic(fmt.Errorf("variable %s has invalid bounds [%f, %f]", name, lower, upper))
	}
	m.names = append(m.names, name)
	m.lower = append(m.lower, lower)
	m.upper = append(m.upper, upper)
	m.cost = append(m.cost, 0)
	return Variable(len(m.names) - 1)
}

// AddVariables adds n variables named prefix[i] sharing the same bounds.
func (m *Model) AddVariables(prefix string, n int, lower, upper float64) []Variable {
	vars := make([]Variable, n)
	for i := range vars {
		vars[i] = m.AddVariable(fmt.Sprintf("%s[%d]", prefix, i), lower, upper)
	}
	return vars
}

// AddConstraint appends a constraint. Terms referring to the same variable are summed by the solver.
func (m *Model) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) {
	for _, t := range terms {
		m.mustHave(t.Var)
	}
	m.constraints = append(m.constraints, Constraint{name, terms, sense, rhs})
}

// SetObjective replaces the objective to minimize by the provided terms.
func (m *Model) SetObjective(terms ...Term) {
	for i := range m.cost {
		m.cost[i] = 0
	}
	for _, t := range terms {
		m.mustHave(t.Var)
		m.cost[t.Var] += t.Coef
	}
}

// Clone returns a deep copy which can be extended independently.
func (m *Model) Clone() *Model {
	c := &Model{
		Name:        m.Name,
		names:       append([]string(nil), m.names...),
		lower:       append([]float64(nil), m.lower...),
		upper:       append([]float64(nil), m.upper...),
		cost:        append([]float64(nil), m.cost...),
		constraints: make([]Constraint, len(m.constraints)),
	}
	for i, ct := range m.constraints {
		ct.Terms = append([]Term(nil), ct.Terms...)
		c.constraints[i] = ct
	}
	return c
}

// NumVariables returns the number of variables.
func (m *Model) NumVariables() int { return len(m.names) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.constraints) }

// VariableName returns the name of v.
func (m *Model) VariableName(v Variable) string {
	m.mustHave(v)
	return m.names[v]
}

// Bounds returns the bounds of v.
func (m *Model) Bounds(v Variable) (lower, upper float64) {
	m.mustHave(v)
	return m.lower[v], m.upper[v]
}

// Cost returns the objective coefficient of v.
func (m *Model) Cost(v Variable) float64 {
	m.mustHave(v)
	return m.cost[v]
}

// Constraints returns the constraints. The returned slice must not be modified.
func (m *Model) Constraints() []Constraint {
	return m.constraints
}

// Evaluate returns the objective value of the assignment x.
func (m *Model) Evaluate(x []float64) float64 {
	var f float64
	for i, c := range m.cost {
		f += c * x[i]
	}
	return f
}

// Check returns the first bound or constraint violated by more than tol, or nil.
func (m *Model) Check(x []float64, tol float64) error {
	if len(x) != len(m.names) {
		return fmt.Errorf("assignment has %d values for %d variables", len(x), len(m.names))
	}
	for i, v := range x {
		if v < m.lower[i]-tol || v > m.upper[i]+tol {
			return fmt.Errorf("%s=%f outside [%f, %f]", m.names[i], v, m.lower[i], m.upper[i])
		}
	}
	for _, ct := range m.constraints {
		lhs := 0.0
		for _, t := range ct.Terms {
			lhs += t.Coef * x[t.Var]
		}
		var ok bool
		switch ct.Sense {
		case SenseEQ:
			ok = math.Abs(lhs-ct.RHS) <= tol
		case SenseLE:
			ok = lhs <= ct.RHS+tol
		case SenseGE:
			ok = lhs >= ct.RHS-tol
		}
		if !ok {
			return fmt.Errorf("%s violated: %f %s %f", ct.Name, lhs, ct.Sense, ct.RHS)
		}
	}
	return nil
}

func (m *Model) mustHave(v Variable) {
	if v < 0 || int(v) >= len(m.names) {
		panic(fmt.Errorf("variable %d not in model %s", v, m.Name))
	}
}
