// Package verdict maps an ensemble result to an operational status
// through an operator-configurable CEL policy.
package verdict

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Policy evaluates a compiled CEL expression against each evaluation.
// The expression sees the ensemble outputs and must return a bool:
// true flags the transaction, false approves it. The program is
// compiled once and hot-swappable behind a lock.
type Policy struct {
	mu      sync.RWMutex
	env     *cel.Env
	program cel.Program
	expr    string
}

// DefaultExpression is the shipped alert policy. The composite is an
// unnormalized risk intensity (up to 1.5 at full amplification), so the
// threshold sits above 1.
const DefaultExpression = "composite_score >= 1.05 || (drift_detected && composite_score >= 0.9)"

// New compiles a policy expression.
func New(expr string) (*Policy, error) {
	if expr == "" {
		expr = DefaultExpression
	}

	env, err := cel.NewEnv(
		cel.Variable("composite_score", cel.DoubleType),
		cel.Variable("anomaly_score", cel.DoubleType),
		cel.Variable("supervised_probability", cel.DoubleType),
		cel.Variable("graph_probability", cel.DoubleType),
		cel.Variable("customer_risk", cel.DoubleType),
		cel.Variable("drift_detected", cel.BoolType),
		cel.Variable("amount", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	p := &Policy{env: env}
	if err := p.SetExpression(expr); err != nil {
		return nil, err
	}
	return p, nil
}

// SetExpression compiles and swaps in a new policy expression.
func (p *Policy) SetExpression(expr string) error {
	ast, issues := p.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("failed to compile policy: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("policy must return bool, got %s", ast.OutputType())
	}

	program, err := p.env.Program(ast)
	if err != nil {
		return fmt.Errorf("failed to create policy program: %w", err)
	}

	p.mu.Lock()
	p.program = program
	p.expr = expr
	p.mu.Unlock()
	return nil
}

// Expression returns the active policy expression.
func (p *Policy) Expression() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.expr
}

// Decide evaluates the policy and returns the verdict status.
// A policy evaluation error approves the transaction: the policy is an
// alerting overlay, never a reason to fail a scored request.
func (p *Policy) Decide(res *domain.Result, amount float64) (status string, err error) {
	p.mu.RLock()
	program := p.program
	p.mu.RUnlock()

	out, _, err := program.Eval(map[string]any{
		"composite_score":        res.Composite,
		"anomaly_score":          res.Anomaly.Value,
		"supervised_probability": res.Supervised.Value,
		"graph_probability":      res.Graph.Value,
		"customer_risk":          res.CustomerRisk,
		"drift_detected":         res.DriftDetected,
		"amount":                 amount,
	})
	if err != nil {
		return domain.StatusApproved, fmt.Errorf("policy evaluation failed: %w", err)
	}

	if flagged, ok := out.(types.Bool); ok && bool(flagged) {
		return domain.StatusFlagged, nil
	}
	return domain.StatusApproved, nil
}
