// Package query compiles CEL expressions into frame predicates for store
// scans. Expressions see one variable, frame, a map of the frame's queryable
// fields; compiled programs are cached per expression, and evaluation
// failures count as non-matches so a bad expression cannot fail a whole scan.
package query

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/Mindburn-Labs/wake/pkg/frame"
	"github.com/Mindburn-Labs/wake/pkg/store"
)

// Compiler turns CEL expressions into store predicates. Safe for concurrent
// use; compiled programs are cached under an RWMutex keyed by expression.
type Compiler struct {
	env    *cel.Env
	logger *slog.Logger

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewCompiler builds the CEL environment exposing the frame variable.
func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("frame", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Compiler{
		env:      env,
		logger:   slog.Default().With("component", "query"),
		programs: make(map[string]cel.Program),
	}, nil
}

// CompilePredicate compiles expr into a predicate for store.Query. The
// expression must evaluate to a boolean; runtime evaluation errors (missing
// keys, type mismatches) make the frame a non-match rather than failing the
// scan.
func (c *Compiler) CompilePredicate(expr string) (store.Predicate, error) {
	prg, err := c.program(expr)
	if err != nil {
		return nil, err
	}

	return func(f *frame.Frame) bool {
		out, _, err := prg.Eval(map[string]any{"frame": activation(f)})
		if err != nil {
			c.logger.Warn("predicate evaluation failed, treating as non-match",
				"expr", expr, "error", err)
			return false
		}
		matched, ok := out.Value().(bool)
		return ok && matched
	}, nil
}

// program returns the cached compiled program for expr, compiling on miss.
func (c *Compiler) program(expr string) (cel.Program, error) {
	c.mu.RLock()
	prg, hit := c.programs[expr]
	c.mu.RUnlock()
	if hit {
		return prg, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Double check: another goroutine may have compiled it meanwhile.
	if prg, hit = c.programs[expr]; hit {
		return prg, nil
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	prg, err := c.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	c.programs[expr] = prg
	return prg, nil
}

// CacheSize reports the number of cached compiled programs.
func (c *Compiler) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// activation projects a frame into the map the CEL expressions query.
// Unsigned counters are exposed as int64 so expressions compare them against
// plain integer literals.
func activation(f *frame.Frame) map[string]any {
	return map[string]any{
		"session_id":      f.Metadata.SessionID,
		"noun_id":         f.NounID,
		"verb_id":         f.VerbID,
		"capability_id":   f.CapabilityID,
		"quota_tier":      string(f.QuotaTier),
		"exit_class":      string(f.ExitClass),
		"tags":            f.Metadata.Tags,
		"sequence_number": int64(f.Metadata.SequenceNumber),
		"logical_tick":    int64(f.Clock.LogicalTick),
		"runtime_ms":      f.Footprint.RuntimeMS,
	}
}
