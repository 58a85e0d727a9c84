// Package step defines the unit-of-work contract executed by pipelines.
// The variant set is closed over {Extract, Transform, Load, Custom};
// extensibility goes through the Custom kind, which carries a
// user-supplied function triple.
package step

import (
	"context"

	model "github.com/driftworks/cascade/pkg/etl/core/domain/model"
)

// Kind tags the closed set of step variants.
type Kind string

const (
	KindExtract   Kind = "EXTRACT"
	KindTransform Kind = "TRANSFORM"
	KindLoad      Kind = "LOAD"
	KindCustom    Kind = "CUSTOM"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// ExecuteFunc performs the step's work against the run context.
type ExecuteFunc func(ctx context.Context, ec *model.ExecutionContext) error

// ValidateFunc reports whether the step can execute against the context.
type ValidateFunc func(ec *model.ExecutionContext) bool

// RollbackFunc undoes the step's side effects. It must not fail; any
// internal error is swallowed by the caller.
type RollbackFunc func(ec *model.ExecutionContext)

// Step is a single unit of work over an ExecutionContext. Implementations
// are stateless across runs apart from construction-time configuration
// and must not retain the context after Execute returns.
type Step interface {
	// Name returns the step's display name.
	Name() string
	// Kind returns the step's variant tag.
	Kind() Kind
	// Execute performs the step's work, mutating the context in place.
	Execute(ctx context.Context, ec *model.ExecutionContext) error
	// Validate reports whether the step can run against the context.
	Validate(ec *model.ExecutionContext) bool
	// Rollback undoes the step's side effects, best effort.
	Rollback(ec *model.ExecutionContext)
}

// funcStep is the function-backed implementation behind all four
// constructors.
type funcStep struct {
	name     string
	kind     Kind
	execute  ExecuteFunc
	validate ValidateFunc
	rollback RollbackFunc
}

// Option customizes a step at construction time.
type Option func(*funcStep)

// WithValidate installs a validation check. Without it a step always
// validates.
func WithValidate(fn ValidateFunc) Option {
	return func(s *funcStep) { s.validate = fn }
}

// WithRollback installs a compensating action. Without it rollback is a
// no-op.
func WithRollback(fn RollbackFunc) Option {
	return func(s *funcStep) { s.rollback = fn }
}

func newFuncStep(name string, kind Kind, execute ExecuteFunc, opts ...Option) Step {
	s := &funcStep{
		name:    name,
		kind:    kind,
		execute: execute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewExtract creates an Extract step.
func NewExtract(name string, execute ExecuteFunc, opts ...Option) Step {
	return newFuncStep(name, KindExtract, execute, opts...)
}

// NewTransform creates a Transform step.
func NewTransform(name string, execute ExecuteFunc, opts ...Option) Step {
	return newFuncStep(name, KindTransform, execute, opts...)
}

// NewLoad creates a Load step.
func NewLoad(name string, execute ExecuteFunc, opts ...Option) Step {
	return newFuncStep(name, KindLoad, execute, opts...)
}

// NewCustom creates a Custom step around a user-supplied function triple.
func NewCustom(name string, execute ExecuteFunc, opts ...Option) Step {
	return newFuncStep(name, KindCustom, execute, opts...)
}

func (s *funcStep) Name() string {
	return s.name
}

func (s *funcStep) Kind() Kind {
	return s.kind
}

func (s *funcStep) Execute(ctx context.Context, ec *model.ExecutionContext) error {
	return s.execute(ctx, ec)
}

func (s *funcStep) Validate(ec *model.ExecutionContext) bool {
	if s.validate == nil {
		return true
	}
	return s.validate(ec)
}

func (s *funcStep) Rollback(ec *model.ExecutionContext) {
	if s.rollback != nil {
		s.rollback(ec)
	}
}

var _ Step = (*funcStep)(nil)
