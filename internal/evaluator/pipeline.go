package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnexpectedState is returned when a step runs on an evaluation that
// is not in the state the step expects.
var ErrUnexpectedState = errors.New("unexpected evaluation state")

// Step is one stage of an evaluation.
type Step interface {
	// Do advances the evaluation. An error aborts the evaluation.
	Do(ctx context.Context, ev *Evaluation) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order until one fails or the evaluation reaches
// a terminal state.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets a custom logger for the pipeline.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates an empty Pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddSteps appends steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

// Execute runs the steps on ev. Cancellation is checked before each step.
func (p *Pipeline) Execute(ctx context.Context, ev *Evaluation) error {
	for _, step := range p.steps {
		if ev.State.Terminal() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := step.Do(ctx, ev); err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
		p.logger.Debug("step completed",
			"step", step.Name(),
			"user", ev.Ban.Username,
			"state", ev.State,
		)
	}
	return nil
}
