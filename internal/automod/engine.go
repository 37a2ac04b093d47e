package automod

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Engine runs inbound messages through the evaluator and enforcer.
type Engine struct {
	evaluator *Evaluator
	enforcer  *Enforcer
	logger    *zap.Logger
}

// NewEngine ties an evaluator and an enforcer together.
func NewEngine(evaluator *Evaluator, enforcer *Enforcer, logger *zap.Logger) *Engine {
	return &Engine{
		evaluator: evaluator,
		enforcer:  enforcer,
		logger:    logger.Named("automod"),
	}
}

// HandleMessage evaluates msg and enforces the matched policy.
// Failures are logged. The outcome is nil when nothing matched or enforcement stopped before a warning was recorded.
func (e *Engine) HandleMessage(ctx context.Context, msg *Message) *Outcome {
	policy, ok := e.evaluator.Evaluate(ctx, msg)
	if !ok {
		return nil
	}

	outcome, err := e.enforcer.HandleViolation(ctx, msg, policy)
	if err != nil {
		level := e.logger.Error
		if errors.Is(err, ErrCaseIDTaken) {
			level = e.logger.Warn
		}

		level("Enforcement aborted",
			zap.Uint64("userID", uint64(msg.AuthorID)),
			zap.Uint64("messageID", uint64(msg.ID)),
			zap.Stringer("policy", policy.Type),
			zap.Error(err))
	}

	return outcome
}

// Evaluator returns the underlying evaluator.
func (e *Engine) Evaluator() *Evaluator {
	return e.evaluator
}

// Close stops pending background work.
func (e *Engine) Close() {
	e.enforcer.Close()
}
