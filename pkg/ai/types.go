package ai

import "context"

// Request carries one grading prompt to the evaluator. Model may be empty, in
// which case the evaluator's configured default applies.
type Request struct {
	Model  string
	Prompt string
}

// Evaluator is an opaque generative text service: prompt in, report out. The
// returned report is handed back verbatim; parsing is the caller's concern.
type Evaluator interface {
	Evaluate(ctx context.Context, req Request) (string, error)
}
