package driven

import "context"

// Completer is the opaque text-completion service used by the summarization
// worker. Implementations return *RateLimitError when the upstream signals
// rate limiting so the worker can requeue instead of dropping the job.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
