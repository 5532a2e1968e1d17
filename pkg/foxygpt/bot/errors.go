package bot

import "errors"

// Pipeline failure taxonomy. Each sentinel wraps the underlying cause at
// the dispatcher call site that produced it. Nothing here is retried:
// every failure is a terminal outcome for that event's pass, and none of
// them crash the process.
//
// A flagged message is not an error — it is a policy outcome (retract,
// audit, abort) handled inline by the dispatcher.
var (
	// ErrSafetyService: the moderation call itself failed. The pass aborts;
	// the gate never defaults to "safe".
	ErrSafetyService = errors.New("safety classification failed")

	// ErrAttachmentFetch: the attachment bytes could not be downloaded.
	// The pass aborts with no turn committed.
	ErrAttachmentFetch = errors.New("attachment fetch failed")

	// ErrGeneration: the reply call failed. No assistant turn is committed
	// and nothing is sent.
	ErrGeneration = errors.New("reply generation failed")
)
