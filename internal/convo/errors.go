package convo

import "errors"

// Error kinds for the conversation flow. Handlers wrap the underlying cause
// with %w onto one of these sentinels so the engine can pick a recovery
// path with errors.Is.
var (
	// ErrClassification means the classifier returned empty or malformed
	// output. Recovered by re-asking for the description.
	ErrClassification = errors.New("classification failed")

	// ErrExtraction means no name could be extracted from the registration
	// reply. Recovered by re-asking in place.
	ErrExtraction = errors.New("profile extraction failed")

	// ErrMedia means transcription or image description failed.
	ErrMedia = errors.New("media processing failed")

	// ErrValidation means an empty or invalid field reply. Always re-prompts
	// in place.
	ErrValidation = errors.New("invalid reply")

	// ErrPersistence means a ticket or checkpoint write failed. The draft is
	// preserved so the operator can retry without losing data.
	ErrPersistence = errors.New("persistence failed")

	// ErrRouting means a step had no matching router branch. This is a bug,
	// not a user condition; the engine logs it and re-greets.
	ErrRouting = errors.New("no route from step")
)
