package domain

import "errors"

// Error kinds. Callers wrap them with fmt.Errorf("...: %w", ErrX) and
// match with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrIngestion     = errors.New("ingestion error")
	ErrRetrieval     = errors.New("retrieval error")
	ErrGeneration    = errors.New("generation error")

	// Generation failure causes.
	ErrNetwork           = errors.New("network failure")
	ErrAuth              = errors.New("authentication failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrRejected          = errors.New("request rejected by provider")
)

// Fatal reports whether err must terminate the process instead of only
// aborting the current turn.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrIngestion)
}

// Describe renders err as a short message for the terminal.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrAuth):
		return "the LLM provider rejected the credentials (" + err.Error() + ")"
	case errors.Is(err, ErrNetwork):
		return "could not reach the LLM provider (" + err.Error() + ")"
	case errors.Is(err, ErrMalformedResponse):
		return "the LLM provider returned an unusable response (" + err.Error() + ")"
	case errors.Is(err, ErrRejected):
		return "the LLM provider refused the request (" + err.Error() + ")"
	case errors.Is(err, ErrRetrieval):
		return "could not search the index (" + err.Error() + ")"
	default:
		return err.Error()
	}
}
