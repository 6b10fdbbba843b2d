package llm

import (
	"encoding/json"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"ragchat/internal/domain"
)

// kindForStatus maps an HTTP status to a generation failure kind.
func kindForStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return domain.ErrAuth
	case code == http.StatusTooManyRequests || code >= 500:
		return domain.ErrNetwork
	case code >= 400:
		return domain.ErrRejected
	}
	return nil
}

// classify picks the failure kind for an error returned by a provider call.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if kind := kindForStatus(apiErr.HTTPStatusCode); kind != nil {
			return kind
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if kind := kindForStatus(reqErr.HTTPStatusCode); kind != nil {
			return kind
		}
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if kind := kindForStatus(statusErr.code); kind != nil {
			return kind
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.ErrMalformedResponse
	}

	// Transport failures, timeouts and anything unrecognised.
	return domain.ErrNetwork
}
