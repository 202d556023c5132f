package client

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"
)

// APIError is a provider rejection. Its message is already suitable for
// showing to the user.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

func statusMessage(status int) string {
	return fmt.Sprintf("API request failed with status %d", status)
}

// errorMessage pulls a readable message from a provider error body, falling
// back to the status-coded message.
func errorMessage(body []byte, status int) string {
	if !gjson.ValidBytes(body) {
		return statusMessage(status)
	}
	errField := gjson.GetBytes(body, "error")
	switch {
	case errField.IsObject():
		if msg := errField.Get("message").String(); msg != "" {
			return msg
		}
	case errField.Type == gjson.String && errField.String() != "":
		return errField.String()
	}
	return statusMessage(status)
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// transportError drops the request URL from err, since Gemini URLs carry the
// API key.
func transportError(provider string, err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	return fmt.Errorf("%s request failed: %w", provider, err)
}
