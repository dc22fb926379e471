package api

import "fmt"

// PreviewLimit is the number of characters of a response body kept for diagnostics.
const PreviewLimit = 160

// HTTPError is returned when the backend replies outside the 2xx range.
type HTTPError struct {
	Status      int
	StatusText  string
	BodyPreview string
}

func (e *HTTPError) Error() string {
	status := e.StatusText
	if status == "" {
		status = fmt.Sprintf("%d", e.Status)
	}
	if e.BodyPreview != "" {
		return fmt.Sprintf("request failed: %s: %s", status, e.BodyPreview)
	}
	return fmt.Sprintf("request failed: %s", status)
}

// FormatError is returned when a 2xx reply is not declared as JSON.
type FormatError struct {
	ContentType string
	BodyPreview string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("response is not JSON: content-type=%s: %s", e.ContentType, e.BodyPreview)
}

// Preview returns at most PreviewLimit characters of s.
func Preview(s string) string {
	r := []rune(s)
	if len(r) <= PreviewLimit {
		return s
	}
	return string(r[:PreviewLimit])
}
