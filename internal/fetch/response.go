package fetch

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"
)

// Kind is the body classification derived from Content-Type.
type Kind string

// Body kinds.
const (
	KindJSON Kind = "json"
	KindXML  Kind = "xml"
	KindText Kind = "text"
)

// KindOf classifies a Content-Type header value.
func KindOf(contentType string) Kind {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return KindJSON
	case mediaType == "application/xml" || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml"):
		return KindXML
	default:
		return KindText
	}
}

// Response is a fetched resource.
type Response struct {
	Locator     string      `json:"locator"`
	StatusCode  int         `json:"status_code"`
	ContentType string      `json:"content_type"`
	Kind        Kind        `json:"kind"`
	Header      http.Header `json:"header,omitempty"`
	Body        []byte      `json:"body"`
	FetchedAt   time.Time   `json:"fetched_at"`
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// DecodeJSON unmarshals a JSON body into v.
func (r *Response) DecodeJSON(v any) error {
	if r.Kind != KindJSON {
		return fmt.Errorf("decode %s: body is %s, not json", r.Locator, r.Kind)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s: %w", r.Locator, err)
	}
	return nil
}
