package core

import (
	"context"
	"fmt"
	"strings"
)

// DefaultBaseURL is the public Bot API host.
const DefaultBaseURL = "https://api.telegram.org"

// FilePart is a file attached to a multipart request under Field.
type FilePart struct {
	Field string
	Path  string
}

// Transport performs raw Bot API round-trips and returns the response body.
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Post(ctx context.Context, url string, body []byte) ([]byte, error)
	PostMultipart(ctx context.Context, url string, fields map[string]string, file *FilePart) ([]byte, error)
}

// Endpoint builds the URL of a Bot API method.
func Endpoint(baseURL, token, method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(baseURL, "/"), token, method)
}
