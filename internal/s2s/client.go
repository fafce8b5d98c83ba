package s2s

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Headers names the request attributes carrying the trust channel fields.
type Headers struct {
	ServiceName      string
	ServiceSignature string
	AssertedUserID   string
	AssertedRole     string
}

// DefaultHeaders are the header names used across Meridian services unless
// configuration overrides them.
var DefaultHeaders = Headers{
	ServiceName:      "X-Service-Name",
	ServiceSignature: "X-Service-Signature",
	AssertedUserID:   "X-Asserted-User-Id",
	AssertedRole:     "X-Asserted-Role",
}

// Client performs outbound calls to sibling services, attaching the caller's
// name and a fresh signature to every request. Calls that exceed the
// configured timeout fail; retrying is the caller's decision.
type Client struct {
	serviceName string
	signer      *Signer
	headers     Headers
	httpClient  *http.Client
}

// NewClient constructs a signed outbound client.
func NewClient(serviceName string, signer *Signer, headers Headers, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &Client{
		serviceName: serviceName,
		signer:      signer,
		headers:     headers,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Do sends the request with trust headers attached. When forwarding an
// already-authenticated end user, userID and role travel as asserted
// identity headers for the callee to honor under the signature.
func (c *Client) Do(ctx context.Context, method, url string, body io.Reader, userID, role string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(c.headers.ServiceName, c.serviceName)
	req.Header.Set(c.headers.ServiceSignature, c.signer.Sign(c.serviceName))
	if userID != "" {
		req.Header.Set(c.headers.AssertedUserID, userID)
		req.Header.Set(c.headers.AssertedRole, role)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("s2s: call %s %s: %w", method, url, err)
	}
	return resp, nil
}
