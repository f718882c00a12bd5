// Package mailgw is the outbound mail gateway client. RFQ dispatch and PO
// confirmation scanning go through it; everything else treats it as a
// best-effort port.
package mailgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// StatusError carries the HTTP status of a failed gateway call.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mail gateway error [%d]: %s", e.Status, e.Message)
}

// retry policy: GET only, up to 2 extra attempts on 5xx, 1s then 2s backoff.
const maxGetRetries = 2

var retryBase = time.Second

// Client talks to the mail gateway with a cached bearer token.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	sender       string

	tokenCache  string
	tokenExpire time.Time
	mu          sync.RWMutex
	httpClient  *http.Client
}

func NewClient(baseURL, clientID, clientSecret, sender string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		sender:       sender,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// getToken returns a cached bearer token, refreshing 60s before expiry.
// Double-checked locking keeps concurrent refreshes to one request.
func (c *Client) getToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.tokenCache != "" && time.Now().Before(c.tokenExpire) {
		token := c.tokenCache
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tokenCache != "" && time.Now().Before(c.tokenExpire) {
		return c.tokenCache, nil
	}

	reqBody := map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}
	bodyBytes, _ := json.Marshal(reqBody)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Status: resp.StatusCode, Message: "token request rejected"}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.tokenCache = result.AccessToken
	c.tokenExpire = time.Now().Add(time.Duration(result.ExpiresIn-60) * time.Second)

	return result.AccessToken, nil
}

// doRequest executes one gateway call. GET requests retry up to two extra
// times on HTTP >= 500 with exponential backoff; non-GET requests never
// retry. Any other failure returns immediately with the status attached.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get access token: %w", err)
	}

	var bodyBytes []byte
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += maxGetRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := retryBase << (attempt - 1) // 1s, 2s
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 500 && method == http.MethodGet {
			lastErr = &StatusError{Status: resp.StatusCode, Message: string(respBody)}
			continue
		}
		if resp.StatusCode >= 400 {
			return &StatusError{Status: resp.StatusCode, Message: string(respBody)}
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}

	return lastErr
}

// SendMail sends one outgoing message. Callers decide whether a failure is
// surfaced or swallowed.
func (c *Client) SendMail(ctx context.Context, to, subject, body string) error {
	payload := map[string]string{
		"from":    c.sender,
		"to":      to,
		"subject": subject,
		"body":    body,
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/messages", payload, nil)
}

// ScanSentMail asks the gateway whether each PO number appears in sent mail,
// returning a per-PO confirmation map.
func (c *Client) ScanSentMail(ctx context.Context, poNumbers []string) (map[string]bool, error) {
	if len(poNumbers) == 0 {
		return map[string]bool{}, nil
	}
	q := url.Values{}
	q.Set("po_numbers", strings.Join(poNumbers, ","))

	var result struct {
		Confirmed map[string]bool `json:"confirmed"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/v1/sent-mail/scan?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	if result.Confirmed == nil {
		result.Confirmed = map[string]bool{}
	}
	return result.Confirmed, nil
}
