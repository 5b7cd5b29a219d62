// Package breach queries external breach databases for monitored identifiers.
package breach

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/turtacn/pdmews/internal/domain/service"
	"github.com/turtacn/pdmews/pkg/constants"
	"github.com/turtacn/pdmews/pkg/errors"
	"github.com/turtacn/pdmews/pkg/logger"
)

// HIBPClient looks accounts up in the Have I Been Pwned v3 API.
type HIBPClient struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     logger.Logger
}

var _ service.BreachLookup = (*HIBPClient)(nil)

// NewHIBPClient creates a client for baseURL authenticated with apiKey.
func NewHIBPClient(baseURL, apiKey, userAgent string, timeout time.Duration, log logger.Logger) *HIBPClient {
	if baseURL == "" {
		baseURL = constants.DefaultBreachBaseURL
	}
	if userAgent == "" {
		userAgent = constants.DefaultBreachUserAgent
	}
	return &HIBPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithComponent("hibp"),
	}
}

// Lookup returns the breaches account appears in.
// 404 表示未泄露，401 表示 API Key 无效，其余失败均视为暂时性错误。
func (c *HIBPClient) Lookup(ctx context.Context, account string) ([]service.BreachEntry, error) {
	endpoint := fmt.Sprintf("%s/breachedaccount/%s?truncateResponse=false", c.baseURL, url.PathEscape(account))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.ErrInternal("failed to build breach lookup request").WithCause(err)
	}
	req.Header.Set("hibp-api-key", c.apiKey)
	req.Header.Set("user-agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ErrTransient("breach lookup failed").WithCause(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, service.ErrBreachNotFound
	case http.StatusUnauthorized:
		return nil, service.ErrBreachUnauthorized
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.ErrTransient(fmt.Sprintf("breach lookup returned status %d", resp.StatusCode)).
			WithMetadata("status", resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.ErrTransient("failed to decode breach lookup response").WithCause(err)
	}

	// a malformed entry is dropped on its own; the rest of the response still counts
	entries := make([]service.BreachEntry, 0, len(raw))
	for i, item := range raw {
		var entry service.BreachEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			c.logger.Warn(ctx, "Skipping malformed breach entry",
				logger.Int("index", i),
				logger.Error(err),
			)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
