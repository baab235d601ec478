// Package checksapi fetches assumption-check results from the statistics
// backend over HTTP.
package checksapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"statadvisor/domain/assumption"
	"statadvisor/domain/core"
	"statadvisor/internal"
	"statadvisor/internal/errors"
	"statadvisor/ports"

	"github.com/tidwall/gjson"
)

const serviceName = "checks-api"

// maxBodyBytes bounds how much of a backend response is read
const maxBodyBytes = 4 << 20

// Config holds client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
	// ResultPath is the gjson path of the check results inside the response body
	ResultPath string
	Headers    map[string]string
}

// Client implements ports.CheckSource against the backend REST API
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *internal.Logger
}

var _ ports.CheckSource = (*Client)(nil)

// NewClient creates a client. A zero timeout falls back to 10s.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.ResultPath == "" {
		config.ResultPath = "assumptions"
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     internal.DefaultLogger.WithComponent("checksapi"),
	}
}

// Fetch retrieves the assumption checks computed for a dataset
func (c *Client) Fetch(ctx context.Context, datasetID core.DatasetID) (assumption.Checks, error) {
	startTime := time.Now()
	endpoint := fmt.Sprintf("%s/datasets/%s/assumptions", c.config.BaseURL, url.PathEscape(datasetID.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build checks request")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("%w: %v", core.ErrUpstream, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, fmt.Errorf("%w: read body: %v", core.ErrUpstream, err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: dataset %s has no assumption checks", core.ErrNotFound, datasetID)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.ExternalServiceError(serviceName,
			fmt.Errorf("%w: status %d: %s", core.ErrUpstream, resp.StatusCode, truncate(string(body), 200)))
	}

	checks, err := ParseChecks(body, c.config.ResultPath)
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, err)
	}

	c.logger.Debug("fetched %d checks for dataset %s in %s", len(checks), datasetID, time.Since(startTime))
	return checks, nil
}

// ParseChecks extracts check results at path. The value may be an object keyed
// by assumption or an array of objects carrying an "assumption" field.
// Malformed entries are skipped rather than failing the whole response.
func ParseChecks(body []byte, path string) (assumption.Checks, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", core.ErrUpstream)
	}
	result := gjson.GetBytes(body, path)
	if !result.Exists() {
		return nil, fmt.Errorf("%w: result path '%s' not found in response", core.ErrUpstream, path)
	}

	checks := assumption.Checks{}
	switch {
	case result.IsObject():
		result.ForEach(func(key, value gjson.Result) bool {
			if value.IsObject() {
				checks[key.String()] = parseResult(value)
			}
			return true
		})
	case result.IsArray():
		for _, value := range result.Array() {
			key := value.Get("assumption").String()
			if key == "" || !value.IsObject() {
				continue
			}
			checks[key] = parseResult(value)
		}
	default:
		return nil, fmt.Errorf("%w: result path '%s' is not an array or object", core.ErrUpstream, path)
	}
	return checks, nil
}

func parseResult(value gjson.Result) assumption.CheckResult {
	var out assumption.CheckResult

	switch passed := value.Get("passed"); passed.Type {
	case gjson.True, gjson.False:
		b := passed.Bool()
		out.Passed = &b
	}

	p := value.Get("p_value")
	if !p.Exists() || p.Type == gjson.Null {
		p = value.Get("pValue")
	}
	switch p.Type {
	case gjson.Number:
		v := p.Float()
		out.PValue = &v
	case gjson.String:
		if v, err := strconv.ParseFloat(strings.TrimSpace(p.String()), 64); err == nil {
			out.PValue = &v
		}
	}

	out.Test = value.Get("test").String()
	if ts := value.Get("timestamp"); ts.Type == gjson.String {
		if t, err := time.Parse(time.RFC3339, ts.String()); err == nil {
			out.Timestamp = core.NewTimestamp(t)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
