package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

type FailureKind int

const (
	FailureConnectivity FailureKind = iota + 1
	FailureProtocol
	FailureSchema
	FailureIO
)

func (k FailureKind) String() string {
	switch k {
	case FailureConnectivity:
		return "connectivity"
	case FailureProtocol:
		return "protocol"
	case FailureSchema:
		return "schema"
	case FailureIO:
		return "io"
	default:
		return "unknown"
	}
}

// FetchError describes why a metadata lookup or a download failed.
type FetchError struct {
	Kind   FailureKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s failure for %s: HTTP %d: %v", e.Kind, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failure for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func FailureKindOf(err error) (FailureKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// APIResponse is the error body both metadata APIs send with a non-2xx status.
type APIResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (resp APIResponse) GetError() error {
	if resp.Error != "" {
		return errors.New(resp.Error)
	}
	if resp.Message != "" {
		return errors.New(resp.Message)
	}
	return nil
}

func newGetRequest(ctx context.Context, url string, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return req, nil
}

func protocolError(url string, resp *http.Response) *FetchError {
	err := fmt.Errorf("request failed: %s", resp.Status)
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if readErr == nil {
		var apiResp APIResponse
		if json.Unmarshal(body, &apiResp) == nil && apiResp.GetError() != nil {
			err = fmt.Errorf("request failed: %s: %w", resp.Status, apiResp.GetError())
		}
	}
	return &FetchError{Kind: FailureProtocol, URL: url, Status: resp.StatusCode, Err: err}
}

type versionsResponse struct {
	Versions []json.RawMessage `json:"versions"`
}

// parseVersions reads the top-level versions array. Entries that are not
// strings, null included, are skipped.
func parseVersions(body []byte) (VersionList, error) {
	var resp versionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Versions == nil {
		return nil, errors.New("response has no versions array")
	}

	versions := make(VersionList, 0, len(resp.Versions))
	for _, raw := range resp.Versions {
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil || v == nil {
			continue
		}
		versions = append(versions, *v)
	}
	return versions, nil
}

// MetadataClient reads version and build lists from a distribution's API.
// It never retries and never caches.
type MetadataClient struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func NewMetadataClient(client *http.Client, userAgent string, logger *zap.Logger) *MetadataClient {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataClient{client: client, userAgent: userAgent, logger: logger}
}

// APICall performs a GET and returns the body of a 2xx response.
func (c *MetadataClient) APICall(ctx context.Context, url string) ([]byte, error) {
	c.logger.Debug("GET", zap.String("url", url))
	req, err := newGetRequest(ctx, url, c.userAgent)
	if err != nil {
		return nil, &FetchError{Kind: FailureConnectivity, URL: url, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FailureConnectivity, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, protocolError(url, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: FailureConnectivity, URL: url, Err: err}
	}
	return body, nil
}

// GetJSON performs APICall and decodes the body into val.
func (c *MetadataClient) GetJSON(ctx context.Context, url string, val interface{}) error {
	body, err := c.APICall(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, val); err != nil {
		return &FetchError{Kind: FailureSchema, URL: url, Err: err}
	}
	return nil
}

func (c *MetadataClient) FetchVersions(ctx context.Context, d Distribution) (VersionList, error) {
	if d == nil {
		return nil, ErrUnknownDistribution
	}
	url := d.VersionsURL()
	body, err := c.APICall(ctx, url)
	if err != nil {
		return nil, err
	}
	versions, err := d.ParseVersions(body)
	if err != nil {
		return nil, &FetchError{Kind: FailureSchema, URL: url, Err: err}
	}
	return versions, nil
}

func (c *MetadataClient) FetchBuilds(ctx context.Context, d Distribution, version string) (BuildList, error) {
	if d == nil {
		return nil, ErrUnknownDistribution
	}
	if version == "" {
		return nil, ErrEmptyVersion
	}
	url := d.BuildsURL(version)
	body, err := c.APICall(ctx, url)
	if err != nil {
		return nil, err
	}
	builds, err := d.ParseBuilds(body)
	if err != nil {
		return nil, &FetchError{Kind: FailureSchema, URL: url, Err: err}
	}
	return builds, nil
}

// ListVersions returns an empty list on any failure and logs why.
func (c *MetadataClient) ListVersions(ctx context.Context, d Distribution) VersionList {
	versions, err := c.FetchVersions(ctx, d)
	if err != nil {
		c.logFailure("Failed to fetch versions", err)
		return VersionList{}
	}
	return versions
}

// ListBuilds returns an empty list on any failure and logs why. The order of
// the API is kept; a list that is not ascending is only reported.
func (c *MetadataClient) ListBuilds(ctx context.Context, d Distribution, version string) BuildList {
	builds, err := c.FetchBuilds(ctx, d, version)
	if err != nil {
		c.logFailure("Failed to fetch builds", err, zap.String("version", version))
		return BuildList{}
	}
	if !builds.Ascending() {
		latest, _ := builds.Latest()
		c.logger.Warn("Build list is not in ascending order, using the last listed build as latest",
			zap.String("distribution", d.Name()),
			zap.String("version", version),
			zap.Int64("latest", latest),
		)
	}
	return builds
}

func (c *MetadataClient) logFailure(msg string, err error, fields ...zap.Field) {
	if kind, ok := FailureKindOf(err); ok {
		fields = append(fields, zap.Stringer("kind", kind))
	}
	c.logger.Error(msg, append(fields, zap.Error(err))...)
}
