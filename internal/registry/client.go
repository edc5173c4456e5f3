// Package registry reads the planning.data.gov.uk entity API.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dharsanguruparan/PlanHarvest/internal/model"
)

const (
	// DefaultBaseURL is the public planning data service.
	DefaultBaseURL = "https://www.planning.data.gov.uk"
	// Dataset is the registry dataset listing local plan documents.
	Dataset = "local-plan-document"
	// DefaultPageSize is the number of entities requested per page.
	DefaultPageSize = 500

	pageTimeout         = 60 * time.Second
	organisationTimeout = 30 * time.Second
	maxErrorBody        = 512
)

// Fields requested for every entity.
var Fields = []string{
	"reference",
	"name",
	"organisation-entity",
	"document-url",
	"documentation-url",
	"document-types",
	"entry-date",
	"local-plan",
}

// StatusError is returned when the registry answers with a 4xx or 5xx.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry %s: status %d: %s", e.URL, e.Status, e.Body)
}

// IsStatus reports whether err carries a registry status error.
func IsStatus(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// OrganisationDoc is the subset of an organisation entity we need.
type OrganisationDoc struct {
	Prefix    string `json:"prefix"`
	Reference string `json:"reference"`
	Name      string `json:"name"`
}

type page struct {
	Entities []model.RegistryEntry `json:"entities"`
}

// Client fetches registry pages and organisation entities.
type Client struct {
	http     *http.Client
	baseURL  string
	pageSize int
}

// New builds a Client. An empty baseURL selects DefaultBaseURL and a
// non-positive pageSize selects DefaultPageSize.
func New(httpClient *http.Client, baseURL string, pageSize int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
	}
}

// PageSize returns the page size used for pagination.
func (c *Client) PageSize() int { return c.pageSize }

// Page returns the entities at offset. An empty slice marks the end of the
// dataset.
func (c *Client) Page(ctx context.Context, offset int) ([]model.RegistryEntry, error) {
	q := url.Values{}
	q.Set("dataset", Dataset)
	for _, f := range Fields {
		q.Add("field", f)
	}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))

	var p page
	if err := c.getJSON(ctx, c.baseURL+"/entity.json?"+q.Encode(), pageTimeout, &p); err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", offset, err)
	}
	return p.Entities, nil
}

// Organisation looks up one organisation entity by id.
func (c *Client) Organisation(ctx context.Context, id string) (OrganisationDoc, error) {
	var doc OrganisationDoc
	endpoint := fmt.Sprintf("%s/entity/%s.json", c.baseURL, url.PathEscape(id))
	if err := c.getJSON(ctx, endpoint, organisationTimeout, &doc); err != nil {
		return OrganisationDoc{}, fmt.Errorf("fetch organisation %s: %w", id, err)
	}
	return doc, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, timeout time.Duration, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{URL: endpoint, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
