package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAPIURL   = "http://api.powertochoose.org/api/PowerToChoose/plans"
	DefaultCSVURL   = "http://www.powertochoose.org/en-us/Plan/ExportToCsv"
	DefaultPageSize = 200
	DefaultTimeout  = 30 * time.Second

	// Concurrent zip code requests
	fetchConcurrency = 4
)

// FetchError is a non-2xx response from the catalog
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("catalog returned status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	APIURL     string
	CSVURL     string
	PageSize   int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the Power to Choose plan listing
type Client struct {
	apiURL   string
	csvURL   string
	pageSize int
	timeout  time.Duration
	http     *http.Client
	log      zerolog.Logger
}

// NewClient creates a catalog client
func NewClient(opts Options, log zerolog.Logger) *Client {
	c := &Client{
		apiURL:   opts.APIURL,
		csvURL:   opts.CSVURL,
		pageSize: opts.PageSize,
		timeout:  opts.Timeout,
		http:     opts.HTTPClient,
		log:      log.With().Str("component", "catalog").Logger(),
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.csvURL == "" {
		c.csvURL = DefaultCSVURL
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

type plansRequest struct {
	ZipCode  string `json:"zip_code"`
	PageSize int    `json:"page_size"`
}

type plansResponse struct {
	Data []map[string]any `json:"data"`
}

// FetchPlans posts a plan search for the zip code (empty means statewide)
// and returns the raw plan records.
func (c *Client) FetchPlans(ctx context.Context, zipCode string) ([]map[string]any, error) {
	body, err := json.Marshal(plansRequest{ZipCode: zipCode, PageSize: c.pageSize})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("url", c.apiURL).Str("zip", zipCode).Msg("fetching plans")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Provider data is loose: repeated member names keep the last value
	var decoded plansResponse
	if err := json.UnmarshalRead(resp.Body, &decoded,
		jsontext.AllowDuplicateNames(true),
		jsontext.AllowInvalidUTF8(true),
	); err != nil {
		return nil, fmt.Errorf("decoding plans response: %w", err)
	}

	c.log.Info().Str("zip", zipCode).Int("plans", len(decoded.Data)).Msg("fetched plans")
	return decoded.Data, nil
}

// FetchCSV downloads the full plan export. Each row becomes a record keyed
// by its header label, e.g. "[idKey]".
func (c *Client) FetchCSV(ctx context.Context) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.log.Debug().Str("url", c.csvURL).Msg("downloading plan export")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	records, err := parseExport(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing plan export: %w", err)
	}

	c.log.Info().Int("plans", len(records)).Msg("downloaded plan export")
	return records, nil
}

// FetchAll fetches every zip code concurrently and returns the records in zip order.
// An empty list performs one statewide search.
func (c *Client) FetchAll(ctx context.Context, zipCodes []string) ([]map[string]any, error) {
	if len(zipCodes) == 0 {
		return c.FetchPlans(ctx, "")
	}

	results := make([][]map[string]any, len(zipCodes))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, zip := range zipCodes {
		g.Go(func() error {
			records, err := c.FetchPlans(gctx, zip)
			if err != nil {
				return fmt.Errorf("fetching plans for %s: %w", zip, err)
			}
			mu.Lock()
			results[i] = records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []map[string]any
	for _, records := range results {
		all = append(all, records...)
	}
	return all, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &FetchError{
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

func parseExport(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []map[string]any
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		record := make(map[string]any, len(header))
		for i, key := range header {
			if key == "" || i >= len(row) {
				continue
			}
			record[key] = row[i]
		}
		records = append(records, record)
	}
	return records, nil
}
