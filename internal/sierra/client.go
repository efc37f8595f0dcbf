// Package sierra is a client for the NYPL catalog data API, plus the
// conversion of its bib and item JSON into MARC records.
package sierra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// NyplSource is the catalog namespace used on every request.
const NyplSource = "sierra-nypl"

const pageSize = 100

// ErrNotFound is returned when the API has no record for a request.
var ErrNotFound = errors.New("not found")

// Config holds connection settings for the catalog API.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
}

// Client fetches bibs and items from the catalog API.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a client. When client credentials are configured every
// request carries an OAuth2 bearer token obtained with the client
// credentials grant; otherwise requests are sent unauthenticated.
func NewClient(ctx context.Context, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	base := &http.Client{Timeout: timeout}

	httpClient := base
	if cfg.ClientID != "" && cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		httpClient = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
		httpClient.Timeout = timeout
	}

	return &Client{
		BaseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// ItemsByBarcode returns the items carrying barcode.
func (c *Client) ItemsByBarcode(ctx context.Context, barcode string) ([]Item, error) {
	q := url.Values{}
	q.Set("barcode", barcode)
	q.Set("nyplSource", NyplSource)

	var resp response[[]Item]
	if err := c.get(ctx, "items", q, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch items for barcode %s: %w", barcode, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("failed to fetch items for barcode %s: %w", barcode, ErrNotFound)
	}
	return resp.Data, nil
}

// Bib returns the bib with the given id.
func (c *Client) Bib(ctx context.Context, id string) (*Bib, error) {
	var resp response[*Bib]
	path := fmt.Sprintf("bibs/%s/%s", NyplSource, url.PathEscape(id))
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch bib %s: %w", id, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("failed to fetch bib %s: %w", id, ErrNotFound)
	}
	return resp.Data, nil
}

// ItemsByBib returns every item attached to a bib, following pages until
// a short page comes back.
func (c *Client) ItemsByBib(ctx context.Context, bibID string) ([]Item, error) {
	var items []Item
	for offset := 0; ; offset += pageSize {
		q := url.Values{}
		q.Set("bibId", bibID)
		q.Set("nyplSource", NyplSource)
		q.Set("limit", strconv.Itoa(pageSize))
		q.Set("offset", strconv.Itoa(offset))

		var resp response[[]Item]
		err := c.get(ctx, "items", q, &resp)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch items for bib %s: %w", bibID, err)
		}
		items = append(items, resp.Data...)
		slog.Debug("Fetched item page", "bib_id", bibID, "offset", offset, "items", len(resp.Data))
		if len(resp.Data) < pageSize {
			break
		}
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.BaseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call catalog API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("catalog API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return nil
}
