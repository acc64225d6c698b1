// Package xmlriver wraps the xmlriver.com proxy for Yandex search. Results
// come back as the Yandex XML search format; the account balance endpoint
// returns a bare number.
package xmlriver

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/xl-idp/reference-inn/internal/resilience"
)

const (
	defaultSearchURL  = "https://xmlriver.com/search_yandex/xml"
	defaultBalanceURL = "https://xmlriver.com/api/get_balance/yandex/"
)

// Error codes the service returns inside the XML body.
const (
	// codeNoFunds means the account balance is exhausted. Not retryable.
	codeNoFunds = "200"
	// codeNoChannels means all collection channels are busy. Retryable.
	codeNoChannels = "110"
	// codeNoResults means the query matched nothing. An empty result, not
	// an error.
	codeNoResults = "15"
)

// Doc is one search hit.
type Doc struct {
	Title   string
	Passage string
}

// Client defines the search operations used by the resolution pipeline.
type Client interface {
	// Search runs a query and returns the result docs. An exhausted
	// balance surfaces as a fatal error, busy channels as a transient one.
	Search(ctx context.Context, query string) ([]Doc, error)
	// Balance reports the remaining account balance in rubles.
	Balance(ctx context.Context) (float64, error)
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *client) { c.httpClient = h }
}

// WithSearchURL overrides the search endpoint, for tests.
func WithSearchURL(u string) Option {
	return func(c *client) { c.searchURL = u }
}

// WithBalanceURL overrides the balance endpoint, for tests.
func WithBalanceURL(u string) Option {
	return func(c *client) { c.balanceURL = u }
}

type client struct {
	httpClient *http.Client
	user       string
	key        string
	searchURL  string
	balanceURL string
}

// New creates a Client with the given account credentials.
func New(user, key string, opts ...Option) Client {
	c := &client{
		httpClient: http.DefaultClient,
		user:       user,
		key:        key,
		searchURL:  defaultSearchURL,
		balanceURL: defaultBalanceURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *client) Search(ctx context.Context, query string) ([]Doc, error) {
	params := url.Values{
		"user":  {c.user},
		"key":   {c.key},
		"query": {query},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "xmlriver: build search request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "xmlriver: search request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("xmlriver: search returned status %d", resp.StatusCode)
		if resilience.RetryableHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return parseSearchResponse(resp.Body)
}

func (c *client) Balance(ctx context.Context) (float64, error) {
	params := url.Values{
		"user": {c.user},
		"key":  {c.key},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.balanceURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, eris.Wrap(err, "xmlriver: build balance request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "xmlriver: balance request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("xmlriver: balance returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, eris.Wrap(err, "xmlriver: read balance body")
	}
	balance, err := strconv.ParseFloat(strings.TrimSpace(string(body)), 64)
	if err != nil {
		return 0, eris.Wrap(err, "xmlriver: parse balance")
	}
	return balance, nil
}
