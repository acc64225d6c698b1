package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/resilience"
)

const defaultBelarusURL = "https://www.portal.nalog.gov.by/grp/getData"

// BelarusClient queries the state registry of payers on the tax portal.
type BelarusClient struct {
	source  httpSource
	baseURL string
}

// NewBelarus creates a Belarusian registry client. An empty baseURL uses the
// production endpoint.
func NewBelarus(source httpSource, baseURL string) *BelarusClient {
	if baseURL == "" {
		baseURL = defaultBelarusURL
	}
	return &BelarusClient{source: source, baseURL: baseURL}
}

func (c *BelarusClient) Jurisdiction() ident.Jurisdiction { return ident.Belarus }

type belarusResponse struct {
	Row struct {
		VUNP   string `json:"vunp"`
		VNaimK string `json:"vnaimk"`
	} `json:"row"`
}

func (c *BelarusClient) CompanyName(ctx context.Context, taxpayerID string) (string, error) {
	params := url.Values{
		"unp":     {taxpayerID},
		"charset": {"UTF-8"},
		"type":    {"json"},
	}

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "registry: belarus build request")
	}

	resp, err := c.source.Client().Do(req)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "registry: belarus request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("registry: belarus returned status %d", resp.StatusCode)
		if resilience.RetryableHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var parsed belarusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", eris.Wrap(err, "registry: belarus parse response")
	}
	return parsed.Row.VNaimK, nil
}
