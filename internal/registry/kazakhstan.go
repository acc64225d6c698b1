package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/resilience"
)

const defaultKazakhstanURL = "https://pk.uchet.kz/api/web/company/search/"

// KazakhstanClient queries the pk.uchet.kz company search.
type KazakhstanClient struct {
	source  httpSource
	baseURL string
}

// NewKazakhstan creates a Kazakh registry client. An empty baseURL uses the
// production endpoint.
func NewKazakhstan(source httpSource, baseURL string) *KazakhstanClient {
	if baseURL == "" {
		baseURL = defaultKazakhstanURL
	}
	return &KazakhstanClient{source: source, baseURL: baseURL}
}

func (c *KazakhstanClient) Jurisdiction() ident.Jurisdiction { return ident.Kazakhstan }

type kazakhstanRequest struct {
	Page  string `json:"page"`
	Size  int    `json:"size"`
	Value string `json:"value"`
}

type kazakhstanResponse struct {
	Results []struct {
		Name string `json:"name"`
	} `json:"results"`
}

func (c *KazakhstanClient) CompanyName(ctx context.Context, taxpayerID string) (string, error) {
	payload, err := json.Marshal(kazakhstanRequest{Page: "1", Size: 10, Value: taxpayerID})
	if err != nil {
		return "", eris.Wrap(err, "registry: kazakhstan marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "registry: kazakhstan build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.source.Client().Do(req)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "registry: kazakhstan request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("registry: kazakhstan returned status %d", resp.StatusCode)
		if resilience.RetryableHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	var parsed kazakhstanResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", eris.Wrap(err, "registry: kazakhstan parse response")
	}
	if len(parsed.Results) == 0 {
		return "", nil
	}
	return parsed.Results[0].Name, nil
}
