package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/resilience"
)

// RussiaClient queries a dadata suggestion bridge. The bridge answers a
// POST {"inn": "..."} with a nested suggestion array, or a bare string when
// nothing matched.
type RussiaClient struct {
	source  httpSource
	baseURL string
}

// NewRussia creates a Russian registry client against the given bridge URL.
func NewRussia(source httpSource, baseURL string) *RussiaClient {
	return &RussiaClient{source: source, baseURL: baseURL}
}

func (c *RussiaClient) Jurisdiction() ident.Jurisdiction { return ident.Russia }

type russiaRequest struct {
	INN string `json:"inn"`
}

func (c *RussiaClient) CompanyName(ctx context.Context, taxpayerID string) (string, error) {
	payload, err := json.Marshal(russiaRequest{INN: taxpayerID})
	if err != nil {
		return "", eris.Wrap(err, "registry: russia marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "registry: russia build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.source.Client().Do(req)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "registry: russia request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("registry: russia returned status %d", resp.StatusCode)
		if resilience.RetryableHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "registry: russia read body")
	}

	// A bare JSON string means the bridge found nothing.
	var miss string
	if json.Unmarshal(body, &miss) == nil {
		return "", nil
	}

	var suggestions [][]struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(body, &suggestions); err != nil {
		return "", eris.Wrap(err, "registry: russia parse response")
	}
	if len(suggestions) == 0 || len(suggestions[0]) == 0 {
		return "", nil
	}
	return suggestions[0][0].Value, nil
}
