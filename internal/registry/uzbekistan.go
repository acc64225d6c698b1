package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/resilience"
	"github.com/xl-idp/reference-inn/pkg/translate"
)

const defaultUzbekistanURL = "http://orginfo.uz/en/search/all"

// UzbekistanClient scrapes orginfo.uz search results. Names come back in
// Uzbek and are translated to Russian; when the translator fails the Uzbek
// name is kept.
type UzbekistanClient struct {
	source     httpSource
	baseURL    string
	translator translate.Translator
}

// NewUzbekistan creates an Uzbek registry client. An empty baseURL uses the
// production endpoint. A nil translator skips translation.
func NewUzbekistan(source httpSource, baseURL string, tr translate.Translator) *UzbekistanClient {
	if baseURL == "" {
		baseURL = defaultUzbekistanURL
	}
	return &UzbekistanClient{source: source, baseURL: baseURL, translator: tr}
}

func (c *UzbekistanClient) Jurisdiction() ident.Jurisdiction { return ident.Uzbekistan }

func (c *UzbekistanClient) CompanyName(ctx context.Context, taxpayerID string) (string, error) {
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, url.Values{"q": {taxpayerID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "registry: uzbekistan build request")
	}

	resp, err := c.source.Client().Do(req)
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "registry: uzbekistan request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("registry: uzbekistan returned status %d", resp.StatusCode)
		if resilience.RetryableHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(err, resp.StatusCode)
		}
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "registry: uzbekistan parse response")
	}

	// The organization block is the last card on the page.
	cards := doc.Find("div.card-body.pt-0")
	if cards.Length() == 0 {
		return "", nil
	}
	name := strings.TrimSpace(strings.ReplaceAll(cards.Last().Find("h6.card-title").First().Text(), "\n", ""))
	if name == "" {
		return "", nil
	}

	if c.translator == nil {
		return name, nil
	}
	translated, err := c.translator.Translate(ctx, name, "uz", "ru")
	if err != nil {
		zap.L().Warn("uzbekistan name translation failed, keeping original",
			zap.String("taxpayer_id", taxpayerID),
			zap.Error(err),
		)
		return name, nil
	}
	return translated, nil
}
