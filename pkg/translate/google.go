package translate

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

const googleURL = "https://translate.google.com/m"

// googleClient uses the keyless mobile endpoint and scrapes the result
// container out of the returned HTML.
type googleClient struct {
	httpClient *http.Client
	baseURL    string
}

func (c *googleClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	params := url.Values{
		"sl": {sourceLang},
		"tl": {targetLang},
		"q":  {truncate(text)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "translate: google build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "translate: google request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("translate: google returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "translate: google parse response")
	}

	translated := strings.TrimSpace(doc.Find("div.result-container").First().Text())
	if translated == "" {
		return "", eris.New("translate: google returned no translation")
	}
	return translated, nil
}
