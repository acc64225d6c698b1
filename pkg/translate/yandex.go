package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

const yandexURL = "https://translate.api.cloud.yandex.net/translate/v2/translate"

type yandexClient struct {
	httpClient *http.Client
	token      string
	folderID   string
	baseURL    string
}

type yandexRequest struct {
	FolderID           string   `json:"folderId"`
	Texts              []string `json:"texts"`
	SourceLanguageCode string   `json:"sourceLanguageCode"`
	TargetLanguageCode string   `json:"targetLanguageCode"`
}

type yandexResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (c *yandexClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	payload, err := json.Marshal(yandexRequest{
		FolderID:           c.folderID,
		Texts:              []string{truncate(text)},
		SourceLanguageCode: sourceLang,
		TargetLanguageCode: targetLang,
	})
	if err != nil {
		return "", eris.Wrap(err, "translate: yandex marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "translate: yandex build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "translate: yandex request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "translate: yandex read body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("translate: yandex returned status %d: %s", resp.StatusCode, body)
	}

	var parsed yandexResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", eris.Wrap(err, "translate: yandex parse response")
	}
	if len(parsed.Translations) == 0 {
		return "", eris.New("translate: yandex returned no translations")
	}
	return parsed.Translations[0].Text, nil
}
