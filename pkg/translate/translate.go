// Package translate provides machine translation for company names. Two
// backends are supported: the Yandex Cloud Translate API and the public
// Google translate endpoint.
package translate

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
)

// maxLen caps the text sent per call. Longer inputs are truncated, not
// rejected, because a company name that long is garbage anyway.
const maxLen = 4500

// Translator translates text between two languages given as ISO 639-1 codes.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Service selects a translation backend.
type Service string

const (
	ServiceYandex Service = "yandex"
	ServiceGoogle Service = "google"
)

// Config carries backend credentials and an optional HTTP client.
type Config struct {
	// YandexToken and YandexFolderID authorize the Yandex Cloud backend.
	YandexToken    string
	YandexFolderID string
	HTTPClient     *http.Client
}

// New returns a Translator for the requested service.
func New(service Service, cfg Config) (Translator, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	switch service {
	case ServiceYandex:
		if cfg.YandexToken == "" || cfg.YandexFolderID == "" {
			return nil, eris.New("translate: yandex token and folder id required")
		}
		return &yandexClient{
			httpClient: httpClient,
			token:      cfg.YandexToken,
			folderID:   cfg.YandexFolderID,
			baseURL:    yandexURL,
		}, nil
	case ServiceGoogle:
		return &googleClient{
			httpClient: httpClient,
			baseURL:    googleURL,
		}, nil
	default:
		return nil, eris.Errorf("translate: unknown service %q", service)
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
