package language

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrMissingAPIKey indicates the translate provider has no credentials.
	ErrMissingAPIKey = errors.New("translate API key not configured")

	// ErrProviderFailed indicates a translate provider request failure.
	ErrProviderFailed = errors.New("translate provider request failed")
)

// Provider detects languages and translates text.
type Provider interface {
	// DetectLanguage returns the ISO 639-1 code of the text's language.
	DetectLanguage(ctx context.Context, text string) (string, error)
	// Translate renders text into the target language.
	Translate(ctx context.Context, text, target string) (string, error)
}

// GoogleConfig holds configuration for the Google Translate v2 client.
type GoogleConfig struct {
	// Endpoint is the translate API base URL.
	Endpoint string
	// APIKey is the Google Cloud API key.
	APIKey string
}

// GoogleProvider is a Provider backed by the Google Translate v2 REST API.
type GoogleProvider struct {
	config GoogleConfig
	client *http.Client
}

// NewGoogleProvider creates a Google Translate client.
func NewGoogleProvider(config GoogleConfig) *GoogleProvider {
	if config.Endpoint == "" {
		config.Endpoint = "https://translation.googleapis.com/language/translate/v2"
	}
	return &GoogleProvider{
		config: config,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// translateResponse is the v2 translate response envelope.
type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// detectResponse is the v2 detect response envelope.
type detectResponse struct {
	Data struct {
		Detections [][]struct {
			Language string `json:"language"`
		} `json:"detections"`
	} `json:"data"`
}

// DetectLanguage detects the language of text via the v2 detect endpoint.
func (p *GoogleProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	var resp detectResponse
	if err := p.post(ctx, p.config.Endpoint+"/detect", url.Values{"q": {text}}, &resp); err != nil {
		return "", err
	}
	if len(resp.Data.Detections) == 0 || len(resp.Data.Detections[0]) == 0 {
		return "", fmt.Errorf("%w: no detections returned", ErrProviderFailed)
	}

	code := resp.Data.Detections[0][0].Language
	// Normalize regional variants: "en-GB" -> "en".
	if i := strings.IndexByte(code, '-'); i > 0 {
		code = code[:i]
	}
	return strings.ToLower(code), nil
}

// Translate translates text into the target language.
func (p *GoogleProvider) Translate(ctx context.Context, text, target string) (string, error) {
	form := url.Values{
		"q":      {text},
		"target": {target},
		"format": {"text"},
	}

	var resp translateResponse
	if err := p.post(ctx, p.config.Endpoint, form, &resp); err != nil {
		return "", err
	}
	if len(resp.Data.Translations) == 0 {
		return "", fmt.Errorf("%w: no translations returned", ErrProviderFailed)
	}
	return strings.TrimSpace(resp.Data.Translations[0].TranslatedText), nil
}

// post sends an API-key-authenticated form POST and decodes the JSON response.
func (p *GoogleProvider) post(ctx context.Context, endpoint string, form url.Values, out interface{}) error {
	if p.config.APIKey == "" {
		return ErrMissingAPIKey
	}
	form.Set("key", p.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
