package language

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleProviderDetect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/detect", r.URL.Path)
		assert.Equal(t, "test-key", r.Form.Get("key"))
		assert.Equal(t, "Guten Tag", r.Form.Get("q"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"detections":[[{"language":"de-DE","confidence":0.98}]]}}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider(GoogleConfig{Endpoint: server.URL, APIKey: "test-key"})
	code, err := provider.DetectLanguage(context.Background(), "Guten Tag")

	require.NoError(t, err)
	assert.Equal(t, "de", code)
}

func TestGoogleProviderTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "ur", r.Form.Get("target"))
		assert.Equal(t, "text", r.Form.Get("format"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"ہیلو"}]}}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider(GoogleConfig{Endpoint: server.URL, APIKey: "test-key"})
	out, err := provider.Translate(context.Background(), "hello", "ur")

	require.NoError(t, err)
	assert.Equal(t, "ہیلو", out)
}

func TestGoogleProviderMissingKey(t *testing.T) {
	provider := NewGoogleProvider(GoogleConfig{Endpoint: "http://localhost:0"})

	_, err := provider.DetectLanguage(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = provider.Translate(context.Background(), "hello", "ur")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGoogleProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	provider := NewGoogleProvider(GoogleConfig{Endpoint: server.URL, APIKey: "test-key"})
	_, err := provider.Translate(context.Background(), "hello", "ur")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "403")
}
