package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsForm(t *testing.T) {
	var gotPath, gotFrom, gotTo, gotBody, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotFrom = r.PostFormValue("From")
		gotTo = r.PostFormValue("To")
		gotBody = r.PostFormValue("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender, err := NewSender(Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+14155238886",
		BaseURL:    srv.URL,
	}, nil)
	require.NoError(t, err)

	err = sender.Send(context.Background(), "whatsapp:+923001234567", "Final Answer: ok")
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "token", gotPass)
	assert.Equal(t, "whatsapp:+14155238886", gotFrom)
	assert.Equal(t, "whatsapp:+923001234567", gotTo)
	assert.Equal(t, "Final Answer: ok", gotBody)
}

func TestSendAddsWhatsAppScheme(t *testing.T) {
	var gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotTo = r.PostFormValue("To")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sender, err := NewSender(Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "whatsapp:+14155238886",
		BaseURL:    srv.URL,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), "+923001234567", "hi"))
	assert.Equal(t, "whatsapp:+923001234567", gotTo)
}

func TestSendAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid number"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	sender, err := NewSender(Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+14155238886",
		BaseURL:    srv.URL,
	}, nil)
	require.NoError(t, err)

	err = sender.Send(context.Background(), "+92300", "hi")
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "invalid number")
}

func TestSendEmptyRecipient(t *testing.T) {
	sender, err := NewSender(Config{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+14155238886",
	}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, sender.Send(context.Background(), "  ", "hi"), ErrSendFailed)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "missing sid", config: Config{AuthToken: "t", From: "+1"}},
		{name: "missing token", config: Config{AccountSID: "AC", From: "+1"}},
		{name: "missing from", config: Config{AccountSID: "AC", AuthToken: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.config.Validate(), ErrInvalidConfig)
		})
	}
}
