package language

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	detectCode   string
	detectErr    error
	translations map[string]string
	translateErr error
	calls        int
}

func (f *fakeProvider) DetectLanguage(ctx context.Context, text string) (string, error) {
	if f.detectErr != nil {
		return "", f.detectErr
	}
	return f.detectCode, nil
}

func (f *fakeProvider) Translate(ctx context.Context, text, target string) (string, error) {
	f.calls++
	if f.translateErr != nil {
		return "", f.translateErr
	}
	if out, ok := f.translations[target+":"+text]; ok {
		return out, nil
	}
	return "[" + target + "] " + text, nil
}

type fakeLLM struct {
	text string
	err  error
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	return f.text, f.err
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		provider Provider
		text     string
		want     DetectResult
	}{
		{
			name:     "known language",
			provider: &fakeProvider{detectCode: "ur"},
			text:     "سلام",
			want:     DetectResult{Code: "ur", Known: true},
		},
		{
			name:     "provider failure degrades to unknown",
			provider: &fakeProvider{detectErr: errors.New("quota exceeded")},
			text:     "hello",
			want:     DetectResult{},
		},
		{
			name:     "no provider configured",
			provider: nil,
			text:     "hello",
			want:     DetectResult{},
		},
		{
			name:     "empty text",
			provider: &fakeProvider{detectCode: "en"},
			text:     "",
			want:     DetectResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(ServiceOptions{Provider: tt.provider})
			assert.Equal(t, tt.want, svc.Detect(context.Background(), tt.text))
		})
	}
}

func TestTranslateDegradesToOriginal(t *testing.T) {
	svc := NewService(ServiceOptions{
		Provider: &fakeProvider{translateErr: errors.New("network down")},
	})

	got := svc.Translate(context.Background(), "hello", "ur")
	assert.Equal(t, "hello", got.Text)
	assert.False(t, got.Translated)
}

func TestNormalizeToWorking(t *testing.T) {
	ctx := context.Background()

	t.Run("already working language", func(t *testing.T) {
		provider := &fakeProvider{detectCode: "en"}
		svc := NewService(ServiceOptions{Provider: provider, WorkingLanguage: "en"})

		text, code := svc.NormalizeToWorking(ctx, "what is the deadline?")
		assert.Equal(t, "what is the deadline?", text)
		assert.Equal(t, "en", code)
		assert.Zero(t, provider.calls)
	})

	t.Run("foreign language translated", func(t *testing.T) {
		provider := &fakeProvider{
			detectCode:   "ur",
			translations: map[string]string{"en:آخری تاریخ کیا ہے؟": "what is the deadline?"},
		}
		svc := NewService(ServiceOptions{Provider: provider, WorkingLanguage: "en"})

		text, code := svc.NormalizeToWorking(ctx, "آخری تاریخ کیا ہے؟")
		assert.Equal(t, "what is the deadline?", text)
		assert.Equal(t, "ur", code)
	})

	t.Run("unknown detection defaults to working language", func(t *testing.T) {
		provider := &fakeProvider{detectErr: errors.New("no credentials")}
		svc := NewService(ServiceOptions{Provider: provider, WorkingLanguage: "en"})

		text, code := svc.NormalizeToWorking(ctx, "hello")
		assert.Equal(t, "hello", text)
		assert.Equal(t, "en", code)
	})
}

func TestTranslateBack(t *testing.T) {
	ctx := context.Background()

	t.Run("working language is identity", func(t *testing.T) {
		provider := &fakeProvider{}
		svc := NewService(ServiceOptions{Provider: provider, WorkingLanguage: "en"})

		got := svc.TranslateBack(ctx, "Final Answer: done.", "en", "question")
		assert.Equal(t, "Final Answer: done.", got)
		assert.Zero(t, provider.calls)
	})

	t.Run("empty target is identity", func(t *testing.T) {
		svc := NewService(ServiceOptions{Provider: &fakeProvider{}})
		assert.Equal(t, "answer", svc.TranslateBack(ctx, "answer", "", "question"))
	})

	t.Run("provider mode translates literally", func(t *testing.T) {
		svc := NewService(ServiceOptions{Provider: &fakeProvider{}, WorkingLanguage: "en"})
		got := svc.TranslateBack(ctx, "call the helpline", "ur", "question")
		assert.Equal(t, "[ur] call the helpline", got)
	})

	t.Run("LLM mode uses chat model", func(t *testing.T) {
		svc := NewService(ServiceOptions{
			Provider:        &fakeProvider{},
			LLM:             &fakeLLM{text: "حتمی جواب: 0800-02345 پر کال کریں"},
			UseLLM:          true,
			WorkingLanguage: "en",
		})

		got := svc.TranslateBack(ctx, "Final Answer: call 0800-02345", "ur", "سوال")
		assert.Contains(t, got, HelplineNumber)
	})

	t.Run("LLM failure falls back to provider", func(t *testing.T) {
		provider := &fakeProvider{}
		svc := NewService(ServiceOptions{
			Provider:        provider,
			LLM:             &fakeLLM{err: errors.New("model offline")},
			UseLLM:          true,
			WorkingLanguage: "en",
		})

		got := svc.TranslateBack(ctx, "call the helpline", "ur", "question")
		assert.Equal(t, "[ur] call the helpline", got)
		require.Equal(t, 1, provider.calls)
	})
}
