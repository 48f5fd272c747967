// Package language normalizes user input into the pipeline's working
// language and renders answers back in the user's own language.
//
// Provider failures never propagate to callers: detection degrades to
// "unknown" and translation degrades to the untouched input. The result
// types carry a flag reporting whether degradation happened.
package language

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/registrybot/internal/llm"
)

// HelplineNumber is the registry helpline. It must survive translation
// byte-for-byte, so the LLM translate-back prompt pins it explicitly.
const HelplineNumber = "0800-02345"

// DetectResult is the outcome of a language detection attempt.
type DetectResult struct {
	// Code is the ISO 639-1 language code. Empty when Known is false.
	Code string
	// Known reports whether detection produced a usable code.
	Known bool
}

// TranslateResult is the outcome of a translation attempt.
type TranslateResult struct {
	// Text is the translated text, or the original input on failure.
	Text string
	// Translated reports whether the provider actually translated.
	Translated bool
}

// Service wraps a translation provider with the bot's degradation policy.
type Service struct {
	provider Provider
	llm      llm.Client
	working  string
	useLLM   bool
	logger   *zap.Logger
}

// ServiceOptions configures a language Service.
type ServiceOptions struct {
	// Provider is the detection/translation backend.
	Provider Provider
	// LLM is used for translate-back when UseLLM is set. Optional otherwise.
	LLM llm.Client
	// WorkingLanguage is the pipeline's internal language code (default "en").
	WorkingLanguage string
	// UseLLM switches translate-back from the provider to the chat model.
	UseLLM bool
	// Logger is optional.
	Logger *zap.Logger
}

// NewService creates a language service.
func NewService(opts ServiceOptions) *Service {
	if opts.WorkingLanguage == "" {
		opts.WorkingLanguage = "en"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Service{
		provider: opts.Provider,
		llm:      opts.LLM,
		working:  opts.WorkingLanguage,
		useLLM:   opts.UseLLM,
		logger:   opts.Logger,
	}
}

// WorkingLanguage returns the configured working language code.
func (s *Service) WorkingLanguage() string {
	return s.working
}

// Detect identifies the language of text. Any provider failure yields
// an unknown result, never an error.
func (s *Service) Detect(ctx context.Context, text string) DetectResult {
	if s.provider == nil || text == "" {
		return DetectResult{}
	}

	code, err := s.provider.DetectLanguage(ctx, text)
	if err != nil {
		s.logger.Warn("language detection failed", zap.Error(err))
		return DetectResult{}
	}
	if code == "" {
		return DetectResult{}
	}
	return DetectResult{Code: code, Known: true}
}

// Translate renders text into the target language. Any provider failure
// yields the original text with Translated=false.
func (s *Service) Translate(ctx context.Context, text, target string) TranslateResult {
	if text == "" || target == "" || s.provider == nil {
		return TranslateResult{Text: text}
	}

	translated, err := s.provider.Translate(ctx, text, target)
	if err != nil {
		s.logger.Warn("translation failed, returning original text",
			zap.String("target", target),
			zap.Error(err))
		return TranslateResult{Text: text}
	}
	if translated == "" {
		return TranslateResult{Text: text}
	}
	return TranslateResult{Text: translated, Translated: true}
}

// NormalizeToWorking detects the language of text and translates it into
// the working language when needed. The returned code is the detected
// source language, defaulting to the working language when detection
// comes back unknown.
func (s *Service) NormalizeToWorking(ctx context.Context, text string) (string, string) {
	detected := s.Detect(ctx, text)
	if !detected.Known {
		return text, s.working
	}
	if detected.Code == s.working {
		return text, detected.Code
	}

	result := s.Translate(ctx, text, s.working)
	return result.Text, detected.Code
}

// TranslateBack renders an answer in the user's source language.
//
// Returns the answer unchanged when the target is empty or already the
// working language. In LLM mode the original question is supplied so the
// model can match its register, with the helpline number and any
// final-answer label preserved verbatim.
func (s *Service) TranslateBack(ctx context.Context, answer, target, originalQuestion string) string {
	if answer == "" || target == "" || target == s.working {
		return answer
	}

	if s.useLLM && s.llm != nil {
		translated, err := s.translateBackLLM(ctx, answer, target, originalQuestion)
		if err != nil {
			s.logger.Warn("LLM translate-back failed, falling back to provider",
				zap.String("target", target),
				zap.Error(err))
		} else if translated != "" {
			return translated
		}
	}

	return s.Translate(ctx, answer, target).Text
}

const translateBackSystemPrompt = `You translate chatbot answers about a government registry program.
Translate the answer into the language identified by the given ISO 639-1 code.
Rules:
- Keep the helpline number ` + HelplineNumber + ` exactly as written.
- If the answer starts with a "Final Answer:" label (in any language), keep that label and translate only the prose after it.
- Do not add, remove, or invent content. Translate only.
Return only the translated answer.`

func (s *Service) translateBackLLM(ctx context.Context, answer, target, originalQuestion string) (string, error) {
	user := fmt.Sprintf("Target language code: %s\n\nOriginal question:\n%s\n\nAnswer to translate:\n%s",
		target, originalQuestion, answer)

	translated, err := s.llm.Complete(ctx, translateBackSystemPrompt, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(translated), nil
}
