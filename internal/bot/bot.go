// Package bot orchestrates one inbound message end to end: language
// normalization, history handling, the answer pipeline, and rendering
// the reply back in the user's language.
//
// Every external step is individually guarded. A failure anywhere
// degrades to a safe fallback instead of aborting the request, so the
// caller always gets a natural-language reply.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/registrybot/internal/chat"
	"github.com/fyrsmithlabs/registrybot/internal/language"
	"github.com/fyrsmithlabs/registrybot/internal/rag"
)

// ErrInvalidConfig indicates invalid adapter configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// FallbackAnswer is returned when the answer pipeline itself fails. It
// carries the final-answer label so extraction treats it like any other
// pipeline output.
const FallbackAnswer = "Final Answer: Sorry, I can't answer right now. Please contact at " + language.HelplineNumber + "."

// DefaultChannel prefixes WhatsApp session keys in the history store.
const DefaultChannel = "whatsapp"

// Answerer runs the retrieval-augmented answer pipeline.
type Answerer interface {
	Answer(ctx context.Context, req rag.Request) (string, error)
}

// Normalizer moves text between the user's language and the pipeline's
// working language. *language.Service satisfies it.
type Normalizer interface {
	NormalizeToWorking(ctx context.Context, text string) (string, string)
	TranslateBack(ctx context.Context, answer, target, originalQuestion string) string
}

// HistoryStore persists per-session conversation turns.
type HistoryStore interface {
	Get(ctx context.Context, channel, sessionID string) ([]chat.Turn, error)
	Set(ctx context.Context, channel, sessionID string, turns []chat.Turn) error
}

// Summarizer condenses prior turns into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, turns []chat.Turn) string
}

// Options configures the channel services.
type Options struct {
	// Pipeline is the answer pipeline. Required.
	Pipeline Answerer
	// Language is the normalization/translation service. Required.
	Language Normalizer
	// History persists session turns. Required when HistoryEnabled.
	History HistoryStore
	// Summarizer condenses history. Required when HistoryEnabled.
	Summarizer Summarizer
	// HistoryEnabled turns per-session history on. When false, History
	// and Summarizer are never touched.
	HistoryEnabled bool
	// Channel prefixes history keys (default "whatsapp").
	Channel string
	// RecentWindow bounds how many turns are handed to the pipeline.
	RecentWindow int
	// Logger is optional.
	Logger *zap.Logger
}

func (o *Options) validate() error {
	if o.Pipeline == nil {
		return fmt.Errorf("%w: pipeline is required", ErrInvalidConfig)
	}
	if o.Language == nil {
		return fmt.Errorf("%w: language service is required", ErrInvalidConfig)
	}
	if o.HistoryEnabled && o.History == nil {
		return fmt.Errorf("%w: history store is required when history is enabled", ErrInvalidConfig)
	}
	if o.HistoryEnabled && o.Summarizer == nil {
		return fmt.Errorf("%w: summarizer is required when history is enabled", ErrInvalidConfig)
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Channel == "" {
		o.Channel = DefaultChannel
	}
	if o.RecentWindow <= 0 {
		o.RecentWindow = 4
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// WhatsAppService handles inbound WhatsApp messages.
type WhatsAppService struct {
	opts Options
}

// NewWhatsAppService creates a WhatsApp adapter.
func NewWhatsAppService(opts Options) (*WhatsAppService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()
	return &WhatsAppService{opts: opts}, nil
}

// SessionID derives the history session id from a webhook From field by
// stripping the channel scheme ("whatsapp:+92300..." -> "+92300...").
func SessionID(from string) string {
	return strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:")
}

// Process answers one inbound message. It never returns an error: every
// failure degrades to a fallback so the sender always gets a reply.
func (s *WhatsAppService) Process(ctx context.Context, from, body string) string {
	session := SessionID(from)
	logger := s.opts.Logger.With(
		zap.String("channel", s.opts.Channel),
		zap.String("session", session))

	question, detected := s.opts.Language.NormalizeToWorking(ctx, body)

	var turns []chat.Turn
	summary := ""
	if s.opts.HistoryEnabled {
		var err error
		turns, err = s.opts.History.Get(ctx, s.opts.Channel, session)
		if err != nil {
			logger.Warn("history read failed, continuing with empty history", zap.Error(err))
			turns = nil
		}
		summary = s.opts.Summarizer.Summarize(ctx, turns)
	}

	raw := s.answer(ctx, logger, rag.Request{
		Question:       question,
		HistorySummary: summary,
		RecentTurns:    tail(turns, s.opts.RecentWindow),
	})

	answer := rag.ExtractFinalAnswer(raw)
	reply := s.opts.Language.TranslateBack(ctx, answer, detected, body)

	if s.opts.HistoryEnabled {
		turns = append(turns,
			chat.Turn{Role: chat.RoleUser, Content: question},
			chat.Turn{Role: chat.RoleAssistant, Content: answer, RawResponse: raw})
		if err := s.opts.History.Set(ctx, s.opts.Channel, session, turns); err != nil {
			logger.Warn("history write failed, reply already produced", zap.Error(err))
		}
	}

	messagesTotal.WithLabelValues(s.opts.Channel).Inc()
	return reply
}

func (s *WhatsAppService) answer(ctx context.Context, logger *zap.Logger, req rag.Request) string {
	raw, err := s.opts.Pipeline.Answer(ctx, req)
	if err != nil {
		logger.Error("answer pipeline failed, using helpline fallback", zap.Error(err))
		pipelineFallbacks.WithLabelValues(s.opts.Channel).Inc()
		return FallbackAnswer
	}
	return raw
}

// tail returns the last n turns.
func tail(turns []chat.Turn, n int) []chat.Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// WebService handles stateless web chat messages.
type WebService struct {
	pipeline Answerer
	language Normalizer
	logger   *zap.Logger
}

// NewWebService creates a web adapter. The web channel keeps no history.
func NewWebService(pipeline Answerer, lang Normalizer, logger *zap.Logger) (*WebService, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("%w: pipeline is required", ErrInvalidConfig)
	}
	if lang == nil {
		return nil, fmt.Errorf("%w: language service is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebService{pipeline: pipeline, language: lang, logger: logger}, nil
}

// Process answers one web message. Like the WhatsApp adapter it never
// returns an error.
func (s *WebService) Process(ctx context.Context, message string) string {
	question, detected := s.language.NormalizeToWorking(ctx, message)

	raw, err := s.pipeline.Answer(ctx, rag.Request{Question: question})
	if err != nil {
		s.logger.Error("answer pipeline failed, using helpline fallback", zap.Error(err))
		pipelineFallbacks.WithLabelValues("web").Inc()
		raw = FallbackAnswer
	}

	answer := rag.ExtractFinalAnswer(raw)
	reply := s.language.TranslateBack(ctx, answer, detected, message)

	messagesTotal.WithLabelValues("web").Inc()
	return reply
}
