// Package rag implements the retrieval-augmented answer pipeline.
//
// Given a user question, an optional history summary, and optional
// recent turns, the pipeline optionally rewrites the question into a
// standalone form, retrieves the most similar knowledge chunks, and asks
// the chat model for an answer constrained to that context.
//
// The pipeline returns the raw labeled model output ("Final Answer: ...").
// Stripping the label is the channel adapter's job.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/registrybot/internal/chat"
	"github.com/fyrsmithlabs/registrybot/internal/knowledge"
	"github.com/fyrsmithlabs/registrybot/internal/language"
	"github.com/fyrsmithlabs/registrybot/internal/llm"
)

var pipelineTracer = otel.Tracer("registrybot.rag")

// ErrInvalidConfig indicates invalid pipeline configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// NoQuestionAnswer is the fast-path response for empty input. It is a
// complete labeled answer: no retrieval or model call happens for it.
const NoQuestionAnswer = "Final Answer: I didn't receive a question to answer."

// DefaultHistorySummary stands in when no summary was supplied.
const DefaultHistorySummary = "The user has just started the conversation."

// Retriever serves similarity search over the knowledge corpus.
type Retriever interface {
	Query(ctx context.Context, query string, k int) ([]knowledge.Chunk, error)
}

// Request carries one question through the pipeline.
type Request struct {
	// Question is the user's question in the pipeline's working language.
	Question string
	// HistorySummary is the condensed prior conversation. Optional.
	HistorySummary string
	// RecentTurns are the most recent conversation turns. Optional.
	RecentTurns []chat.Turn
}

// Config holds pipeline tuning knobs.
type Config struct {
	// TopK is the number of chunks to retrieve per question.
	TopK int
	// RecentWindow bounds how many recent turns reach the prompt.
	RecentWindow int
	// ContextualizerEnabled turns on standalone-question rewriting.
	ContextualizerEnabled bool
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("%w: top-k must be positive", ErrInvalidConfig)
	}
	if c.RecentWindow <= 0 {
		return fmt.Errorf("%w: recent window must be positive", ErrInvalidConfig)
	}
	return nil
}

// Pipeline answers questions about the registry program.
type Pipeline struct {
	config    Config
	retriever Retriever
	llm       llm.Client
	logger    *zap.Logger
}

// NewPipeline creates an answer pipeline.
func NewPipeline(config Config, retriever Retriever, client llm.Client, logger *zap.Logger) (*Pipeline, error) {
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", ErrInvalidConfig)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: llm client is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &Pipeline{
		config:    config,
		retriever: retriever,
		llm:       client,
		logger:    logger,
	}, nil
}

const answerSystemPromptFormat = `Role: You are a chatbot for a government socio-economic registry program.

Instructions:
- Answer only using information in the supplied context.
- Do not use external knowledge or make assumptions.
- If the answer is not found in the context, reply: "please contact at ` + language.HelplineNumber + `."
- Always display the helpline number as: ` + language.HelplineNumber + `
- Reference the conversation summary and recent turns as needed to inform responses.

Language Requirement:
- IMPORTANT: You must respond in the EXACT SAME LANGUAGE as the user's question.
- If the user asks in Urdu, respond in Urdu. If they ask in English, respond in English.
- If they ask in any other language, respond in that same language.
- Do NOT translate the response. Keep the response in the original language of the question.

Response Guidelines:
- Keep answers concise (maximum 120 words).
- Start each reply with: Final Answer: <answer>
- The "Final Answer:" label must also be in the same language as the user's question.
- For Urdu, use: حتمی جواب:
- For English, use: Final Answer:
- For other languages, translate "Final Answer:" appropriately to that language.

Escalation:
- If the context lacks the answer, instruct the user to contact the helpline.
- If greeted, introduce yourself and ask how you can help with registry questions.

Context:
%s

Conversation summary:
%s

Recent turns:
%s`

const contextualizerSystemPrompt = `Rewrite follow-up questions into standalone questions using the conversation provided. Keep the meaning but resolve references. If no rewrite is needed, return the original question. Return only the question text.`

// Answer runs the full pipeline and returns the raw labeled model output.
func (p *Pipeline) Answer(ctx context.Context, req Request) (string, error) {
	ctx, span := pipelineTracer.Start(ctx, "rag.answer")
	defer span.End()

	if strings.TrimSpace(req.Question) == "" {
		span.SetAttributes(attribute.Bool("empty_question", true))
		answersTotal.WithLabelValues("empty_question").Inc()
		return NoQuestionAnswer, nil
	}

	searchQuery := p.contextualize(ctx, req.Question, req.RecentTurns)

	chunks, err := p.retriever.Query(ctx, searchQuery, p.config.TopK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		answersTotal.WithLabelValues("retrieval_error").Inc()
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	span.SetAttributes(attribute.Int("chunks", len(chunks)))

	summary := req.HistorySummary
	if summary == "" {
		summary = DefaultHistorySummary
	}

	system := fmt.Sprintf(answerSystemPromptFormat,
		buildContext(chunks),
		summary,
		chat.FormatTurns(req.RecentTurns, p.config.RecentWindow))

	// The model answers the original question, not the rewrite.
	answer, err := p.llm.Complete(ctx, system, req.Question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		answersTotal.WithLabelValues("llm_error").Inc()
		return "", fmt.Errorf("generating answer: %w", err)
	}

	answersTotal.WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "success")

	return strings.TrimSpace(answer), nil
}

// contextualize rewrites a follow-up question into a standalone one
// using recent turns. Disabled, empty-history, and failure cases all
// return the original question.
func (p *Pipeline) contextualize(ctx context.Context, question string, recent []chat.Turn) string {
	if !p.config.ContextualizerEnabled || len(recent) == 0 {
		return question
	}

	user := fmt.Sprintf("Conversation so far:\n%s\n\nFollow-up question: %s\n\nStandalone question:",
		chat.FormatTurns(recent, p.config.RecentWindow), question)

	rewritten, err := p.llm.Complete(ctx, contextualizerSystemPrompt, user)
	if err != nil {
		p.logger.Warn("contextualizer failed, using original question", zap.Error(err))
		return question
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question
	}

	contextualizerRewrites.Inc()
	return rewritten
}

// buildContext concatenates retrieved chunks with blank-line separators.
func buildContext(chunks []knowledge.Chunk) string {
	if len(chunks) == 0 {
		return "No relevant context found."
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return strings.Join(texts, "\n\n")
}
