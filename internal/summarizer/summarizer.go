// Package summarizer condenses chat history into a short summary used
// as compressed long-term context for the answer pipeline.
package summarizer

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/registrybot/internal/chat"
	"github.com/fyrsmithlabs/registrybot/internal/llm"
)

// NoPriorConversation is returned when there is nothing to summarize.
const NoPriorConversation = "No prior conversation."

// DefaultWindow is the number of most recent turns considered.
const DefaultWindow = 70

const summarySystemPrompt = `Summarize the conversation below between a user and a government registry assistant.
Write a single short paragraph covering what the user asked about and what they were told.
Keep names, dates, amounts, and phone numbers exact. Do not add commentary.`

// Summarizer produces history summaries via an LLM.
type Summarizer struct {
	llm    llm.Client
	window int
	logger *zap.Logger
}

// New creates a summarizer. window <= 0 uses DefaultWindow.
func New(client llm.Client, window int, logger *zap.Logger) *Summarizer {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{
		llm:    client,
		window: window,
		logger: logger,
	}
}

// Summarize renders the tail of the history as role-labeled lines and
// asks the LLM for a one-paragraph summary.
//
// Returns NoPriorConversation when the history is empty, when nothing
// in it renders, and on LLM failure. Summaries are best-effort.
func (s *Summarizer) Summarize(ctx context.Context, turns []chat.Turn) string {
	conversation := chat.FormatTurns(turns, s.window)
	if conversation == chat.NoPreviousTurns {
		return NoPriorConversation
	}

	summary, err := s.llm.Complete(ctx, summarySystemPrompt, conversation)
	if err != nil {
		s.logger.Warn("history summarization failed", zap.Error(err))
		return NoPriorConversation
	}
	return summary
}
