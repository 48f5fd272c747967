package rag

import "strings"

// Final-answer labels by ISO 639-1 language code. The model is told to
// emit the label in the question's language; these are the ones we can
// recognize when stripping the label for display.
var finalAnswerLabels = map[string]string{
	"en": "Final Answer:",
	"ur": "حتمی جواب:",
}

// FinalAnswerLabel returns the final-answer label for a language code,
// falling back to the English label for unmapped languages.
func FinalAnswerLabel(lang string) string {
	if label, ok := finalAnswerLabels[lang]; ok {
		return label
	}
	return finalAnswerLabels["en"]
}

// ExtractFinalAnswer returns the content after the final-answer label.
//
// All known label variants are tried; text without a recognizable label
// is returned trimmed but otherwise unchanged, so callers can display
// model output that forgot the label.
func ExtractFinalAnswer(text string) string {
	for _, label := range finalAnswerLabels {
		if idx := strings.Index(text, label); idx >= 0 {
			return strings.TrimSpace(text[idx+len(label):])
		}
	}
	return strings.TrimSpace(text)
}
