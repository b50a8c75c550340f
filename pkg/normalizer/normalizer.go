package normalizer

import (
	"context"
	"log/slog"

	"github.com/constraint-watch/chokepoint/pkg/llm"
)

// Result is the normalized form of one item's text.
type Result struct {
	Language   string
	TextEN     string
	Confidence float64
}

// Normalizer detects item language and produces English working text.
type Normalizer struct {
	detector   *LanguageDetector
	translator *Translator
	logger     *slog.Logger
}

// New creates a Normalizer sharing the given LLM client for translations.
func New(client *llm.Client) *Normalizer {
	return &Normalizer{
		detector:   NewLanguageDetector(),
		translator: NewTranslator(client),
		logger:     slog.Default().With("component", "normalizer"),
	}
}

// Normalize detects the language of rawText and translates when needed.
// English and empty texts pass through at full confidence; a failed
// translation keeps the original text with zero confidence.
func (n *Normalizer) Normalize(ctx context.Context, rawText string) Result {
	lang, _ := n.detector.Detect(rawText)
	if lang != "en" && rawText != "" {
		textEN, confidence := n.translator.TranslateToEnglish(ctx, rawText, lang)
		return Result{Language: lang, TextEN: textEN, Confidence: confidence}
	}
	return Result{Language: lang, TextEN: rawText, Confidence: 1.0}
}
