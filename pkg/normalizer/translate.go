package normalizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/constraint-watch/chokepoint/pkg/llm"
)

const translateSystem = `You are a precise technical translator for semiconductor, datacenter, and AI infrastructure content.

Rules:
- Translate to English faithfully
- PRESERVE all numbers, units, dates, percentages, and currency amounts exactly
- PRESERVE company names, product names, and technical terms (transliterate if needed)
- PRESERVE ticker symbols and stock exchange references
- Keep the same paragraph structure
- Do NOT add commentary or interpretation
- Do NOT omit any information from the original
- If a term has a standard English equivalent (e.g., 台積電 = TSMC), use it
- For ambiguous terms, include the original in parentheses

Output ONLY the translated text, nothing else.`

const (
	// Texts shorter than this are not worth a translation call.
	minTranslateRunes = 20
	// Prompt budget: anything longer is cut before translation.
	maxTranslateRunes = 15000
	// Confidence drops for long texts where omissions are harder to spot.
	longTextRunes = 5000
)

// Translator converts non-English text to English through the LLM.
type Translator struct {
	client *llm.Client
	logger *slog.Logger
}

// NewTranslator creates a Translator over the shared LLM client.
func NewTranslator(client *llm.Client) *Translator {
	return &Translator{
		client: client,
		logger: slog.Default().With("component", "translator"),
	}
}

// TranslateToEnglish translates text into English and returns it with a
// confidence estimate. English input passes through at full confidence.
// Translation failures fall back to the original text with zero confidence
// rather than failing the item.
func (t *Translator) TranslateToEnglish(ctx context.Context, text, sourceLang string) (string, float64) {
	if sourceLang == "en" {
		return text, 1.0
	}
	if len([]rune(strings.TrimSpace(text))) < minTranslateRunes {
		return text, 0.0
	}

	runes := []rune(text)
	truncated := text
	if len(runes) > maxTranslateRunes {
		truncated = string(runes[:maxTranslateRunes])
	}

	temperature := 0.1
	prompt := fmt.Sprintf("Translate the following %s text to English:\n\n%s", sourceLang, truncated)
	translated, err := t.client.Complete(ctx, llm.Request{
		System:      translateSystem,
		Prompt:      prompt,
		Temperature: &temperature,
	})
	if err != nil {
		t.logger.Error("Translation failed", "language", sourceLang, "error", err)
		return text, 0.0
	}

	confidence := 0.85
	if len(runes) >= longTextRunes {
		confidence = 0.75
	}
	return strings.TrimSpace(translated), confidence
}
