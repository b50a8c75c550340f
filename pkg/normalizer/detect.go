// Package normalizer turns raw collected text into English working text:
// language detection over the supported source languages, then LLM
// translation for anything that is not already English.
package normalizer

import (
	"math"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Languages the radar's sources publish in. Detection is restricted to this
// set; anything else resolves to the closest member.
var supportedLanguages = []lingua.Language{
	lingua.English,
	lingua.Japanese,
	lingua.Korean,
	lingua.Chinese,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Hindi,
}

var isoCodes = map[lingua.Language]string{
	lingua.English:    "en",
	lingua.Japanese:   "ja",
	lingua.Korean:     "ko",
	lingua.Chinese:    "zh",
	lingua.German:     "de",
	lingua.French:     "fr",
	lingua.Spanish:    "es",
	lingua.Portuguese: "pt",
	lingua.Hindi:      "hi",
}

// LanguageDetector identifies the language of collected text.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

// NewLanguageDetector builds a detector over the supported language set.
// Building loads language models, so construct once and share.
func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(supportedLanguages...).
			Build(),
	}
}

// Detect returns the ISO 639-1 code and confidence for text. Short or empty
// text defaults to English with zero confidence.
func (d *LanguageDetector) Detect(text string) (string, float64) {
	if len([]rune(strings.TrimSpace(text))) < 10 {
		return "en", 0.0
	}

	values := d.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 {
		return "en", 0.0
	}

	top := values[0]
	iso, ok := isoCodes[top.Language()]
	if !ok {
		iso = "en"
	}
	return iso, math.Round(top.Value()*1000) / 1000
}
