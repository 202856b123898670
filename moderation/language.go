package moderation

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	globalDetectorOnce sync.Once
	globalDetector     lingua.LanguageDetector
)

// supportedLanguages are the Perspective production languages we can tag a
// request with. Anything else falls back to English.
var supportedLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Russian,
}

// LanguageDetector wraps a shared lingua detector and maps its output to the
// ISO 639-1 codes the scorer request expects.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

// NewLanguageDetector returns a detector backed by the lazily built global
// lingua model. Building the model is expensive, so it happens once per
// process regardless of config reloads.
func NewLanguageDetector() *LanguageDetector {
	globalDetectorOnce.Do(func() {
		globalDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(supportedLanguages...).
			Build()
	})
	return &LanguageDetector{detector: globalDetector}
}

// Detect returns the lowercase ISO 639-1 code of the detected language and
// whether detection was confident enough to use.
func (d *LanguageDetector) Detect(text string) (string, bool) {
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
