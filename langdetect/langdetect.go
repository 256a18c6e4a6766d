// Package langdetect wraps a language-detection library behind the narrow
// contract the ingest pipeline actually needs: given a document body, name
// its language code if (and only if) it's one of the three supported
// languages.
package langdetect

import "github.com/pemistahl/lingua-go"

// Supported language codes, matching the three-letter codes used throughout
// the index (by_language postings, CLI --lang flag).
const (
	English = "eng"
	Spanish = "spa"
	French  = "fra"
)

// Detector detects the primary language of a document body, restricted to
// the supported set. It is safe for concurrent use.
type Detector struct {
	d lingua.LanguageDetector
}

// New builds a Detector restricted to English, Spanish and French — the only
// languages the index stores postings for.
func New() *Detector {
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Spanish, lingua.French).
		Build()
	return &Detector{d: d}
}

// Detect returns the three-letter code of text's primary language and true,
// or ("", false) if no language could be detected. No confidence floor is
// applied beyond the detector reporting a result at all.
func (d *Detector) Detect(text string) (string, bool) {
	lang, ok := d.d.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	switch lang {
	case lingua.English:
		return English, true
	case lingua.Spanish:
		return Spanish, true
	case lingua.French:
		return French, true
	default:
		return "", false
	}
}
