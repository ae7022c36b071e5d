package pipeline

import (
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/adverant/kreuzberg-go/internal/extraction"
	"github.com/adverant/kreuzberg-go/internal/result"
)

// langProfile is a tiny stopword-frequency fingerprint for one
// language, used by DetectLanguages' scoring heuristic.
type langProfile struct {
	tag       string
	stopwords map[string]float64
}

// profiles is intentionally small: the curated set spec.md §3 names
// ("language code in curated set") is a validation concern (handled by
// golang.org/x/text/language.Parse), not a promise to ship a full
// statistical model for every ISO 639 code.
var profiles = []langProfile{
	{tag: "en", stopwords: weight("the", "and", "of", "to", "in", "is", "that", "for", "it", "as")},
	{tag: "es", stopwords: weight("el", "la", "de", "que", "y", "en", "los", "se", "del", "las")},
	{tag: "fr", stopwords: weight("le", "la", "de", "et", "les", "des", "en", "un", "une", "que")},
	{tag: "de", stopwords: weight("der", "die", "und", "den", "das", "ist", "von", "zu", "mit", "sich")},
	{tag: "pt", stopwords: weight("o", "a", "de", "que", "e", "do", "da", "em", "um", "para")},
	{tag: "it", stopwords: weight("il", "la", "di", "che", "e", "un", "per", "in", "non", "una")},
}

func weight(words ...string) map[string]float64 {
	m := make(map[string]float64, len(words))
	for i, w := range words {
		m[w] = 1.0 - float64(i)*0.05 // earlier (more common) stopwords weigh slightly more
	}
	return m
}

type langScore struct {
	tag   string
	score float64
}

// DetectLanguages runs a lightweight stopword-frequency scorer over
// content and returns the top-N tags above min_confidence, ordered by
// descending confidence (spec.md §4.6 step 3). Every returned tag is
// validated as a parseable BCP-47 tag before being surfaced.
func DetectLanguages(content string, cfg *extraction.LanguageDetectionConfig) []string {
	if cfg == nil || !cfg.Enabled || strings.TrimSpace(content) == "" {
		return nil
	}

	words := tokenize(content)
	if len(words) == 0 {
		return nil
	}

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	var scores []langScore
	for _, p := range profiles {
		var hit float64
		for w, weight := range p.stopwords {
			if c, ok := counts[w]; ok {
				hit += weight * float64(c)
			}
		}
		confidence := hit / float64(len(words))
		if confidence > 1 {
			confidence = 1
		}
		if confidence >= cfg.MinConfidence {
			scores = append(scores, langScore{tag: p.tag, score: confidence})
		}
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	limit := 1
	if cfg.DetectMultiple {
		limit = len(scores)
	}
	if limit > len(scores) {
		limit = len(scores)
	}

	out := make([]string, 0, limit)
	for _, s := range scores[:limit] {
		if _, err := language.Parse(s.tag); err != nil {
			continue
		}
		out = append(out, s.tag)
	}
	return out
}

func tokenize(content string) []string {
	fields := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

// RunLanguageDetection populates result.DetectedLanguages, recording a
// language_detection_error diagnostic in metadata.additional on failure
// rather than aborting (spec.md §4.6 step 3). The scorer above never
// errors, so this wrapper exists for symmetry with RunEmbeddings and to
// absorb a future pluggable-backend failure mode without changing the
// pipeline's call shape.
func RunLanguageDetection(content string, cfg *extraction.LanguageDetectionConfig, meta *result.Metadata) []string {
	defer func() {
		if r := recover(); r != nil {
			meta.EnsureAdditional()["language_detection_error"] = "language detection panicked"
		}
	}()
	return DetectLanguages(content, cfg)
}
