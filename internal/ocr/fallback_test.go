package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNeedsOCRScenarioS6 is S6: a PDF whose native text extraction
// yields only punctuation/whitespace ("   .  ,  ", no alphanumerics)
// must decide fallback=true.
func TestNeedsOCRScenarioS6(t *testing.T) {
	stats := []PageStats{AnalyzePage("   .  ,  ")}
	assert.True(t, NeedsOCR(stats, false))
}

func TestAnalyzePageCountsAlnumAndMeaningfulWords(t *testing.T) {
	stats := AnalyzePage("quick brown fox jumps")
	assert.Equal(t, 18, stats.Alnum) // letters+digits only, no spaces
	// "quick", "brown", "jumps" have >=4 alnum chars; "fox" has 3.
	assert.Equal(t, 3, stats.MeaningfulWords)
}

func TestNeedsOCRForceOCRAlwaysTrue(t *testing.T) {
	stats := []PageStats{{NonWhitespace: 1000, Alnum: 1000, MeaningfulWords: 100}}
	assert.True(t, NeedsOCR(stats, true))
}

func TestNeedsOCRNoPagesTriggersFallback(t *testing.T) {
	assert.True(t, NeedsOCR(nil, false))
}

func TestNeedsOCRSubstantialTextSkipsFallback(t *testing.T) {
	page := AnalyzePage("This is a perfectly ordinary page of extracted text, long enough and dense enough to be trusted without OCR. It has plenty of meaningful words scattered across it.")
	assert.False(t, NeedsOCR([]PageStats{page}, false))
}

func TestNeedsOCRSparsePageWithLowDensityTriggersFallback(t *testing.T) {
	// A short first page plus a blank second page: neither the
	// substantial-text threshold nor the total non-whitespace floor is
	// met, and the blank page drags per-page density below the minimum.
	short := AnalyzePage("Short real words.")
	blank := AnalyzePage("  ")
	assert.True(t, NeedsOCR([]PageStats{short, blank}, false))
}
