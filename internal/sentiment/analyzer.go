package sentiment

import "strings"

// Label is the categorical classification of a piece of text.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

const intensifierBoost = 1.5

// Result holds the outcome of scoring a single text.
// PositiveScore and NegativeScore are the raw weighted keyword counts, so an
// intensified keyword is visible in the score ("very great" scores 1.5 where
// "great" scores 1.0).
type Result struct {
	Sentiment     Label   `json:"sentiment"`
	Confidence    float64 `json:"confidence"`
	PositiveScore float64 `json:"positiveScore"`
	NegativeScore float64 `json:"negativeScore"`
}

// Summary aggregates results over a batch of texts.
type Summary struct {
	Positive          int     `json:"positive"`
	Negative          int     `json:"negative"`
	Neutral           int     `json:"neutral"`
	AverageConfidence float64 `json:"averageConfidence"`
}

// Analyze scores text against the fixed keyword tables.
//
// Tokens are the lowercase whitespace-separated words of the input. An
// intensifier amplifies exactly the next token; two intensifiers in a row do
// not stack. The label follows whichever score is strictly larger once both
// are normalized by token count (a shared denominator, so the comparison is
// the same on raw scores). A tie, including all-zero scores, is Neutral with
// confidence 0, so Analyze never divides by zero.
func Analyze(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Sentiment: Neutral}
	}

	words := strings.Fields(strings.ToLower(text))

	var positive, negative float64
	multiplier := 1.0
	for _, word := range words {
		if _, ok := intensifiers[word]; ok {
			multiplier = intensifierBoost
			continue
		}
		if _, ok := positiveKeywords[word]; ok {
			positive += multiplier
		} else if _, ok := negativeKeywords[word]; ok {
			negative += multiplier
		}
		multiplier = 1.0
	}

	total := float64(len(words))
	normPositive := positive / total
	normNegative := negative / total

	result := Result{
		Sentiment:     Neutral,
		PositiveScore: positive,
		NegativeScore: negative,
	}

	switch {
	case normPositive > normNegative:
		result.Sentiment = Positive
		result.Confidence = min(normPositive/(normPositive+normNegative), 1)
	case normNegative > normPositive:
		result.Sentiment = Negative
		result.Confidence = min(normNegative/(normPositive+normNegative), 1)
	}

	return result
}

// AnalyzeBulk scores each text and aggregates a label breakdown with the
// average confidence across the batch. An empty batch yields a zero summary.
func AnalyzeBulk(texts []string) ([]Result, Summary) {
	results := make([]Result, len(texts))
	var summary Summary

	for i, text := range texts {
		results[i] = Analyze(text)
		summary.AverageConfidence += results[i].Confidence
		switch results[i].Sentiment {
		case Positive:
			summary.Positive++
		case Negative:
			summary.Negative++
		case Neutral:
			summary.Neutral++
		}
	}

	if len(results) > 0 {
		summary.AverageConfidence /= float64(len(results))
	}

	return results, summary
}
