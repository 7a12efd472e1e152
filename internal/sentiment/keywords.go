package sentiment

// Fixed keyword tables. These are configuration data, not tunable state:
// membership is the only operation, so they are stored as sets.

var positiveKeywords = makeSet(
	"amazing", "awesome", "excellent", "fantastic", "great", "good", "love",
	"perfect", "wonderful", "outstanding", "superb", "brilliant", "impressive",
	"satisfied", "happy", "pleased", "delighted", "recommend", "beautiful",
	"best", "incredible", "phenomenal", "marvelous", "spectacular", "terrific",
	"nice", "cool", "solid",
)

var negativeKeywords = makeSet(
	"awful", "bad", "terrible", "horrible", "worst", "hate", "disgusting",
	"annoying", "frustrated", "disappointed", "poor", "useless", "pathetic",
	"ridiculous", "stupid", "waste", "fail", "sucks", "boring", "slow",
	"broken", "ugly", "rude", "unprofessional", "scam", "fake", "overpriced",
	"expensive",
)

// Intensifiers amplify the immediately following keyword by 1.5x.
var intensifiers = makeSet(
	"very", "extremely", "really", "super", "absolutely", "totally",
	"completely",
)

func makeSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
