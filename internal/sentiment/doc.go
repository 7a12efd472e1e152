// Package sentiment implements lexicon-based sentiment scoring for review
// text. Analyze is a pure function over its input: no state, no I/O, total
// over all strings. It is a keyword heuristic, not a language model.
package sentiment
