// Package canon normalizes raw text tokens into the canonical words used as
// index keys, and derives adjacent word pairs from a canonicalized sequence.
package canon

import "strings"

// stripSet is the set of punctuation runes removed from a token before it is
// accepted as a canonical word.
const stripSet = ".'?!,()$&[]\":;@|"

// MaxWordBytes is the maximum byte length of a stored canonical word or pair.
const MaxWordBytes = 255

// Canonicalize normalizes a single raw token into a canonical word.
//
// A token is accepted only if its original byte length is strictly between
// 2 and 25, and the punctuation-stripped, lowercased result still has a
// byte length greater than 2.
func Canonicalize(token string) (string, bool) {
	if !(len(token) > 2 && len(token) < 25) {
		return "", false
	}

	stripped := strings.Map(func(r rune) rune {
		if strings.ContainsRune(stripSet, r) {
			return -1
		}
		return r
	}, token)
	stripped = strings.ToLower(stripped)

	if len(stripped) <= 2 {
		return "", false
	}
	return stripped, true
}

// AddPairs appends the bigrams "A|B" for each pair of adjacent words in
// words, in left-to-right generation order, skipping any pair whose byte
// length exceeds MaxWordBytes. words must already be canonical.
func AddPairs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	pairs := make([]string, 0, len(words)-1)
	last := words[0]
	for _, word := range words[1:] {
		pair := last + "|" + word
		if len(pair) <= MaxWordBytes {
			pairs = append(pairs, pair)
		}
		last = word
	}

	return append(words, pairs...)
}
