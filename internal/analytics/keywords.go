package analytics

import (
	"regexp"
	"sort"
	"strings"
)

// Keyword is one extracted theme word with its occurrence count.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

var wordPattern = regexp.MustCompile(`[a-z]{3,}`)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"to": true, "for": true, "of": true, "in": true, "on": true,
	"at": true, "with": true, "from": true, "is": true, "are": true,
	"was": true, "were": true, "it": true, "this": true, "that": true,
	"as": true, "by": true, "be": true, "have": true, "has": true,
	"had": true, "but": true, "not": true, "we": true, "you": true,
	"they": true, "our": true, "your": true, "their": true,
	"him": true, "her": true,
}

// TopKeywords extracts the k most frequent content words across the
// texts. Output is deterministic: descending count, first-seen order
// breaking ties.
func TopKeywords(texts []string, k int) []Keyword {
	counts := make(map[string]int)
	var firstSeen []string

	for _, text := range texts {
		for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
			if stopwords[word] {
				continue
			}
			if _, ok := counts[word]; !ok {
				firstSeen = append(firstSeen, word)
			}
			counts[word]++
		}
	}

	order := make(map[string]int, len(firstSeen))
	for i, w := range firstSeen {
		order[w] = i
	}
	sort.SliceStable(firstSeen, func(i, j int) bool {
		a, b := firstSeen[i], firstSeen[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return order[a] < order[b]
	})

	if k > len(firstSeen) {
		k = len(firstSeen)
	}
	out := make([]Keyword, 0, k)
	for _, w := range firstSeen[:k] {
		out = append(out, Keyword{Word: w, Count: counts[w]})
	}
	return out
}

// KeywordWords returns just the words, for summaries that list themes.
func KeywordWords(keywords []Keyword) []string {
	words := make([]string, len(keywords))
	for i, kw := range keywords {
		words[i] = kw.Word
	}
	return words
}
