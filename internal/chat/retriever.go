package chat

import (
	"os"
	"sort"
	"strings"
)

const (
	maxPassageLen = 900
	minTokenLen   = 2
)

// Passage is one indexed section of the support document.
type Passage struct {
	ID   int
	Text string

	terms map[string]int
}

// Retriever ranks support-document passages against a free-text question
// using TF-IDF weighted term overlap. The index is built once at startup and
// never mutated, so lookups need no locking.
type Retriever struct {
	passages []Passage
	docFreq  map[string]int
	total    int
}

// NewRetrieverFromFile indexes the support document at path.
func NewRetrieverFromFile(path string) (*Retriever, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewRetriever(string(content)), nil
}

// NewRetriever indexes the given document text.
func NewRetriever(content string) *Retriever {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	sections := splitPassages(content, maxPassageLen)

	r := &Retriever{
		passages: make([]Passage, 0, len(sections)),
		docFreq:  make(map[string]int),
		total:    len(sections),
	}
	for i, text := range sections {
		terms := termCounts(text)
		r.passages = append(r.passages, Passage{ID: i + 1, Text: text, terms: terms})
		for term := range terms {
			r.docFreq[term]++
		}
	}
	return r
}

// Retrieve returns the top k passages for the question, best match first.
// Passages sharing no terms with the question are never returned.
func (r *Retriever) Retrieve(question string, k int) []Passage {
	if k <= 0 || r.total == 0 {
		return nil
	}

	queryTerms := termCounts(question)

	type scored struct {
		passage Passage
		score   float64
	}
	matches := make([]scored, 0, len(r.passages))
	for _, passage := range r.passages {
		score := 0.0
		for term, qCount := range queryTerms {
			df := r.docFreq[term]
			tf := passage.terms[term]
			if df == 0 || tf == 0 {
				continue
			}
			idf := 1.0 + float64(r.total)/float64(1+df)
			score += float64(tf*qCount) * idf
		}
		if score > 0 {
			matches = append(matches, scored{passage: passage, score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > k {
		matches = matches[:k]
	}

	out := make([]Passage, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.passage)
	}
	return out
}

// splitPassages packs paragraphs into passages of at most maxLen characters,
// never splitting inside a paragraph.
func splitPassages(text string, maxLen int) []string {
	paragraphs := strings.Split(text, "\n\n")
	passages := make([]string, 0, len(paragraphs))
	var current strings.Builder

	flush := func() {
		if passage := strings.TrimSpace(current.String()); passage != "" {
			passages = append(passages, passage)
		}
		current.Reset()
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if current.Len()+len(p)+2 > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	flush()
	return passages
}

func termCounts(text string) map[string]int {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		if len(token) < minTokenLen {
			continue
		}
		counts[token]++
	}
	return counts
}
