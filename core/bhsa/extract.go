package bhsa

import (
	"fmt"
	"strings"

	cerrors "github.com/meaningmap/bhsa-extract/core/errors"
	"github.com/meaningmap/bhsa-extract/core/tf"
)

// VerseFilter limits extraction to matching verses. A nil filter matches
// everything.
type VerseFilter func(chapter, verse int) bool

// Extractor reads one loaded corpus and produces book records.
type Extractor struct {
	ds    *tf.Dataset
	extra []string
}

// NewExtractor creates an extractor over a loaded dataset.
func NewExtractor(ds *tf.Dataset) *Extractor {
	return &Extractor{ds: ds}
}

// WithExtraFeatures names additional word features whose values are carried
// in the extra map of enriched word records. Features absent from the
// corpus read as "NA".
func (e *Extractor) WithExtraFeatures(names []string) *Extractor {
	e.extra = names
	return e
}

// Dataset returns the underlying corpus.
func (e *Extractor) Dataset() *tf.Dataset { return e.ds }

// ExtractBook produces the basic (clause-level) record for one book.
// Returns a NotFoundError when the corpus has no such book.
func (e *Extractor) ExtractBook(book Book, filter VerseFilter) (*BasicBook, Stats, error) {
	node, ok := e.ds.BookNode(book.Name)
	if !ok {
		return nil, Stats{}, cerrors.NewNotFound("book", book.Name)
	}

	out := &BasicBook{
		Name:     book.Display,
		Chapters: len(e.ds.Down(node, "chapter")),
		Verses:   []BasicVerse{},
	}

	var stats Stats
	for _, verseNode := range e.ds.Down(node, "verse") {
		chapter := e.ds.Num("chapter", verseNode)
		verse := e.ds.Num("verse", verseNode)
		if filter != nil && !filter(chapter, verse) {
			continue
		}

		clauses := []BasicClause{}
		for _, clauseNode := range e.ds.Down(verseNode, "clause") {
			clauses = append(clauses, e.extractClause(clauseNode))
		}

		out.Verses = append(out.Verses, BasicVerse{
			Book:      book.Display,
			Chapter:   chapter,
			Verse:     verse,
			Reference: fmt.Sprintf("%s %d:%d", book.Display, chapter, verse),
			Clauses:   clauses,
		})
		stats.Verses++
		stats.Clauses += len(clauses)
	}
	return out, stats, nil
}

// extractClause builds the basic record for one clause node.
func (e *Extractor) extractClause(clauseNode int) BasicClause {
	words := e.ds.Down(clauseNode, e.ds.SlotType())

	translitParts := make([]string, 0, len(words))
	glossParts := make([]string, 0, len(words))
	for _, w := range words {
		translitParts = append(translitParts, e.transliteration(w))
		if g := e.ds.Str("gloss", w); g != "" {
			glossParts = append(glossParts, g)
		}
	}

	phrases := []BasicPhrase{}
	for _, phraseNode := range e.ds.Down(clauseNode, "phrase") {
		phrases = append(phrases, e.extractPhrase(phraseNode))
	}

	return BasicClause{
		ID:              clauseNode,
		ClauseType:      e.ds.Str("typ", clauseNode),
		IsVerbless:      e.isVerbless(clauseNode),
		HebrewText:      strings.TrimSpace(e.ds.Text(clauseNode)),
		Transliteration: strings.TrimSpace(strings.Join(translitParts, " ")),
		Gloss:           strings.TrimSpace(strings.Join(glossParts, " ")),
		Phrases:         phrases,
	}
}

// extractPhrase builds the basic record for one phrase node.
func (e *Extractor) extractPhrase(phraseNode int) BasicPhrase {
	words := e.ds.Down(phraseNode, e.ds.SlotType())

	var hebrew strings.Builder
	translitParts := make([]string, 0, len(words))
	glossParts := make([]string, 0, len(words))
	for _, w := range words {
		hebrew.WriteString(e.ds.Text(w))
		translitParts = append(translitParts, e.transliteration(w))
		if g := e.ds.Str("gloss", w); g != "" {
			glossParts = append(glossParts, g)
		}
	}

	return BasicPhrase{
		ID:              phraseNode,
		Function:        e.ds.Str("function", phraseNode),
		Hebrew:          strings.TrimSpace(hebrew.String()),
		Transliteration: strings.TrimSpace(strings.Join(translitParts, " ")),
		Gloss:           strings.TrimSpace(strings.Join(glossParts, " ")),
	}
}

// transliteration prefers the phonological transcription and falls back to
// the vocalized lexeme.
func (e *Extractor) transliteration(wordNode int) string {
	if e.ds.HasFeature("phono") {
		if v := e.ds.Str("phono", wordNode); v != "" {
			return v
		}
	}
	return e.ds.Str("lex_utf8", wordNode)
}

// isVerbless reports whether a clause is a nominal clause: no phrase with
// function Pred or PreO contains a word tagged as a verb.
func (e *Extractor) isVerbless(clauseNode int) bool {
	for _, phraseNode := range e.ds.Down(clauseNode, "phrase") {
		fn := e.ds.Str("function", phraseNode)
		if fn != "Pred" && fn != "PreO" {
			continue
		}
		for _, w := range e.ds.Down(phraseNode, e.ds.SlotType()) {
			if e.ds.Str("pdp", w) == "verb" {
				return false
			}
		}
	}
	return true
}
