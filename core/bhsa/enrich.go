package bhsa

import (
	"strings"

	cerrors "github.com/meaningmap/bhsa-extract/core/errors"
)

// EnrichBook produces the enriched (word-level morphology) record for one
// book. bhsaVersion is the corpus version tag recorded in the output.
func (e *Extractor) EnrichBook(book Book, bhsaVersion string, filter VerseFilter) (*EnrichedBook, Stats, error) {
	node, ok := e.ds.BookNode(book.Name)
	if !ok {
		return nil, Stats{}, cerrors.NewNotFound("book", book.Name)
	}
	if bhsaVersion == "" {
		bhsaVersion = DefaultBHSAVersion
	}

	out := &EnrichedBook{
		Book:              book.Name,
		ExtractionVersion: ExtractionVersion,
		BHSAVersion:       bhsaVersion,
		Verses:            []EnrichedVerse{},
	}

	var stats Stats
	for _, chapterNode := range e.ds.Down(node, "chapter") {
		chapter := e.ds.Num("chapter", chapterNode)
		for _, verseNode := range e.ds.Down(chapterNode, "verse") {
			verse := e.ds.Num("verse", verseNode)
			if filter != nil && !filter(chapter, verse) {
				continue
			}

			var clauses []EnrichedClause
			for _, clauseNode := range e.ds.Down(verseNode, "clause") {
				clauses = append(clauses, e.enrichClause(clauseNode))
			}
			if len(clauses) == 0 {
				continue
			}

			out.Verses = append(out.Verses, EnrichedVerse{
				Chapter: chapter,
				Verse:   verse,
				Clauses: clauses,
			})
			stats.Verses++
			stats.Clauses += len(clauses)
		}
	}
	return out, stats, nil
}

// enrichClause builds the enriched record for one clause node.
func (e *Extractor) enrichClause(clauseNode int) EnrichedClause {
	phrases := []EnrichedPhrase{}
	for _, phraseNode := range e.ds.Down(clauseNode, "phrase") {
		phrases = append(phrases, e.enrichPhrase(phraseNode))
	}

	words := e.enrichWords(e.ds.Down(clauseNode, e.ds.SlotType()))

	// Clause text and gloss are assembled from the word records, not the
	// corpus trailer text
	textParts := make([]string, 0, len(words))
	glossParts := make([]string, 0, len(words))
	for _, w := range words {
		if w.TextUTF8 != "" {
			textParts = append(textParts, w.TextUTF8)
		}
		if w.Gloss != "" {
			glossParts = append(glossParts, w.Gloss)
		}
	}

	return EnrichedClause{
		ClauseID:        clauseNode,
		Typ:             e.ds.Str("typ", clauseNode),
		Txt:             e.ds.Str("txt", clauseNode),
		Rela:            e.ds.Str("rela", clauseNode),
		Domain:          e.ds.Str("domain", clauseNode),
		Kind:            e.ds.Str("kind", clauseNode),
		HebrewText:      strings.Join(textParts, " "),
		Transliteration: "",
		Gloss:           strings.Join(glossParts, " "),
		Phrases:         phrases,
		Words:           words,
	}
}

// enrichPhrase builds the enriched record for one phrase node.
func (e *Extractor) enrichPhrase(phraseNode int) EnrichedPhrase {
	return EnrichedPhrase{
		PhraseID: phraseNode,
		Function: e.ds.StrOr("function", phraseNode, "NA"),
		Typ:      e.ds.StrOr("typ", phraseNode, "NA"),
		Rela:     e.ds.StrOr("rela", phraseNode, "NA"),
		Words:    e.enrichWords(e.ds.Down(phraseNode, e.ds.SlotType())),
	}
}

// enrichWords builds word records for a slice of word nodes.
func (e *Extractor) enrichWords(nodes []int) []EnrichedWord {
	words := make([]EnrichedWord, 0, len(nodes))
	for _, w := range nodes {
		var extra map[string]string
		if len(e.extra) > 0 {
			extra = make(map[string]string, len(e.extra))
			for _, name := range e.extra {
				extra[name] = e.ds.StrOr(name, w, "NA")
			}
		}
		words = append(words, EnrichedWord{
			WordID:   w,
			TextUTF8: e.ds.Str("g_word_utf8", w),
			Lex:      e.ds.Str("lex", w),
			LexUTF8:  e.ds.Str("lex_utf8", w),
			Gloss:    e.ds.Str("gloss", w),
			Sp:       e.ds.Str("sp", w),
			Pdp:      e.ds.Str("pdp", w),
			Gn:       e.ds.StrOr("gn", w, "NA"),
			Nu:       e.ds.StrOr("nu", w, "NA"),
			Ps:       e.ds.StrOr("ps", w, "NA"),
			Vs:       e.ds.StrOr("vs", w, "NA"),
			Vt:       e.ds.StrOr("vt", w, "NA"),
			St:       e.ds.StrOr("st", w, "NA"),
			Ls:       e.ds.StrOr("ls", w, "NA"),
			Nametype: e.ds.StrOr("nametype", w, "NA"),
			Prs:      e.ds.StrOr("prs", w, "absent"),
			PrsGn:    e.ds.StrOr("prs_gn", w, "NA"),
			PrsNu:    e.ds.StrOr("prs_nu", w, "NA"),
			PrsPs:    e.ds.StrOr("prs_ps", w, "NA"),
			Extra:    extra,
		})
	}
	return words
}
