package bhsa

// Record types for the two extraction profiles. The JSON field names and
// nesting mirror the files this tool's consumers already ingest, so they are
// part of the contract.

// Version tags recorded in enriched output.
const (
	ExtractionVersion  = "enriched-v1"
	DefaultBHSAVersion = "2021"
)

// BasicBook is the clause-level output for one book.
type BasicBook struct {
	Name     string       `json:"name"`
	Chapters int          `json:"chapters"`
	Verses   []BasicVerse `json:"verses"`
}

// BasicVerse is one verse with its clauses.
type BasicVerse struct {
	Book      string        `json:"book"`
	Chapter   int           `json:"chapter"`
	Verse     int           `json:"verse"`
	Reference string        `json:"reference"`
	Clauses   []BasicClause `json:"clauses"`
}

// BasicClause is the clause-level record. Clause segmentation follows the
// corpus exactly; clauses are never split or merged.
type BasicClause struct {
	ID              int           `json:"id"`
	ClauseType      string        `json:"clause_type"`
	IsVerbless      bool          `json:"is_verbless"`
	HebrewText      string        `json:"hebrew_text"`
	Transliteration string        `json:"transliteration"`
	Gloss           string        `json:"gloss"`
	Phrases         []BasicPhrase `json:"phrases"`
}

// BasicPhrase is the phrase-level record of the basic profile.
type BasicPhrase struct {
	ID              int    `json:"id"`
	Function        string `json:"function"`
	Hebrew          string `json:"hebrew"`
	Transliteration string `json:"transliteration"`
	Gloss           string `json:"gloss"`
}

// EnrichedBook is the morphology-bearing output for one book.
type EnrichedBook struct {
	Book              string          `json:"book"`
	ExtractionVersion string          `json:"extraction_version"`
	BHSAVersion       string          `json:"bhsa_version"`
	Verses            []EnrichedVerse `json:"verses"`
}

// EnrichedVerse is one verse with its clauses. Verses without clauses are
// not emitted.
type EnrichedVerse struct {
	Chapter int              `json:"chapter"`
	Verse   int              `json:"verse"`
	Clauses []EnrichedClause `json:"clauses"`
}

// EnrichedClause carries clause features plus phrases and a flat word list.
type EnrichedClause struct {
	ClauseID        int              `json:"clause_id"`
	Typ             string           `json:"typ"`
	Txt             string           `json:"txt"`
	Rela            string           `json:"rela"`
	Domain          string           `json:"domain"`
	Kind            string           `json:"kind"`
	HebrewText      string           `json:"hebrew_text"`
	Transliteration string           `json:"transliteration"`
	Gloss           string           `json:"gloss"`
	Phrases         []EnrichedPhrase `json:"phrases"`
	Words           []EnrichedWord   `json:"words"`
}

// EnrichedPhrase carries phrase features and the contained words.
type EnrichedPhrase struct {
	PhraseID int            `json:"phrase_id"`
	Function string         `json:"function"`
	Typ      string         `json:"typ"`
	Rela     string         `json:"rela"`
	Words    []EnrichedWord `json:"words"`
}

// EnrichedWord carries the morphological features of one word occurrence.
type EnrichedWord struct {
	WordID   int    `json:"word_id"`
	TextUTF8 string `json:"text_utf8"`
	Lex      string `json:"lex"`
	LexUTF8  string `json:"lex_utf8"`
	Gloss    string `json:"gloss"`
	Sp       string `json:"sp"`
	Pdp      string `json:"pdp"`
	Gn       string `json:"gn"`
	Nu       string `json:"nu"`
	Ps       string `json:"ps"`
	Vs       string `json:"vs"`
	Vt       string `json:"vt"`
	St       string `json:"st"`
	Ls       string `json:"ls"`
	Nametype string `json:"nametype"`
	Prs      string `json:"prs"`
	PrsGn    string `json:"prs_gn"`
	PrsNu    string `json:"prs_nu"`
	PrsPs    string `json:"prs_ps"`

	// Extra holds the values of configured extra word features, keyed by
	// feature name.
	Extra map[string]string `json:"extra,omitempty"`
}

// Stats summarizes one extracted book.
type Stats struct {
	Verses  int
	Clauses int
}
