// Package bhsa extracts clause, phrase and word data from a loaded BHSA
// corpus into per-book records.
package bhsa

import "strings"

// Book identifies one biblical book in the BHSA canon.
type Book struct {
	// Name is the corpus-internal book name (e.g., "1_Samuel").
	Name string

	// Slug is the lowercase filename stem (e.g., "1_samuel").
	Slug string

	// Display is the human-readable name (e.g., "1 Samuel").
	Display string

	// Order is the position within the canon (1-indexed).
	Order int
}

// canonNames lists the 39 BHSA book names in canonical order.
var canonNames = []string{
	"Genesis", "Exodus", "Leviticus", "Numbers", "Deuteronomy",
	"Joshua", "Judges", "Ruth",
	"1_Samuel", "2_Samuel", "1_Kings", "2_Kings",
	"1_Chronicles", "2_Chronicles",
	"Ezra", "Nehemiah", "Esther",
	"Job", "Psalms", "Proverbs", "Ecclesiastes", "Song_of_songs",
	"Isaiah", "Jeremiah", "Lamentations", "Ezekiel",
	"Daniel", "Hosea", "Joel", "Amos", "Obadiah",
	"Jonah", "Micah", "Nahum", "Habakkuk", "Zephaniah",
	"Haggai", "Zechariah", "Malachi",
}

// PilotBooks is the default set for enriched extraction.
var PilotBooks = []string{"Ruth", "Jonah", "Genesis"}

var (
	canon  []Book
	byName map[string]Book
)

func init() {
	canon = make([]Book, len(canonNames))
	byName = make(map[string]Book, len(canonNames))
	for i, name := range canonNames {
		b := Book{
			Name:    name,
			Slug:    strings.ToLower(name),
			Display: strings.ReplaceAll(name, "_", " "),
			Order:   i + 1,
		}
		canon[i] = b
		byName[normalize(name)] = b
	}
}

// normalize folds case and treats spaces and underscores alike.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// AllBooks returns the canon in order.
func AllBooks() []Book {
	books := make([]Book, len(canon))
	copy(books, canon)
	return books
}

// LookupBook resolves a user-supplied book name. Matching is
// case-insensitive and accepts spaces for underscores ("1 samuel",
// "Song of songs").
func LookupBook(input string) (Book, bool) {
	b, ok := byName[normalize(input)]
	return b, ok
}

// ResolveBooks maps user inputs to books, returning the resolved set and the
// inputs that matched nothing.
func ResolveBooks(inputs []string) ([]Book, []string) {
	var books []Book
	var unknown []string
	seen := make(map[string]bool)
	for _, in := range inputs {
		b, ok := LookupBook(in)
		if !ok {
			unknown = append(unknown, in)
			continue
		}
		if !seen[b.Name] {
			books = append(books, b)
			seen[b.Name] = true
		}
	}
	return books, unknown
}

// Feature name groups for dataset loading.

// BasicFeatures are the node features basic extraction reads.
func BasicFeatures() []string {
	return []string{
		"book", "chapter", "verse",
		"g_word_utf8", "trailer_utf8",
		"typ", "function", "pdp",
		"lex_utf8", "gloss", "phono",
	}
}

// EnrichedFeatures are the node features enriched extraction reads.
func EnrichedFeatures() []string {
	return append(BasicFeatures(),
		"lex", "sp", "gn", "nu", "ps", "vs", "vt", "st", "ls",
		"nametype", "prs", "prs_gn", "prs_nu", "prs_ps",
		"rela", "txt", "domain", "kind",
	)
}

// OptionalFeatures may be absent from a corpus without failing the load.
// phono ships as a separate BHSA module; kind is not present in all
// versions.
func OptionalFeatures() []string {
	return []string{"phono", "gloss", "kind"}
}
