// Package ref parses human-readable verse range selectors like
// "Ruth", "Ruth 1", "Ruth 1:5", "Ruth 1-2" and "Ruth 1:5-2:3" into
// verse filters for extraction.
package ref

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/meaningmap/bhsa-extract/core/bhsa"
	"github.com/meaningmap/bhsa-extract/core/errors"
)

// Place is a chapter position, optionally narrowed to one verse.
// Verse 0 means the whole chapter.
type Place struct {
	Chapter int
	Verse   int
}

// Range selects a span of verses within one book. A zero From means the
// whole book.
type Range struct {
	Book bhsa.Book
	From Place
	To   Place
}

// rangeGrammar covers "Book", "Book C", "Book C:V", "Book C-C",
// "Book C:V-V" and "Book C:V-C:V". Book names may carry a leading
// number, as in "1_Samuel" or "1 Samuel".
//
//nolint:govet // participle grammar tags are not standard struct tags
type rangeGrammar struct {
	BookPrefix string     `parser:"@Int?"`
	BookName   string     `parser:"@Ident"`
	From       *placePart `parser:"@@?"`
	To         *placePart `parser:"( \"-\" @@ )?"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type placePart struct {
	Chapter int  `parser:"@Int"`
	Verse   *int `parser:"( \":\" @Int )?"`
}

var rangeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z_]*`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var rangeParser = participle.MustBuild[rangeGrammar](
	participle.Lexer(rangeLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a range selector. The book name must be one of the
// canonical Hebrew Bible books; matching is case-insensitive and accepts
// spaces or underscores interchangeably.
func Parse(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.NewValidation("range", "empty selector")
	}

	parsed, err := rangeParser.ParseString("", s)
	if err != nil {
		return nil, errors.NewValidation("range", fmt.Sprintf("invalid selector %q: %v", s, err))
	}

	name := parsed.BookName
	if parsed.BookPrefix != "" {
		if !strings.HasPrefix(name, "_") {
			name = "_" + name
		}
		name = parsed.BookPrefix + name
	}
	book, ok := bhsa.LookupBook(name)
	if !ok {
		return nil, errors.NewNotFound("book", name)
	}

	r := &Range{Book: book}
	if parsed.From == nil {
		if parsed.To != nil {
			return nil, errors.NewValidation("range", fmt.Sprintf("selector %q has an end but no start", s))
		}
		return r, nil
	}

	r.From = placeOf(parsed.From)
	if parsed.To == nil {
		r.To = r.From
		return r, nil
	}

	r.To = placeOf(parsed.To)
	// "Ruth 1:5-9" narrows within the start chapter
	if parsed.From.Verse != nil && parsed.To.Verse == nil {
		r.To = Place{Chapter: r.From.Chapter, Verse: parsed.To.Chapter}
	}

	if cmpPlace(lowerBound(r.From), upperBound(r.To)) > 0 {
		return nil, errors.NewValidation("range", fmt.Sprintf("selector %q runs backwards", s))
	}
	return r, nil
}

func placeOf(p *placePart) Place {
	out := Place{Chapter: p.Chapter}
	if p.Verse != nil {
		out.Verse = *p.Verse
	}
	return out
}

// WholeBook reports whether the range covers the entire book.
func (r *Range) WholeBook() bool {
	return r.From == (Place{})
}

// Filter returns the verse filter implementing this range. A whole-book
// range returns nil, which extraction treats as matching everything.
func (r *Range) Filter() bhsa.VerseFilter {
	if r.WholeBook() {
		return nil
	}
	lo := lowerBound(r.From)
	hi := upperBound(r.To)
	return func(chapter, verse int) bool {
		p := Place{Chapter: chapter, Verse: verse}
		return cmpPlace(lo, p) <= 0 && cmpPlace(p, hi) <= 0
	}
}

// String renders the range back in selector form.
func (r *Range) String() string {
	var b strings.Builder
	b.WriteString(r.Book.Name)
	if r.WholeBook() {
		return b.String()
	}
	writePlace(&b, r.From)
	if r.To != r.From {
		b.WriteByte('-')
		writePlace(&b, r.To)
	}
	return b.String()
}

func writePlace(b *strings.Builder, p Place) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
		b.WriteByte(' ')
	}
	fmt.Fprintf(b, "%d", p.Chapter)
	if p.Verse != 0 {
		fmt.Fprintf(b, ":%d", p.Verse)
	}
}

// lowerBound resolves a whole-chapter place to its first verse.
func lowerBound(p Place) Place {
	if p.Verse == 0 {
		return Place{Chapter: p.Chapter, Verse: 1}
	}
	return p
}

// upperBound resolves a whole-chapter place to past any real verse number.
func upperBound(p Place) Place {
	if p.Verse == 0 {
		return Place{Chapter: p.Chapter, Verse: 1 << 30}
	}
	return p
}

func cmpPlace(a, b Place) int {
	switch {
	case a.Chapter != b.Chapter:
		if a.Chapter < b.Chapter {
			return -1
		}
		return 1
	case a.Verse != b.Verse:
		if a.Verse < b.Verse {
			return -1
		}
		return 1
	default:
		return 0
	}
}
