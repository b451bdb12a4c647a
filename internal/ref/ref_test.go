package ref

import (
	"errors"
	"testing"

	cerrors "github.com/meaningmap/bhsa-extract/core/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		book  string
		from  Place
		to    Place
	}{
		{"Ruth", "Ruth", Place{}, Place{}},
		{"ruth", "Ruth", Place{}, Place{}},
		{"Ruth 1", "Ruth", Place{1, 0}, Place{1, 0}},
		{"Ruth 1:5", "Ruth", Place{1, 5}, Place{1, 5}},
		{"Ruth 1-3", "Ruth", Place{1, 0}, Place{3, 0}},
		{"Ruth 1:5-9", "Ruth", Place{1, 5}, Place{1, 9}},
		{"Ruth 1:5-2:3", "Ruth", Place{1, 5}, Place{2, 3}},
		{"1_Samuel 17", "1_Samuel", Place{17, 0}, Place{17, 0}},
		{"1 Samuel 17", "1_Samuel", Place{17, 0}, Place{17, 0}},
		{"Song_of_songs 2:1", "Song_of_songs", Place{2, 1}, Place{2, 1}},
		{"  Jonah 3  ", "Jonah", Place{3, 0}, Place{3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if r.Book.Name != tt.book {
				t.Errorf("book = %q, want %q", r.Book.Name, tt.book)
			}
			if r.From != tt.from || r.To != tt.to {
				t.Errorf("range = %v-%v, want %v-%v", r.From, r.To, tt.from, tt.to)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input  string
		target error
	}{
		{"", cerrors.ErrInvalidInput},
		{"Ruth 3-1", cerrors.ErrInvalidInput},
		{"Ruth 2:9-2:3", cerrors.ErrInvalidInput},
		{"Ruth :5", cerrors.ErrInvalidInput},
		{"Westeros 1", cerrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) should fail", tt.input)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.input, err, tt.target)
			}
		})
	}
}

func TestFilter(t *testing.T) {
	r, err := Parse("Ruth 1:5-2:3")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	f := r.Filter()
	if f == nil {
		t.Fatal("Filter returned nil for a bounded range")
	}

	tests := []struct {
		chapter, verse int
		want           bool
	}{
		{1, 4, false},
		{1, 5, true},
		{1, 22, true},
		{2, 1, true},
		{2, 3, true},
		{2, 4, false},
		{3, 1, false},
	}
	for _, tt := range tests {
		if got := f(tt.chapter, tt.verse); got != tt.want {
			t.Errorf("filter(%d, %d) = %v, want %v", tt.chapter, tt.verse, got, tt.want)
		}
	}
}

func TestFilterWholeChapter(t *testing.T) {
	r, err := Parse("Jonah 3")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	f := r.Filter()
	if f(2, 10) || !f(3, 1) || !f(3, 10) || f(4, 1) {
		t.Error("whole-chapter filter does not bound to chapter 3")
	}
}

func TestFilterWholeBook(t *testing.T) {
	r, err := Parse("Genesis")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !r.WholeBook() {
		t.Error("WholeBook should be true")
	}
	if r.Filter() != nil {
		t.Error("whole-book range should yield a nil filter")
	}
}

func TestRangeString(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Ruth", "Ruth"},
		{"ruth 1", "Ruth 1"},
		{"Ruth 1:5-2:3", "Ruth 1:5-2:3"},
		{"Ruth 1:5-9", "Ruth 1:5-1:9"},
	}
	for _, tt := range tests {
		r, err := Parse(tt.input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.input, err)
		}
		if got := r.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
