package tf

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	cerrors "github.com/meaningmap/bhsa-extract/core/errors"
)

// writeCorpus writes a small fixture corpus.
//
// Layout: 8 word slots; one book (Ruth) with 2 chapters, each chapter one
// verse; three clauses; four phrases.
func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"otype.tf": "@node\n@valueType=str\n\n" +
			"1-8\tword\n" +
			"9\tbook\n" +
			"10-11\tchapter\n" +
			"12-13\tverse\n" +
			"14-16\tclause\n" +
			"17-20\tphrase\n",
		"oslots.tf": "@edge\n@valueType=str\n\n" +
			"1-8\n" + // book 9
			"1-4\n" + // chapter 10
			"5-8\n" + // chapter 11
			"1-4\n" + // verse 12
			"5-8\n" + // verse 13
			"1-2\n" + // clause 14
			"3-4\n" + // clause 15
			"5-8\n" + // clause 16
			"1-2\n" + // phrase 17
			"3-4\n" + // phrase 18
			"5-6\n" + // phrase 19
			"7-8\n", // phrase 20
		"book.tf":    "@node\n@valueType=str\n\n9\tRuth\n",
		"chapter.tf": "@node\n@valueType=int\n\n10\t1\n11\t2\n12\t1\n13\t2\n",
		"verse.tf":   "@node\n@valueType=int\n\n12\t1\n13\t1\n",
		"g_word_utf8.tf": "@node\n@valueType=str\n\n" +
			"wa\nhalak\nish\nmibbet\nlagur\nbisde\nhu\nushne\n",
		"trailer_utf8.tf": "@node\n@valueType=str\n\n" +
			" \n \n \n \n \n \n \n\n",
		"function.tf": "@node\n@valueType=str\n\n17\tPred\n18\tSubj\n19\tPred\n20\tObjc\n",
		"pdp.tf":      "@node\n@valueType=str\n\n1\tverb\n2\tverb\n3-8\tsubs\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

var corpusFeatures = []string{"book", "chapter", "verse", "g_word_utf8", "trailer_utf8", "function", "pdp"}

func loadCorpus(t *testing.T) *Dataset {
	t.Helper()
	d, err := Load(writeCorpus(t), corpusFeatures, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return d
}

func TestLoadBasics(t *testing.T) {
	d := loadCorpus(t)

	if d.SlotType() != "word" {
		t.Errorf("SlotType() = %q, want word", d.SlotType())
	}
	if d.MaxSlot() != 8 {
		t.Errorf("MaxSlot() = %d, want 8", d.MaxSlot())
	}
	if d.MaxNode() != 20 {
		t.Errorf("MaxNode() = %d, want 20", d.MaxNode())
	}
	if !d.HasFeature("pdp") {
		t.Error("pdp feature should be loaded")
	}
	if d.HasFeature("phono") {
		t.Error("phono feature should not be loaded")
	}
}

func TestTypeOf(t *testing.T) {
	d := loadCorpus(t)

	tests := map[int]string{1: "word", 8: "word", 9: "book", 11: "chapter", 13: "verse", 16: "clause", 20: "phrase"}
	for node, want := range tests {
		if got := d.TypeOf(node); got != want {
			t.Errorf("TypeOf(%d) = %q, want %q", node, got, want)
		}
	}
	if got := d.TypeOf(99); got != "" {
		t.Errorf("TypeOf(99) = %q, want empty", got)
	}
}

func TestNodesOfType(t *testing.T) {
	d := loadCorpus(t)

	if got := d.NodesOfType("verse"); !reflect.DeepEqual(got, []int{12, 13}) {
		t.Errorf("NodesOfType(verse) = %v", got)
	}
	if got := d.NodesOfType("nope"); got != nil {
		t.Errorf("NodesOfType(nope) = %v, want nil", got)
	}
}

func TestDown(t *testing.T) {
	d := loadCorpus(t)

	tests := []struct {
		node  int
		otype string
		want  []int
	}{
		{9, "chapter", []int{10, 11}},
		{9, "verse", []int{12, 13}},
		{12, "clause", []int{14, 15}},
		{13, "clause", []int{16}},
		{14, "phrase", []int{17}},
		{16, "phrase", []int{19, 20}},
		{16, "word", []int{5, 6, 7, 8}},
		{9, "word", []int{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, tt := range tests {
		if got := d.Down(tt.node, tt.otype); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Down(%d, %s) = %v, want %v", tt.node, tt.otype, got, tt.want)
		}
	}

	// A verse does not embed the other verse's clauses
	if got := d.Down(12, "verse"); got != nil {
		t.Errorf("Down(12, verse) = %v, want nil (self excluded)", got)
	}
}

// writeInterruptedCorpus models a clause split by an embedded clause:
// clause 7 covers slots 1-2 and 5-6, clause 8 covers the 3-4 gap.
func writeInterruptedCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"otype.tf": "@node\n@valueType=str\n\n" +
			"1-6\tword\n" +
			"7-8\tclause\n" +
			"9-11\tphrase\n",
		"oslots.tf": "@edge\n@valueType=str\n\n" +
			"7\t1-2,5-6\n" +
			"8\t3-4\n" +
			"9\t1-2\n" +
			"10\t3-4\n" +
			"11\t5-6\n",
		"g_word_utf8.tf": "@node\n@valueType=str\n\n" +
			"A\nB\nX\nY\nC\nD\n",
		"trailer_utf8.tf": "@node\n@valueType=str\n\n" +
			" \n \n \n \n \n\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestDiscontinuousClause(t *testing.T) {
	d, err := Load(writeInterruptedCorpus(t), []string{"g_word_utf8", "trailer_utf8"}, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// The interrupting clause's slots are not part of the outer clause
	if got := d.Down(7, "word"); !reflect.DeepEqual(got, []int{1, 2, 5, 6}) {
		t.Errorf("Down(7, word) = %v, want [1 2 5 6]", got)
	}
	if got := d.Down(8, "word"); !reflect.DeepEqual(got, []int{3, 4}) {
		t.Errorf("Down(8, word) = %v, want [3 4]", got)
	}

	// Likewise for text rendering
	if got := d.Text(7); got != "A B C D" {
		t.Errorf("Text(7) = %q, want %q", got, "A B C D")
	}
	if got := d.Text(8); got != "X Y " {
		t.Errorf("Text(8) = %q, want %q", got, "X Y ")
	}

	// The embedded phrase belongs to the embedded clause only
	if got := d.Down(7, "phrase"); !reflect.DeepEqual(got, []int{9, 11}) {
		t.Errorf("Down(7, phrase) = %v, want [9 11]", got)
	}
	up, ok := d.Up(10, "clause")
	if !ok || up != 8 {
		t.Errorf("Up(10, clause) = %d, %v; want 8, true", up, ok)
	}
	up, ok = d.Up(11, "clause")
	if !ok || up != 7 {
		t.Errorf("Up(11, clause) = %d, %v; want 7, true", up, ok)
	}
	up, ok = d.Up(3, "clause")
	if !ok || up != 8 {
		t.Errorf("Up(3, clause) = %d, %v; want 8, true", up, ok)
	}
}

func TestUp(t *testing.T) {
	d := loadCorpus(t)

	tests := []struct {
		node  int
		otype string
		want  int
	}{
		{1, "clause", 14},
		{5, "verse", 13},
		{17, "clause", 14},
		{19, "chapter", 11},
		{14, "book", 9},
	}
	for _, tt := range tests {
		got, ok := d.Up(tt.node, tt.otype)
		if !ok {
			t.Fatalf("Up(%d, %s) not found", tt.node, tt.otype)
		}
		if got != tt.want {
			t.Errorf("Up(%d, %s) = %d, want %d", tt.node, tt.otype, got, tt.want)
		}
	}

	if _, ok := d.Up(9, "clause"); ok {
		t.Error("Up(book, clause) should not find anything")
	}
}

func TestText(t *testing.T) {
	d := loadCorpus(t)

	if got := d.Text(1); got != "wa " {
		t.Errorf("Text(1) = %q, want %q", got, "wa ")
	}
	if got := d.Text(14); got != "wa halak " {
		t.Errorf("Text(14) = %q, want %q", got, "wa halak ")
	}
	if got := d.Text(16); got != "lagur bisde hu ushne" {
		t.Errorf("Text(16) = %q, want %q", got, "lagur bisde hu ushne")
	}

	// Second render comes from the cache
	before := d.TextCacheStats().Hits
	d.Text(16)
	if d.TextCacheStats().Hits != before+1 {
		t.Error("repeated Text() render should hit the cache")
	}
}

func TestStrNumAccessors(t *testing.T) {
	d := loadCorpus(t)

	if got := d.Str("function", 17); got != "Pred" {
		t.Errorf("Str(function, 17) = %q", got)
	}
	if got := d.Str("function", 1); got != "" {
		t.Errorf("Str(function, 1) = %q, want empty", got)
	}
	if got := d.Str("unloaded", 1); got != "" {
		t.Errorf("Str(unloaded, 1) = %q, want empty", got)
	}
	if got := d.StrOr("pdp", 7, "NA"); got != "subs" {
		t.Errorf("StrOr(pdp, 7) = %q", got)
	}
	if got := d.StrOr("pdp", 99, "NA"); got != "NA" {
		t.Errorf("StrOr(pdp, 99) = %q, want NA", got)
	}
	if got := d.Num("chapter", 13); got != 2 {
		t.Errorf("Num(chapter, 13) = %d, want 2", got)
	}
	if got := d.Num("verse", 13); got != 1 {
		t.Errorf("Num(verse, 13) = %d, want 1", got)
	}
}

func TestBookLookup(t *testing.T) {
	d := loadCorpus(t)

	node, ok := d.BookNode("Ruth")
	if !ok || node != 9 {
		t.Fatalf("BookNode(Ruth) = %d, %v; want 9, true", node, ok)
	}
	if _, ok := d.BookNode("Jonah"); ok {
		t.Error("BookNode(Jonah) should not be found")
	}
	if got := d.BookNames(); !reflect.DeepEqual(got, []string{"Ruth"}) {
		t.Errorf("BookNames() = %v", got)
	}
}

func TestLoadOptionalFeature(t *testing.T) {
	dir := writeCorpus(t)
	d, err := Load(dir, []string{"book", "phono"}, []string{"phono"})
	if err != nil {
		t.Fatalf("Load with optional missing feature failed: %v", err)
	}
	if d.HasFeature("phono") {
		t.Error("phono should be marked missing, not loaded")
	}
	if got := d.MissingFeatures(); !reflect.DeepEqual(got, []string{"phono"}) {
		t.Errorf("MissingFeatures() = %v", got)
	}
}

func TestLoadRequiredFeatureMissing(t *testing.T) {
	dir := writeCorpus(t)
	_, err := Load(dir, []string{"gloss"}, nil)
	if err == nil {
		t.Fatal("expected error for missing required feature")
	}
	if !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("error should unwrap to ErrNotFound: %v", err)
	}
}

func TestLoadBadDir(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope"), nil, nil); err == nil {
		t.Fatal("expected error for missing corpus directory")
	}
}
