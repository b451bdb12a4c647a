package tf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/meaningmap/bhsa-extract/core/cache"
	cerrors "github.com/meaningmap/bhsa-extract/core/errors"
	"github.com/meaningmap/bhsa-extract/internal/logging"
)

// Features every dataset must provide.
const (
	featureOtype  = "otype"
	featureOslots = "oslots"
)

// Word-level features used for plain text rendering.
const (
	featureWordText = "g_word_utf8"
	featureTrailer  = "trailer_utf8"
)

// textCacheSize bounds the rendered-text cache. Rendering is cheap enough
// that an eviction only costs a re-render.
const textCacheSize = 4096

// Dataset is a loaded Text-Fabric corpus: its node types, the slot mapping,
// and a chosen set of node features.
type Dataset struct {
	dir      string
	slotType string
	maxSlot  int
	maxNode  int

	features map[string]*Feature
	missing  map[string]bool
	oslots   *Edge

	ranges []typeRange
	byType map[string][]int

	// spanOf holds the overall first/last slot of every node, for ordering
	// and search windows. spansOf keeps the full slot coverage of non-slot
	// nodes, which can be discontinuous (a clause interrupted by an embedded
	// clause). maxWidth is the widest bounds per type, in slots.
	spanOf   map[int]Span
	spansOf  map[int][]Span
	maxWidth map[string]int

	textCache cache.Cache[int, string]
}

// Load opens the corpus in dir and loads the given node features alongside
// otype and oslots. Features listed in optional may be absent from the
// corpus; all others must exist.
func Load(dir string, features []string, optional []string) (*Dataset, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, cerrors.NewIO("open", dir, err)
	}
	if !info.IsDir() {
		return nil, cerrors.NewValidation("corpus", fmt.Sprintf("%s is not a directory", dir))
	}

	otype, err := LoadFeature(filepath.Join(dir, featureOtype+".tf"))
	if err != nil {
		return nil, cerrors.Wrap(err, "loading otype")
	}
	if otype.MaxNode() == 0 {
		return nil, cerrors.NewParse("TF", dir, "otype has no nodes")
	}

	d := &Dataset{
		dir:       dir,
		maxNode:   otype.MaxNode(),
		features:  make(map[string]*Feature),
		missing:   make(map[string]bool),
		byType:    make(map[string][]int),
		spanOf:    make(map[int]Span),
		spansOf:   make(map[int][]Span),
		maxWidth:  make(map[string]int),
		textCache: cache.NewLRU[int, string](textCacheSize),
	}

	d.ranges = buildTypeRanges(otype)
	slotType, ok := otype.Str(1)
	if !ok {
		return nil, cerrors.NewParse("TF", dir, "node 1 has no otype value")
	}
	d.slotType = slotType
	for _, r := range d.ranges {
		if r.Type == slotType && r.Span.First == 1 {
			d.maxSlot = r.Span.Last
			break
		}
	}
	if d.maxSlot == 0 {
		return nil, cerrors.NewParse("TF", dir, "could not determine slot range from otype")
	}

	d.oslots, err = LoadEdge(filepath.Join(dir, featureOslots+".tf"), d.maxSlot)
	if err != nil {
		return nil, cerrors.Wrap(err, "loading oslots")
	}

	optionalSet := make(map[string]bool, len(optional))
	for _, name := range optional {
		optionalSet[name] = true
	}
	for _, name := range features {
		if name == featureOtype || name == featureOslots {
			continue
		}
		feat, err := LoadFeature(filepath.Join(dir, name+".tf"))
		if err != nil {
			if os.IsNotExist(err) && optionalSet[name] {
				d.missing[name] = true
				logging.Debug("optional feature absent", "feature", name)
				continue
			}
			if os.IsNotExist(err) {
				return nil, cerrors.NewNotFound("feature", name)
			}
			return nil, cerrors.Wrapf(err, "loading feature %s", name)
		}
		d.features[name] = feat
	}

	d.buildIndexes()
	logging.CorpusLoaded(dir, len(d.features), d.maxSlot)
	return d, nil
}

// buildIndexes computes the slot span of every node and the per-type node
// lists in canonical (first slot) order.
func (d *Dataset) buildIndexes() {
	for _, r := range d.ranges {
		nodes := make([]int, 0, r.Span.Last-r.Span.First+1)
		for n := r.Span.First; n <= r.Span.Last; n++ {
			if n <= d.maxSlot {
				d.spanOf[n] = Span{First: n, Last: n}
				nodes = append(nodes, n)
				continue
			}
			spans := normalizeSpans(d.oslots.Spans(n))
			if len(spans) == 0 {
				// Node with no slots is unreachable; leave it out
				continue
			}
			d.spansOf[n] = spans
			d.spanOf[n] = Span{First: spans[0].First, Last: spans[len(spans)-1].Last}
			nodes = append(nodes, n)
		}
		existing := d.byType[r.Type]
		d.byType[r.Type] = append(existing, nodes...)
	}
	for _, nodes := range d.byType {
		sort.Slice(nodes, func(i, j int) bool {
			a, b := d.spanOf[nodes[i]], d.spanOf[nodes[j]]
			if a.First != b.First {
				return a.First < b.First
			}
			// Wider node first, matching canonical TF order
			return a.Last > b.Last
		})
	}
	for typ, nodes := range d.byType {
		for _, n := range nodes {
			s := d.spanOf[n]
			if w := s.Last - s.First + 1; w > d.maxWidth[typ] {
				d.maxWidth[typ] = w
			}
		}
	}
}

// normalizeSpans sorts spans by first slot and merges overlapping or
// adjacent ones.
func normalizeSpans(spans []Span) []Span {
	if len(spans) < 2 {
		return spans
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].First < sorted[j].First })
	merged := sorted[:1]
	for _, s := range sorted[1:] {
		last := &merged[len(merged)-1]
		if s.First <= last.Last+1 {
			if s.Last > last.Last {
				last.Last = s.Last
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// slotSpans returns the full slot coverage of a node as disjoint ascending
// spans.
func (d *Dataset) slotSpans(node int) []Span {
	if node >= 1 && node <= d.maxSlot {
		return []Span{{First: node, Last: node}}
	}
	return d.spansOf[node]
}

// containsSpans reports whether every inner span lies within one of the
// outer spans. Both lists are ascending and disjoint.
func containsSpans(outer, inner []Span) bool {
	i := 0
	for _, in := range inner {
		for i < len(outer) && outer[i].Last < in.First {
			i++
		}
		if i == len(outer) || !outer[i].Contains(in) {
			return false
		}
	}
	return true
}

func slotCount(spans []Span) int {
	n := 0
	for _, s := range spans {
		n += s.Last - s.First + 1
	}
	return n
}

// Dir returns the corpus directory.
func (d *Dataset) Dir() string { return d.dir }

// SlotType returns the node type occupying slots (word for BHSA).
func (d *Dataset) SlotType() string { return d.slotType }

// MaxSlot returns the highest slot number.
func (d *Dataset) MaxSlot() int { return d.maxSlot }

// MaxNode returns the highest node number.
func (d *Dataset) MaxNode() int { return d.maxNode }

// HasFeature reports whether the named feature was loaded.
func (d *Dataset) HasFeature(name string) bool {
	_, ok := d.features[name]
	return ok
}

// MissingFeatures returns the optional features that were requested but not
// present in the corpus.
func (d *Dataset) MissingFeatures() []string {
	names := make([]string, 0, len(d.missing))
	for name := range d.missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Str returns the string value of a feature for a node, or "" when the node
// has no value or the feature is not loaded.
func (d *Dataset) Str(name string, node int) string {
	feat, ok := d.features[name]
	if !ok {
		return ""
	}
	v, _ := feat.Str(node)
	return v
}

// StrOr is Str with an explicit default for absent values.
func (d *Dataset) StrOr(name string, node int, def string) string {
	feat, ok := d.features[name]
	if !ok {
		return def
	}
	v, ok := feat.Str(node)
	if !ok {
		return def
	}
	return v
}

// Num returns the integer value of a feature for a node, or 0 when absent.
func (d *Dataset) Num(name string, node int) int {
	feat, ok := d.features[name]
	if !ok {
		return 0
	}
	v, _ := feat.Int(node)
	return v
}

// TypeOf returns the node type of a node, or "" for unknown nodes.
func (d *Dataset) TypeOf(node int) string {
	i := sort.Search(len(d.ranges), func(i int) bool { return d.ranges[i].Span.Last >= node })
	if i < len(d.ranges) && node >= d.ranges[i].Span.First {
		return d.ranges[i].Type
	}
	return ""
}

// NodesOfType returns all nodes of a type in canonical order.
func (d *Dataset) NodesOfType(otype string) []int {
	return d.byType[otype]
}

// SlotSpan returns the first/last slot covered by a node.
func (d *Dataset) SlotSpan(node int) (Span, bool) {
	s, ok := d.spanOf[node]
	return s, ok
}

// Down returns the nodes of the given type embedded in node, in canonical
// order. The node itself is never included.
func (d *Dataset) Down(node int, otype string) []int {
	span, ok := d.spanOf[node]
	if !ok {
		return nil
	}
	spans := d.slotSpans(node)
	if otype == d.slotType {
		slots := make([]int, 0, slotCount(spans))
		for _, sp := range spans {
			for s := sp.First; s <= sp.Last; s++ {
				slots = append(slots, s)
			}
		}
		return slots
	}
	candidates := d.byType[otype]
	i := sort.Search(len(candidates), func(i int) bool {
		return d.spanOf[candidates[i]].First >= span.First
	})
	var result []int
	for ; i < len(candidates); i++ {
		c := candidates[i]
		if d.spanOf[c].First > span.Last {
			break
		}
		if c != node && containsSpans(spans, d.slotSpans(c)) {
			result = append(result, c)
		}
	}
	return result
}

// Up returns the smallest node of the given type that embeds node.
func (d *Dataset) Up(node int, otype string) (int, bool) {
	span, ok := d.spanOf[node]
	if !ok {
		return 0, false
	}
	spans := d.slotSpans(node)
	candidates := d.byType[otype]
	i := sort.Search(len(candidates), func(i int) bool {
		return d.spanOf[candidates[i]].First > span.First
	})
	// An enclosing candidate must reach span.Last, so once candidates start
	// too far back to possibly reach it the scan can stop.
	floor := span.Last - d.maxWidth[otype] + 1
	best := 0
	bestSize := 0
	for i--; i >= 0; i-- {
		c := candidates[i]
		cs := d.spanOf[c]
		if cs.First < floor {
			break
		}
		if c != node && cs.Contains(span) && containsSpans(d.slotSpans(c), spans) {
			size := slotCount(d.slotSpans(c))
			if best == 0 || size < bestSize {
				best = c
				bestSize = size
			}
		}
	}
	if best == 0 {
		return 0, false
	}
	return best, true
}

// Text renders the full plain text of a node: the word text and trailer of
// every slot it covers. Results for non-slot nodes are cached.
func (d *Dataset) Text(node int) string {
	if node <= d.maxSlot {
		return d.Str(featureWordText, node) + d.Str(featureTrailer, node)
	}
	if cached, ok := d.textCache.Get(node); ok {
		return cached
	}
	spans := d.slotSpans(node)
	if len(spans) == 0 {
		return ""
	}
	var b strings.Builder
	for _, sp := range spans {
		for s := sp.First; s <= sp.Last; s++ {
			b.WriteString(d.Str(featureWordText, s))
			b.WriteString(d.Str(featureTrailer, s))
		}
	}
	text := b.String()
	d.textCache.Put(node, text)
	return text
}

// TextCacheStats exposes the rendered-text cache counters.
func (d *Dataset) TextCacheStats() cache.Stats {
	return d.textCache.Stats()
}

// BookNode finds the book node whose book feature equals name.
func (d *Dataset) BookNode(name string) (int, bool) {
	for _, n := range d.byType["book"] {
		if d.Str("book", n) == name {
			return n, true
		}
	}
	return 0, false
}

// BookNames lists the book feature values of all book nodes in canonical
// order.
func (d *Dataset) BookNames() []string {
	nodes := d.byType["book"]
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, d.Str("book", n))
	}
	return names
}
