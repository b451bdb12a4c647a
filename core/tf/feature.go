// Package tf reads Text-Fabric corpus data from plain-text .tf feature files.
// It implements only the operations the BHSA extractors need: node features,
// the oslots edge, locality between node types, section lookup, and plain
// text rendering.
package tf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	cerrors "github.com/meaningmap/bhsa-extract/core/errors"
)

// Feature kinds as declared on the first header line of a .tf file.
const (
	KindNode   = "node"
	KindEdge   = "edge"
	KindConfig = "config"
)

// Span is an inclusive node or slot range.
type Span struct {
	First int
	Last  int
}

// Contains reports whether other lies entirely within s.
func (s Span) Contains(other Span) bool {
	return other.First >= s.First && other.Last <= s.Last
}

// Feature holds the values of a single node feature.
// Values are stored sparsely: nodes without a value are simply absent.
type Feature struct {
	Name string
	Meta map[string]string

	// IsInt is true when the file declares @valueType=int.
	IsInt bool

	strVals map[int]string
	intVals map[int]int
	maxNode int
}

// Str returns the string value for a node. The second return is false when
// the node has no value.
func (f *Feature) Str(node int) (string, bool) {
	if f.IsInt {
		v, ok := f.intVals[node]
		if !ok {
			return "", false
		}
		return strconv.Itoa(v), true
	}
	v, ok := f.strVals[node]
	return v, ok
}

// Int returns the integer value for a node.
func (f *Feature) Int(node int) (int, bool) {
	if f.IsInt {
		v, ok := f.intVals[node]
		return v, ok
	}
	s, ok := f.strVals[node]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MaxNode returns the highest node that carries a value.
func (f *Feature) MaxNode() int { return f.maxNode }

// Len returns the number of nodes carrying a value.
func (f *Feature) Len() int {
	if f.IsInt {
		return len(f.intVals)
	}
	return len(f.strVals)
}

// Edge holds an edge feature without values, which is all the oslots edge
// needs. Each source node maps to the spans of its target slots.
type Edge struct {
	Name string
	Meta map[string]string

	spans   map[int][]Span
	maxNode int
}

// Spans returns the target spans of a node.
func (e *Edge) Spans(node int) []Span {
	return e.spans[node]
}

// Bounds returns the overall first/last target of a node.
func (e *Edge) Bounds(node int) (Span, bool) {
	spans := e.spans[node]
	if len(spans) == 0 {
		return Span{}, false
	}
	b := spans[0]
	for _, s := range spans[1:] {
		if s.First < b.First {
			b.First = s.First
		}
		if s.Last > b.Last {
			b.Last = s.Last
		}
	}
	return b, true
}

// MaxNode returns the highest source node in the edge.
func (e *Edge) MaxNode() int { return e.maxNode }

// header is the parsed @-metadata section of a .tf file.
type header struct {
	kind string
	meta map[string]string
}

// readHeader consumes the metadata lines of a .tf file, up to and including
// the blank separator line. The first line declares the feature kind.
func readHeader(scanner *bufio.Scanner, path string) (*header, error) {
	if !scanner.Scan() {
		return nil, cerrors.NewParse("TF", path, "empty file")
	}
	first := scanner.Text()
	h := &header{meta: make(map[string]string)}
	switch first {
	case "@node":
		h.kind = KindNode
	case "@edge":
		h.kind = KindEdge
	case "@config":
		h.kind = KindConfig
	default:
		return nil, cerrors.NewParse("TF", path, fmt.Sprintf("first line must be @node, @edge or @config, got %q", first))
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			// Blank line ends the metadata section
			return h, nil
		}
		if !strings.HasPrefix(line, "@") {
			return nil, cerrors.NewParse("TF", path, fmt.Sprintf("metadata line without @ prefix: %q", line))
		}
		key, value, found := strings.Cut(line[1:], "=")
		if !found {
			// Bare marker such as @edgeValues
			h.meta[line[1:]] = ""
			continue
		}
		h.meta[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, cerrors.NewIO("read", path, err)
	}
	// Metadata-only files are valid (config features)
	return h, nil
}

// unescape decodes the backslash escapes TF uses inside values.
func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// parseSpec parses a node spec: "7", "4-6" or a comma-separated mix.
func parseSpec(spec string) ([]Span, error) {
	if spec == "" {
		return nil, fmt.Errorf("empty node spec")
	}
	var spans []Span
	for _, part := range strings.Split(spec, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("bad node number %q", lo)
		}
		last := first
		if isRange {
			last, err = strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("bad node number %q", hi)
			}
		}
		if first < 1 || last < first {
			return nil, fmt.Errorf("invalid node range %q", part)
		}
		spans = append(spans, Span{First: first, Last: last})
	}
	return spans, nil
}

// newScanner builds a line scanner with a buffer large enough for any
// realistic feature line.
func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return scanner
}

// ParseFeature parses a node feature from r. Data lines are either a bare
// value for the next implicit node, or "spec<TAB>value" for explicit nodes.
func ParseFeature(name string, r io.Reader) (*Feature, error) {
	return parseFeature(name, name+".tf", r)
}

func parseFeature(name, path string, r io.Reader) (*Feature, error) {
	scanner := newScanner(r)
	h, err := readHeader(scanner, path)
	if err != nil {
		return nil, err
	}
	if h.kind != KindNode {
		return nil, cerrors.NewParse("TF", path, fmt.Sprintf("expected @node feature, got @%s", h.kind))
	}

	f := &Feature{
		Name:  name,
		Meta:  h.meta,
		IsInt: h.meta["valueType"] == "int",
	}
	if f.IsInt {
		f.intVals = make(map[int]int)
	} else {
		f.strVals = make(map[int]string)
	}

	cur := 0
	lineNo := 1 // data line counter, for error messages
	for scanner.Scan() {
		line := scanner.Text()
		var value string
		if tab := strings.IndexByte(line, '\t'); tab >= 0 {
			spans, err := parseSpec(line[:tab])
			if err != nil {
				return nil, cerrors.NewParse("TF", path, fmt.Sprintf("data line %d: %v", lineNo, err))
			}
			value = unescape(line[tab+1:])
			for _, s := range spans {
				for n := s.First; n <= s.Last; n++ {
					if err := f.set(n, value); err != nil {
						return nil, cerrors.NewParse("TF", path, fmt.Sprintf("data line %d: %v", lineNo, err))
					}
				}
				if s.Last > cur {
					cur = s.Last
				}
			}
		} else {
			cur++
			value = unescape(line)
			if err := f.set(cur, value); err != nil {
				return nil, cerrors.NewParse("TF", path, fmt.Sprintf("data line %d: %v", lineNo, err))
			}
		}
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, cerrors.NewIO("read", path, err)
	}
	return f, nil
}

// set records a value for a node. Empty values mean the feature is absent
// for that node; the node still advances the implicit counter.
func (f *Feature) set(node int, value string) error {
	if node > f.maxNode {
		f.maxNode = node
	}
	if value == "" {
		return nil
	}
	if f.IsInt {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("non-integer value %q for int feature", value)
		}
		f.intVals[node] = n
		return nil
	}
	f.strVals[node] = value
	return nil
}

// ParseEdge parses a value-less edge feature such as oslots. Implicit source
// nodes start at base+1. Data lines are either "targetSpec" for the next
// implicit node, or "sourceSpec<TAB>targetSpec".
func ParseEdge(name string, r io.Reader, base int) (*Edge, error) {
	return parseEdge(name, name+".tf", r, base)
}

func parseEdge(name, path string, r io.Reader, base int) (*Edge, error) {
	scanner := newScanner(r)
	h, err := readHeader(scanner, path)
	if err != nil {
		return nil, err
	}
	if h.kind != KindEdge {
		return nil, cerrors.NewParse("TF", path, fmt.Sprintf("expected @edge feature, got @%s", h.kind))
	}
	if _, ok := h.meta["edgeValues"]; ok {
		return nil, cerrors.NewUnsupported("edge feature with values", name)
	}

	e := &Edge{
		Name:  name,
		Meta:  h.meta,
		spans: make(map[int][]Span),
	}

	cur := base
	lineNo := 1
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			return nil, cerrors.NewParse("TF", path, fmt.Sprintf("data line %d: empty edge line", lineNo))
		}
		var sources []Span
		targetSpec := line
		if tab := strings.IndexByte(line, '\t'); tab >= 0 {
			sources, err = parseSpec(line[:tab])
			if err != nil {
				return nil, cerrors.NewParse("TF", path, fmt.Sprintf("data line %d: %v", lineNo, err))
			}
			targetSpec = line[tab+1:]
		} else {
			cur++
			sources = []Span{{First: cur, Last: cur}}
		}
		targets, err := parseSpec(targetSpec)
		if err != nil {
			return nil, cerrors.NewParse("TF", path, fmt.Sprintf("data line %d: %v", lineNo, err))
		}
		for _, s := range sources {
			for n := s.First; n <= s.Last; n++ {
				e.spans[n] = append(e.spans[n], targets...)
				if n > e.maxNode {
					e.maxNode = n
				}
			}
			if s.Last > cur {
				cur = s.Last
			}
		}
		lineNo++
	}
	if err := scanner.Err(); err != nil {
		return nil, cerrors.NewIO("read", path, err)
	}
	return e, nil
}

// LoadFeature reads a node feature file from disk.
func LoadFeature(path string) (*Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(pathBase(path), ".tf")
	return parseFeature(name, path, f)
}

// LoadEdge reads an edge feature file from disk.
func LoadEdge(path string, base int) (*Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(pathBase(path), ".tf")
	return parseEdge(name, path, f, base)
}

func pathBase(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// typeRange maps a node span to its node type, derived from otype.
type typeRange struct {
	Type string
	Span Span
}

// buildTypeRanges groups the otype feature into contiguous ranges of equal
// type. BHSA stores each type as one range, but nothing here relies on that.
func buildTypeRanges(otype *Feature) []typeRange {
	var ranges []typeRange
	var cur *typeRange
	for n := 1; n <= otype.MaxNode(); n++ {
		v, ok := otype.Str(n)
		if !ok {
			cur = nil
			continue
		}
		if cur != nil && cur.Type == v && cur.Span.Last == n-1 {
			cur.Span.Last = n
			continue
		}
		ranges = append(ranges, typeRange{Type: v, Span: Span{First: n, Last: n}})
		cur = &ranges[len(ranges)-1]
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Span.First < ranges[j].Span.First })
	return ranges
}
