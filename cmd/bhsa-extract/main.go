// Command bhsa-extract reads BHSA Text-Fabric corpus data and writes
// per-book JSON files for downstream semantic analysis.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/meaningmap/bhsa-extract/core/bhsa"
	"github.com/meaningmap/bhsa-extract/core/sqlite"
	"github.com/meaningmap/bhsa-extract/core/tf"
	"github.com/meaningmap/bhsa-extract/internal/archive"
	"github.com/meaningmap/bhsa-extract/internal/config"
	"github.com/meaningmap/bhsa-extract/internal/export"
	"github.com/meaningmap/bhsa-extract/internal/logging"
	"github.com/meaningmap/bhsa-extract/internal/manifest"
	"github.com/meaningmap/bhsa-extract/internal/ref"
	"github.com/meaningmap/bhsa-extract/internal/server"
)

const version = "0.2.0"

// CLI defines the command-line interface for bhsa-extract.
var CLI struct {
	// Global flags
	CorpusDir string `name:"corpus" short:"c" help:"Corpus directory holding the .tf feature files" type:"path"`
	Config    string `help:"YAML profile path" type:"path"`
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	Extract ExtractCmd  `cmd:"" help:"Extract books in the basic (clause-level) profile"`
	Enrich  EnrichCmd   `cmd:"" help:"Extract books in the enriched (word-morphology) profile"`
	Books   BooksCmd    `cmd:"" help:"List the canonical books"`
	Corpus  CorpusGroup `cmd:"" help:"Corpus bundle and integrity operations"`
	Serve   ServeCmd    `cmd:"" help:"Serve extracted data over HTTP"`
	Version VersionCmd  `cmd:"" help:"Print version information"`
}

// profile loads the effective configuration: profile file values where
// given, overridden by global flags.
func profile() (*config.Config, error) {
	cfg := config.Default()
	if CLI.Config != "" {
		loaded, err := config.Load(CLI.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if CLI.CorpusDir != "" {
		cfg.CorpusDir = CLI.CorpusDir
	}
	return cfg, nil
}

// openDataset loads the corpus with the profile's extra word features on
// top of the standard set. Extras may be absent from the corpus; their
// values then read as defaults.
func openDataset(cfg *config.Config, features []string) (*tf.Dataset, error) {
	features = append(features, cfg.ExtraFeatures...)
	optional := append(bhsa.OptionalFeatures(), cfg.ExtraFeatures...)
	ds, err := tf.Load(cfg.CorpusDir, features, optional)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus from %s: %w", cfg.CorpusDir, err)
	}
	return ds, nil
}

// resolveBooks turns command-line book names (or the profile's book list
// when none are given) into canonical books, warning on unknown names.
// resolveBooks picks the extraction set: explicit arguments, then the
// profile's book list, then the command default (whole canon for the basic
// profile, pilot set for the enriched one).
func resolveBooks(args []string, cfg *config.Config, enriched bool) []bhsa.Book {
	names := args
	if len(names) == 0 {
		names = cfg.Books
	}
	if len(names) == 0 {
		if !enriched {
			return bhsa.AllBooks()
		}
		names = bhsa.PilotBooks
	}
	books, unknown := bhsa.ResolveBooks(names)
	for _, name := range unknown {
		logging.Warn("unknown book, skipping", "book", name)
	}
	return books
}

// ExtractCmd extracts the basic clause-level profile.
type ExtractCmd struct {
	Books  []string `arg:"" optional:"" help:"Books to extract (default: profile book list)"`
	Out    string   `short:"o" help:"Output directory for JSON files" type:"path"`
	Range  string   `short:"r" help:"Verse range selector, e.g. 'Ruth 1:5-2:3' (replaces book list)"`
	SQLite string   `name:"sqlite" help:"Also export into this SQLite database" type:"path"`
}

func (c *ExtractCmd) Run() error {
	return runExtraction(c.Books, c.Out, c.Range, c.SQLite, "", false, false)
}

// EnrichCmd extracts the enriched word-morphology profile.
type EnrichCmd struct {
	Books       []string `arg:"" optional:"" help:"Books to extract (default: profile book list)"`
	Out         string   `short:"o" help:"Output directory for JSON files" type:"path"`
	Range       string   `short:"r" help:"Verse range selector, e.g. 'Ruth 1:5-2:3' (replaces book list)"`
	SQLite      string   `name:"sqlite" help:"Also export into this SQLite database" type:"path"`
	BHSAVersion string   `name:"bhsa-version" help:"Corpus version tag for the output (default: profile value)"`
	All         bool     `help:"Extract the whole canon instead of the profile book list"`
}

func (c *EnrichCmd) Run() error {
	return runExtraction(c.Books, c.Out, c.Range, c.SQLite, c.BHSAVersion, c.All, true)
}

// runExtraction drives both profiles: resolve books, extract each,
// write JSON (and optionally SQLite), then print totals. Books missing
// from the corpus are skipped with a warning. With no books named, the
// basic profile covers the whole canon while the enriched profile uses
// the profile book list unless --all is given.
func runExtraction(bookArgs []string, outDir, rangeSel, sqlitePath, bhsaVersion string, all, enriched bool) error {
	cfg, err := profile()
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if bhsaVersion == "" {
		bhsaVersion = cfg.BHSAVersion
	}

	var (
		books  []bhsa.Book
		filter bhsa.VerseFilter
	)
	switch {
	case rangeSel != "":
		r, err := ref.Parse(rangeSel)
		if err != nil {
			return err
		}
		books = []bhsa.Book{r.Book}
		filter = r.Filter()
	case all:
		books = bhsa.AllBooks()
	default:
		books = resolveBooks(bookArgs, cfg, enriched)
	}
	if len(books) == 0 {
		return fmt.Errorf("no valid books to extract")
	}

	features := bhsa.BasicFeatures()
	if enriched {
		features = bhsa.EnrichedFeatures()
	}
	ds, err := openDataset(cfg, features)
	if err != nil {
		return err
	}
	extractor := bhsa.NewExtractor(ds).WithExtraFeatures(cfg.ExtraFeatures)

	writer, err := export.NewJSONWriter(outDir)
	if err != nil {
		return err
	}

	var db *export.SQLiteExporter
	if sqlitePath != "" {
		db, err = export.OpenSQLite(sqlitePath)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	var totals bhsa.Stats
	written := 0
	for _, book := range books {
		start := time.Now()
		var (
			record any
			stats  bhsa.Stats
			exErr  error
		)
		if enriched {
			var rec *bhsa.EnrichedBook
			rec, stats, exErr = extractor.EnrichBook(book, bhsaVersion, filter)
			record = rec
			if exErr == nil && db != nil {
				chapters := len(ds.Down(mustBookNode(ds, book), "chapter"))
				if err := db.WriteEnrichedBook(book, rec, chapters); err != nil {
					return err
				}
			}
		} else {
			var rec *bhsa.BasicBook
			rec, stats, exErr = extractor.ExtractBook(book, filter)
			record = rec
			if exErr == nil && db != nil {
				if err := db.WriteBasicBook(book, rec); err != nil {
					return err
				}
			}
		}
		if exErr != nil {
			logging.Warn("book not in corpus, skipping", "book", book.Name, "error", exErr)
			continue
		}
		logging.BookExtracted(book.Name, stats.Verses, stats.Clauses, time.Since(start))

		path, err := writer.WriteBook(book.Slug, record)
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d verses, %d clauses)\n", path, stats.Verses, stats.Clauses)

		totals.Verses += stats.Verses
		totals.Clauses += stats.Clauses
		written++
	}

	fmt.Printf("done: %d books, %d verses, %d clauses\n", written, totals.Verses, totals.Clauses)
	return nil
}

// mustBookNode is only called after a successful extraction of the book.
func mustBookNode(ds *tf.Dataset, book bhsa.Book) int {
	node, _ := ds.BookNode(book.Name)
	return node
}

// BooksCmd lists the canon. With a corpus configured it also reports
// which books the corpus actually contains.
type BooksCmd struct{}

func (c *BooksCmd) Run() error {
	cfg, err := profile()
	if err != nil {
		return err
	}

	var ds *tf.Dataset
	if _, statErr := os.Stat(cfg.CorpusDir); statErr == nil {
		if loaded, loadErr := tf.Load(cfg.CorpusDir, bhsa.BasicFeatures(), bhsa.OptionalFeatures()); loadErr == nil {
			ds = loaded
		}
	}

	for _, b := range bhsa.AllBooks() {
		marker := ""
		if ds != nil {
			if _, ok := ds.BookNode(b.Name); ok {
				marker = " *"
			}
		}
		fmt.Printf("%2d  %s%s\n", b.Order, b.Name, marker)
	}
	if ds != nil {
		fmt.Println("\n* present in corpus")
	}
	return nil
}

// CorpusGroup contains corpus bundle and integrity operations.
type CorpusGroup struct {
	Unpack   CorpusUnpackCmd   `cmd:"" help:"Unpack a corpus bundle (.tar.gz or .tar.xz)"`
	Pack     CorpusPackCmd     `cmd:"" help:"Pack a corpus directory into a .tar.gz bundle"`
	Manifest CorpusManifestCmd `cmd:"" help:"Write an integrity manifest for the corpus"`
	Verify   CorpusVerifyCmd   `cmd:"" help:"Verify the corpus against its manifest"`
}

// CorpusUnpackCmd unpacks a bundle into the corpus directory.
type CorpusUnpackCmd struct {
	Bundle string `arg:"" help:"Bundle file path" type:"path"`
	Dest   string `short:"d" help:"Destination directory (default: configured corpus dir)" type:"path"`
}

func (c *CorpusUnpackCmd) Run() error {
	cfg, err := profile()
	if err != nil {
		return err
	}
	dest := c.Dest
	if dest == "" {
		dest = cfg.CorpusDir
	}

	count, err := archive.Unpack(c.Bundle, dest)
	if err != nil {
		return err
	}
	fmt.Printf("unpacked %d files into %s\n", count, dest)
	return nil
}

// CorpusPackCmd packs a corpus directory into a bundle.
type CorpusPackCmd struct {
	Dir string `arg:"" help:"Corpus directory to pack" type:"path"`
	Out string `arg:"" help:"Bundle file path (.tar.gz)" type:"path"`
}

func (c *CorpusPackCmd) Run() error {
	if err := archive.PackCorpus(c.Dir, c.Out); err != nil {
		return err
	}
	fmt.Printf("packed %s into %s\n", c.Dir, c.Out)
	return nil
}

// CorpusManifestCmd writes the integrity manifest.
type CorpusManifestCmd struct{}

func (c *CorpusManifestCmd) Run() error {
	cfg, err := profile()
	if err != nil {
		return err
	}
	m, err := manifest.Write(cfg.CorpusDir)
	if err != nil {
		return err
	}
	fmt.Printf("manifest written for %d files in %s\n", len(m.Files), cfg.CorpusDir)
	return nil
}

// CorpusVerifyCmd verifies the corpus against its manifest.
type CorpusVerifyCmd struct{}

func (c *CorpusVerifyCmd) Run() error {
	cfg, err := profile()
	if err != nil {
		return err
	}
	problems, err := manifest.Verify(cfg.CorpusDir)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		fmt.Println("corpus verified: all files match the manifest")
		return nil
	}
	for _, p := range problems {
		fmt.Printf("  %s\n", p)
	}
	return fmt.Errorf("corpus verification failed: %d problems", len(problems))
}

// ServeCmd starts the HTTP server over a loaded corpus.
type ServeCmd struct {
	Addr string `default:"localhost:8743" help:"Listen address"`
	Out  string `short:"o" help:"Output directory for API-triggered extraction runs" type:"path"`
}

func (c *ServeCmd) Run() error {
	cfg, err := profile()
	if err != nil {
		return err
	}
	outDir := c.Out
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	ds, err := openDataset(cfg, bhsa.EnrichedFeatures())
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:        c.Addr,
		OutputDir:   outDir,
		BHSAVersion: cfg.BHSAVersion,
	}, ds)
	return srv.Start()
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("bhsa-extract version %s\n", version)
	fmt.Printf("extraction version %s (bhsa %s)\n", bhsa.ExtractionVersion, bhsa.DefaultBHSAVersion)
	info := sqlite.GetInfo()
	fmt.Printf("sqlite driver %s (%s)\n", info.DriverName, info.DriverType)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bhsa-extract"),
		kong.Description("BHSA Hebrew Bible corpus extraction toolkit"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), logging.ParseFormat(CLI.LogFormat))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
