package export

import (
	"database/sql"
	"fmt"

	"github.com/meaningmap/bhsa-extract/core/bhsa"
	"github.com/meaningmap/bhsa-extract/core/errors"
	"github.com/meaningmap/bhsa-extract/core/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS books (
	name       TEXT PRIMARY KEY,
	book_order INTEGER NOT NULL,
	chapters   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS verses (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	book     TEXT NOT NULL REFERENCES books(name),
	chapter  INTEGER NOT NULL,
	verse    INTEGER NOT NULL,
	UNIQUE (book, chapter, verse)
);
CREATE TABLE IF NOT EXISTS clauses (
	id          INTEGER PRIMARY KEY,
	verse_id    INTEGER NOT NULL REFERENCES verses(id),
	typ         TEXT NOT NULL,
	kind        TEXT NOT NULL DEFAULT '',
	rela        TEXT NOT NULL DEFAULT '',
	is_verbless INTEGER NOT NULL DEFAULT 0,
	hebrew_text TEXT NOT NULL,
	gloss       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS phrases (
	id        INTEGER PRIMARY KEY,
	clause_id INTEGER NOT NULL REFERENCES clauses(id),
	function  TEXT NOT NULL,
	hebrew    TEXT NOT NULL DEFAULT '',
	gloss     TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS words (
	id        INTEGER PRIMARY KEY,
	clause_id INTEGER NOT NULL REFERENCES clauses(id),
	text_utf8 TEXT NOT NULL,
	lex       TEXT NOT NULL,
	gloss     TEXT NOT NULL,
	sp        TEXT NOT NULL,
	pdp       TEXT NOT NULL,
	gn        TEXT NOT NULL,
	nu        TEXT NOT NULL,
	ps        TEXT NOT NULL,
	vs        TEXT NOT NULL,
	vt        TEXT NOT NULL,
	st        TEXT NOT NULL,
	prs       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verses_ref ON verses(book, chapter, verse);
CREATE INDEX IF NOT EXISTS idx_clauses_verse ON clauses(verse_id);
`

// SQLiteExporter writes extracted books into a relational database for
// ad hoc querying. Both extraction profiles feed the same schema; the
// basic profile leaves the word table empty.
type SQLiteExporter struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the export database and applies the schema.
func OpenSQLite(path string) (*SQLiteExporter, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply export schema")
	}
	return &SQLiteExporter{db: db}, nil
}

// Close closes the underlying database.
func (x *SQLiteExporter) Close() error { return x.db.Close() }

// WriteBasicBook inserts one basic-profile book. An existing book of the
// same name is replaced.
func (x *SQLiteExporter) WriteBasicBook(book bhsa.Book, record *bhsa.BasicBook) error {
	tx, err := x.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := deleteBook(tx, book.Display); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO books (name, book_order, chapters) VALUES (?, ?, ?)`,
		book.Display, book.Order, record.Chapters); err != nil {
		return errors.Wrap(err, "failed to insert book")
	}

	for _, v := range record.Verses {
		verseID, err := insertVerse(tx, book.Display, v.Chapter, v.Verse)
		if err != nil {
			return err
		}
		for _, c := range v.Clauses {
			if _, err := tx.Exec(
				`INSERT INTO clauses (id, verse_id, typ, is_verbless, hebrew_text, gloss) VALUES (?, ?, ?, ?, ?, ?)`,
				c.ID, verseID, c.ClauseType, boolInt(c.IsVerbless), c.HebrewText, c.Gloss); err != nil {
				return errors.Wrap(err, fmt.Sprintf("failed to insert clause %d", c.ID))
			}
			for _, p := range c.Phrases {
				if _, err := tx.Exec(
					`INSERT INTO phrases (id, clause_id, function, hebrew, gloss) VALUES (?, ?, ?, ?, ?)`,
					p.ID, c.ID, p.Function, p.Hebrew, p.Gloss); err != nil {
					return errors.Wrap(err, fmt.Sprintf("failed to insert phrase %d", p.ID))
				}
			}
		}
	}
	return tx.Commit()
}

// WriteEnrichedBook inserts one enriched-profile book, including the
// per-word morphology rows.
func (x *SQLiteExporter) WriteEnrichedBook(book bhsa.Book, record *bhsa.EnrichedBook, chapters int) error {
	tx, err := x.db.Begin()
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := deleteBook(tx, book.Display); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO books (name, book_order, chapters) VALUES (?, ?, ?)`,
		book.Display, book.Order, chapters); err != nil {
		return errors.Wrap(err, "failed to insert book")
	}

	for _, v := range record.Verses {
		verseID, err := insertVerse(tx, book.Display, v.Chapter, v.Verse)
		if err != nil {
			return err
		}
		for _, c := range v.Clauses {
			if _, err := tx.Exec(
				`INSERT INTO clauses (id, verse_id, typ, kind, rela, hebrew_text, gloss) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				c.ClauseID, verseID, c.Typ, c.Kind, c.Rela, c.HebrewText, c.Gloss); err != nil {
				return errors.Wrap(err, fmt.Sprintf("failed to insert clause %d", c.ClauseID))
			}
			for _, p := range c.Phrases {
				if _, err := tx.Exec(
					`INSERT INTO phrases (id, clause_id, function) VALUES (?, ?, ?)`,
					p.PhraseID, c.ClauseID, p.Function); err != nil {
					return errors.Wrap(err, fmt.Sprintf("failed to insert phrase %d", p.PhraseID))
				}
			}
			for _, w := range c.Words {
				if _, err := tx.Exec(
					`INSERT INTO words (id, clause_id, text_utf8, lex, gloss, sp, pdp, gn, nu, ps, vs, vt, st, prs)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					w.WordID, c.ClauseID, w.TextUTF8, w.Lex, w.Gloss, w.Sp, w.Pdp,
					w.Gn, w.Nu, w.Ps, w.Vs, w.Vt, w.St, w.Prs); err != nil {
					return errors.Wrap(err, fmt.Sprintf("failed to insert word %d", w.WordID))
				}
			}
		}
	}
	return tx.Commit()
}

// deleteBook removes a book and all of its dependent rows.
func deleteBook(tx *sql.Tx, name string) error {
	for _, q := range []string{
		`DELETE FROM words WHERE clause_id IN
			(SELECT c.id FROM clauses c JOIN verses v ON c.verse_id = v.id WHERE v.book = ?)`,
		`DELETE FROM phrases WHERE clause_id IN
			(SELECT c.id FROM clauses c JOIN verses v ON c.verse_id = v.id WHERE v.book = ?)`,
		`DELETE FROM clauses WHERE verse_id IN (SELECT id FROM verses WHERE book = ?)`,
		`DELETE FROM verses WHERE book = ?`,
		`DELETE FROM books WHERE name = ?`,
	} {
		if _, err := tx.Exec(q, name); err != nil {
			return errors.Wrap(err, "failed to clear existing book rows")
		}
	}
	return nil
}

func insertVerse(tx *sql.Tx, book string, chapter, verse int) (int64, error) {
	res, err := tx.Exec(`INSERT INTO verses (book, chapter, verse) VALUES (?, ?, ?)`, book, chapter, verse)
	if err != nil {
		return 0, errors.Wrap(err, fmt.Sprintf("failed to insert verse %s %d:%d", book, chapter, verse))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read verse row id")
	}
	return id, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
