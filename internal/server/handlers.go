package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/meaningmap/bhsa-extract/core/bhsa"
	"github.com/meaningmap/bhsa-extract/core/errors"
	"github.com/meaningmap/bhsa-extract/internal/logging"
)

// APIResponse is the standard response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError carries a machine-readable code and a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// BookInfo describes one canonical book and its presence in the corpus.
type BookInfo struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Order     int    `json:"order"`
	Available bool   `json:"available"`
}

func writeJSON(w http.ResponseWriter, status int, resp APIResponse) {
	if resp.Meta == nil {
		resp.Meta = &APIMeta{}
	}
	if resp.Meta.Timestamp == "" {
		resp.Meta.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":  "ok",
			"corpus":  s.ds.Dir(),
			"slots":   s.ds.MaxSlot(),
			"clients": s.hub.ClientCount(),
		},
	})
}

// handleBooks lists the canon with per-book corpus availability.
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	books := bhsa.AllBooks()
	infos := make([]BookInfo, 0, len(books))
	for _, b := range books {
		_, available := s.ds.BookNode(b.Name)
		infos = append(infos, BookInfo{
			Name:      b.Name,
			Slug:      b.Slug,
			Order:     b.Order,
			Available: available,
		})
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    infos,
		Meta:    &APIMeta{Total: len(infos)},
	})
}

// handleBookBySlug extracts and returns one book in the basic profile.
// Extracted books are cached, so repeated reads are cheap.
func (s *Server) handleBookBySlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	slug := strings.TrimPrefix(r.URL.Path, "/api/books/")
	slug = strings.TrimSuffix(slug, "/")
	if slug == "" || strings.Contains(slug, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown book path")
		return
	}

	book, ok := bhsa.LookupBook(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_book", "no such book: "+slug)
		return
	}

	if record, ok := s.basicCache.Get(book.Slug); ok {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: record})
		return
	}

	start := time.Now()
	record, stats, err := s.extractor.ExtractBook(book, nil)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_in_corpus", "book not present in corpus: "+book.Name)
			return
		}
		logging.Error("extraction failed", "book", book.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "extraction_failed", err.Error())
		return
	}
	logging.BookExtracted(book.Name, stats.Verses, stats.Clauses, time.Since(start))

	s.basicCache.Put(book.Slug, record)
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: record})
}
