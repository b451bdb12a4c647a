package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meaningmap/bhsa-extract/core/bhsa"
	"github.com/meaningmap/bhsa-extract/internal/export"
	"github.com/meaningmap/bhsa-extract/internal/logging"
)

// Run states.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run tracks one extraction started through the API.
type Run struct {
	ID         string    `json:"id"`
	Profile    string    `json:"profile"`
	Books      []string  `json:"books"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Verses     int       `json:"verses"`
	Clauses    int       `json:"clauses"`
	Written    []string  `json:"written,omitempty"`
	Skipped    []string  `json:"skipped,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: make(map[string]*Run)}
}

func (r *runRegistry) add(run *Run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
}

func (r *runRegistry) get(id string) (Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

func (r *runRegistry) update(id string, fn func(*Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[id]; ok {
		fn(run)
	}
}

// extractRequest is the POST /api/extract body.
type extractRequest struct {
	Profile string   `json:"profile"` // "basic" or "enriched"
	Books   []string `json:"books"`   // empty means the pilot set
}

// handleExtract starts an extraction run in the background and returns
// its run ID. Progress is broadcast on the WebSocket endpoint.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	switch req.Profile {
	case "", "basic":
		req.Profile = "basic"
	case "enriched":
	default:
		writeError(w, http.StatusBadRequest, "bad_profile", "profile must be basic or enriched")
		return
	}
	if len(req.Books) == 0 {
		req.Books = bhsa.PilotBooks
	}

	books, unknown := bhsa.ResolveBooks(req.Books)
	if len(books) == 0 {
		writeError(w, http.StatusBadRequest, "unknown_books", "no valid books in "+strings.Join(req.Books, ", "))
		return
	}

	names := make([]string, 0, len(books))
	for _, b := range books {
		names = append(names, b.Name)
	}
	run := &Run{
		ID:        uuid.NewString(),
		Profile:   req.Profile,
		Books:     names,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
		Skipped:   unknown,
	}
	s.runs.add(run)

	go s.executeRun(run.ID, req.Profile, books)

	writeJSON(w, http.StatusAccepted, APIResponse{Success: true, Data: run})
}

// handleRunByID reports the state of one extraction run.
func (s *Server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	id = strings.TrimSuffix(id, "/")
	run, ok := s.runs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_run", "no such run: "+id)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: run})
}

// executeRun extracts each requested book and writes it to the output
// directory, broadcasting progress along the way.
func (s *Server) executeRun(runID, profile string, books []bhsa.Book) {
	writer, err := export.NewJSONWriter(s.cfg.OutputDir)
	if err != nil {
		s.failRun(runID, profile, err)
		return
	}

	for i, book := range books {
		s.hub.Broadcast(ProgressMessage{
			Type:     "progress",
			RunID:    runID,
			Profile:  profile,
			Book:     book.Name,
			Progress: i * 100 / len(books),
			Message:  "extracting " + book.Name,
		})

		start := time.Now()
		var (
			record any
			stats  bhsa.Stats
			exErr  error
		)
		if profile == "enriched" {
			record, stats, exErr = s.extractor.EnrichBook(book, s.cfg.BHSAVersion, nil)
		} else {
			record, stats, exErr = s.extractor.ExtractBook(book, nil)
		}
		if exErr != nil {
			// A book absent from the corpus skips rather than fails
			logging.Warn("book skipped", "book", book.Name, "error", exErr)
			s.runs.update(runID, func(run *Run) {
				run.Skipped = append(run.Skipped, book.Name)
			})
			continue
		}
		logging.BookExtracted(book.Name, stats.Verses, stats.Clauses, time.Since(start))

		path, err := writer.WriteBook(book.Slug, record)
		if err != nil {
			s.failRun(runID, profile, err)
			return
		}
		s.runs.update(runID, func(run *Run) {
			run.Verses += stats.Verses
			run.Clauses += stats.Clauses
			run.Written = append(run.Written, path)
		})
	}

	var done Run
	s.runs.update(runID, func(run *Run) {
		run.Status = RunCompleted
		run.FinishedAt = time.Now().UTC()
		done = *run
	})
	s.hub.Broadcast(ProgressMessage{
		Type:     "complete",
		RunID:    runID,
		Profile:  profile,
		Progress: 100,
		Message:  "extraction complete",
		Data: map[string]any{
			"verses":  done.Verses,
			"clauses": done.Clauses,
			"written": len(done.Written),
		},
	})
}

func (s *Server) failRun(runID, profile string, err error) {
	logging.Error("extraction run failed", "run_id", runID, "error", err)
	s.runs.update(runID, func(run *Run) {
		run.Status = RunFailed
		run.FinishedAt = time.Now().UTC()
		run.Error = err.Error()
	})
	s.hub.Broadcast(ProgressMessage{
		Type:    "error",
		RunID:   runID,
		Profile: profile,
		Message: err.Error(),
	})
}
