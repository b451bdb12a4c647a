// Package server exposes extracted corpus data over HTTP, with WebSocket
// progress updates for extraction runs started through the API.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/meaningmap/bhsa-extract/core/bhsa"
	"github.com/meaningmap/bhsa-extract/core/cache"
	"github.com/meaningmap/bhsa-extract/core/tf"
	"github.com/meaningmap/bhsa-extract/internal/logging"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the listen address, e.g. "localhost:8743".
	Addr string

	// OutputDir receives JSON files written by extraction runs.
	OutputDir string

	// BHSAVersion is recorded in enriched output.
	BHSAVersion string

	// BookCacheSize bounds the in-memory cache of extracted books.
	// Zero means the default.
	BookCacheSize int
}

const defaultBookCacheSize = 8

// Server serves corpus data from one loaded dataset.
type Server struct {
	cfg       Config
	ds        *tf.Dataset
	extractor *bhsa.Extractor
	hub       *Hub
	runs      *runRegistry

	basicCache cache.Cache[string, *bhsa.BasicBook]
}

// New creates a server over a loaded dataset. The hub loop starts
// immediately; call Start to begin listening.
func New(cfg Config, ds *tf.Dataset) *Server {
	size := cfg.BookCacheSize
	if size == 0 {
		size = defaultBookCacheSize
	}
	s := &Server{
		cfg:        cfg,
		ds:         ds,
		extractor:  bhsa.NewExtractor(ds),
		hub:        NewHub(),
		runs:       newRunRegistry(),
		basicCache: cache.NewLRU[string, *bhsa.BasicBook](size),
	}
	go s.hub.Run()
	return s
}

// Handler returns the HTTP handler with logging middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/books", s.handleBooks)
	mux.HandleFunc("/api/books/", s.handleBookBySlug)
	mux.HandleFunc("/api/extract", s.handleExtract)
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return logging.Middleware(mux)
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	logging.ServerStartup(s.cfg.Addr,
		"corpus", s.ds.Dir(),
		"slots", s.ds.MaxSlot(),
	)
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
