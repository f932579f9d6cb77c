// Package server exposes an index over HTTP: uploaded photos are matched
// against the references and confident matches are answered with the
// catalog record of the artwork.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/artlens/orbmatch"
	"github.com/artlens/orbmatch/internal/catalog"
	"github.com/artlens/orbmatch/internal/scanlog"
)

// NoMatchMessage is returned when no reference reaches the minimum score.
const NoMatchMessage = "No confident match. Try a clearer photo."

type Options struct {
	// Catalog provides artwork details. Optional.
	Catalog catalog.Store

	// Scans receives a record of every confident match. Optional.
	Scans *scanlog.Logger

	// MinScore is the score a match needs to be answered as confident.
	// Zero means orbmatch.DefaultMinScore. DisableMinScore accepts any found
	// label instead.
	MinScore        float64
	DisableMinScore bool

	MaxUploadBytes int64

	// ScanTimeout bounds a whole scan request, DetailsTimeout the catalog
	// lookup within it. Zero disables a bound.
	ScanTimeout    time.Duration
	DetailsTimeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

type Server struct {
	index   *orbmatch.Index
	options Options
}

func New(index *orbmatch.Index, options Options) *Server {
	switch {
	case options.DisableMinScore:
		options.MinScore = 0
	case options.MinScore <= 0:
		options.MinScore = orbmatch.DefaultMinScore
	}
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 20 << 20
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Server{index: index, options: options}
}

// Handler returns the routes of the server wrapped in CORS and request
// logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/labels", s.handleLabels)
	mux.HandleFunc("GET /api/artworks/{label}", s.handleArtwork)

	var scan http.Handler = http.HandlerFunc(s.handleScan)
	if s.options.ScanTimeout > 0 {
		scan = http.TimeoutHandler(scan, s.options.ScanTimeout, `{"error":"scan timed out"}`)
	}
	mux.Handle("POST /api/scan", scan)

	return s.logRequests(cors(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.options.Logger.Info("listening", "addr", addr, "references", s.index.Len())
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if s.options.Scans != nil {
		s.options.Scans.Wait()
	}
	return nil
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<h1>Art scanner</h1>\n<p>%d references indexed. POST a photo to <code>/api/scan</code>.</p>\n", s.index.Len())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "references": s.index.Len()})
}

func (s *Server) handleLabels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"labels": s.index.Labels()})
}

func (s *Server) handleArtwork(w http.ResponseWriter, r *http.Request) {
	label := r.PathValue("label")
	if !s.index.Contains(label) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown label %q", label))
		return
	}

	artwork := s.details(r.Context(), label)
	writeJSON(w, http.StatusOK, artwork)
}

// ScanResponse is the answer to a scan. ArtworkID and MatchedLabel are null
// unless the match is confident.
type ScanResponse struct {
	ScanID       string                 `json:"scan_id"`
	ArtworkID    *string                `json:"artwork_id"`
	MatchedLabel *string                `json:"matched_label"`
	Score        float64                `json:"score"`
	Message      string                 `json:"message,omitempty"`
	Details      *catalog.Artwork       `json:"details,omitempty"`
	Alternatives []orbmatch.Alternative `json:"alternatives,omitempty"`
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.options.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.options.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxUploadBytes)

	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" required")
		return
	}
	defer file.Close()

	img, _, err := orbmatch.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.index.Match(img)
	record := scanlog.NewRecord(result, s.options.Now())
	response := ScanResponse{ScanID: record.ID, Score: result.Score}

	if !result.Confident(s.options.MinScore) {
		response.Message = NoMatchMessage
		s.options.Logger.Debug("no confident match", "scan_id", record.ID, "label", result.Label, "score", result.Score)
		writeJSON(w, http.StatusOK, response)
		return
	}

	label := result.Label
	response.ArtworkID = &label
	response.MatchedLabel = &label
	response.Details = s.details(r.Context(), label)
	response.Alternatives = result.Alternatives

	if s.options.Scans != nil {
		s.options.Scans.Log(record)
	}
	s.options.Logger.Info("match", "scan_id", record.ID, "label", label, "score", result.Score)
	writeJSON(w, http.StatusOK, response)
}

// details looks the label up in the catalog. Lookup failures degrade to a
// record holding only the label.
func (s *Server) details(ctx context.Context, label string) *catalog.Artwork {
	if s.options.Catalog == nil {
		return &catalog.Artwork{Label: label}
	}

	if s.options.DetailsTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.DetailsTimeout)
		defer cancel()
	}

	artwork, err := s.options.Catalog.Get(ctx, label)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			s.options.Logger.Warn("catalog lookup failed", "label", label, "error", err)
		}
		return &catalog.Artwork{Label: label}
	}
	return artwork
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
