// Package web serves the order journal dashboard: an HTML page, an SSE stream of journal
// entries and a JSON ledger snapshot.
package web

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/folio/internal/domain"
)

const (
	defaultPollInterval = 2 * time.Second
	heartbeatInterval   = 20 * time.Second
	keepRecent          = 100
)

type journalReader interface {
	EntriesAfter(index uint64) ([]domain.JournalRecord, error)
}

// LedgerFunc loads the current ledger for the /ledger endpoint.
type LedgerFunc func(ctx context.Context) (domain.LedgerSnapshot, error)

// Server exposes the dashboard endpoints.
type Server struct {
	Addr         string
	Journal      journalReader
	Ledger       LedgerFunc
	PollInterval time.Duration
	logger       *zap.Logger
}

// NewServer creates a dashboard server. ledger may be nil, in which case /ledger is unavailable.
func NewServer(addr string, journal journalReader, ledger LedgerFunc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:         addr,
		Journal:      journal,
		Ledger:       ledger,
		PollInterval: defaultPollInterval,
		logger:       logger,
	}
}

// Handler returns the dashboard routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", gzipHandler(http.HandlerFunc(s.handleIndex)))
	mux.HandleFunc("/journal/stream", s.handleJournalStream)
	mux.Handle("/ledger", gzipHandler(http.HandlerFunc(s.handleLedger)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with ACME certificates plus an HTTP server on :80
// answering HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("acme server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme server", zap.Error(err))
		}
	}()

	s.logger.Info("dashboard listening with auto TLS", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.Ledger == nil {
		http.Error(w, "ledger not available", http.StatusServiceUnavailable)
		return
	}

	snapshot, err := s.Ledger(r.Context())
	if err != nil {
		s.logger.Warn("dashboard ledger load failed", zap.Error(err))
		http.Error(w, domain.UserMessage(err), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Warn("encode ledger", zap.Error(err))
	}
}

func (s *Server) handleJournalStream(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		http.Error(w, "journal not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	interval := s.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	poll := time.NewTicker(interval)
	defer poll.Stop()

	lastIndex := s.parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	firstLoad := lastIndex == 0
	send := func() error {
		records, err := s.Journal.EntriesAfter(lastIndex)
		if err != nil {
			return err
		}
		if firstLoad {
			records = thinRecords(records, keepRecent)
			firstLoad = false
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Entry)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: order\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			lastIndex = record.Index
		}
		flusher.Flush()
		return nil
	}

	if err := send(); err != nil {
		s.logger.Error("journal stream initial load", zap.Error(err))
		http.Error(w, "failed to load journal", http.StatusInternalServerError)
		return
	}
	if lastIndex == 0 {
		fmt.Fprintf(w, "event: no_data\n")
		fmt.Fprintf(w, "data: {}\n\n")
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-poll.C:
			if err := send(); err != nil {
				s.logger.Warn("journal stream poll", zap.Error(err))
			}
		}
	}
}

// parseLastEventID reads the SSE resume index from the Last-Event-ID header, falling back to
// the last_event_id query parameter.
func (s *Server) parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		s.logger.Debug("invalid last event id", zap.String("id", idStr), zap.Error(err))
		return 0
	}
	return id
}

// thinRecords keeps the last keep records and exponentially thins the older ones.
func thinRecords[T any](records []T, keep int) []T {
	if len(records) <= keep {
		return records
	}

	older := records[:len(records)-keep]
	var thinned []T
	skip := 1
	for i := len(older) - 1; i >= 0; i-- {
		thinned = append([]T{older[i]}, thinned...)
		i -= skip
		// double the gap every 12 records
		if (len(older)-1-i)%12 == 0 {
			skip *= 2
		}
	}

	return append(thinned, records[len(records)-keep:]...)
}

func gzipHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Set("Vary", "Accept-Encoding")

		gz := gzip.NewWriter(w)
		defer gz.Close()

		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	writer *gzip.Writer
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	return w.writer.Write(b)
}
