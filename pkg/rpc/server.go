package rpc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/OpenMined/syft-rds/pkg/datasite"
	"github.com/OpenMined/syft-rds/pkg/log"
	"github.com/OpenMined/syft-rds/pkg/metrics"
)

const (
	requestSuffix  = ".request"
	responseSuffix = ".response"

	// defaultRescan bounds how stale the mailbox view can get when the
	// syncing filesystem delivers files without emitting watch events.
	defaultRescan = 2 * time.Second
)

// ServerConfig configures the mailbox server.
type ServerConfig struct {
	Layout datasite.Layout
	// LedgerDir holds the dedup database; defaults to the app dir.
	LedgerDir string
	// Rescan overrides the periodic mailbox sweep interval.
	Rescan time.Duration
}

// Server watches the owner's mailbox for request files and answers them
// through the mux. Each request is handled on its own goroutine; no
// locks are held across handler I/O.
type Server struct {
	mux     *Mux
	layout  datasite.Layout
	ledger  *Ledger
	rescan  time.Duration
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewServer builds a mailbox server for the given endpoints.
func NewServer(cfg ServerConfig, mux *Mux) (*Server, error) {
	ledgerDir := cfg.LedgerDir
	if ledgerDir == "" {
		ledgerDir = cfg.Layout.AppDir()
	}
	if err := os.MkdirAll(ledgerDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	ledger, err := OpenLedger(ledgerDir)
	if err != nil {
		return nil, err
	}
	rescan := cfg.Rescan
	if rescan <= 0 {
		rescan = defaultRescan
	}
	return &Server{
		mux:    mux,
		layout: cfg.Layout,
		ledger: ledger,
		rescan: rescan,
		logger: log.WithComponent("rpc.server"),
		stopCh: make(chan struct{}),
	}, nil
}

// Start creates the endpoint mailbox directories, begins watching them,
// and sweeps any requests that arrived while the server was down.
func (s *Server) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create mailbox watcher: %w", err)
	}
	s.watcher = watcher

	for _, endpoint := range s.mux.Endpoints() {
		dir := s.layout.EndpointDir(endpoint)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to create endpoint dir %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch endpoint dir %s: %w", dir, err)
		}
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().
		Str("owner", s.layout.Owner).
		Int("endpoints", len(s.mux.Endpoints())).
		Msg("mailbox server started")
	return nil
}

// Stop shuts the watcher down and waits for in-flight requests.
func (s *Server) Stop() error {
	s.stopped.Do(func() { close(s.stopCh) })
	if s.watcher != nil {
		s.watcher.Close()
	}
	s.wg.Wait()
	return s.ledger.Close()
}

func (s *Server) loop() {
	defer s.wg.Done()

	// Sweep first so requests written before Start are not lost.
	s.sweep()

	ticker := time.NewTicker(s.rescan)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if strings.HasSuffix(event.Name, requestSuffix) {
				s.dispatchFile(event.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("mailbox watcher error")
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep scans every endpoint directory for unanswered request files.
func (s *Server) sweep() {
	for _, endpoint := range s.mux.Endpoints() {
		dir := s.layout.EndpointDir(endpoint)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), requestSuffix) {
				continue
			}
			s.dispatchFile(filepath.Join(dir, e.Name()))
		}
	}
}

// dispatchFile handles one request file on its own goroutine.
func (s *Server) dispatchFile(path string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handleRequestFile(path)
	}()
}

func (s *Server) handleRequestFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		// The file may have been claimed by a concurrent sweep.
		return
	}
	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		s.logger.Warn().Err(err).Str("file", filepath.Base(path)).Msg("dropping malformed request")
		os.Remove(path)
		return
	}

	if req.Expired(time.Now()) {
		metrics.RPCRequestsExpired.Inc()
		s.logger.Debug().Str("uid", req.UID.String()).Msg("dropping expired request")
		os.Remove(path)
		return
	}

	isNew, err := s.ledger.MarkSeen(req.UID)
	if err != nil {
		s.logger.Error().Err(err).Msg("ledger update failed")
		return
	}
	if !isNew {
		metrics.RPCRequestsDeduplicated.Inc()
		os.Remove(path)
		return
	}

	resp := s.mux.Dispatch(&req)

	respPath := strings.TrimSuffix(path, requestSuffix) + responseSuffix
	raw, err := yaml.Marshal(resp)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal response")
		return
	}
	if err := datasite.WriteFileAtomic(respPath, raw, 0o644); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
		return
	}
	os.Remove(path)
}
