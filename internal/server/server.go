package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	griddus "github.com/drewnoakes/biggus-griddus"
	"github.com/drewnoakes/biggus-griddus/internal/config"
	"github.com/drewnoakes/biggus-griddus/internal/feed"
)

// Server owns the shared trade collection, the feed that mutates it, and
// the websocket endpoint serving per-connection views of it.
type Server struct {
	config  *config.Config
	svc     ChanSvc
	trades  *griddus.Collection[*feed.Trade]
	clients map[string]*client
	feeder  *feed.Feeder
	hot     *feed.HotLoader
	httpSrv *http.Server
}

// New creates a server from config.
func New(cfg *config.Config) *Server {
	return &Server{
		config:  cfg,
		trades:  griddus.NewCollection(feed.TradeID),
		clients: make(map[string]*client),
	}
}

// Do queues fn onto the service goroutine and flushes every client's
// pending row operations once it completes. All pipeline work goes through
// here.
func (s *Server) Do(fn func()) {
	s.svc.Do(func() {
		fn()
		s.flushAll()
	})
}

// Run starts the feed and serves until the listener fails or Shutdown is
// called.
func (s *Server) Run() error {
	s.svc = NewChanSvc()

	symbols, err := feed.LoadInstruments(s.config.Feed.Instruments)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("instruments: %w", err)
		}
		symbols = feed.DefaultInstruments
		s.config.Log(1, "Server: no instruments file at %s, using built-in universe", s.config.Feed.Instruments)
	}

	s.feeder = feed.NewFeeder(s.config, s.trades, s, symbols)
	s.feeder.Start()

	if _, err := os.Stat(s.config.Feed.Instruments); err == nil {
		hot, err := feed.NewHotLoader(s.config, s.config.Feed.Instruments, s.feeder.SetSymbols)
		if err != nil {
			return fmt.Errorf("instrument watcher: %w", err)
		}
		if err := hot.Start(); err != nil {
			return fmt.Errorf("instrument watcher: %w", err)
		}
		s.hot = hot
	}

	s.httpSrv = &http.Server{
		Addr:    s.config.Addr(),
		Handler: s.routes(),
	}

	s.config.Log(0, "Server: listening on http://%s", s.config.Addr())
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the feed and the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hot != nil {
		s.hot.Stop()
	}
	if s.feeder != nil {
		s.feeder.Stop()
	}

	var err error
	if s.httpSrv != nil {
		err = s.httpSrv.Shutdown(ctx)
	}
	if s.svc != nil {
		s.svc.Close()
	}
	return err
}
