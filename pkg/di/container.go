// Package di wires the midiwire services from a configuration
package di

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ssargent/midiwire/pkg/api"
	"github.com/ssargent/midiwire/pkg/config"
	"github.com/ssargent/midiwire/pkg/packet"
	"github.com/ssargent/midiwire/pkg/storage"
	"github.com/ssargent/midiwire/pkg/store"
	"github.com/ssargent/midiwire/pkg/transport"
)

// Container holds all the dependencies for the application. Services are
// created on first use and closed in reverse order by Close.
type Container struct {
	config *config.Config
	logger *log.Logger

	layout   packet.Layout
	router   *transport.Router
	clips    *storage.ClipStore
	journal  *store.JournalWriter
	recorder *store.Recorder
	server   *api.Server

	closers []func() error
}

// NewContainer creates a new dependency injection container. It fails if the
// configured packet layout is invalid.
func NewContainer(cfg *config.Config, logger *log.Logger) (*Container, error) {
	layout, err := cfg.PacketLayout()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stderr, "midiwire ", log.LstdFlags)
	}
	return &Container{config: cfg, logger: logger, layout: layout}, nil
}

// Config returns the configuration the container was built from
func (c *Container) Config() *config.Config {
	return c.config
}

// Layout returns the configured packet layout
func (c *Container) Layout() packet.Layout {
	return c.layout
}

// Logger returns the application logger
func (c *Container) Logger() *log.Logger {
	return c.logger
}

// Debug reports whether debug logging is enabled
func (c *Container) Debug() bool {
	return strings.EqualFold(c.config.Logging.Level, "debug")
}

// Router returns the transport router
func (c *Container) Router() (*transport.Router, error) {
	if c.router != nil {
		return c.router, nil
	}

	var deliveryLog *log.Logger
	if c.Debug() {
		deliveryLog = c.logger
	}
	router, err := transport.NewRouter(transport.Config{
		Layout:         c.layout,
		EnforceMaxSize: c.config.Transport.EnforceMaxSize,
		QueueSize:      c.config.Transport.QueueSize,
		Logger:         deliveryLog,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}
	c.router = router
	c.closers = append(c.closers, router.Close)
	return router, nil
}

// ClipStore returns the clip store under data_dir/clips
func (c *Container) ClipStore() (*storage.ClipStore, error) {
	if c.clips != nil {
		return c.clips, nil
	}

	clips, err := storage.NewClipStore(filepath.Join(c.config.DataDir, "clips"), c.layout)
	if err != nil {
		return nil, err
	}
	c.clips = clips
	c.closers = append(c.closers, clips.Close)
	return clips, nil
}

// JournalPath returns the capture journal location
func (c *Container) JournalPath() string {
	return filepath.Join(c.config.DataDir, "journal", "capture.journal")
}

// Journal returns the capture journal writer. A torn tail left by a crash is
// truncated before the journal is opened.
func (c *Container) Journal() (*store.JournalWriter, error) {
	if c.journal != nil {
		return c.journal, nil
	}

	result, err := store.Recover(c.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("failed to recover journal: %w", err)
	}
	if result.FramesTruncated > 0 {
		c.logger.Printf("journal: truncated torn tail (%d -> %d bytes)", result.FileSizeBefore, result.FileSizeAfter)
	}

	journal, err := store.NewJournalWriter(store.JournalWriterConfig{
		FilePath:      c.JournalPath(),
		FsyncInterval: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	c.journal = journal
	c.closers = append(c.closers, journal.Close)
	return journal, nil
}

// Recorder returns a recorder writing to the capture journal
func (c *Container) Recorder() (*store.Recorder, error) {
	if c.recorder != nil {
		return c.recorder, nil
	}
	journal, err := c.Journal()
	if err != nil {
		return nil, err
	}
	c.recorder = store.NewRecorder(journal, c.logger)
	return c.recorder, nil
}

// Server returns the API server over the router and clip store
func (c *Container) Server() (*api.Server, error) {
	if c.server != nil {
		return c.server, nil
	}
	router, err := c.Router()
	if err != nil {
		return nil, err
	}
	clips, err := c.ClipStore()
	if err != nil {
		return nil, err
	}

	c.server = api.NewServer(router, clips, api.ServerConfig{
		Port:   c.config.Port,
		Bind:   c.config.Bind,
		APIKey: c.config.Security.APIKey,
	}, nil, c.logger)
	return c.server, nil
}

// Close releases every service the container created
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
