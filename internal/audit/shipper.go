// Package audit records credential mutations (registration, key issue and
// cancel, password change, reset and cancel) as structured entries kept apart
// from the application log. Entries carry request metadata only. Raw keys,
// passwords and hashes never reach a shipper.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/goaltracker/goaltracker/internal/config"
)

// Entry is one audited request.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	// Outcome is "success" for 2xx responses and "failure" otherwise
	Outcome   string `json:"outcome"`
	Status    int    `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Shipper delivers entries to one destination.
type Shipper interface {
	Ship(ctx context.Context, entry *Entry) error
	Close() error
}

// New builds a Shipper for every destination set in cfg. A disabled config
// yields an empty MultiShipper that accepts and drops entries.
func New(cfg config.AuditConfig) (*MultiShipper, error) {
	ms := &MultiShipper{}
	if !cfg.Enabled {
		return ms, nil
	}
	if cfg.File.Path != "" {
		fs, err := NewFileShipper(cfg.File)
		if err != nil {
			return nil, err
		}
		ms.shippers = append(ms.shippers, fs)
	}
	if cfg.Webhook.URL != "" {
		ms.shippers = append(ms.shippers, NewWebhookShipper(cfg.Webhook))
	}
	return ms, nil
}

// MultiShipper fans entries out to several shippers.
type MultiShipper struct {
	shippers []Shipper
	mu       sync.RWMutex
}

// NewMultiShipper wraps the given shippers.
func NewMultiShipper(shippers ...Shipper) *MultiShipper {
	return &MultiShipper{shippers: shippers}
}

// Ship sends entry to every shipper. A failing destination does not stop the
// others; the returned error joins every failure.
func (ms *MultiShipper) Ship(ctx context.Context, entry *Entry) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var errs []error
	for _, s := range ms.shippers {
		if err := s.Ship(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every shipper.
func (ms *MultiShipper) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var errs []error
	for _, s := range ms.shippers {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WebhookShipper posts entries as JSON. With batching on, entries are queued
// and posted as an array when the batch fills, on every flush interval and on
// Close.
type WebhookShipper struct {
	cfg       config.AuditWebhookConfig
	client    *http.Client
	batchCh   chan *Entry
	batch     []*Entry
	closeCh   chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewWebhookShipper creates a webhook shipper and starts its batch loop when
// cfg.BatchSize is positive.
func NewWebhookShipper(cfg config.AuditWebhookConfig) *WebhookShipper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	ws := &WebhookShipper{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		batchCh: make(chan *Entry, 1000),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	if cfg.BatchSize > 0 {
		go ws.processBatches()
	} else {
		close(ws.doneCh)
	}
	return ws
}

func (ws *WebhookShipper) processBatches() {
	defer close(ws.doneCh)

	ticker := time.NewTicker(ws.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-ws.batchCh:
			ws.batch = append(ws.batch, entry)
			if len(ws.batch) >= ws.cfg.BatchSize {
				ws.flushBatch()
			}
		case <-ticker.C:
			ws.flushBatch()
		case <-ws.closeCh:
			// drain what was queued before Close
			for {
				select {
				case entry := <-ws.batchCh:
					ws.batch = append(ws.batch, entry)
				default:
					ws.flushBatch()
					return
				}
			}
		}
	}
}

// flushBatch runs only on the batch goroutine.
func (ws *WebhookShipper) flushBatch() {
	if len(ws.batch) == 0 {
		return
	}
	defer func() { ws.batch = ws.batch[:0] }()

	data, err := json.Marshal(ws.batch)
	if err != nil {
		slog.Error("failed to marshal audit batch", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ws.cfg.Timeout)
	defer cancel()

	if err := ws.post(ctx, data); err != nil {
		slog.Error("failed to send audit batch", "entries", len(ws.batch), "error", err)
	}
}

// Ship queues entry when batching, falling back to a direct post when the
// queue is full.
func (ws *WebhookShipper) Ship(ctx context.Context, entry *Entry) error {
	if ws.cfg.BatchSize > 0 {
		select {
		case ws.batchCh <- entry:
			return nil
		default:
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	return ws.post(ctx, data)
}

func (ws *WebhookShipper) post(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ws.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send audit webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("audit webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Close flushes queued entries and stops the batch loop.
func (ws *WebhookShipper) Close() error {
	ws.closeOnce.Do(func() { close(ws.closeCh) })
	<-ws.doneCh
	return nil
}

// FileShipper appends one JSON line per entry and rotates the file once it
// passes MaxSizeMB, keeping MaxBackups numbered copies.
type FileShipper struct {
	cfg  config.AuditFileConfig
	file *os.File
	mu   sync.Mutex
}

// NewFileShipper opens (or creates) cfg.Path for appending.
func NewFileShipper(cfg config.AuditFileConfig) (*FileShipper, error) {
	file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileShipper{cfg: cfg, file: file}, nil
}

func (fs *FileShipper) Ship(_ context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cfg.MaxSizeMB > 0 {
		info, err := fs.file.Stat()
		if err == nil && info.Size() > int64(fs.cfg.MaxSizeMB)*1024*1024 {
			if err := fs.rotate(); err != nil {
				return fmt.Errorf("failed to rotate audit log: %w", err)
			}
		}
	}

	if _, err := fs.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// rotate shifts path.N to path.N+1, moves the live file to path.1 and reopens.
// Caller holds fs.mu.
func (fs *FileShipper) rotate() error {
	if err := fs.file.Close(); err != nil {
		return err
	}

	for i := fs.cfg.MaxBackups - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", fs.cfg.Path, i), fmt.Sprintf("%s.%d", fs.cfg.Path, i+1))
	}
	if fs.cfg.MaxBackups > 0 {
		_ = os.Rename(fs.cfg.Path, fs.cfg.Path+".1")
		_ = os.Remove(fmt.Sprintf("%s.%d", fs.cfg.Path, fs.cfg.MaxBackups+1))
	} else {
		_ = os.Remove(fs.cfg.Path)
	}

	file, err := os.OpenFile(fs.cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	fs.file = file
	return nil
}

func (fs *FileShipper) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.file.Close()
}
