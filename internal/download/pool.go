package download

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/utils"
)

// DefaultMaxDownloads limits concurrent downloads when no limit is configured
const DefaultMaxDownloads = 2

// activeDownload tracks a queued or running download
type activeDownload struct {
	config  types.DownloadConfig
	cancel  context.CancelFunc
	running bool
}

// WorkerPool runs downloads with a bounded number in flight
type WorkerPool struct {
	ctx        context.Context
	progressCh chan<- any
	group      errgroup.Group
	pending    sync.WaitGroup // Adds still waiting for a slot

	mu        sync.RWMutex
	downloads map[string]*activeDownload
	failed    []error
}

// NewWorkerPool creates a pool. Downloads are cancelled when ctx is.
func NewWorkerPool(ctx context.Context, progressCh chan<- any, maxDownloads int) *WorkerPool {
	if maxDownloads <= 0 {
		maxDownloads = DefaultMaxDownloads
	}
	p := &WorkerPool{
		ctx:        ctx,
		progressCh: progressCh,
		downloads:  make(map[string]*activeDownload),
	}
	p.group.SetLimit(maxDownloads)
	return p
}

// Add queues a download and returns its ID. It never blocks.
func (p *WorkerPool) Add(cfg types.DownloadConfig) string {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	if cfg.ProgressCh == nil {
		cfg.ProgressCh = p.progressCh
	}

	ctx, cancel := context.WithCancel(p.ctx)
	ad := &activeDownload{config: cfg, cancel: cancel}

	p.mu.Lock()
	p.downloads[cfg.ID] = ad
	p.mu.Unlock()

	sendEvent(p.progressCh, events.DownloadQueuedMsg{
		DownloadID: cfg.ID,
		Target:     cfg.Target,
		Filename:   cfg.Filename,
	})

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		p.group.Go(func() error {
			p.run(ctx, ad)
			return nil
		})
	}()
	return cfg.ID
}

func (p *WorkerPool) run(ctx context.Context, ad *activeDownload) {
	defer ad.cancel()

	p.mu.Lock()
	ad.running = true
	p.mu.Unlock()

	_, err := Download(ctx, ad.config)

	p.mu.Lock()
	delete(p.downloads, ad.config.ID)
	if err != nil {
		p.failed = append(p.failed, err)
	}
	p.mu.Unlock()

	if err != nil {
		utils.Debug("Pool: download %s ended with error: %v", ad.config.ID, err)
	}
}

// Cancel stops a queued or running download by ID
func (p *WorkerPool) Cancel(downloadID string) {
	p.mu.RLock()
	ad, exists := p.downloads[downloadID]
	p.mu.RUnlock()

	if exists && ad.cancel != nil {
		ad.cancel()
	}
}

// CancelAll stops every queued and running download
func (p *WorkerPool) CancelAll() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ad := range p.downloads {
		ad.cancel()
	}
}

// ActiveCount returns the number of downloads currently running
func (p *WorkerPool) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.activeLocked()
}

// QueuedCount returns the number of downloads waiting for a slot
func (p *WorkerPool) QueuedCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.downloads) - p.activeLocked()
}

func (p *WorkerPool) activeLocked() int {
	n := 0
	for _, ad := range p.downloads {
		if ad.running {
			n++
		}
	}
	return n
}

// Wait blocks until every added download has finished and returns
// all download errors joined.
func (p *WorkerPool) Wait() error {
	p.pending.Wait()
	_ = p.group.Wait()

	p.mu.RLock()
	defer p.mu.RUnlock()
	return errors.Join(p.failed...)
}
