package gallery

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/delsi82/color-recognition/internal/logging"
)

// Cell is one image scheduled for persistence. Image data must be a copy
// owned by the batch; the submitting loop releases its own buffers without
// waiting for the write.
type Cell struct {
	FileName string
	Image    *image.NRGBA
}

// Batch carries every write produced by a single processed frame: the
// matched cells plus, when full-frame saves are enabled, the frame itself.
type Batch struct {
	FrameName string
	FullFrame *Cell
	Cells     []Cell
}

func (b Batch) empty() bool {
	return b.FullFrame == nil && len(b.Cells) == 0
}

// Persister writes batches on a single background goroutine. Submission
// never blocks and never fails; write errors and queue overflow are logged
// and counted so a slow or full disk cannot stall the acquisition loop.
type Persister struct {
	writer *Writer
	logger *slog.Logger

	queue chan Batch
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool

	written atomic.Int64
	failed  atomic.Int64
}

// NewPersister starts the write worker. queueDepth bounds how many frame
// batches may wait for disk; zero or negative selects the default.
func NewPersister(writer *Writer, logger *slog.Logger, queueDepth int) *Persister {
	if logger == nil {
		logger = logging.NewNop()
	}
	if queueDepth <= 0 {
		queueDepth = 8
	}
	p := &Persister{
		writer: writer,
		logger: logger,
		queue:  make(chan Batch, queueDepth),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Submit hands a batch to the worker and returns immediately. A full queue
// drops the batch, counting every lost file as a failure; a drained
// persister writes the batch inline so late submissions are still persisted.
func (p *Persister) Submit(batch Batch) {
	if batch.empty() {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.logger.Warn("persister already drained; writing batch inline",
			logging.String(logging.FieldFrame, batch.FrameName))
		p.write(batch)
		return
	}

	select {
	case p.queue <- batch:
	default:
		dropped := int64(len(batch.Cells))
		if batch.FullFrame != nil {
			dropped++
		}
		p.failed.Add(dropped)
		p.logger.Warn("persistence queue full; batch dropped",
			logging.String(logging.FieldFrame, batch.FrameName),
			logging.Int64("files_dropped", dropped),
			logging.String(logging.FieldEventType, "gallery_batch_dropped"),
			logging.String(logging.FieldErrorHint, "check output disk throughput"),
			logging.String(logging.FieldImpact, "matched cells from this frame are not persisted"),
		)
	}
}

// Drain stops accepting queued work and waits for outstanding writes. The
// context bounds the wait during shutdown.
func (p *Persister) Drain(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Written returns the number of files persisted so far.
func (p *Persister) Written() int64 {
	return p.written.Load()
}

// Failed returns the number of writes that errored.
func (p *Persister) Failed() int64 {
	return p.failed.Load()
}

func (p *Persister) run() {
	defer p.wg.Done()
	for batch := range p.queue {
		p.write(batch)
	}
}

func (p *Persister) write(batch Batch) {
	cells := batch.Cells
	if batch.FullFrame != nil {
		cells = append([]Cell{*batch.FullFrame}, cells...)
	}
	for _, cell := range cells {
		if cell.Image == nil {
			continue
		}
		path, err := p.writer.SaveImage(cell.FileName, cell.Image)
		if err != nil {
			p.failed.Add(1)
			p.logger.Error("image save failed",
				logging.Error(err),
				logging.String(logging.FieldFrame, batch.FrameName),
				logging.String("file", cell.FileName),
				logging.String(logging.FieldEventType, "gallery_save_failed"),
				logging.String(logging.FieldErrorHint, "check output directory space and permissions"),
			)
			continue
		}
		p.written.Add(1)
		p.logger.Debug("image saved",
			logging.String(logging.FieldFrame, batch.FrameName),
			logging.String("path", path),
		)
	}
}
