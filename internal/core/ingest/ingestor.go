package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/models"
)

// Ingestor is the background job queue converting uploaded files into
// stored chunks. Completion is observable only through the file's status.
type Ingestor interface {
	Start(ctx context.Context, numWorkers int)
	Enqueue(fileID string)
	ProcessOne(ctx context.Context, fileID string) error
}

var _ Ingestor = (*FileIngestor)(nil)

// FileIngestor runs extract -> chunk -> persist for queued files.
// Each run touches only its own file's rows, so no cross-file locking.
type FileIngestor struct {
	store     core.Store
	objects   core.ObjectStore
	extractor core.TextExtractor
	notifier  core.Notifier
	maxChars  int
	jobs      chan string
}

// NewFileIngestor constructs the ingestor with a bounded job queue (64).
// notifier may be nil; status remains pollable either way.
func NewFileIngestor(store core.Store, objects core.ObjectStore, extractor core.TextExtractor, notifier core.Notifier, maxChunkChars int) *FileIngestor {
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultMaxChunkChars
	}
	return &FileIngestor{
		store:     store,
		objects:   objects,
		extractor: extractor,
		notifier:  notifier,
		maxChars:  maxChunkChars,
		jobs:      make(chan string, 64),
	}
}

// Start launches numWorkers goroutines reading from the job queue.
func (i *FileIngestor) Start(ctx context.Context, numWorkers int) {
	g, gctx := errgroup.WithContext(ctx)
	for w := 1; w <= numWorkers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					log.Printf("ingest: worker %d shutting down", w)
					return nil
				case fileID := <-i.jobs:
					log.Printf("ingest: worker %d processing file %s", w, fileID)
					if err := i.ProcessOne(gctx, fileID); err != nil {
						log.Printf("ingest: file %s failed: %v", fileID, err)
					}
				}
			}
		})
	}
	go func() { _ = g.Wait() }()
}

// Enqueue schedules a file for ingestion. The caller does not block on
// completion; if the queue is full this call waits for space.
func (i *FileIngestor) Enqueue(fileID string) {
	i.jobs <- fileID
}

// ProcessOne runs the pipeline for a single file: extract the stored
// bytes, chunk the text, persist the chunks in order, then flip status to
// completed. Any failure flips status to error with a readable cause and
// persists no further chunks for that attempt.
func (i *FileIngestor) ProcessOne(ctx context.Context, fileID string) error {
	proctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
	defer cancel()

	file, err := i.store.GetFileByID(proctx, fileID)
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}
	if file == nil {
		return fmt.Errorf("file not found: %s", fileID)
	}

	// Idempotent: the upload handler already created the row as processing.
	_ = i.store.UpdateFileStatus(proctx, fileID, models.FileStatusProcessing, "", nil)

	if err := i.ingest(proctx, file); err != nil {
		if uerr := i.store.UpdateFileStatus(proctx, fileID, models.FileStatusError, err.Error(), nil); uerr != nil {
			log.Printf("ingest: could not record failure for file %s: %v", fileID, uerr)
		}
		i.notify(proctx, file, models.NotificationFileFailed, err.Error())
		return err
	}
	return nil
}

func (i *FileIngestor) ingest(ctx context.Context, file *models.File) error {
	data, err := i.objects.Get(ctx, file.StoragePath)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrReadFailure, err)
	}

	text, err := i.extractor.Extract(ctx, data, file.FileType)
	if err != nil {
		return err
	}

	chunks := SplitIntoChunks(text, i.maxChars)

	rows := make([]models.FileContent, len(chunks))
	now := time.Now()
	for idx, ch := range chunks {
		rows[idx] = models.FileContent{
			ID:              uuid.NewString(),
			FileID:          file.ID,
			PageNumber:      ch.Page,
			ParagraphNumber: ch.Paragraph,
			Content:         ch.Text,
			CreatedAt:       now,
		}
	}
	if err := i.store.InsertFileContents(ctx, rows); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}

	metadata := map[string]any{"total_chunks": len(chunks)}
	if err := i.store.UpdateFileStatus(ctx, file.ID, models.FileStatusCompleted, "", metadata); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	log.Printf("ingest: file %s completed with %d chunks", file.ID, len(chunks))
	i.notify(ctx, file, models.NotificationFileProcessed, fmt.Sprintf("%q is ready to chat", file.OriginalFilename))
	return nil
}

func (i *FileIngestor) notify(ctx context.Context, file *models.File, kind, body string) {
	if i.notifier == nil {
		return
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    file.UserID,
		Type:      kind,
		Title:     file.OriginalFilename,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := i.notifier.Publish(ctx, n); err != nil {
		log.Printf("ingest: notify %s: %v", kind, err)
	}
}
