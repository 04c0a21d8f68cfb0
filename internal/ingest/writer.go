package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/oceanobs/sst-server/internal/database"
	"github.com/oceanobs/sst-server/internal/observability"
	"github.com/oceanobs/sst-server/internal/protocol"
)

// stopFlushTimeout bounds the final flush on shutdown.
const stopFlushTimeout = 10 * time.Second

// MessageSource is the consumer surface the writer reads from.
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
}

// Store is the storage surface the writer flushes to.
type Store interface {
	UpsertGridObservations(ctx context.Context, observations []*database.GridObservation) (int, error)
}

// ObservationWriter consumes observation batches from Kafka and
// batch-writes them to storage. Offsets are committed only after a
// message's observations reach the database, so a crash replays
// messages instead of losing them; the upsert keys make the replay
// harmless.
type ObservationWriter struct {
	source        MessageSource
	store         Store
	metrics       *observability.Metrics
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewObservationWriter creates a new observation writer
func NewObservationWriter(source MessageSource, store Store, metrics *observability.Metrics, batchSize int, flushInterval time.Duration) *ObservationWriter {
	return &ObservationWriter{
		source:        source,
		store:         store,
		metrics:       metrics,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to storage
func (w *ObservationWriter) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the writer gracefully, flushing the pending batch first.
func (w *ObservationWriter) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

type pendingBatch struct {
	observations []*database.GridObservation
	messages     []kafka.Message
}

func (b *pendingBatch) empty() bool { return len(b.messages) == 0 }

func (b *pendingBatch) reset() {
	b.observations = nil
	b.messages = nil
}

func (w *ObservationWriter) run(ctx context.Context) {
	defer w.wg.Done()

	w.metrics.IngestRunning.Set(1)
	defer w.metrics.IngestRunning.Set(0)

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := w.source.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			select {
			case msgChan <- msg:
			case <-w.stopCh:
				return
			}
		}
	}()

	var batch pendingBatch
	for {
		select {
		case <-w.stopCh:
			if !batch.empty() {
				// The run context may already be canceled during
				// shutdown; the final flush gets its own deadline so
				// the pending batch still reaches storage.
				flushCtx, cancel := context.WithTimeout(context.Background(), stopFlushTimeout)
				w.flush(flushCtx, &batch)
				cancel()
			}
			return

		case <-ticker.C:
			if !batch.empty() {
				fmt.Printf("Flush interval reached (%d observations), flushing...\n", len(batch.observations))
				w.flush(ctx, &batch)
			}

		case msg := <-msgChan:
			w.appendMessage(&batch, msg)
			if len(batch.observations) >= w.batchSize {
				fmt.Printf("Batch full (%d observations), flushing...\n", len(batch.observations))
				w.flush(ctx, &batch)
			}
		}
	}
}

// appendMessage decodes one Kafka message into the pending batch.
// Malformed messages and invalid records are counted and skipped; the
// message still joins the batch so its offset gets committed and the
// poison pill is not redelivered forever.
func (w *ObservationWriter) appendMessage(batch *pendingBatch, msg kafka.Message) {
	batch.messages = append(batch.messages, msg)

	obsBatch, err := protocol.DecodeObservationBatch(msg.Value)
	if err != nil {
		fmt.Printf("Skipping malformed message (partition=%d, offset=%d): %v\n",
			msg.Partition, msg.Offset, err)
		w.metrics.ObservationsSkipped.Inc()
		return
	}

	for _, rec := range obsBatch.Observations {
		parsed, err := rec.Parse()
		if err != nil {
			fmt.Printf("Skipping invalid observation: %v\n", err)
			w.metrics.ObservationsSkipped.Inc()
			continue
		}
		batch.observations = append(batch.observations, &database.GridObservation{
			Date:        parsed.Date,
			Lat:         parsed.Lat,
			Lon:         parsed.Lon,
			SSTC:        parsed.SSTC,
			Dataset:     obsBatch.Dataset,
			Resolution:  obsBatch.Resolution,
			QualityFlag: parsed.QualityFlag,
		})
	}
}

func (w *ObservationWriter) flush(ctx context.Context, batch *pendingBatch) {
	start := time.Now()

	if len(batch.observations) > 0 {
		written, err := w.store.UpsertGridObservations(ctx, batch.observations)
		if err != nil {
			// Keep the batch and its offsets; the next flush retries.
			fmt.Printf("Failed to flush batch: %v\n", err)
			return
		}
		w.metrics.ObservationsIngested.Add(float64(written))
	}

	for _, msg := range batch.messages {
		if err := w.source.Commit(ctx, msg); err != nil {
			fmt.Printf("Failed to commit offset: %v\n", err)
		}
	}

	w.metrics.BatchFlushDuration.Observe(time.Since(start).Seconds())
	fmt.Printf("Flushed %d observations from %d messages\n",
		len(batch.observations), len(batch.messages))
	batch.reset()
}
