package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/druksewa/marketplace/internal/core/ports"
	"github.com/druksewa/marketplace/internal/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes deliveries to a fixed set of workers using consistent
// hashing on the recipient, guaranteeing per-recipient ordering.
type Dispatcher struct {
	workers  []chan ports.Delivery
	notifier ports.Notifier
	log      zerolog.Logger
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, notifier ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.Delivery, numWorkers),
		notifier: notifier,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Delivery, channelBuffer)
	}
	return d
}

// Run launches all worker goroutines and blocks until ctx is cancelled and
// every worker has returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	<-ctx.Done()
	d.wg.Wait()
	return nil
}

// Enqueue hands a delivery to the worker responsible for its recipient. The
// call never blocks; when that worker's buffer is full the delivery is
// dropped and logged.
func (d *Dispatcher) Enqueue(del ports.Delivery) {
	idx := d.shardIndex(del.Recipient)
	select {
	case d.workers[idx] <- del:
		metrics.DeliveryQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().Str("recipient", del.Recipient).Int("worker_id", idx).Msg("delivery queue full, dropping")
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Delivery) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case del, ok := <-ch:
			if !ok {
				return
			}
			metrics.DeliveryQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

			start := time.Now()
			result := "sent"
			if err := d.notifier.Notify(ctx, del); err != nil {
				result = "failed"
				d.log.Error().Err(err).
					Str("recipient", del.Recipient).
					Int("worker_id", id).
					Msg("delivery failed")
			}
			metrics.DeliveriesTotal.WithLabelValues(result).Inc()
			metrics.DeliveryDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
		}
	}
}
