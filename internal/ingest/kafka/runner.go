// Package kafka consumes entity change events from a Kafka topic and applies
// them to the cell index through a consumer group.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/geodesio/cellcover/internal/core/config"
	"github.com/geodesio/cellcover/internal/ingest"
)

// Applier consumes decoded events; the indexer implements it.
type Applier interface {
	Apply(ctx context.Context, ev ingest.Event) error
}

var (
	ingestMsgs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_messages_total",
			Help: "Ingest messages by result.",
		},
		[]string{"result"},
	)
	ingestProc = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_process_duration_seconds",
			Help:    "Ingest message processing duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)
	ingestLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_lag_seconds",
			Help: "Age of the most recently consumed message.",
		},
	)
)

type Runner struct {
	log     *zerolog.Logger
	cfg     config.IngestCfg
	applier Applier
	ver     *versionDedupe

	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(cfg config.IngestCfg, applier Applier, log *zerolog.Logger) *Runner {
	return &Runner{
		log:     log,
		cfg:     cfg,
		applier: applier,
		ver:     newVersionDedupe(8192),
		assign:  map[int32]struct{}{},
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info().Msg("ingest runner disabled")
		return nil
	}
	if r.applier == nil {
		return errors.New("kafka runner: applier dependency is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = 10 * time.Second
	cfg.Consumer.Group.Heartbeat.Interval = 3 * time.Second
	cfg.Consumer.Group.Rebalance.Timeout = 60 * time.Second
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup([]string{r.cfg.Brokers}, r.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("consumer group: %w", err)
	}

	h := &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			claims := sess.Claims()
			r.assignMu.Lock()
			r.assigned.Store(true)
			r.assign = map[int32]struct{}{}
			for _, parts := range claims {
				for _, p := range parts {
					r.assign[p] = struct{}{}
				}
			}
			r.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(false)
			r.assign = map[int32]struct{}{}
			r.assignMu.Unlock()
		},
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error().Err(err).Msg("kafka consumer group close")
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.Error().Err(err).Msg("kafka consume error")
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error().Err(err).Msg("kafka group error")
		}
	}()

	r.log.Info().
		Str("topic", r.cfg.Topic).
		Str("group", r.cfg.GroupID).
		Str("brokers", r.cfg.Brokers).
		Msg("kafka ingest runner started")
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info().Msg("kafka ingest runner stopped")
}

func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// handleMessage decodes and applies one event. Malformed messages are
// counted and skipped so one poison message cannot stall the partition;
// store failures return an error and get retried.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()

	if !msg.Timestamp.IsZero() {
		ingestLag.Set(time.Since(msg.Timestamp).Seconds())
	}

	var ev ingest.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		ingestMsgs.WithLabelValues("malformed").Inc()
		r.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("ingest message decode failed, skipping")
		return nil
	}
	if ev.ID == "" || (ev.Op != "upsert" && ev.Op != "delete") {
		ingestMsgs.WithLabelValues("malformed").Inc()
		r.log.Warn().Str("op", ev.Op).Str("id", ev.ID).Int64("offset", msg.Offset).
			Msg("ingest message invalid, skipping")
		return nil
	}

	if !r.ver.shouldApply(ev.ID, ev.Version) {
		ingestMsgs.WithLabelValues("skip_version").Inc()
		return nil
	}

	err := r.applier.Apply(ctx, ev)
	if err != nil {
		// Release the version so the retry is not deduplicated away.
		r.ver.forget(ev.ID)
		ingestMsgs.WithLabelValues("error").Inc()
		return err
	}
	ingestMsgs.WithLabelValues("ok").Inc()
	ingestProc.WithLabelValues(ev.Op).Observe(time.Since(start).Seconds())
	return nil
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
