// Package app wires the configured collaborators around one load change
// session and drives its tick loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/loadchange/config"
	"github.com/kilianp07/loadchange/core/alarm"
	"github.com/kilianp07/loadchange/core/engine"
	"github.com/kilianp07/loadchange/core/journal"
	coremetrics "github.com/kilianp07/loadchange/core/metrics"
	coremon "github.com/kilianp07/loadchange/core/monitoring"
	coremqtt "github.com/kilianp07/loadchange/core/mqtt"
	"github.com/kilianp07/loadchange/infra/logger"
	"github.com/kilianp07/loadchange/infra/metrics"
	"github.com/kilianp07/loadchange/infra/monitoring"
	"github.com/kilianp07/loadchange/infra/mqtt"
	"github.com/kilianp07/loadchange/internal/eventbus"
)

// Service owns the session and the adapters fed by it.
type Service struct {
	Session *engine.Session

	bus       *eventbus.Bus[engine.Event]
	sink      coremetrics.Sink
	publisher coremqtt.Publisher
	journal   journal.Store
	clock     engine.Clock
	log       logger.Logger
	tick      time.Duration
	promPort  string
}

// Option customizes a Service.
type Option func(*options)

type options struct {
	clock     engine.Clock
	notifier  alarm.Notifier
	publisher coremqtt.Publisher
	journal   journal.Store
	sink      coremetrics.Sink
}

// WithClock replaces the wall clock, for replays.
func WithClock(c engine.Clock) Option { return func(o *options) { o.clock = c } }

// WithNotifier adds a local alarm notifier, for example the console.
func WithNotifier(n alarm.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithPublisher replaces the MQTT publisher built from the config.
func WithPublisher(p coremqtt.Publisher) Option { return func(o *options) { o.publisher = p } }

// WithJournal replaces the configured journal store.
func WithJournal(s journal.Store) Option { return func(o *options) { o.journal = s } }

// WithSink replaces the configured metrics sink.
func WithSink(s coremetrics.Sink) Option { return func(o *options) { o.sink = s } }

// New builds a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Monitoring)
	if err != nil {
		return nil, fmt.Errorf("monitoring: %w", err)
	}
	coremon.Init(mon)

	store := o.journal
	if store == nil {
		if store, err = journal.Open(cfg.Journal); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	sink := o.sink
	if sink == nil {
		if sink, err = coremetrics.NewSink(cfg.Metrics.Sinks); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}
	pub := o.publisher
	if pub == nil && cfg.MQTT.Enabled() {
		p, err := mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		pub = p
	}
	messages, err := cfg.Alarms.Resolve()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("alarms: %w", err)
	}

	var notify []alarm.Notifier
	if o.notifier != nil {
		notify = append(notify, o.notifier)
	}
	if pub != nil {
		notify = append(notify, pub)
	}
	clock := o.clock
	if clock == nil {
		clock = engine.SystemClock
	}
	bus := eventbus.New[engine.Event](eventbus.DefaultBuffer * 4)
	session, err := engine.NewSession(engine.Options{
		Config:       cfg.Engine,
		Messages:     messages,
		ResampleStep: cfg.Session.ResampleStep(),
		Clock:        clock,
		Logger:       logger.New("session"),
		Notifier:     alarm.Multi(notify...),
		Journal:      store,
		Bus:          bus,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if cfg.Session.Unit != "" {
		log.Infof("session ready for unit %s", cfg.Session.Unit)
	}
	return &Service{
		Session:   session,
		bus:       bus,
		sink:      sink,
		publisher: pub,
		journal:   store,
		clock:     clock,
		log:       log,
		tick:      cfg.Session.TickInterval,
		promPort:  cfg.Metrics.PrometheusPort,
	}, nil
}

// Bus exposes the session events.
func (s *Service) Bus() *eventbus.Bus[engine.Event] { return s.bus }

// Run forwards events to the sinks and ticks the session until ctx is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	forwarded := s.forwardPlans(ctx)
	if s.promPort != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	interval := s.tick
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-collected
			<-forwarded
			return nil
		case <-ticker.C:
			s.tickOnce(ctx)
		}
	}
}

func (s *Service) tickOnce(ctx context.Context) {
	defer coremon.Recover()
	s.Session.Tick(ctx)
}

// forwardPlans publishes the plan summary after every state change.
func (s *Service) forwardPlans(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.publisher == nil {
		close(done)
		return done
	}
	sub := s.bus.Subscribe()
	go func() {
		defer close(done)
		defer s.bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch ev.Kind {
				case engine.EventEnter, engine.EventAppend, engine.EventFreeze, engine.EventReset:
					msg := coremqtt.NewPlanMessage(s.Session.Snapshot(), s.clock.Now())
					if err := s.publisher.PublishPlan(msg); err != nil {
						s.log.Errorf("plan publish: %v", err)
					}
				}
			}
		}
	}()
	return done
}

// Close releases the adapters. The session itself holds no resources.
func (s *Service) Close() error {
	s.bus.Close()
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	coremon.Flush(2 * time.Second)
	var errs []error
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if err := s.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("journal: %w", err))
	}
	return errors.Join(errs...)
}
