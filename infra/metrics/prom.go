package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/loadchange/core/metrics"
)

// PromSink exposes the session state as Prometheus metrics.
type PromSink struct {
	energy   *prometheus.GaugeVec
	commands *prometheus.CounterVec
	deferred prometheus.Counter
	alarms   *prometheus.CounterVec
	power    prometheus.Gauge
	frozen   prometheus.Gauge
}

// NewPromSink registers the load change metrics on the default registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on reg. A nil registerer defaults
// to the global one. Collectors already registered by a previous sink are
// reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	energy := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loadchange_energy_mwh",
		Help: "Integrated plan energy by component",
	}, []string{"component"})
	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadchange_commands_total",
		Help: "Appended override commands",
	}, []string{"direction", "accepted", "anchored"})
	deferred := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "loadchange_deferrals_total",
		Help: "Commands whose start was moved out of a hold window",
	})
	alarms := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadchange_alarms_total",
		Help: "Fired operator alarms",
	}, []string{"marker", "delivered"})
	power := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loadchange_plan_power_mw",
		Help: "Plan power at the last tick",
	})
	frozen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loadchange_frozen",
		Help: "1 while the displayed plan is frozen",
	})

	var err error
	if energy, err = register(reg, energy); err != nil {
		return nil, err
	}
	if commands, err = register(reg, commands); err != nil {
		return nil, err
	}
	if deferred, err = register(reg, deferred); err != nil {
		return nil, err
	}
	if alarms, err = register(reg, alarms); err != nil {
		return nil, err
	}
	if power, err = register(reg, power); err != nil {
		return nil, err
	}
	if frozen, err = register(reg, frozen); err != nil {
		return nil, err
	}
	return &PromSink{energy: energy, commands: commands, deferred: deferred, alarms: alarms, power: power, frozen: frozen}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSummary sets the energy gauges.
func (s *PromSink) RecordSummary(ev coremetrics.SummaryEvent) error {
	s.energy.WithLabelValues("origin").Set(ev.Summary.OriginMWh)
	s.energy.WithLabelValues("override").Set(ev.Summary.OverrideMWh)
	s.energy.WithLabelValues("total").Set(ev.Summary.TotalMWh)
	s.energy.WithLabelValues("hold").Set(ev.Summary.HoldMWh)
	s.energy.WithLabelValues("ramp").Set(ev.Summary.RampMWh)
	if ev.Frozen {
		s.frozen.Set(1)
	} else {
		s.frozen.Set(0)
	}
	return nil
}

// RecordCommand counts the command and its deferral.
func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	s.commands.WithLabelValues(ev.Direction(), strconv.FormatBool(ev.Accepted), strconv.FormatBool(ev.Anchored)).Inc()
	if !ev.Accepted {
		s.deferred.Inc()
	}
	return nil
}

// RecordAlarm counts the fired alarm.
func (s *PromSink) RecordAlarm(ev coremetrics.AlarmEvent) error {
	s.alarms.WithLabelValues(ev.Marker.String(), strconv.FormatBool(ev.Delivered)).Inc()
	return nil
}

// RecordPower sets the live plan power gauge.
func (s *PromSink) RecordPower(mw float64, _ time.Time) error {
	s.power.Set(mw)
	return nil
}
