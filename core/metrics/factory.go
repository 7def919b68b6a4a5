package metrics

import (
	"fmt"

	"github.com/kilianp07/loadchange/core/factory"
)

var sinks = factory.NewRegistry[Sink]()

// RegisterSink makes a sink type available to NewSink.
func RegisterSink(name string, f factory.Factory[Sink]) error {
	return sinks.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinks.Types() }

// NewSink builds every configured sink. No sinks yields a NopSink, one sink is
// returned as is and several are fanned out through a MultiSink. A failing
// entry closes the sinks already built.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	built := make([]Sink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := sinks.Create(c)
		if err != nil {
			closeAll(built)
			return nil, fmt.Errorf("sinks[%d] %s: %w", i, c.Type, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	default:
		return NewMultiSink(built...), nil
	}
}

func closeAll(ss []Sink) {
	for _, s := range ss {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
