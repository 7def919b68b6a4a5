// Package alarm fires one-shot operator notifications when the wall clock
// reaches the instants derived from a plan.
package alarm

import (
	"errors"
	"fmt"
	"time"
)

// Notifier delivers an alarm message to the operator.
type Notifier interface {
	Notify(text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(text string) error

// Notify calls f.
func (f NotifierFunc) Notify(text string) error { return f(text) }

// Nop discards every message.
var Nop Notifier = NotifierFunc(func(string) error { return nil })

// Multi delivers every message to all notifiers, nil ones skipped. Every
// notifier is tried; failures are joined.
func Multi(ns ...Notifier) Notifier {
	var live []Notifier
	for _, n := range ns {
		if n != nil {
			live = append(live, n)
		}
	}
	return NotifierFunc(func(text string) error {
		var errs []error
		for _, n := range live {
			if err := n.Notify(text); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// SecondOfDay returns the seconds elapsed since midnight in t's location.
func SecondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// Due reports whether now has reached at. Only the time of day is compared,
// the calendar date is ignored.
func Due(now, at time.Time) bool {
	if at.IsZero() {
		return false
	}
	return SecondOfDay(now) >= SecondOfDay(at)
}

// Fired records a delivered alarm.
type Fired[K comparable] struct {
	Key  K
	Text string
	Err  error
}

// Evaluate fires every target that is due and not yet marked in fired, then
// returns the updated flags. A key fires at most once; a notifier error still
// marks it. Missing messages fall back to the key's string form. Targets are
// visited in the order of keys when given, else in map order.
func Evaluate[K comparable](now time.Time, targets map[K]time.Time, fired map[K]bool, notify Notifier, messages map[K]string, keys ...K) (map[K]bool, []Fired[K]) {
	out := make(map[K]bool, len(fired)+len(targets))
	for k, v := range fired {
		out[k] = v
	}
	if notify == nil {
		notify = Nop
	}
	if len(keys) == 0 {
		for k := range targets {
			keys = append(keys, k)
		}
	}
	var delivered []Fired[K]
	for _, k := range keys {
		at, ok := targets[k]
		if !ok || out[k] || !Due(now, at) {
			continue
		}
		text, ok := messages[k]
		if !ok || text == "" {
			text = fmt.Sprint(k)
		}
		err := notify.Notify(text)
		out[k] = true
		delivered = append(delivered, Fired[K]{Key: k, Text: text, Err: err})
	}
	return out, delivered
}

// Advice is the control mode reminder shown once the final load is reached.
type Advice struct {
	ControlMode string
	SCCMode     string
}

// String joins both reminders.
func (a Advice) String() string {
	return fmt.Sprintf("Check the control mode: %s / Check the SCC mode: %s", a.ControlMode, a.SCCMode)
}

// ControlModeAdvice returns the LL/SCC HIGH advice when target reaches the
// final load power, else GOV/SCC AUTO.
func ControlModeAdvice(target, finalLoadMW float64) Advice {
	if target >= finalLoadMW {
		return Advice{ControlMode: "LL MODE", SCCMode: "SCC HIGH MODE"}
	}
	return Advice{ControlMode: "GOV MODE", SCCMode: "SCC AUTO MODE"}
}
