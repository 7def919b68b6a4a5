// Package metrics defines the sinks that observe a load change session.
// Sinks record energy summaries, appended commands and fired alarms. Several
// sinks can be combined with NewMultiSink; NewSink builds them from
// configuration through the module registry.
package metrics
