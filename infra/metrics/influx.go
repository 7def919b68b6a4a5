package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/loadchange/core/metrics"
	"github.com/kilianp07/loadchange/infra/logger"
)

// InfluxConfig addresses an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Unit tags every point, so several units can share a bucket.
	Unit string `json:"unit"`
}

// InfluxSink writes session observations to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	unit     string
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint. A URL ending in the
// write path is accepted.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		unit:     cfg.Unit,
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the instance and returns a NopSink when
// the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) point(measurement string) *write.Point {
	p := write.NewPointWithMeasurement(measurement)
	if s.unit != "" {
		p.AddTag("unit", s.unit)
	}
	return p
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSummary writes the energy summary.
func (s *InfluxSink) RecordSummary(ev coremetrics.SummaryEvent) error {
	p := s.point("load_change_summary").
		AddTag("mode", ev.Mode.String()).
		AddTag("frozen", strconv.FormatBool(ev.Frozen)).
		AddField("origin_mwh", round3(ev.Summary.OriginMWh)).
		AddField("override_mwh", round3(ev.Summary.OverrideMWh)).
		AddField("total_mwh", round3(ev.Summary.TotalMWh)).
		AddField("hold_mwh", round3(ev.Summary.HoldMWh)).
		AddField("ramp_mwh", round3(ev.Summary.RampMWh)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordCommand writes an appended command.
func (s *InfluxSink) RecordCommand(ev coremetrics.CommandEvent) error {
	p := s.point("load_change_command").
		AddTag("command_id", ev.ID).
		AddTag("direction", ev.Direction()).
		AddTag("accepted", strconv.FormatBool(ev.Accepted)).
		AddTag("anchored", strconv.FormatBool(ev.Anchored)).
		AddField("start_mw", round3(ev.StartPower)).
		AddField("target_mw", round3(ev.TargetPower)).
		AddField("hold_minutes", ev.HoldMinutes).
		AddField("deferral_s", ev.ResolvedStart.Sub(ev.RequestedStart).Seconds()).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordAlarm writes a fired alarm.
func (s *InfluxSink) RecordAlarm(ev coremetrics.AlarmEvent) error {
	p := s.point("load_change_alarm").
		AddTag("marker", ev.Marker.String()).
		AddTag("delivered", strconv.FormatBool(ev.Delivered)).
		AddField("text", ev.Text).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordPower writes the live plan power.
func (s *InfluxSink) RecordPower(mw float64, at time.Time) error {
	return s.write(s.point("plan_power").AddField("mw", round3(mw)).SetTime(at))
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
