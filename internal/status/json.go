package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Distance      *DistanceJSON `json:"distance,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	Counts        CountsJSON    `json:"counts"`
	Config        ConfigJSON    `json:"config"`
}

// DistanceJSON is the most recently rendered measurement.
type DistanceJSON struct {
	Meters       float64 `json:"meters"`
	PulseWidthUs int64   `json:"pulse_width_us"`
	RenderedAt   string  `json:"rendered_at"`
}

// CountsJSON is the JSON representation of pipeline counters.
type CountsJSON struct {
	Triggers      uint64 `json:"triggers"`
	Samples       uint64 `json:"samples"`
	Rendered      uint64 `json:"rendered"`
	MissedEchoes  uint64 `json:"missed_echoes"`
	SpuriousEdges uint64 `json:"spurious_edges"`
	Inversions    uint64 `json:"timing_inversions"`
	Restarts      uint64 `json:"restarted_cycles"`
	Dropped       uint64 `json:"dropped"`
	TriggerErrors uint64 `json:"trigger_errors"`
	RenderErrors  uint64 `json:"render_errors"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TriggerPin    int     `json:"trigger_pin"`
	EchoPin       int     `json:"echo_pin"`
	SpeedOfSound  float64 `json:"speed_of_sound"`
	IntervalMs    int64   `json:"interval_ms"`
	EchoTimeoutMs int64   `json:"echo_timeout_ms"`
	QueueCapacity int     `json:"queue_capacity"`
	Scale         float64 `json:"scale_px_per_cm"`
	Simulated     bool    `json:"simulated,omitempty"`
}

// FormatStatus returns the indented JSON status for snap.
func FormatStatus(snap Snapshot) []byte {
	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Counts: CountsJSON{
			Triggers:      snap.Pacer.Cycles,
			Samples:       snap.Capture.Completed,
			Rendered:      snap.Rendered,
			MissedEchoes:  snap.Pacer.Missed,
			SpuriousEdges: snap.Capture.Spurious,
			Inversions:    snap.Capture.Inverted,
			Restarts:      snap.Capture.Abandoned,
			Dropped:       snap.Dropped + snap.Capture.Dropped,
			TriggerErrors: snap.Pacer.TriggerErrors,
			RenderErrors:  snap.RenderErrors,
		},
		Config: ConfigJSON{
			TriggerPin:    snap.Config.TriggerPin,
			EchoPin:       snap.Config.EchoPin,
			SpeedOfSound:  snap.Config.SpeedOfSound,
			IntervalMs:    snap.Config.IntervalMs,
			EchoTimeoutMs: snap.Config.EchoTimeoutMs,
			QueueCapacity: snap.Config.QueueCapacity,
			Scale:         snap.Config.Scale,
			Simulated:     snap.Config.Simulated,
		},
	}

	if snap.HasSample {
		inner.Distance = &DistanceJSON{
			Meters:       math.Round(snap.Last.Meters*1e4) / 1e4,
			PulseWidthUs: snap.Last.PulseWidth.Microseconds(),
			RenderedAt:   snap.LastRender.UTC().Format(time.RFC3339),
		}
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
