package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects the metrics of one deployctl run. They are exported as a
// node-exporter textfile since the process does not outlive the rollout.
type Recorder struct {
	registry *prometheus.Registry

	LastRunTimestamp     *prometheus.GaugeVec
	LastSuccessTimestamp *prometheus.GaugeVec
	LastExitCode         *prometheus.GaugeVec
	PhaseDuration        *prometheus.GaugeVec
	HealthProbeAttempts  *prometheus.GaugeVec
	BackupSizeBytes      *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		LastRunTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deployctl_last_run_timestamp_seconds",
				Help: "Unix time the last rollout finished",
			},
			[]string{"app"},
		),
		LastSuccessTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deployctl_last_success_timestamp_seconds",
				Help: "Unix time the last rollout finished with exit code 0",
			},
			[]string{"app"},
		),
		LastExitCode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deployctl_last_exit_code",
				Help: "Exit code of the last rollout",
			},
			[]string{"app"},
		),
		PhaseDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deployctl_phase_duration_seconds",
				Help: "Duration of each phase of the last rollout",
			},
			[]string{"app", "phase"},
		),
		HealthProbeAttempts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deployctl_health_probe_attempts",
				Help: "Requests made by the last health probe",
			},
			[]string{"app", "phase"},
		),
		BackupSizeBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "deployctl_backup_size_bytes",
				Help: "Size of the last pre-deploy database backup",
			},
			[]string{"app"},
		),
	}

	r.registry.MustRegister(
		r.LastRunTimestamp,
		r.LastSuccessTimestamp,
		r.LastExitCode,
		r.PhaseDuration,
		r.HealthProbeAttempts,
		r.BackupSizeBytes,
	)
	return r
}

func (r *Recorder) ObservePhase(app, phase string, d time.Duration) {
	r.PhaseDuration.WithLabelValues(app, phase).Set(d.Seconds())
}

func (r *Recorder) ObserveProbe(app, phase string, attempts int) {
	r.HealthProbeAttempts.WithLabelValues(app, phase).Set(float64(attempts))
}

func (r *Recorder) ObserveBackup(app string, size int64) {
	r.BackupSizeBytes.WithLabelValues(app).Set(float64(size))
}

func (r *Recorder) ObserveFinish(app string, exitCode int, at time.Time) {
	r.LastRunTimestamp.WithLabelValues(app).Set(float64(at.Unix()))
	r.LastExitCode.WithLabelValues(app).Set(float64(exitCode))
	if exitCode == 0 {
		r.LastSuccessTimestamp.WithLabelValues(app).Set(float64(at.Unix()))
	}
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
