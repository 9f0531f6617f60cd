// Package monitor reports adapter load to a status file and to InfluxDB.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/OCAP2/underwater/internal/influx"
	"github.com/OCAP2/underwater/pkg/host"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// DefaultInterval is used when Dependencies.Interval is not positive.
const DefaultInterval = 30 * time.Second

// Source exposes the live adapter counts.
type Source interface {
	AdapterCount() int
	ActiveCount() int
	CountByKind() map[string]int
}

// PointWriter receives performance points; *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source    Source
	Scheduler host.Scheduler
	// Writer is optional; without it only the status file is written.
	Writer PointWriter
	Logger *slog.Logger
	// StatusPath is optional; the file is rewritten on every report.
	StatusPath string
	HostName   string
	Interval   time.Duration
	Now        func() time.Time
}

// Status is the snapshot written to the status file.
type Status struct {
	Time              time.Time      `json:"time"`
	AdaptersAttached  int            `json:"adaptersAttached"`
	CorrectionsActive int            `json:"correctionsActive"`
	PerKind           map[string]int `json:"perKind"`
}

// Service manages status monitoring
type Service struct {
	deps   Dependencies
	cancel host.CancelFunc
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.HostName == "" {
		deps.HostName, _ = os.Hostname()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether periodic reporting is scheduled
func (s *Service) IsRunning() bool {
	return s.cancel != nil
}

// GetStatus returns the current snapshot.
func (s *Service) GetStatus() Status {
	return Status{
		Time:              s.deps.Now(),
		AdaptersAttached:  s.deps.Source.AdapterCount(),
		CorrectionsActive: s.deps.Source.ActiveCount(),
		PerKind:           s.deps.Source.CountByKind(),
	}
}

// StatusLines renders the snapshot for the status file, one kind per line
// after a JSON header.
func (st Status) StatusLines() []string {
	header, err := json.Marshal(st)
	if err != nil {
		header = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}

	kinds := make([]string, 0, len(st.PerKind))
	for k := range st.PerKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	lines := []string{string(header)}
	for _, k := range kinds {
		lines = append(lines, fmt.Sprintf("%s: %d", k, st.PerKind[k]))
	}
	return lines
}

// Report writes one snapshot to the status file and the point writer.
func (s *Service) Report() Status {
	st := s.GetStatus()

	if s.deps.StatusPath != "" {
		if err := s.writeStatusFile(st); err != nil {
			s.deps.Logger.Error("Error writing status file", "error", err)
		}
	}

	if s.deps.Writer != nil {
		p := influx.NewPerformancePoint(s.deps.HostName, influx.PerformanceSample{
			Time:              st.Time,
			AdaptersAttached:  st.AdaptersAttached,
			CorrectionsActive: st.CorrectionsActive,
			PerKind:           st.PerKind,
		})
		if err := s.deps.Writer.WritePoint(p); err != nil {
			s.deps.Logger.Error("Error writing performance point", "error", err)
		}
	}

	return st
}

func (s *Service) writeStatusFile(st Status) error {
	f, err := os.Create(s.deps.StatusPath)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, line := range st.StatusLines() {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Start schedules periodic reports on the host scheduler.
func (s *Service) Start() {
	if s.cancel != nil {
		return
	}
	s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
	s.cancel = s.deps.Scheduler.Repeat(s.deps.Interval, 0, func() { s.Report() })
}

// Stop cancels periodic reports
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}
