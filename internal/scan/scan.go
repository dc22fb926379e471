package scan

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"apctl/internal/activity"
	"apctl/internal/api"
	"apctl/internal/model"
	"apctl/internal/view"
)

// Backend fetches the upstream network list.
type Backend interface {
	Networks(ctx context.Context) (api.NetworksResponse, error)
}

// Recorder persists scan rows for signal history.
type Recorder interface {
	Record(samples []model.SignalSample) error
}

// Scanner runs operator-triggered scans.
type Scanner struct {
	backend  Backend
	view     *view.View
	log      *activity.Log
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewScanner creates a scanner. recorder may be nil.
func NewScanner(backend Backend, v *view.View, log *activity.Log, recorder Recorder, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		backend:  backend,
		view:     v,
		log:      log,
		recorder: recorder,
		logger:   logger.With("component", "scan"),
		now:      time.Now,
	}
}

// Scan fetches and normalizes visible networks. An empty result is returned
// with a nil error; only fetch failures are errors.
func (s *Scanner) Scan(ctx context.Context) (model.ScanResult, error) {
	resp, err := s.backend.Networks(ctx)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("scan: %w", err)
	}
	result := Normalize(resp, s.now())
	s.view.SetNetworks(result)
	s.log.Add("Scan OK (/wan/networks) • %d networks", len(result.Networks))

	if s.recorder != nil && !result.Empty() {
		if err := s.recorder.Record(Samples(result)); err != nil {
			s.logger.Warn("record signal samples", "err", err)
		}
	}
	return result, nil
}

// Normalize converts the payload in backend order. Duplicate SSIDs are kept
// as separate rows.
func Normalize(resp api.NetworksResponse, now time.Time) model.ScanResult {
	nets := make([]model.NetworkEntry, 0, len(resp.Networks))
	for _, n := range resp.Networks {
		nets = append(nets, model.NetworkEntry{
			SSID:          orPlaceholder(api.Str(n.SSID)),
			Security:      orPlaceholder(api.Str(n.Security)),
			SignalPercent: ClampSignal(n.Signal),
			RawSignal:     n.Signal,
			InUse:         api.Truthy(n.InUse),
		})
	}
	return model.ScanResult{Networks: nets, FetchedAt: now}
}

// ClampSignal maps a raw signal value into [0,100]. Missing or unparsable
// values count as 0.
func ClampSignal(raw any) int {
	v, ok := api.Number(raw)
	if !ok {
		return 0
	}
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}

// Samples converts a scan into signal history rows.
func Samples(result model.ScanResult) []model.SignalSample {
	out := make([]model.SignalSample, 0, len(result.Networks))
	for _, n := range result.Networks {
		out = append(out, model.SignalSample{
			Timestamp: result.FetchedAt.UTC(),
			SSID:      n.SSID,
			Security:  n.Security,
			Signal:    n.SignalPercent,
			InUse:     n.InUse,
		})
	}
	return out
}

func orPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return model.Placeholder
	}
	return v
}
