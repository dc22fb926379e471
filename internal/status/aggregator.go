package status

import (
	"context"
	"fmt"
	"time"

	"apctl/internal/activity"
	"apctl/internal/api"
	"apctl/internal/model"
	"apctl/internal/view"
)

// Backend is the subset of the API client the aggregator needs.
type Backend interface {
	Summary(ctx context.Context) (api.SummaryResponse, error)
	WANStatus(ctx context.Context) (api.WANStatusResponse, error)
	Clients(ctx context.Context) (api.ClientsResponse, error)
}

// Aggregator loads and normalizes appliance status into the view.
type Aggregator struct {
	backend     Backend
	view        *view.View
	log         *activity.Log
	recentLimit int
	now         func() time.Time
}

// NewAggregator creates an aggregator. recentLimit <= 0 selects the default.
func NewAggregator(backend Backend, v *view.View, log *activity.Log, recentLimit int) *Aggregator {
	if recentLimit <= 0 {
		recentLimit = model.RecentClientsLimit
	}
	return &Aggregator{
		backend:     backend,
		view:        v,
		log:         log,
		recentLimit: recentLimit,
		now:         time.Now,
	}
}

// LoadSummary fetches and stores the appliance summary.
func (a *Aggregator) LoadSummary(ctx context.Context) (model.StatusSnapshot, error) {
	resp, err := a.backend.Summary(ctx)
	if err != nil {
		return model.StatusSnapshot{}, fmt.Errorf("summary: %w", err)
	}
	snap := NormalizeSummary(resp, a.now())
	a.view.SetSummary(snap)
	a.log.Add("Summary OK (/api/summary)")
	return snap, nil
}

// LoadWANStatus fetches and stores the upstream link status.
func (a *Aggregator) LoadWANStatus(ctx context.Context) (model.WanStatus, error) {
	resp, err := a.backend.WANStatus(ctx)
	if err != nil {
		return model.WanStatus{}, fmt.Errorf("wan status: %w", err)
	}
	wan := NormalizeWAN(resp, a.now())
	a.view.SetWAN(wan)
	a.log.Add("WAN status OK (/wan/status)")
	return wan, nil
}

// LoadClients fetches the lease list and stores both projections.
func (a *Aggregator) LoadClients(ctx context.Context) (model.ClientsView, error) {
	resp, err := a.backend.Clients(ctx)
	if err != nil {
		return model.ClientsView{}, fmt.Errorf("clients: %w", err)
	}
	clients := NormalizeClients(resp, a.recentLimit, a.now())
	a.view.SetClients(clients)
	a.log.Add("Clients OK (/clients) • %d", len(clients.All))
	return clients, nil
}

// refreshWANIP re-reads the summary for the WAN address so it stays fresh
// next to the WAN status even when only the summary panel is refreshed elsewhere.
func (a *Aggregator) refreshWANIP(ctx context.Context) error {
	resp, err := a.backend.Summary(ctx)
	if err != nil {
		return fmt.Errorf("wan ip: %w", err)
	}
	a.view.SetWANIP(WANIP(resp))
	return nil
}

// RefreshAll runs summary, WAN address, WAN status and clients strictly in
// that order. The first failure aborts the remaining steps and is returned.
// Concurrent calls are not serialized: the view keeps whichever write lands last.
func (a *Aggregator) RefreshAll(ctx context.Context) error {
	if _, err := a.LoadSummary(ctx); err != nil {
		return err
	}
	if err := a.refreshWANIP(ctx); err != nil {
		return err
	}
	if _, err := a.LoadWANStatus(ctx); err != nil {
		return err
	}
	if _, err := a.LoadClients(ctx); err != nil {
		return err
	}
	return nil
}
