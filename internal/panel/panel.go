// Package panel wires the status, scan, connect and scheduler components
// behind the named operations an operator triggers. Every input adapter
// (CLI, HTTP, WebSocket) calls these operations; none of them talks to the
// components directly.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"apctl/internal/activity"
	"apctl/internal/addrutil"
	"apctl/internal/api"
	"apctl/internal/connect"
	"apctl/internal/model"
	"apctl/internal/scan"
	"apctl/internal/scheduler"
	"apctl/internal/status"
	"apctl/internal/stunutil"
	"apctl/internal/view"
)

// ErrNoActiveServer is returned by ActiveServer when the appliance reports none.
var ErrNoActiveServer = errors.New("no active server")

// Backend is every endpoint the panel uses. *api.Client satisfies it.
type Backend interface {
	status.Backend
	scan.Backend
	connect.Backend
	Internet(ctx context.Context) (api.InternetResponse, bool, error)
}

// AddressProber discovers the public mapped address.
type AddressProber interface {
	Probe(ctx context.Context) (stunutil.Mapping, error)
}

// Options configure a Panel. Zero values select defaults.
type Options struct {
	// Context bounds scheduler ticks. Defaults to context.Background.
	Context         context.Context
	Interval        time.Duration
	RecentClients   int
	DefaultWait     int
	ActivityLimit   int
	ConnectEndpoint string
	SignalRecorder  scan.Recorder
	AttemptRecorder connect.Recorder
	Prober          AddressProber
	Logger          *slog.Logger
}

// Panel owns the view model and the components writing to it.
type Panel struct {
	backend   Backend
	view      *view.View
	log       *activity.Log
	status    *status.Aggregator
	scanner   *scan.Scanner
	session   *connect.Session
	scheduler *scheduler.Scheduler
	prober    AddressProber
	logger    *slog.Logger
}

// New builds a panel around backend.
func New(backend Backend, opts Options) *Panel {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	logger := opts.Logger

	v := view.New(logger)
	log := activity.New(logger, v.Events(), opts.ActivityLimit)
	agg := status.NewAggregator(backend, v, log, opts.RecentClients)

	p := &Panel{
		backend: backend,
		view:    v,
		log:     log,
		status:  agg,
		scanner: scan.NewScanner(backend, v, log, opts.SignalRecorder, logger),
		session: connect.NewSession(backend, agg, v, log, connect.Options{
			DefaultWait: opts.DefaultWait,
			Endpoint:    opts.ConnectEndpoint,
			Recorder:    opts.AttemptRecorder,
			Logger:      logger,
		}),
		prober: opts.Prober,
		logger: logger.With("component", "panel"),
	}
	p.scheduler = scheduler.New(opts.Context, agg.RefreshAll, scheduler.Options{
		Interval: opts.Interval,
		Log:      log,
		View:     v,
		Logger:   logger,
	})
	return p
}

// View exposes the view model.
func (p *Panel) View() *view.View { return p.view }

// Log exposes the activity log.
func (p *Panel) Log() *activity.Log { return p.log }

// Session exposes the connect session.
func (p *Panel) Session() *connect.Session { return p.session }

// Scheduler exposes the auto refresh scheduler.
func (p *Panel) Scheduler() *scheduler.Scheduler { return p.scheduler }

// Start logs startup, then loads status and scans once.
func (p *Panel) Start(ctx context.Context) error {
	p.log.Add("UI started")
	err := p.Refresh(ctx)
	if _, scanErr := p.Scan(ctx); err == nil {
		err = scanErr
	}
	return err
}

// Close stops the scheduler and waits for in-flight ticks.
func (p *Panel) Close() {
	p.scheduler.Stop()
}

// Refresh runs one full status refresh.
func (p *Panel) Refresh(ctx context.Context) error {
	return p.report("refresh", p.status.RefreshAll(ctx))
}

// Scan lists upstream networks.
func (p *Panel) Scan(ctx context.Context) (model.ScanResult, error) {
	res, err := p.scanner.Scan(ctx)
	return res, p.report("scan", err)
}

// LoadClients reloads DHCP leases only.
func (p *Panel) LoadClients(ctx context.Context) (model.ClientsView, error) {
	res, err := p.status.LoadClients(ctx)
	return res, p.report("clients", err)
}

// LoadWANStatus reloads the upstream link status only.
func (p *Panel) LoadWANStatus(ctx context.Context) (model.WanStatus, error) {
	res, err := p.status.LoadWANStatus(ctx)
	return res, p.report("wan", err)
}

// LoadSummary reloads the appliance summary only.
func (p *Panel) LoadSummary(ctx context.Context) (model.StatusSnapshot, error) {
	res, err := p.status.LoadSummary(ctx)
	return res, p.report("summary", err)
}

// ToggleAuto flips auto refresh and returns the new state.
func (p *Panel) ToggleAuto() bool {
	return p.scheduler.Toggle()
}

// SetAuto enables or disables auto refresh.
func (p *Panel) SetAuto(on bool) {
	if on {
		p.scheduler.Enable()
		return
	}
	p.scheduler.Disable()
}

// TestInternet queries the optional internet check endpoint. A missing
// endpoint is a normal result with Available unset.
func (p *Panel) TestInternet(ctx context.Context) (model.InternetCheck, error) {
	resp, ok, err := p.backend.Internet(ctx)
	if err != nil {
		return model.InternetCheck{}, p.report("internet", fmt.Errorf("internet: %w", err))
	}

	var check model.InternetCheck
	if !ok {
		p.log.Add("Internet endpoint not available (/wan/internet)")
	} else {
		check = model.InternetCheck{
			Available: true,
			OK:        api.Truthy(resp.OK),
			PingOK:    resp.PingOK,
			DNSOK:     resp.DNSOK,
		}
		p.log.Add("Internet: %s • ping=%s dns=%s",
			okLabel(check.OK), model.FormatBool(check.PingOK), model.FormatBool(check.DNSOK))
	}

	if p.prober != nil {
		m, err := p.prober.Probe(ctx)
		if err != nil {
			p.logger.Warn("stun probe failed", "err", err)
			p.log.Add("Public address unavailable: %s", err.Error())
		} else {
			check.PublicAddr = m.PublicAddr
			check.NATType = m.NATType
			p.log.Add("Public address: %s (%s)", m.PublicAddr, m.NATType)
		}
	}

	p.view.SetInternet(check)
	return check, nil
}

// ClearLog empties the activity log. It reports false when the log was
// already empty.
func (p *Panel) ClearLog() bool {
	return p.log.Clear()
}

// ActiveServer fetches the summary and formats the active relay as
// "name host:port (edition)".
func (p *Panel) ActiveServer(ctx context.Context) (string, error) {
	resp, err := p.backend.Summary(ctx)
	if err != nil {
		p.log.Add("Could not read active server")
		return "", fmt.Errorf("summary: %w", err)
	}
	snap := status.NormalizeSummary(resp, time.Now())
	if snap.ActiveRelay == nil {
		p.log.Add("No active server")
		return "", ErrNoActiveServer
	}
	line := FormatRelay(*snap.ActiveRelay)
	p.log.Add("Active server: %s", line)
	return line, nil
}

// FormatRelay renders a relay as "name host:port (edition)".
func FormatRelay(r model.Relay) string {
	addr := addrutil.JoinHostPort(r.Host, r.Port)
	if addr == "" {
		addr = r.Host + ":" + r.Port
	}
	return fmt.Sprintf("%s %s (%s)", r.Name, addr, r.Edition)
}

// ConnectForm is the operator input of the connect modal.
type ConnectForm struct {
	SSID        string `json:"ssid"`
	Password    string `json:"password"`
	WaitSeconds int    `json:"wait_sec"`
}

// OpenConnect opens the connect modal for a scanned network.
func (p *Panel) OpenConnect(ssid, security string) error {
	return p.session.Open(ssid, security)
}

// SubmitConnect copies form into the open session and submits it.
func (p *Panel) SubmitConnect(ctx context.Context, form ConnectForm) (model.ConnectResult, error) {
	for _, set := range []func() error{
		func() error { return p.session.SetSSID(form.SSID) },
		func() error { return p.session.SetPassword(form.Password) },
		func() error { return p.session.SetWait(form.WaitSeconds) },
	} {
		if err := set(); err != nil {
			return model.ConnectResult{}, err
		}
	}
	// The session logs its own errors.
	return p.session.Submit(ctx)
}

// CancelConnect closes the connect modal.
func (p *Panel) CancelConnect() error {
	return p.session.Cancel()
}

// DismissConnect acknowledges a finished attempt.
func (p *Panel) DismissConnect() error {
	return p.session.Dismiss()
}

func (p *Panel) report(op string, err error) error {
	if err != nil {
		p.log.Add("ERROR %s: %s", op, err.Error())
	}
	return err
}

func okLabel(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}
