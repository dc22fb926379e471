// Package view holds the panel's view model: one slot per data kind,
// replaced wholesale by whichever fetch completes last.
package view

import (
	"log/slog"
	"sync"

	"apctl/internal/model"
)

// State is a point-in-time copy of every slot. Nil means never loaded.
type State struct {
	Summary  *model.StatusSnapshot `json:"summary"`
	WANIP    string                `json:"wan_ip"`
	WAN      *model.WanStatus      `json:"wan"`
	Clients  *model.ClientsView    `json:"clients"`
	Networks *model.ScanResult     `json:"networks"`
	Session  model.SessionView     `json:"session"`
	Auto     bool                  `json:"auto"`
	Internet *model.InternetCheck  `json:"internet,omitempty"`
}

// View is the shared view model. Setters never merge fields across
// snapshots; each call replaces its slot and emits one event.
type View struct {
	mu    sync.RWMutex
	state State
	bus   *Feed
}

// New creates an empty view with its own event feed.
func New(logger *slog.Logger) *View {
	return &View{
		state: State{
			WANIP:   model.Placeholder,
			Session: model.SessionView{State: model.SessionClosed},
		},
		bus: newFeed(logger),
	}
}

// Events exposes the feed renderers subscribe to.
func (v *View) Events() *Feed {
	return v.bus
}

// State returns a copy of the current view.
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// SetSummary replaces the status summary slot.
func (v *View) SetSummary(s model.StatusSnapshot) {
	v.mu.Lock()
	v.state.Summary = &s
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventSummary, Data: s})
}

// SetWANIP replaces the WAN address, which may be the placeholder.
func (v *View) SetWANIP(ip string) {
	v.mu.Lock()
	v.state.WANIP = ip
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventWANIP, Data: ip})
}

// SetWAN replaces the classified upstream link.
func (v *View) SetWAN(w model.WanStatus) {
	v.mu.Lock()
	v.state.WAN = &w
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventWAN, Data: w})
}

// SetClients replaces the client list slot.
func (v *View) SetClients(c model.ClientsView) {
	v.mu.Lock()
	v.state.Clients = &c
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventClients, Data: c})
}

// SetNetworks replaces the last scan result.
func (v *View) SetNetworks(r model.ScanResult) {
	v.mu.Lock()
	v.state.Networks = &r
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventNetworks, Data: r})
}

// SetSession publishes the connect session as the dialog should render it.
func (v *View) SetSession(s model.SessionView) {
	v.mu.Lock()
	v.state.Session = s
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventSession, Data: s})
}

// SetAuto records whether auto refresh is on.
func (v *View) SetAuto(enabled bool) {
	v.mu.Lock()
	v.state.Auto = enabled
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventAuto, Data: enabled})
}

// SetInternet replaces the last internet check.
func (v *View) SetInternet(c model.InternetCheck) {
	v.mu.Lock()
	v.state.Internet = &c
	v.mu.Unlock()
	v.bus.Publish(Event{Type: EventInternet, Data: c})
}
