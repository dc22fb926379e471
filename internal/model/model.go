package model

import "time"

// Placeholders substituted for absent backend fields.
const (
	Placeholder = "—"
	UnknownSSID = "Unknown"
)

// Presentation classes shared by every pill/badge style indicator.
const (
	ClassGood = "good"
	ClassBad  = "bad"
	ClassWarn = "warn"
)

// RecentClientsLimit bounds the compact clients view.
const RecentClientsLimit = 12

// DefaultWaitSeconds is the connect wait bound when none is given.
const DefaultWaitSeconds = 20

// Relay is the active relay/server descriptor advertised by the appliance.
type Relay struct {
	Name    string `json:"name"`
	Host    string `json:"host"`
	Port    string `json:"port"`
	Edition string `json:"edition"`
}

// StatusSnapshot is the normalized /api/summary payload.
type StatusSnapshot struct {
	SSID          string          `json:"ssid"`
	APInterface   string          `json:"ap_iface"`
	APIP          string          `json:"ap_ip"`
	DHCPRange     string          `json:"dhcp_range"`
	WANIP         string          `json:"wan_ip"`
	ServiceStates map[string]bool `json:"services"`
	DNSServers    []string        `json:"dns"`
	ActiveRelay   *Relay          `json:"active_server,omitempty"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// ServiceActive reports the state of a named service, false when unknown.
func (s StatusSnapshot) ServiceActive(name string) bool {
	return s.ServiceStates[name]
}

// ServicesHealthy is true only when both hostapd and dnsmasq are active.
func (s StatusSnapshot) ServicesHealthy() bool {
	return s.ServiceActive("hostapd") && s.ServiceActive("dnsmasq")
}

// Health returns the two-level health signal: label and class.
func (s StatusSnapshot) Health() (string, string) {
	if s.ServicesHealthy() {
		return "Online", ClassGood
	}
	return "Issues", ClassWarn
}

// WanStatus is the normalized /wan/status payload.
type WanStatus struct {
	ConnectionName string `json:"connection"`
	// State is the raw backend value, kept even when unrecognized.
	State        string    `json:"state"`
	Gateway      string    `json:"gateway"`
	DefaultRoute string    `json:"default_route"`
	Class        string    `json:"class"`
	Label        string    `json:"label"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// NetworkEntry is one row of a scan. RawSignal keeps the backend value.
type NetworkEntry struct {
	SSID          string `json:"ssid"`
	Security      string `json:"security"`
	SignalPercent int    `json:"signal_percent"`
	RawSignal     any    `json:"signal"`
	InUse         bool   `json:"in_use"`
}

// ScanResult holds a scan in backend order.
type ScanResult struct {
	Networks  []NetworkEntry `json:"networks"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Empty reports whether the scan found nothing (distinct from a failed scan).
func (r ScanResult) Empty() bool {
	return len(r.Networks) == 0
}

// ClientLease is one DHCP lease.
type ClientLease struct {
	IP               string `json:"ip"`
	MAC              string `json:"mac"`
	Hostname         string `json:"hostname"`
	ClientID         string `json:"clientid"`
	ExpiresInMinutes *int64 `json:"expires_in_minutes,omitempty"`
	ExpiryEpoch      *int64 `json:"expiry_epoch,omitempty"`
}

// ClientsView holds the lease list and its projections.
type ClientsView struct {
	All       []ClientLease `json:"all"`
	Recent    []ClientLease `json:"recent"`
	Empty     bool          `json:"empty"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// ConnectRequest is the body of POST /wan/connect.
type ConnectRequest struct {
	SSID        string `json:"ssid"`
	Password    string `json:"password"`
	WaitSeconds int    `json:"wait_sec"`
}

// ConnectChecks are the post-connect verification results. Nil means not reported.
type ConnectChecks struct {
	GatewayPing  *bool `json:"gateway_ping,omitempty"`
	InternetPing *bool `json:"internet_ping,omitempty"`
	DNSResolve   *bool `json:"dns_resolve,omitempty"`
}

// Reported is true when the backend returned at least one check.
func (c ConnectChecks) Reported() bool {
	return c.GatewayPing != nil || c.InternetPing != nil || c.DNSResolve != nil
}

// ConnectResult is the interpreted /wan/connect reply.
type ConnectResult struct {
	OK     bool          `json:"ok"`
	Checks ConnectChecks `json:"checks"`
}

// InternetCheck is the result of the optional /wan/internet endpoint.
type InternetCheck struct {
	Available bool  `json:"available"`
	OK        bool  `json:"ok"`
	PingOK    *bool `json:"ping_ok,omitempty"`
	DNSOK     *bool `json:"dns_ok,omitempty"`
	// PublicAddr and NATType come from a local STUN probe, when configured.
	PublicAddr string `json:"public_addr,omitempty"`
	NATType    string `json:"nat_type,omitempty"`
}

// Connect attempt outcomes.
const (
	OutcomeSucceeded       = "succeeded"
	OutcomePartiallyFailed = "partially_failed"
	OutcomeTransportFailed = "transport_failed"
)

// ConnectAttempt is a persisted record of one submit.
type ConnectAttempt struct {
	Timestamp   time.Time     `json:"timestamp"`
	SSID        string        `json:"ssid"`
	WaitSeconds int           `json:"wait_sec"`
	Outcome     string        `json:"outcome"`
	Checks      ConnectChecks `json:"checks"`
	Error       string        `json:"error,omitempty"`
}

// Session states of the connect modal.
const (
	SessionClosed          = "closed"
	SessionOpen            = "open"
	SessionSubmitting      = "submitting"
	SessionSucceeded       = "succeeded"
	SessionPartiallyFailed = "partially_failed"
	SessionTransportFailed = "transport_failed"
)

// SessionView is the renderable part of the connect modal. The password is
// never part of it.
type SessionView struct {
	State       string `json:"state"`
	SSID        string `json:"ssid"`
	Security    string `json:"security"`
	WaitSeconds int    `json:"wait_sec"`
	Message     string `json:"message"`
	Class       string `json:"class,omitempty"`
}

// SignalSample is a single scanned row recorded for signal history.
type SignalSample struct {
	Timestamp time.Time
	SSID      string
	Security  string
	Signal    int
	InUse     bool
}

// FormatBool renders an optional check the way the activity log shows it.
func FormatBool(v *bool) string {
	if v == nil {
		return "undefined"
	}
	if *v {
		return "true"
	}
	return "false"
}
