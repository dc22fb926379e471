package api

// Every field the backend may omit is a pointer or an interface so absence
// stays distinguishable from a zero value until normalization.

// SummaryResponse is the /api/summary payload.
type SummaryResponse struct {
	SSID         *string          `json:"ssid"`
	Network      *SummaryNetwork  `json:"network"`
	Services     *SummaryServices `json:"services"`
	DNS          []string         `json:"dns"`
	ActiveServer *ActiveServer    `json:"active_server"`
}

// SummaryNetwork describes the AP side of the appliance.
type SummaryNetwork struct {
	APIface   *string `json:"ap_iface"`
	APIP      *string `json:"ap_ip"`
	DHCPRange *string `json:"dhcp_range"`
	WANIP     *string `json:"wan_ip"`
}

// SummaryServices holds service activity flags. Values are interpreted by
// truthiness since older backends report strings.
type SummaryServices struct {
	Hostapd any `json:"hostapd"`
	Dnsmasq any `json:"dnsmasq"`
}

// ActiveServer is the relay/server currently selected on the appliance.
type ActiveServer struct {
	Name    any `json:"name"`
	Host    any `json:"host"`
	Port    any `json:"port"`
	Edition any `json:"edition"`
}

// WANStatusResponse is the /wan/status payload.
type WANStatusResponse struct {
	WLAN0        *WANDevice `json:"wlan0"`
	Gateway      *string    `json:"gateway"`
	DefaultRoute *string    `json:"default_route"`
}

// WANDevice is the NetworkManager state of the upstream interface.
type WANDevice struct {
	Connection *string `json:"connection"`
	State      *string `json:"state"`
}

// NetworksResponse is the /wan/networks payload.
type NetworksResponse struct {
	Networks []Network `json:"networks"`
}

// Network is one scanned upstream network.
type Network struct {
	SSID     *string `json:"ssid"`
	Signal   any     `json:"signal"`
	Security *string `json:"security"`
	InUse    any     `json:"in_use"`
}

// ClientsResponse is the /clients payload.
type ClientsResponse struct {
	Clients []Lease `json:"clients"`
}

// Lease is one dnsmasq lease as reported by the backend.
type Lease struct {
	IP               *string  `json:"ip"`
	MAC              *string  `json:"mac"`
	Hostname         *string  `json:"hostname"`
	ClientID         *string  `json:"clientid"`
	ExpiryEpoch      *float64 `json:"expiry_epoch"`
	ExpiresInMinutes *float64 `json:"expires_in_minutes"`
}

// ConnectResponse is the /wan/connect reply.
type ConnectResponse struct {
	OK     any            `json:"ok"`
	Checks *ConnectChecks `json:"checks"`
}

// ConnectChecks are the backend verification results.
type ConnectChecks struct {
	GatewayPing  *bool `json:"gateway_ping"`
	InternetPing *bool `json:"internet_ping"`
	DNSResolve   *bool `json:"dns_resolve"`
}

// InternetResponse is the optional /wan/internet payload.
type InternetResponse struct {
	OK     any   `json:"ok"`
	PingOK *bool `json:"ping_ok"`
	DNSOK  *bool `json:"dns_ok"`
}
