package status

import (
	"strings"
	"time"

	"apctl/internal/api"
	"apctl/internal/model"
)

// NormalizeSummary turns a summary payload into a snapshot in which every
// field holds a defined value.
func NormalizeSummary(resp api.SummaryResponse, now time.Time) model.StatusSnapshot {
	snap := model.StatusSnapshot{
		SSID:          orDefault(api.Str(resp.SSID), model.UnknownSSID),
		APInterface:   model.Placeholder,
		APIP:          model.Placeholder,
		DHCPRange:     model.Placeholder,
		WANIP:         WANIP(resp),
		ServiceStates: map[string]bool{"hostapd": false, "dnsmasq": false},
		DNSServers:    []string{},
		FetchedAt:     now,
	}

	if n := resp.Network; n != nil {
		snap.APInterface = orDefault(api.Str(n.APIface), model.Placeholder)
		snap.APIP = orDefault(api.Str(n.APIP), model.Placeholder)
		snap.DHCPRange = orDefault(api.Str(n.DHCPRange), model.Placeholder)
	}
	if s := resp.Services; s != nil {
		snap.ServiceStates["hostapd"] = api.Truthy(s.Hostapd)
		snap.ServiceStates["dnsmasq"] = api.Truthy(s.Dnsmasq)
	}
	for _, line := range resp.DNS {
		server := strings.TrimSpace(strings.Replace(line, "nameserver", "", 1))
		if server != "" {
			snap.DNSServers = append(snap.DNSServers, server)
		}
	}
	if a := resp.ActiveServer; a != nil {
		snap.ActiveRelay = &model.Relay{
			Name:    orDefault(api.Text(a.Name), model.Placeholder),
			Host:    orDefault(api.Text(a.Host), model.Placeholder),
			Port:    orDefault(api.Text(a.Port), model.Placeholder),
			Edition: orDefault(api.Text(a.Edition), model.Placeholder),
		}
	}
	return snap
}

// WANIP extracts the WAN address the summary endpoint owns.
func WANIP(resp api.SummaryResponse) string {
	if resp.Network == nil {
		return model.Placeholder
	}
	return orDefault(api.Str(resp.Network.WANIP), model.Placeholder)
}

// NormalizeWAN maps the upstream link state to a presentation class while
// keeping the raw state string.
func NormalizeWAN(resp api.WANStatusResponse, now time.Time) model.WanStatus {
	var conn, state string
	if resp.WLAN0 != nil {
		conn = api.Str(resp.WLAN0.Connection)
		state = api.Str(resp.WLAN0.State)
	}
	class, label := ClassifyWANState(state)
	return model.WanStatus{
		ConnectionName: orDefault(conn, model.Placeholder),
		State:          orDefault(state, model.Placeholder),
		Gateway:        orDefault(api.Str(resp.Gateway), model.Placeholder),
		DefaultRoute:   orDefault(api.Str(resp.DefaultRoute), model.Placeholder),
		Class:          class,
		Label:          label,
		FetchedAt:      now,
	}
}

// ClassifyWANState returns the class and label for a raw state.
func ClassifyWANState(state string) (string, string) {
	switch state {
	case "connected":
		return model.ClassGood, "Connected"
	case "disconnected":
		return model.ClassBad, "Disconnected"
	case "":
		return model.ClassWarn, "unknown"
	default:
		return model.ClassWarn, state
	}
}

// NormalizeClients builds both lease projections from one list.
func NormalizeClients(resp api.ClientsResponse, limit int, now time.Time) model.ClientsView {
	if limit <= 0 {
		limit = model.RecentClientsLimit
	}
	all := make([]model.ClientLease, 0, len(resp.Clients))
	for _, c := range resp.Clients {
		all = append(all, model.ClientLease{
			IP:               api.Str(c.IP),
			MAC:              api.Str(c.MAC),
			Hostname:         api.Str(c.Hostname),
			ClientID:         api.Str(c.ClientID),
			ExpiresInMinutes: toInt(c.ExpiresInMinutes),
			ExpiryEpoch:      toInt(c.ExpiryEpoch),
		})
	}
	recent := all
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return model.ClientsView{
		All:       all,
		Recent:    recent,
		Empty:     len(all) == 0,
		FetchedAt: now,
	}
}

func toInt(v *float64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
