package status

import (
	"encoding/json"
	"testing"
	"time"

	"apctl/internal/api"
	"apctl/internal/model"
)

func decodeSummary(t *testing.T, raw string) api.SummaryResponse {
	t.Helper()
	var resp api.SummaryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestNormalizeSummary_MissingFieldsUsePlaceholders(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`{}`,
		`{"ssid":null,"network":null,"services":null,"dns":null,"active_server":null}`,
		`{"ssid":"","network":{},"services":{}}`,
	} {
		snap := NormalizeSummary(decodeSummary(t, raw), time.Now())
		if snap.SSID != model.UnknownSSID {
			t.Fatalf("%s: ssid=%q", raw, snap.SSID)
		}
		for name, got := range map[string]string{
			"ap_iface": snap.APInterface, "ap_ip": snap.APIP,
			"dhcp_range": snap.DHCPRange, "wan_ip": snap.WANIP,
		} {
			if got != model.Placeholder {
				t.Fatalf("%s: %s=%q", raw, name, got)
			}
		}
		if snap.DNSServers == nil || len(snap.DNSServers) != 0 {
			t.Fatalf("%s: dns=%#v", raw, snap.DNSServers)
		}
		if active, ok := snap.ServiceStates["hostapd"]; !ok || active {
			t.Fatalf("%s: hostapd=%v,%v", raw, active, ok)
		}
		if active, ok := snap.ServiceStates["dnsmasq"]; !ok || active {
			t.Fatalf("%s: dnsmasq=%v,%v", raw, active, ok)
		}
		if snap.ActiveRelay != nil {
			t.Fatalf("%s: relay=%+v", raw, snap.ActiveRelay)
		}
	}
}

func TestNormalizeSummary_Full(t *testing.T) {
	t.Parallel()

	snap := NormalizeSummary(decodeSummary(t, `{
		"ssid":"ODOCO_SETUP",
		"network":{"ap_iface":"wlan1","ap_ip":"192.168.50.1/24","dhcp_range":"192.168.50.10,192.168.50.200,12h","wan_ip":"172.16.1.212"},
		"services":{"hostapd":true,"dnsmasq":true},
		"dns":["nameserver 1.1.1.1","nameserver  8.8.8.8 "],
		"active_server":{"name":"lobby","host":"mc.example.net","port":19132,"edition":"bedrock"}
	}`), time.Now())

	if snap.SSID != "ODOCO_SETUP" || snap.APInterface != "wlan1" || snap.WANIP != "172.16.1.212" {
		t.Fatalf("snap=%+v", snap)
	}
	if len(snap.DNSServers) != 2 || snap.DNSServers[0] != "1.1.1.1" || snap.DNSServers[1] != "8.8.8.8" {
		t.Fatalf("dns=%v", snap.DNSServers)
	}
	if snap.ActiveRelay == nil || snap.ActiveRelay.Port != "19132" || snap.ActiveRelay.Edition != "bedrock" {
		t.Fatalf("relay=%+v", snap.ActiveRelay)
	}
	if label, class := snap.Health(); label != "Online" || class != model.ClassGood {
		t.Fatalf("health=%s/%s", label, class)
	}
}

func TestServicesHealthy_RequiresBoth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		hostapd, dnsmasq any
		want             bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
		{nil, true, false},
		{"active", "active", true},
	}
	for _, tc := range cases {
		snap := NormalizeSummary(api.SummaryResponse{
			Services: &api.SummaryServices{Hostapd: tc.hostapd, Dnsmasq: tc.dnsmasq},
		}, time.Now())
		if got := snap.ServicesHealthy(); got != tc.want {
			t.Fatalf("hostapd=%v dnsmasq=%v healthy=%v", tc.hostapd, tc.dnsmasq, got)
		}
		_, class := snap.Health()
		if !tc.want && class != model.ClassWarn {
			t.Fatalf("class=%s", class)
		}
	}
}

func TestNormalizeWAN_Classes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		state     *string
		wantClass string
		wantLabel string
		wantState string
	}{
		{strp("connected"), model.ClassGood, "Connected", "connected"},
		{strp("disconnected"), model.ClassBad, "Disconnected", "disconnected"},
		{strp("connecting (getting IP configuration)"), model.ClassWarn, "connecting (getting IP configuration)", "connecting (getting IP configuration)"},
		{nil, model.ClassWarn, "unknown", model.Placeholder},
	}
	for _, tc := range cases {
		wan := NormalizeWAN(api.WANStatusResponse{WLAN0: &api.WANDevice{State: tc.state}}, time.Now())
		if wan.Class != tc.wantClass || wan.Label != tc.wantLabel || wan.State != tc.wantState {
			t.Fatalf("wan=%+v", wan)
		}
	}

	wan := NormalizeWAN(api.WANStatusResponse{}, time.Now())
	if wan.ConnectionName != model.Placeholder || wan.Gateway != model.Placeholder || wan.DefaultRoute != model.Placeholder {
		t.Fatalf("wan=%+v", wan)
	}
}

func TestNormalizeClients_Projections(t *testing.T) {
	t.Parallel()

	leases := make([]api.Lease, 20)
	mins := 42.0
	for i := range leases {
		leases[i] = api.Lease{IP: strp("192.168.50.1"), ExpiresInMinutes: &mins}
	}
	view := NormalizeClients(api.ClientsResponse{Clients: leases}, 0, time.Now())
	if len(view.All) != 20 || len(view.Recent) != model.RecentClientsLimit || view.Empty {
		t.Fatalf("all=%d recent=%d empty=%v", len(view.All), len(view.Recent), view.Empty)
	}
	if view.All[0].ExpiresInMinutes == nil || *view.All[0].ExpiresInMinutes != 42 {
		t.Fatalf("expires=%v", view.All[0].ExpiresInMinutes)
	}
	if view.All[0].ExpiryEpoch != nil {
		t.Fatalf("expiry_epoch=%v", *view.All[0].ExpiryEpoch)
	}

	empty := NormalizeClients(api.ClientsResponse{}, 0, time.Now())
	if !empty.Empty || empty.All == nil {
		t.Fatalf("empty=%+v", empty)
	}
}
