// Package render prints view-model values as plain text columns.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"apctl/internal/activity"
	"apctl/internal/metrics"
	"apctl/internal/model"
)

const barWidth = 20

// Summary prints the AP/LAN block, services, DNS and the active relay.
func Summary(w io.Writer, s model.StatusSnapshot, wanIP string) {
	label, _ := s.Health()
	fmt.Fprintf(w, "ssid=%s services=%s\n", s.SSID, label)
	fmt.Fprintf(w, "ap_iface=%s ap_ip=%s dhcp_range=%s\n", s.APInterface, s.APIP, s.DHCPRange)
	fmt.Fprintf(w, "wan_ip=%s\n", orPlaceholder(wanIP))
	fmt.Fprintf(w, "hostapd=%s dnsmasq=%s\n", activeLabel(s.ServiceActive("hostapd")), activeLabel(s.ServiceActive("dnsmasq")))
	if len(s.DNSServers) == 0 {
		fmt.Fprintf(w, "dns=%s\n", model.Placeholder)
	} else {
		fmt.Fprintf(w, "dns=%s\n", strings.Join(s.DNSServers, " "))
	}
	if s.ActiveRelay == nil {
		fmt.Fprintln(w, "No active server.")
		return
	}
	r := s.ActiveRelay
	fmt.Fprintf(w, "server name=%s host=%s port=%s edition=%s\n", r.Name, r.Host, r.Port, r.Edition)
}

// WAN prints the upstream link status.
func WAN(w io.Writer, s model.WanStatus) {
	fmt.Fprintf(w, "wan=%s connection=%s state=%s\n", s.Label, s.ConnectionName, s.State)
	fmt.Fprintf(w, "gateway=%s route=%s\n", s.Gateway, s.DefaultRoute)
}

// Clients prints the recent projection, or every lease when all is set.
func Clients(w io.Writer, c model.ClientsView, all bool) {
	if c.Empty {
		fmt.Fprintln(w, "No clients.")
		return
	}
	if !all {
		fmt.Fprintf(w, "%-15s  %-17s  %-20s  %-8s\n", "IP", "MAC", "HOSTNAME", "EXPIRES")
		for _, l := range c.Recent {
			fmt.Fprintf(w, "%-15s  %-17s  %-20s  %-8s\n", l.IP, l.MAC, l.Hostname, minutes(l.ExpiresInMinutes))
		}
		if len(c.All) > len(c.Recent) {
			fmt.Fprintf(w, "... %d more (use --all)\n", len(c.All)-len(c.Recent))
		}
		return
	}
	fmt.Fprintf(w, "%-15s  %-17s  %-20s  %-24s  %-20s\n", "IP", "MAC", "HOSTNAME", "CLIENT_ID", "EXPIRY")
	for _, l := range c.All {
		fmt.Fprintf(w, "%-15s  %-17s  %-20s  %-24s  %-20s\n", l.IP, l.MAC, l.Hostname, l.ClientID, epoch(l.ExpiryEpoch))
	}
}

// Networks prints scan rows in backend order.
func Networks(w io.Writer, r model.ScanResult) {
	if r.Empty() {
		fmt.Fprintln(w, "No networks detected.")
		return
	}
	fmt.Fprintf(w, "%-32s  %-*s  %4s  %-12s  %-9s\n", "SSID", barWidth, "SIGNAL", "%", "SECURITY", "STATUS")
	for _, n := range r.Networks {
		state := "available"
		if n.InUse {
			state = "in use"
		}
		fmt.Fprintf(w, "%-32s  %-*s  %4d  %-12s  %-9s\n", n.SSID, barWidth, Bar(n.SignalPercent), n.SignalPercent, n.Security, state)
	}
}

// Bar draws a signal bar. Any network gets at least a sliver.
func Bar(percent int) string {
	if percent < 2 {
		percent = 2
	}
	if percent > 100 {
		percent = 100
	}
	filled := (percent*barWidth + 50) / 100
	if filled < 1 {
		filled = 1
	}
	return strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
}

// ConnectResult prints the outcome of a connect attempt.
func ConnectResult(w io.Writer, s model.SessionView, r model.ConnectResult) {
	fmt.Fprintf(w, "%s\n", s.Message)
	if !r.Checks.Reported() {
		fmt.Fprintf(w, "ok=%t checks=not reported\n", r.OK)
		return
	}
	fmt.Fprintf(w, "ok=%t gateway_ping=%s internet_ping=%s dns_resolve=%s\n",
		r.OK, model.FormatBool(r.Checks.GatewayPing), model.FormatBool(r.Checks.InternetPing), model.FormatBool(r.Checks.DNSResolve))
}

// Internet prints the internet check.
func Internet(w io.Writer, c model.InternetCheck) {
	if !c.Available {
		fmt.Fprintln(w, "Internet endpoint not available (/wan/internet).")
	} else {
		fmt.Fprintf(w, "internet=%s ping=%s dns=%s\n", okLabel(c.OK), model.FormatBool(c.PingOK), model.FormatBool(c.DNSOK))
	}
	if c.PublicAddr != "" {
		fmt.Fprintf(w, "public_addr=%s nat=%s\n", c.PublicAddr, c.NATType)
	}
}

// Log prints activity entries newest first.
func Log(w io.Writer, entries []activity.Entry) {
	for _, e := range entries {
		fmt.Fprintln(w, e.String())
	}
}

// Attempts prints connect history.
func Attempts(w io.Writer, attempts []model.ConnectAttempt) {
	if len(attempts) == 0 {
		fmt.Fprintln(w, "No connect attempts.")
		return
	}
	fmt.Fprintf(w, "%-20s  %-24s  %-4s  %-16s  %-9s  %-9s  %-9s  %s\n", "TIME", "SSID", "WAIT", "OUTCOME", "GW_PING", "INET", "DNS", "ERROR")
	for _, a := range attempts {
		fmt.Fprintf(w, "%-20s  %-24s  %-4d  %-16s  %-9s  %-9s  %-9s  %s\n",
			a.Timestamp.Local().Format("2006-01-02 15:04:05"), a.SSID, a.WaitSeconds, a.Outcome,
			model.FormatBool(a.Checks.GatewayPing), model.FormatBool(a.Checks.InternetPing), model.FormatBool(a.Checks.DNSResolve),
			a.Error)
	}
}

// Signal prints per-SSID signal statistics.
func Signal(w io.Writer, summaries []metrics.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No signal samples.")
		return
	}
	fmt.Fprintf(w, "%-32s  %-12s  %7s  %5s  %5s  %5s  %5s  %5s  %6s\n", "SSID", "SECURITY", "SAMPLES", "AVG", "P95", "MIN", "MAX", "LAST", "IN_USE")
	for _, s := range summaries {
		fmt.Fprintf(w, "%-32s  %-12s  %7d  %5.1f  %5d  %5d  %5d  %5d  %6d\n",
			s.SSID, s.Security, s.Count, s.AvgSignal, s.P95Signal, s.MinSignal, s.MaxSignal, s.LastSignal, s.InUse)
	}
}

func minutes(v *int64) string {
	if v == nil {
		return model.Placeholder
	}
	return strconv.FormatInt(*v, 10)
}

func epoch(v *int64) string {
	if v == nil {
		return model.Placeholder
	}
	return time.Unix(*v, 0).Local().Format("2006-01-02 15:04:05")
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func okLabel(ok bool) string {
	if ok {
		return "OK"
	}
	return "FAIL"
}

func orPlaceholder(v string) string {
	if v == "" {
		return model.Placeholder
	}
	return v
}
