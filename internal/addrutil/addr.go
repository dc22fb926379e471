package addrutil

import (
	"net"
	"strconv"
	"strings"
)

// JoinHostPort renders a relay address as "host:port". IPv6 hosts are
// bracketed. A host that already carries a port keeps only its host part
// when port is given. An empty or non-numeric port yields the bare host.
func JoinHostPort(host, port string) string {
	port = strings.TrimSpace(port)
	if _, err := strconv.Atoi(port); err != nil {
		return strings.TrimSpace(host)
	}
	h := hostPart(host)
	if h == "" {
		return ""
	}
	return net.JoinHostPort(h, port)
}

// hostPart extracts the host part of addr, which may or may not carry a port.
func hostPart(addr string) string {
	a := strings.TrimSpace(addr)
	if a == "" {
		return ""
	}

	// Fast path: "host:port" (IPv4 or bracketed IPv6).
	if h, _, err := net.SplitHostPort(a); err == nil {
		return h
	}

	// A bare IPv6 address has several colons and parses as an IP.
	if ip := net.ParseIP(strings.Trim(a, "[]")); ip != nil {
		return ip.String()
	}

	// Unbracketed IPv6 "host:port": peel off the last ":port".
	if strings.Count(a, ":") > 1 && !strings.HasPrefix(a, "[") {
		if last := strings.LastIndexByte(a, ':'); last > 0 && last < len(a)-1 {
			if _, err := strconv.Atoi(a[last+1:]); err == nil {
				return a[:last]
			}
		}
	}
	return strings.Trim(a, "[]")
}
