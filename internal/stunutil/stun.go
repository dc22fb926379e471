// Package stunutil discovers the appliance's public mapped address and a
// coarse NAT class for the internet check.
package stunutil

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pion/stun/v3"
)

const (
	NATTypeUnknown          = "unknown"
	NATTypeSymmetric        = "symmetric"
	NATTypeConeOrRestricted = "cone_or_restricted"
)

// DefaultTimeout bounds a single server query.
const DefaultTimeout = 3 * time.Second

// Mapping is the result of a probe.
type Mapping struct {
	PublicAddr string `json:"public_addr"`
	NATType    string `json:"nat_type"`
	Servers    int    `json:"servers"`
}

// Prober queries a fixed list of STUN servers.
type Prober struct {
	Servers []string
	Timeout time.Duration
}

// NewProber creates a prober. A zero timeout uses DefaultTimeout.
func NewProber(servers []string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{Servers: servers, Timeout: timeout}
}

// Probe queries every server and returns the first mapped address. The NAT
// class needs at least two answers; with one it is unknown.
// Note: the mapped address belongs to the probe socket only.
func (p *Prober) Probe(ctx context.Context) (Mapping, error) {
	if len(p.Servers) == 0 {
		return Mapping{NATType: NATTypeUnknown}, fmt.Errorf("no STUN servers provided")
	}

	results := make([]string, 0, len(p.Servers))
	var lastErr error
	for _, server := range p.Servers {
		addr, err := probeServer(ctx, server, p.Timeout)
		if err != nil {
			lastErr = err
			continue
		}
		results = append(results, addr)
	}

	if len(results) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("STUN probe failed")
		}
		return Mapping{NATType: NATTypeUnknown}, lastErr
	}
	return Mapping{PublicAddr: results[0], NATType: Classify(results), Servers: len(results)}, nil
}

// Classify infers NAT type by comparing mapped addresses from multiple servers.
func Classify(addrs []string) string {
	if len(addrs) < 2 {
		return NATTypeUnknown
	}
	for _, addr := range addrs[1:] {
		if addr != addrs[0] {
			return NATTypeSymmetric
		}
	}
	return NATTypeConeOrRestricted
}

// serverURI accepts "host:port" or a full "stun:" URI.
func serverURI(server string) (*stun.URI, error) {
	uriStr := strings.TrimSpace(server)
	if uriStr == "" {
		return nil, fmt.Errorf("empty STUN server")
	}
	if !strings.HasPrefix(uriStr, "stun:") {
		uriStr = "stun:" + uriStr
	}
	return stun.ParseURI(uriStr)
}

func probeServer(ctx context.Context, server string, timeout time.Duration) (string, error) {
	uri, err := serverURI(server)
	if err != nil {
		return "", err
	}

	client, err := stun.DialURI(uri, &stun.DialConfig{})
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", server, err)
	}
	defer client.Close()

	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	result := make(chan stun.XORMappedAddress, 1)
	fail := make(chan error, 1)

	go func() {
		var addr stun.XORMappedAddress
		err := client.Do(msg, func(res stun.Event) {
			if res.Error != nil {
				fail <- res.Error
				return
			}
			if err := addr.GetFrom(res.Message); err != nil {
				fail <- err
				return
			}
			result <- addr
		})
		if err != nil {
			fail <- err
		}
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case addr := <-result:
		return addr.String(), nil
	case err := <-fail:
		return "", fmt.Errorf("stun %s: %w", server, err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
