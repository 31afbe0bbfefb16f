package urlcheck

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// LookupFunc resolves a hostname to addresses for one family ("ip4" or
// "ip6"). It exists so tests can substitute resolution results.
type LookupFunc func(ctx context.Context, network, host string) ([]net.IP, error)

// resolveTimeout bounds the combined A/AAAA lookup.
const resolveTimeout = 5 * time.Second

// ValidateResolved re-validates a webhook URL at send time: it resolves the
// hostname's A and AAAA records and classifies every address. This closes the
// rebinding gap left by the registration-time string check; it must run
// immediately before each physical delivery attempt.
//
// The host is rejected when both families fail to resolve, when both resolve
// empty, or when any resolved address is blocked.
func (v *Validator) ValidateResolved(ctx context.Context, rawURL string) bool {
	return v.validateResolved(ctx, rawURL, nil)
}

func (v *Validator) validateResolved(ctx context.Context, rawURL string, lookup LookupFunc) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		v.reject(rawURL, "parse_error")
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		v.reject(rawURL, "empty_host")
		return false
	}

	// Address literals need no lookup; classify directly.
	if IsAddrLiteral(host) {
		if IsBlockedAddr(host) {
			v.reject(rawURL, "blocked_address")
			return false
		}
		return true
	}

	if lookup == nil {
		resolver := &net.Resolver{}
		lookup = resolver.LookupIP
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	var v4Addrs, v6Addrs []net.IP
	var v4Err, v6Err error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v4Addrs, v4Err = lookup(gctx, "ip4", host)
		return nil
	})
	g.Go(func() error {
		v6Addrs, v6Err = lookup(gctx, "ip6", host)
		return nil
	})
	_ = g.Wait()

	if (v4Err != nil || len(v4Addrs) == 0) && (v6Err != nil || len(v6Addrs) == 0) {
		v.reject(rawURL, "unresolvable")
		return false
	}

	for _, ip := range append(v4Addrs, v6Addrs...) {
		if isBlockedIP(ip) {
			if v.metrics != nil {
				v.metrics.DNSRebindRejectionTotal.Inc()
			}
			v.reject(rawURL, "resolved_blocked_address")
			return false
		}
	}

	return true
}

// isBlockedIP classifies a parsed net.IP. To4 also unwraps IPv4-mapped IPv6
// addresses, so the embedded-address bypass stays closed on the resolution
// path as well.
func isBlockedIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		addr := uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3])
		return IsBlockedIPv4(addr)
	}
	v6 := ip.To16()
	if v6 == nil {
		return true
	}
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(v6[i])
	}
	for i := 8; i < 16; i++ {
		lo = lo<<8 | uint64(v6[i])
	}
	return IsBlockedIPv6(hi, lo)
}
