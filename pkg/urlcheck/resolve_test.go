package urlcheck

import (
	"context"
	"errors"
	"net"
	"testing"
)

// fakeLookup builds a LookupFunc from fixed per-family results
func fakeLookup(v4 []net.IP, v4Err error, v6 []net.IP, v6Err error) LookupFunc {
	return func(ctx context.Context, network, host string) ([]net.IP, error) {
		if network == "ip4" {
			return v4, v4Err
		}
		return v6, v6Err
	}
}

func TestValidateResolved_PublicAddress(t *testing.T) {
	v := newTestValidator(t, Options{})
	lookup := fakeLookup([]net.IP{net.ParseIP("93.184.216.34")}, nil, nil, errors.New("no AAAA"))

	if !v.validateResolved(context.Background(), "https://example.com/hook", lookup) {
		t.Error("expected URL resolving to a public address to pass")
	}
}

func TestValidateResolved_RebindToLoopback(t *testing.T) {
	v := newTestValidator(t, Options{})

	// The string check passed at registration; the record now points inside.
	lookup := fakeLookup([]net.IP{net.ParseIP("127.0.0.1")}, nil, nil, errors.New("no AAAA"))
	if v.validateResolved(context.Background(), "https://rebind.example.com/hook", lookup) {
		t.Error("expected URL resolving to loopback to be rejected")
	}
}

func TestValidateResolved_MixedRecords(t *testing.T) {
	v := newTestValidator(t, Options{})

	// One public record does not excuse a blocked one.
	lookup := fakeLookup(
		[]net.IP{net.ParseIP("93.184.216.34"), net.ParseIP("10.0.0.5")}, nil,
		nil, errors.New("no AAAA"),
	)
	if v.validateResolved(context.Background(), "https://mixed.example.com/hook", lookup) {
		t.Error("expected any blocked resolved address to reject the URL")
	}
}

func TestValidateResolved_BlockedAAAA(t *testing.T) {
	v := newTestValidator(t, Options{})

	lookup := fakeLookup(
		[]net.IP{net.ParseIP("93.184.216.34")}, nil,
		[]net.IP{net.ParseIP("fd00::1")}, nil,
	)
	if v.validateResolved(context.Background(), "https://dual.example.com/hook", lookup) {
		t.Error("expected blocked AAAA record to reject the URL")
	}
}

func TestValidateResolved_Unresolvable(t *testing.T) {
	v := newTestValidator(t, Options{})

	lookup := fakeLookup(nil, errors.New("NXDOMAIN"), nil, errors.New("NXDOMAIN"))
	if v.validateResolved(context.Background(), "https://nx.example.com/hook", lookup) {
		t.Error("expected unresolvable host to be rejected")
	}

	empty := fakeLookup(nil, nil, nil, nil)
	if v.validateResolved(context.Background(), "https://empty.example.com/hook", empty) {
		t.Error("expected host with no records to be rejected")
	}
}

func TestValidateResolved_OneFamilySuffices(t *testing.T) {
	v := newTestValidator(t, Options{})

	v6Only := fakeLookup(nil, errors.New("no A"), []net.IP{net.ParseIP("2606:4700:4700::1111")}, nil)
	if !v.validateResolved(context.Background(), "https://v6.example.com/hook", v6Only) {
		t.Error("expected AAAA-only host with a public address to pass")
	}
}

func TestValidateResolved_LiteralSkipsLookup(t *testing.T) {
	v := newTestValidator(t, Options{})

	called := false
	lookup := func(ctx context.Context, network, host string) ([]net.IP, error) {
		called = true
		return nil, errors.New("must not be called")
	}

	if v.validateResolved(context.Background(), "https://[::1]/hook", lookup) {
		t.Error("expected loopback literal to be rejected")
	}
	if !v.validateResolved(context.Background(), "https://8.8.8.8/hook", lookup) {
		t.Error("expected public literal to pass")
	}
	if called {
		t.Error("expected address literals to bypass DNS resolution")
	}
}

func TestValidateResolved_MappedResolution(t *testing.T) {
	v := newTestValidator(t, Options{})

	// A resolver returning an IPv4-mapped IPv6 address is classified by the
	// embedded IPv4 address.
	lookup := fakeLookup(nil, errors.New("no A"), []net.IP{net.ParseIP("::ffff:192.168.1.1")}, nil)
	if v.validateResolved(context.Background(), "https://mapped.example.com/hook", lookup) {
		t.Error("expected mapped private address to be rejected")
	}
}
