package testutil

import (
	"context"
	"net"
)

// FakeResolver answers DNS lookups from fixed tables. Names missing from a
// table get a not-found DNS error, like NXDOMAIN.
type FakeResolver struct {
	Hosts map[string][]string
	MX    map[string][]*net.MX
	NS    map[string][]*net.NS
	TXT   map[string][]string
	Addr  map[string][]string

	// Err, when set, is returned by every lookup
	Err error
}

func notFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}

func lookup[T any](r *FakeResolver, table map[string]T, name string) (T, error) {
	var zero T
	if r.Err != nil {
		return zero, r.Err
	}
	v, ok := table[name]
	if !ok {
		return zero, notFound(name)
	}
	return v, nil
}

func (r *FakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	return lookup(r, r.Hosts, host)
}

func (r *FakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	return lookup(r, r.MX, name)
}

func (r *FakeResolver) LookupNS(_ context.Context, name string) ([]*net.NS, error) {
	return lookup(r, r.NS, name)
}

func (r *FakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	return lookup(r, r.TXT, name)
}

func (r *FakeResolver) LookupAddr(_ context.Context, addr string) ([]string, error) {
	return lookup(r, r.Addr, addr)
}
