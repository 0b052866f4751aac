package http

import (
	"context"
	"fmt"
	lru "github.com/hashicorp/golang-lru"
	"net"
	"time"
)

const dnsCacheSize = 128

type dnsEntry struct {
	addrs   []string
	expires time.Time
}

// dnsCache keeps resolved addresses for ttl.
type dnsCache struct {
	ttl      time.Duration
	cache    *lru.ARCCache
	resolver *net.Resolver
	now      func() time.Time
}

func newDNSCache(ttl time.Duration) (*dnsCache, error) {
	cache, err := lru.NewARC(dnsCacheSize)
	if err != nil {
		return nil, err
	}
	return &dnsCache{ttl: ttl, cache: cache, resolver: net.DefaultResolver, now: time.Now}, nil
}

// lookup returns the addresses of host, from the cache if the entry is still fresh
func (d *dnsCache) lookup(ctx context.Context, host string) ([]string, error) {
	if v, ok := d.cache.Get(host); ok {
		entry := v.(dnsEntry)
		if d.now().Before(entry.expires) {
			return entry.addrs, nil
		}
	}
	addrs, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for %s", host)
	}
	d.cache.Add(host, dnsEntry{addrs: addrs, expires: d.now().Add(d.ttl)})
	Logger.Debugf("resolved %s to %v", host, addrs)
	return addrs, nil
}

// dialContext returns a dial function that resolves through the cache and tries the
// addresses in order.
func (d *dnsCache) dialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if net.ParseIP(host) != nil {
			return dialer.DialContext(ctx, network, addr)
		}
		addrs, err := d.lookup(ctx, host)
		if err != nil {
			return nil, err
		}
		var lastErr error
		for _, ip := range addrs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		// cached addresses may be stale
		d.cache.Remove(host)
		return nil, lastErr
	}
}
