package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/transport"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"
)

func NewHttpClientTransport() transport.IRPCClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	endpoints  []*url.URL
	client     *http.Client
	counter    uint32
	retryCount int
	timeout    time.Duration
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	config.ApplyDefaults()

	// Parse each endpoint URL
	endpoints := make([]*url.URL, len(config.Endpoints))
	for i, endpoint := range config.Endpoints {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return err
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("endpoint %q must be an http or https url", endpoint)
		}
		endpoints[i] = parsed
	}

	dialer := &net.Dialer{Timeout: config.Timeout(), KeepAlive: 30 * time.Second}
	httpTransport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        config.ConnectionsPerEndpoint * len(endpoints),
		MaxIdleConnsPerHost: config.ConnectionsPerEndpoint,
		IdleConnTimeout:     90 * time.Second,
	}
	if config.DNSCacheTime() > 0 {
		cache, err := newDNSCache(config.DNSCacheTime())
		if err != nil {
			return err
		}
		httpTransport.DialContext = cache.dialContext(dialer)
	}

	t.client = &http.Client{Transport: httpTransport}
	t.endpoints = endpoints
	t.counter = 0
	t.retryCount = config.RetryCount
	t.timeout = config.Timeout()

	return nil
}

func (t *httpClientTransport) Send(ctx context.Context, req transport.Request) (*transport.Response, error) {
	// Check if the transport is initialized
	if t.client == nil {
		return nil, &transport.SendError{Err: errors.New("http transport not initialized")}
	}

	// Select the next endpoint via round-robin
	idx := atomic.AddUint32(&t.counter, 1) % uint32(len(t.endpoints))
	endpoint := t.endpoints[idx]
	target := endpoint.JoinPath(req.Path).String()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	// Send the request (with retries)
	var (
		httpResponse *http.Response
		err          error
	)
	for attempt := 0; attempt < t.retryCount; attempt++ {
		var httpRequest *http.Request
		httpRequest, err = http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(req.Body))
		if err != nil {
			return nil, &transport.SendError{Host: endpoint.Host, Err: err}
		}
		for name, values := range req.Header {
			httpRequest.Header[name] = values
		}
		if req.ContentType != "" {
			httpRequest.Header.Set("Content-Type", req.ContentType)
		}

		httpResponse, err = t.client.Do(httpRequest)
		if err == nil || ctx.Err() != nil {
			break
		}
		Logger.Warningf("request %s failed (attempt %d/%d): %v", target, attempt+1, t.retryCount, err)
	}
	if err != nil {
		return nil, &transport.SendError{Host: endpoint.Host, Err: err}
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	// Read the response body
	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, &transport.SendError{Host: endpoint.Host, Header: httpResponse.Header, Err: err}
	}
	return &transport.Response{
		Host:       endpoint.Host,
		StatusCode: httpResponse.StatusCode,
		Header:     httpResponse.Header,
		Body:       body,
	}, nil
}

func (t *httpClientTransport) Close() error {
	// Close the client
	if t.client != nil {
		t.client.CloseIdleConnections()
	}

	// Reset the client and endpoint URLs
	t.client = nil
	t.endpoints = nil

	return nil
}
