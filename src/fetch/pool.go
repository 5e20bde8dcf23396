// Package fetch implements the HTTP client pool, proxy rotation,
// header shaping, and outcome classification for page fetches.
package fetch

import (
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/corrinfell/weave/src/config"
)

// clientPool holds a small number of long-lived HTTP clients indexed
// by proxy URL (including a direct-connection client under the empty
// key), each with its own keep-alive connection pool. Generalizes the
// teacher's single shared http.Client (crawler.New) to support proxy
// rotation.
type clientPool struct {
	mu      sync.Mutex
	clients map[string]*http.Client
	proxies []string

	poolSize     int
	idleTimeout  time.Duration
	requestTimeout time.Duration
}

func newClientPool(cfg config.PolicyConfig) *clientPool {
	poolSize := cfg.ConnectionPoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	idleTimeout := cfg.ConnectionIdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 90 * time.Second
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return &clientPool{
		clients:        make(map[string]*http.Client),
		proxies:        cfg.ProxyPool,
		poolSize:       poolSize,
		idleTimeout:    idleTimeout,
		requestTimeout: requestTimeout,
	}
}

// pick selects a proxy at random from the configured pool (no session
// affinity) and returns the client bound to it. An empty pool always
// returns the direct-connection client.
func (p *clientPool) pick() *http.Client {
	proxy := ""
	if len(p.proxies) > 0 {
		proxy = p.proxies[rand.Intn(len(p.proxies))]
	}
	return p.clientFor(proxy)
}

func (p *clientPool) clientFor(proxyURL string) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[proxyURL]; ok {
		return c
	}

	transport := &http.Transport{
		MaxIdleConns:        p.poolSize,
		MaxIdleConnsPerHost: p.poolSize,
		IdleConnTimeout:     p.idleTimeout,
	}
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   p.requestTimeout,
	}
	p.clients[proxyURL] = client
	return client
}
