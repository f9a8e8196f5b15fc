// Package offline is the field agent's answer to a service worker: an HTTP proxy in
// front of the panel that keeps versioned buckets of responses and picks a caching
// strategy per request so the panel stays usable without network.
package offline

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Strategy decides where a response comes from
type Strategy int

const (
	Passthrough Strategy = iota
	NetworkFirst
	CacheFirst
	StaleWhileRevalidate
)

func (s Strategy) String() string {
	switch s {
	case NetworkFirst:
		return "network-first"
	case CacheFirst:
		return "cache-first"
	case StaleWhileRevalidate:
		return "stale-while-revalidate"
	}
	return "passthrough"
}

const (
	DefaultAPIPrefix      = "/api/"
	DefaultRefreshTimeout = 30 * time.Second
)

var (
	// DefaultCacheFirstHosts serve immutable tiles, libraries and fonts
	DefaultCacheFirstHosts = []string{
		"tile.openstreetmap.org",
		"unpkg.com",
		"cdnjs.cloudflare.com",
		"cdn.jsdelivr.net",
		"fonts.googleapis.com",
		"fonts.gstatic.com",
	}
	// DefaultShellAssets is what the panel needs to boot without network
	DefaultShellAssets = []string{"/", "/index.html", "/manifest.json"}
)

var cacheFirstExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
}

var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
}

// Config describes the panel the worker fronts
type Config struct {
	Name            string
	Version         string
	Origin          *url.URL
	ShellAssets     []string
	APIPrefix       string
	CacheFirstHosts []string
	RefreshTimeout  time.Duration
}

// Buckets are the names of one cache generation
type Buckets struct {
	Generic string `json:"generic"`
	Static  string `json:"static"`
	Dynamic string `json:"dynamic"`
}

// NewBuckets names the generation of version
func NewBuckets(name string, version string) Buckets {
	return Buckets{
		Generic: name + "-v" + version,
		Static:  name + "-static-v" + version,
		Dynamic: name + "-dynamic-v" + version,
	}
}

// Current reports whether bucket belongs to this generation
func (b Buckets) Current(bucket string) bool {
	return bucket == b.Generic || bucket == b.Static || bucket == b.Dynamic
}

// Fetcher performs outgoing requests, *http.Client implements it
type Fetcher interface {
	Do(r *http.Request) (*http.Response, error)
}

// Worker is an http.Handler applying the caching strategies once activated
type Worker struct {
	l       log.Logger
	cfg     Config
	buckets Buckets
	storage Storage
	fetcher Fetcher
	metrics *Metrics
	now     func() time.Time

	mu        sync.RWMutex
	installed bool
	active    bool

	refreshes sync.WaitGroup
}

// NewWorker initializes a worker. metrics may be nil.
func NewWorker(l log.Logger, cfg Config, storage Storage, fetcher Fetcher, metrics *Metrics) *Worker {
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = DefaultAPIPrefix
	}
	if cfg.CacheFirstHosts == nil {
		cfg.CacheFirstHosts = DefaultCacheFirstHosts
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	return &Worker{
		l:       l,
		cfg:     cfg,
		buckets: NewBuckets(cfg.Name, cfg.Version),
		storage: storage,
		fetcher: fetcher,
		metrics: metrics,
		now:     time.Now,
	}
}

// Buckets returns the current generation
func (w *Worker) Buckets() Buckets {
	return w.buckets
}

// Install precaches the shell. Like cache.addAll it stores nothing unless every asset was fetched.
func (w *Worker) Install(ctx context.Context) error {
	for _, b := range []string{w.buckets.Generic, w.buckets.Static} {
		if err := w.storage.Open(ctx, b); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(w.cfg.ShellAssets))
	fetched := make([]*Response, 0, len(w.cfg.ShellAssets))
	for _, asset := range w.cfg.ShellAssets {
		ref, err := url.Parse(asset)
		if err != nil {
			return errors.Wrapf(err, "parsing shell asset %q", asset)
		}
		target := w.cfg.Origin.ResolveReference(ref)
		resp, err := w.fetch(ctx, nil, target)
		if err != nil {
			return errors.Wrapf(err, "fetching shell asset %s", asset)
		}
		if !success(resp.Status) {
			return errors.Errorf("fetching shell asset %s: status %d", asset, resp.Status)
		}
		keys = append(keys, target.String())
		fetched = append(fetched, resp)
	}
	for i, resp := range fetched {
		if err := w.storage.Put(ctx, w.buckets.Static, keys[i], resp); err != nil {
			return err
		}
	}

	w.mu.Lock()
	w.installed = true
	w.mu.Unlock()
	level.Info(w.l).Log("msg", "worker installed", "bucket", w.buckets.Static, "assets", len(fetched))
	return nil
}

// Activate drops every bucket of other generations and starts intercepting requests
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.storage.Names(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if w.buckets.Current(name) {
			continue
		}
		if err := w.storage.Delete(ctx, name); err != nil {
			return err
		}
		level.Info(w.l).Log("msg", "deleted stale bucket", "bucket", name)
	}

	w.mu.Lock()
	w.active = true
	w.mu.Unlock()
	w.metrics.activated()
	level.Info(w.l).Log("msg", "worker activated", "version", w.cfg.Version)
	return nil
}

// Start installs and activates. A failed install is logged and the worker activates anyway,
// buckets of this generation kept from an earlier run still serve.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.Install(ctx); err != nil {
		level.Error(w.l).Log("msg", "install failed, activating without a fresh shell", "err", err)
	}
	return w.Activate(ctx)
}

// Active reports whether requests are being intercepted
func (w *Worker) Active() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// Installed reports whether this process precached the shell
func (w *Worker) Installed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.installed
}

// Wait blocks until background refreshes are done
func (w *Worker) Wait() {
	w.refreshes.Wait()
}

// Route picks the strategy for r
func (w *Worker) Route(r *http.Request) Strategy {
	u := w.target(r)
	if r.Method != http.MethodGet || (u.Scheme != "http" && u.Scheme != "https") {
		return Passthrough
	}
	if strings.Contains(u.Path, w.cfg.APIPrefix) {
		return NetworkFirst
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if cacheFirstExtensions[ext] || w.trustedHost(u.Hostname()) {
		return CacheFirst
	}
	if ext == ".js" || ext == ".css" {
		return StaleWhileRevalidate
	}
	if isNavigation(r) {
		return NetworkFirst
	}
	return StaleWhileRevalidate
}

func (w *Worker) trustedHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range w.cfg.CacheFirstHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func isNavigation(r *http.Request) bool {
	return r.Header.Get("Sec-Fetch-Mode") == "navigate" || strings.Contains(r.Header.Get("Accept"), "text/html")
}

// target is the URL r is meant for. Absolute request targets are forward proxy requests,
// everything else goes to the origin.
func (w *Worker) target(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		return r.URL
	}
	return w.cfg.Origin.ResolveReference(&url.URL{Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: r.URL.RawQuery})
}

func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		http.Error(rw, "tunnelling is not supported", http.StatusMethodNotAllowed)
		return
	}
	target := w.target(r)
	s := Passthrough
	if w.Active() {
		s = w.Route(r)
	}
	switch s {
	case NetworkFirst:
		w.networkFirst(rw, r, target)
	case CacheFirst:
		w.cacheFirst(rw, r, target)
	case StaleWhileRevalidate:
		w.staleWhileRevalidate(rw, r, target)
	default:
		w.passthrough(rw, r, target)
	}
}

func (w *Worker) networkFirst(rw http.ResponseWriter, r *http.Request, target *url.URL) {
	ctx := r.Context()
	key := target.String()
	resp, err := w.fetch(ctx, r.Header, target)
	if err == nil {
		w.storeDynamic(ctx, key, resp)
		w.respond(rw, resp, NetworkFirst, SourceNetwork)
		return
	}
	level.Debug(w.l).Log("msg", "network failed, trying cache", "url", key, "err", err)

	if cached := w.match(ctx, key); cached != nil {
		w.respond(rw, cached, NetworkFirst, SourceCache)
		return
	}
	if isNavigation(r) {
		if shell := w.match(ctx, w.shellKey()); shell != nil {
			w.respond(rw, shell, NetworkFirst, SourceShell)
			return
		}
	}
	w.respond(rw, offlineResponse(), NetworkFirst, SourceOffline)
}

func (w *Worker) cacheFirst(rw http.ResponseWriter, r *http.Request, target *url.URL) {
	ctx := r.Context()
	key := target.String()
	if cached := w.match(ctx, key); cached != nil {
		w.respond(rw, cached, CacheFirst, SourceCache)
		return
	}
	resp, err := w.fetch(ctx, r.Header, target)
	if err != nil {
		level.Debug(w.l).Log("msg", "network failed with nothing cached", "url", key, "err", err)
		w.respond(rw, offlineResponse(), CacheFirst, SourceOffline)
		return
	}
	w.storeDynamic(ctx, key, resp)
	w.respond(rw, resp, CacheFirst, SourceNetwork)
}

func (w *Worker) staleWhileRevalidate(rw http.ResponseWriter, r *http.Request, target *url.URL) {
	ctx := r.Context()
	key := target.String()
	if cached := w.match(ctx, key); cached != nil {
		w.respond(rw, cached, StaleWhileRevalidate, SourceCache)
		w.revalidate(r.Header.Clone(), target)
		return
	}
	resp, err := w.fetch(ctx, r.Header, target)
	if err != nil {
		level.Debug(w.l).Log("msg", "network failed with nothing cached", "url", key, "err", err)
		w.respond(rw, offlineResponse(), StaleWhileRevalidate, SourceOffline)
		return
	}
	w.storeDynamic(ctx, key, resp)
	w.respond(rw, resp, StaleWhileRevalidate, SourceNetwork)
}

// revalidate refreshes the cached copy in the background, failures only keep the old copy
func (w *Worker) revalidate(header http.Header, target *url.URL) {
	w.refreshes.Add(1)
	go func() {
		defer w.refreshes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.RefreshTimeout)
		defer cancel()
		resp, err := w.fetch(ctx, header, target)
		if err != nil {
			level.Debug(w.l).Log("msg", "background refresh failed", "url", target.String(), "err", err)
			return
		}
		w.storeDynamic(ctx, target.String(), resp)
	}()
}

func (w *Worker) passthrough(rw http.ResponseWriter, r *http.Request, target *url.URL) {
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), r.Body)
	if err != nil {
		http.Error(rw, "Bad Gateway", http.StatusBadGateway)
		return
	}
	out.Header = r.Header.Clone()
	removeHopHeaders(out.Header)
	out.ContentLength = r.ContentLength

	resp, err := w.fetcher.Do(out)
	if err != nil {
		level.Debug(w.l).Log("msg", "passthrough request failed", "method", r.Method, "url", target.String(), "err", err)
		w.metrics.response(Passthrough, SourceOffline)
		http.Error(rw, "Bad Gateway", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	copyHeader(rw.Header(), resp.Header)
	rw.WriteHeader(resp.StatusCode)
	io.Copy(rw, resp.Body)
	w.metrics.response(Passthrough, SourceNetwork)
}

func (w *Worker) fetch(ctx context.Context, header http.Header, target *url.URL) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if header != nil {
		req.Header = header.Clone()
		removeHopHeaders(req.Header)
		// the transport decompresses transparently only when it asked for gzip itself
		req.Header.Del("Accept-Encoding")
	}
	resp, err := w.fetcher.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: w.now(),
	}, nil
}

// storeDynamic keeps successful responses only
func (w *Worker) storeDynamic(ctx context.Context, key string, resp *Response) {
	if !success(resp.Status) {
		return
	}
	if err := w.storage.Put(ctx, w.buckets.Dynamic, key, resp); err != nil {
		level.Error(w.l).Log("msg", "error caching response", "url", key, "err", err)
	}
}

// match prefers DYNAMIC, which holds the latest refresh, over the install-time copies
func (w *Worker) match(ctx context.Context, key string) *Response {
	resp, ok, err := w.storage.Match(ctx, w.buckets.Dynamic, key)
	if err != nil {
		level.Error(w.l).Log("msg", "error reading cache", "url", key, "err", err)
		return nil
	}
	if ok {
		return resp
	}
	resp, ok, err = w.storage.MatchAny(ctx, key)
	if err != nil {
		level.Error(w.l).Log("msg", "error reading cache", "url", key, "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	return resp
}

func (w *Worker) shellKey() string {
	return w.cfg.Origin.ResolveReference(&url.URL{Path: "/"}).String()
}

func (w *Worker) respond(rw http.ResponseWriter, resp *Response, s Strategy, source string) {
	copyHeader(rw.Header(), resp.Header)
	rw.WriteHeader(resp.Status)
	rw.Write(resp.Body)
	w.metrics.response(s, source)
}

func offlineResponse() *Response {
	return &Response{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:   []byte("Offline"),
	}
}

func success(status int) bool {
	return status >= 200 && status <= 299
}

func copyHeader(dst http.Header, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	removeHopHeaders(dst)
	dst.Del("Content-Length")
}

func removeHopHeaders(h http.Header) {
	for _, k := range hopHeaders {
		h.Del(k)
	}
}
