package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/cache"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/database"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/geocode"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/network"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/offline"
)

// reconnectGrace is how long the "back online" state stays visible before it is acknowledged
const reconnectGrace = 3 * time.Second

type agentStatus struct {
	Version   string          `json:"version"`
	Buckets   offline.Buckets `json:"buckets"`
	Installed bool            `json:"installed"`
	Active    bool            `json:"active"`
	Network   network.Status  `json:"network"`
}

func main() {
	// A missing .env is fine, variables from the environment win
	_ = godotenv.Load()

	fs := flag.NewFlagSet("fieldagent", flag.ExitOnError)
	var (
		environment   = fs.String("environment", "develop", "the environment we are running in")
		port          = fs.String("port", "8081", "the port the field agent is listening on")
		origin        = fs.String("origin", "http://localhost:8080", "the panel the agent fronts")
		databasePath  = fs.String("database-path", database.DefaultLocalPath(), "the path to the local sqlite database, shared with panelctl")
		cacheName     = fs.String("cache-name", "drone-panel", "the name of the response buckets")
		cacheVersion  = fs.String("cache-version", "1", "the bucket generation, bump it to drop cached assets")
		shellAssets   = fs.String("shell-assets", strings.Join(offline.DefaultShellAssets, ","), "comma separated paths precached on install")
		probeSchedule = fs.String("probe-schedule", "@every 15s", "cron schedule of the backend health probe")
		pruneSchedule = fs.String("prune-schedule", "@hourly", "cron schedule of the expired cache entry cleanup")
	)

	ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("DP_AGENT"),
	)

	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	switch strings.ToLower(*environment) {
	case "development":
		l = level.NewFilter(l, level.AllowInfo())
	case "prod":
		l = level.NewFilter(l, level.AllowError())
	}
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	originURL, err := url.Parse(strings.TrimRight(*origin, "/"))
	if err != nil || originURL.Scheme == "" || originURL.Host == "" {
		level.Error(l).Log("msg", "origin must be an absolute url", "origin", *origin)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(l, *databasePath, migrations.Agent)
	if err != nil {
		level.Error(l).Log("msg", "error opening database", "err", err)
		return
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	hc := &http.Client{Timeout: 30 * time.Second}

	worker := offline.NewWorker(log.With(l, "component", "worker"), offline.Config{
		Name:        *cacheName,
		Version:     *cacheVersion,
		Origin:      originURL,
		ShellAssets: strings.Split(*shellAssets, ","),
	}, offline.NewSQLiteStorage(l, db), hc, offline.NewMetrics(reg))
	if err := worker.Start(ctx); err != nil {
		level.Error(l).Log("msg", "error activating worker", "err", err)
		return
	}

	monitor := network.NewMonitor(log.With(l, "component", "monitor"), true)
	sub := monitor.Subscribe(func(e network.Event, s network.Status) {
		if e == network.EventOnline && s.WasOffline {
			level.Info(l).Log("msg", "connection restored, cached data will refresh")
			monitor.AcknowledgeAfter(reconnectGrace)
		}
	})
	defer sub.Close()
	prober := network.NewProber(l, &http.Client{}, originURL.String()+"/api", monitor)
	repo := cache.NewRepository(l, db)
	caches := []*cache.Cache{cache.New(l, repo), geocode.NewCache(l, repo)}

	c := cron.New()
	if _, err := c.AddFunc(*probeSchedule, func() { prober.Probe(ctx) }); err != nil {
		level.Error(l).Log("msg", "invalid probe schedule", "schedule", *probeSchedule, "err", err)
		return
	}
	if _, err := c.AddFunc(*pruneSchedule, func() { pruneCaches(caches...) }); err != nil {
		level.Error(l).Log("msg", "invalid prune schedule", "schedule", *pruneSchedule, "err", err)
		return
	}
	c.Start()
	go prober.Probe(ctx)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/__agent/status", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, agentStatus{
			Version:   *cacheVersion,
			Buckets:   worker.Buckets(),
			Installed: worker.Installed(),
			Active:    worker.Active(),
			Network:   monitor.Status(),
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Handle("/*", worker)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", *port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			level.Error(l).Log("msg", "error shutting down", "err", err)
		}
	}()

	level.Info(l).Log("msg", fmt.Sprintf("field agent is running on :%s", *port), "origin", originURL, "version", *cacheVersion)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		level.Error(l).Log("err", err)
	}

	<-c.Stop().Done()
	worker.Wait()
	level.Info(l).Log("msg", "field agent stopped")
}
