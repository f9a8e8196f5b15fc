package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/database"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/httpx"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/notification"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/auth"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/messaging"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/profile"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/providers"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/requests"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/users"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/servicerequest"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

type maxBytesHandler struct {
	h http.Handler
	n int64
}

func (h *maxBytesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.n)
	h.h.ServeHTTP(w, r)
}

func main() {
	// A missing .env is fine, variables from the environment win
	_ = godotenv.Load()

	fs := flag.NewFlagSet("drone-panel-api", flag.ExitOnError)
	var (
		environment    = fs.String("environment", "develop", "the environment we are running in")
		port           = fs.String("port", "8080", "the port the api is running on")
		databasePath   = fs.String("database-path", "drone-panel.db", "the path to the sqlite database")
		jwtSecret      = fs.String("jwt-secret", "", "the secret used to sign session tokens")
		tokenTTL       = fs.Duration("token-ttl", auth.DefaultTokenTTL, "how long a session token is valid")
		corsOrigins    = fs.String("cors-origins", "", "comma separated list of origins allowed to call the api, empty means same origin only")
		resetURL       = fs.String("reset-url", "http://localhost:8080/reset-password", "the panel page password reset links point to")
		vonageEndpoint = fs.String("vonage-endpoint", notification.DefaultVonageEndpoint, "the vonage sms endpoint")
		webDir         = fs.String("web-dir", "", "directory with the built panel, served on / when set")
		adminEmail     = fs.String("admin-email", "", "email of an administrator account created on startup if missing")
		adminPassword  = fs.String("admin-password", "", "password of the startup administrator account")
	)

	ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("DP"),
	)

	// Most PaaS only hand out a bare PORT
	if os.Getenv("PORT") != "" {
		*port = os.Getenv("PORT")
	}

	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	switch strings.ToLower(*environment) {
	case "development":
		l = level.NewFilter(l, level.AllowInfo())
	case "prod":
		l = level.NewFilter(l, level.AllowError())
	}
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	if *jwtSecret == "" {
		if *environment != "develop" {
			level.Error(l).Log("err", "jwt-secret is required outside of develop")
			return
		}
		*jwtSecret = "develop-secret"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(l, *databasePath, migrations.API)
	if err != nil {
		level.Error(l).Log("msg", "error opening database", "err", err)
		return
	}
	defer db.Close()

	settingsStore := settings.NewStore(l, settings.NewRepository(l, db))
	if _, err := settingsStore.Load(ctx); err != nil {
		level.Error(l).Log("msg", "error loading provider settings", "err", err)
		return
	}

	// For local development the providers are mocks that log what would have been sent
	var provider notification.Provider = notification.NewSettingsProvider(l, &http.Client{Timeout: 15 * time.Second}, *vonageEndpoint, settingsStore)
	if *environment == "develop" {
		provider = notification.NewStaticProvider(
			notification.NewMockRepository(l, "sms"),
			notification.NewMockRepository(l, "email"),
		)
	}

	userRepository := user.NewRepository(l, db)
	tokens := auth.NewTokens(*jwtSecret, *tokenTTL)
	authService := auth.NewService(l, userRepository, tokens, provider, *resetURL)
	usersService := users.NewService(l, userRepository, authService)
	messagingService, err := messaging.NewService(l, provider)
	if err != nil {
		level.Error(l).Log("msg", "error loading message templates", "err", err)
		return
	}

	if *adminEmail != "" && *adminPassword != "" {
		if _, err := usersService.EnsureAdmin(ctx, *adminEmail, *adminPassword); err != nil {
			level.Error(l).Log("msg", "error creating administrator", "err", err)
			return
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Set up HTTP API
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if *corsOrigins != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: strings.Split(*corsOrigins, ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			httpx.JSON(w, http.StatusOK, map[string]string{
				"status": "ok",
				"time":   time.Now().UTC().Format(time.RFC3339),
			})
		})
		r.Mount("/auth", auth.NewHandler(l, authService, tokens))

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(tokens))
			r.Mount("/profile", profile.NewHandler(l, profile.NewService(l, userRepository)))

			requestsService := requests.NewService(l, servicerequest.NewRepository(l, db))
			r.Mount("/service-requests", requests.NewHandler(l, requestsService))

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Mount("/admin/service-requests", requests.NewAdminHandler(l, requestsService))
				r.Mount("/admin/users", users.NewHandler(l, usersService))
				r.Mount("/config", providers.NewHandler(l, providers.NewService(l, settingsStore, provider)))
				r.Mount("/sms", messaging.NewSMSHandler(l, messagingService))
				r.Mount("/email", messaging.NewEmailHandler(l, messagingService))
			})
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if *webDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(*webDir)))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", *port),
		Handler:           &maxBytesHandler{h: r, n: httpx.MaxBodySize},
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

	level.Info(l).Log("msg", fmt.Sprintf("drone-panel api is running on :%s", *port), "environment", *environment)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		level.Error(l).Log("err", err)
		return
	}
	level.Info(l).Log("msg", "drone-panel api stopped")
}
