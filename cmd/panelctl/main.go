package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/cache"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/client"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/database"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/dispatch"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/geocode"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/network"
)

// panel holds what every subcommand needs, it is filled in by setup once the root flags are parsed
type panel struct {
	apiURL       *string
	databasePath *string
	nominatim    *string
	verbose      *bool

	l        log.Logger
	db       *sqlx.DB
	hc       *http.Client
	store    cache.Repository
	monitor  *network.Monitor
	client   *client.Client
	dispatch *dispatch.Service
}

func main() {
	_ = godotenv.Load()

	p := &panel{}
	fs := flag.NewFlagSet("panelctl", flag.ExitOnError)
	p.apiURL = fs.String("api-url", "http://localhost:8080/api", "the panel api")
	p.databasePath = fs.String("database-path", database.DefaultLocalPath(), "where the session and offline cache are kept, shared with the field agent")
	p.nominatim = fs.String("nominatim-url", geocode.DefaultEndpoint, "the nominatim instance used by map")
	p.verbose = fs.Bool("verbose", false, "log debug output to stderr")

	root := &ffcli.Command{
		ShortUsage: "panelctl [flags] <subcommand> [flags] [args...]",
		FlagSet:    fs,
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("DP"),
		},
		Subcommands: []*ffcli.Command{
			p.loginCommand(),
			p.logoutCommand(),
			p.meCommand(),
			p.requestsCommand(),
			p.requestCommand(),
			p.statusCommand(),
			p.usersCommand(),
			p.mapCommand(),
		},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}

	if err := root.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	if err := root.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		p.close()
		os.Exit(1)
	}
	p.close()
}

// setup opens the local database, probes the backend and builds the api client
func (p *panel) setup(ctx context.Context) error {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	if *p.verbose {
		l = level.NewFilter(l, level.AllowDebug())
	} else {
		l = level.NewFilter(l, level.AllowWarn())
	}
	p.l = log.With(l, "ts", log.DefaultTimestampUTC)

	db, err := database.Open(p.l, *p.databasePath, migrations.Agent)
	if err != nil {
		return err
	}
	p.db = db
	p.store = cache.NewRepository(p.l, db)

	p.hc = &http.Client{Timeout: 20 * time.Second}
	p.monitor = network.NewMonitor(p.l, true)
	network.NewProber(p.l, p.hc, *p.apiURL, p.monitor).Probe(ctx)

	p.client = client.New(p.l, p.hc, *p.apiURL, p.store, cache.New(p.l, p.store), p.monitor)
	p.dispatch = dispatch.NewService(p.l, p.client)
	return nil
}

func (p *panel) close() {
	if p.db != nil {
		p.db.Close()
	}
}

// offlineNotice tells the user the data shown comes from the cache
func (p *panel) offlineNotice(key string) {
	if p.monitor.IsOnline() {
		return
	}
	if at, ok := p.client.CachedAt(key); ok {
		fmt.Fprintf(os.Stderr, "offline: showing data cached at %s\n", at.Local().Format("2006-01-02 15:04"))
		return
	}
	fmt.Fprintln(os.Stderr, "offline")
}

func (p *panel) requireSession() error {
	if p.client.Token() == "" {
		return errors.New("not logged in, run panelctl login first")
	}
	return nil
}
