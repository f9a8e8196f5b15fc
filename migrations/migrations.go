// Package migrations holds the embedded goose migrations for the API database
// and for the local database used by the field tools.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed api/*.sql agent/*.sql
var FS embed.FS

const (
	// API is the migration set for the backend database
	API = "api"
	// Agent is the migration set for the local cache database of the field agent and panelctl
	Agent = "agent"
)

// Up applies all pending migrations of the given set
func Up(l log.Logger, db *sql.DB, set string) error {
	goose.SetBaseFS(FS)
	goose.SetLogger(&gooseLogger{l: log.With(l, "component", "goose", "set", set)})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Up(db, set); err != nil {
		return errors.Wrapf(err, "applying %s migrations", set)
	}
	return nil
}

// gooseLogger routes goose output through go-kit
type gooseLogger struct {
	l log.Logger
}

func (g *gooseLogger) Fatal(v ...interface{}) {
	level.Error(g.l).Log("err", fmt.Sprint(v...))
	os.Exit(1)
}

func (g *gooseLogger) Fatalf(format string, v ...interface{}) {
	level.Error(g.l).Log("err", fmt.Sprintf(format, v...))
	os.Exit(1)
}

func (g *gooseLogger) Print(v ...interface{}) {
	level.Debug(g.l).Log("msg", fmt.Sprint(v...))
}

func (g *gooseLogger) Println(v ...interface{}) {
	level.Debug(g.l).Log("msg", fmt.Sprint(v...))
}

func (g *gooseLogger) Printf(format string, v ...interface{}) {
	level.Debug(g.l).Log("msg", fmt.Sprintf(format, v...))
}
