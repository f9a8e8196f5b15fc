package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/database"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/users"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

// Imports accounts from lines of the form email:name:phone[:role] and prints the generated passwords
func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("importer", flag.ExitOnError)
	var (
		databasePath  = fs.String("database-path", "drone-panel.db", "the path to the sqlite database")
		input         = fs.String("input", "accounts.txt", "the file with one email:name:phone[:role] line per account")
		adminEmail    = fs.String("admin-email", "", "email of an administrator account created if missing")
		adminPassword = fs.String("admin-password", "", "password of that administrator account")
	)
	ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("DP"),
	)

	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = level.NewFilter(l, level.AllowInfo())
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	db, err := database.Open(l, *databasePath, migrations.API)
	if err != nil {
		level.Error(l).Log("msg", "error opening database", "err", err)
		return
	}
	defer db.Close()

	ctx := context.Background()
	s := users.NewService(l, user.NewRepository(l, db), nil)

	if *adminEmail != "" && *adminPassword != "" {
		if _, err := s.EnsureAdmin(ctx, *adminEmail, *adminPassword); err != nil {
			level.Error(l).Log("msg", "error creating administrator", "err", err)
			return
		}
	}

	f, err := os.Open(*input)
	if err != nil {
		level.Error(l).Log("err", err)
		return
	}
	defer f.Close()

	var imported, skipped int
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		in, err := parseLine(text)
		if err != nil {
			level.Error(l).Log("msg", "skipping row", "line", line, "err", err)
			skipped++
			continue
		}
		u, err := s.Create(ctx, in)
		if err != nil {
			level.Error(l).Log("msg", "error creating account", "line", line, "email", in.Email, "err", err)
			skipped++
			continue
		}
		fmt.Printf("%s\t%s\t%s\n", u.Email, u.Role, in.Password)
		imported++
	}
	if err := scanner.Err(); err != nil {
		level.Error(l).Log("msg", "error reading input", "err", err)
	}
	level.Info(l).Log("msg", "import finished", "imported", imported, "skipped", skipped)
}

func parseLine(text string) (users.Input, error) {
	parts := strings.Split(text, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return users.Input{}, errors.Errorf("expected email:name:phone[:role], got %d fields", len(parts))
	}
	in := users.Input{
		Email:    strings.TrimSpace(parts[0]),
		Name:     strings.TrimSpace(parts[1]),
		Phone:    strings.TrimSpace(parts[2]),
		Password: strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
	}
	if len(parts) == 4 {
		in.Role = user.Role(strings.TrimSpace(parts[3]))
	}
	return in, nil
}
