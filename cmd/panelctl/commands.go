package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/client"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/dispatch"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/geocode"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/requests"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/servicerequest"
)

func (p *panel) loginCommand() *ffcli.Command {
	fs := flag.NewFlagSet("panelctl login", flag.ExitOnError)
	password := fs.String("password", "", "the account password, read from stdin when empty")
	return &ffcli.Command{
		Name:       "login",
		ShortUsage: "panelctl login [-password <password>] <email>",
		ShortHelp:  "Sign in and keep the session",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return flag.ErrHelp
			}
			if err := p.setup(ctx); err != nil {
				return err
			}
			pw := *password
			if pw == "" {
				fmt.Fprint(os.Stderr, "password: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return errors.Wrap(err, "reading password")
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			s, err := p.client.Login(ctx, args[0], pw)
			if err != nil {
				return err
			}
			fmt.Printf("signed in as %s (%s)\n", s.User.Name, s.User.Role)
			return nil
		},
	}
}

func (p *panel) logoutCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "logout",
		ShortUsage: "panelctl logout",
		ShortHelp:  "End the session and drop cached data",
		Exec: func(ctx context.Context, args []string) error {
			if err := p.setup(ctx); err != nil {
				return err
			}
			p.client.Logout(ctx)
			fmt.Println("signed out")
			return nil
		},
	}
}

func (p *panel) meCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "me",
		ShortUsage: "panelctl me",
		ShortHelp:  "Show the signed in account",
		Exec: func(ctx context.Context, args []string) error {
			if err := p.setup(ctx); err != nil {
				return err
			}
			if err := p.requireSession(); err != nil {
				return err
			}
			u, err := p.client.Me(ctx)
			if err != nil {
				return err
			}
			p.offlineNotice(client.KeyUser)
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "name\t%s\nemail\t%s\nphone\t%s\ncompany\t%s\naddress\t%s\nrole\t%s\n",
				u.Name, u.Email, u.Phone, u.Company, u.Address, u.Role)
			return tw.Flush()
		},
	}
}

func (p *panel) requestsCommand() *ffcli.Command {
	fs := flag.NewFlagSet("panelctl requests", flag.ExitOnError)
	all := fs.Bool("all", false, "list the requests of every client (administrators)")
	return &ffcli.Command{
		Name:       "requests",
		ShortUsage: "panelctl requests [-all]",
		ShortHelp:  "List service requests",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := p.setup(ctx); err != nil {
				return err
			}
			if err := p.requireSession(); err != nil {
				return err
			}
			list, key, err := p.listRequests(ctx, *all)
			if err != nil {
				return err
			}
			p.offlineNotice(key)
			return writeRequests(os.Stdout, list, *all)
		},
	}
}

func (p *panel) listRequests(ctx context.Context, all bool) ([]servicerequest.Request, string, error) {
	if all {
		list, err := p.client.AdminServiceRequests(ctx)
		return list, client.KeyAdminServiceRequests, err
	}
	list, err := p.client.ServiceRequests(ctx)
	return list, client.KeyServiceRequests, err
}

func (p *panel) requestCommand() *ffcli.Command {
	fs := flag.NewFlagSet("panelctl request create", flag.ExitOnError)
	var (
		serviceType = fs.String("type", "", "one of "+strings.Join(servicerequest.ServiceTypes, ", "))
		date        = fs.String("date", "", "scheduled date, YYYY-MM-DD")
		at          = fs.String("time", "", "scheduled time, HH:MM")
		location    = fs.String("location", "", "where the service takes place")
		area        = fs.Float64("area", 0, "surface in hectares, 0 when not applicable")
		notes       = fs.String("notes", "", "anything the pilot should know")
	)
	create := &ffcli.Command{
		Name:       "create",
		ShortUsage: "panelctl request create -type <type> -date <date> -time <time> -location <location>",
		ShortHelp:  "Book a service",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			in := requests.Input{
				ServiceType:   *serviceType,
				ScheduledDate: *date,
				ScheduledTime: *at,
				Location:      *location,
				Notes:         *notes,
			}
			if *area > 0 {
				in.Area = area
			}
			if err := in.Validate(); err != nil {
				return err
			}
			if err := p.setup(ctx); err != nil {
				return err
			}
			if err := p.requireSession(); err != nil {
				return err
			}
			r, err := p.client.CreateServiceRequest(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("request %d created, status %s\n", r.ID, r.Status)
			return nil
		},
	}
	return &ffcli.Command{
		Name:        "request",
		ShortUsage:  "panelctl request <subcommand>",
		ShortHelp:   "Manage a single service request",
		Subcommands: []*ffcli.Command{create},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}
}

func (p *panel) statusCommand() *ffcli.Command {
	fs := flag.NewFlagSet("panelctl status", flag.ExitOnError)
	var (
		language = fs.String("language", "es", "language of the client notification")
		notify   = fs.Bool("notify", true, "send the client SMS and email on confirm and complete")
	)
	return &ffcli.Command{
		Name:       "status",
		ShortUsage: "panelctl status [-notify=false] <request id> <pending|confirmed|completed|cancelled>",
		ShortHelp:  "Change the status of a request and notify the client (administrators)",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 2 {
				return flag.ErrHelp
			}
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Errorf("invalid request id %q", args[0])
			}
			status := servicerequest.Status(args[1])
			if !status.Valid() {
				return requests.ErrInvalidStatus
			}
			if err := p.setup(ctx); err != nil {
				return err
			}
			if err := p.requireSession(); err != nil {
				return err
			}
			r, err := p.client.UpdateServiceRequestStatus(ctx, id, status)
			if err != nil {
				return err
			}
			fmt.Printf("request %d is now %s\n", r.ID, r.Status)
			if !*notify {
				return nil
			}

			var outcome dispatch.Outcome
			switch r.Status {
			case servicerequest.StatusConfirmed:
				outcome = p.dispatch.SendConfirmation(ctx, confirmationParams(r, *language))
			case servicerequest.StatusCompleted:
				outcome = p.dispatch.SendCompletion(ctx, completionParams(r, *language))
			default:
				return nil
			}
			printResult("sms", outcome.SMS)
			printResult("email", outcome.Email)
			if outcome.BothFailed() {
				return errors.New("the client could not be notified")
			}
			return nil
		},
	}
}

func confirmationParams(r *servicerequest.Request, language string) dispatch.ConfirmationParams {
	params := dispatch.ConfirmationParams{
		Phone:       r.ClientPhone,
		Email:       r.ClientEmail,
		ClientName:  r.ClientName,
		ServiceName: r.ServiceType,
		Date:        r.ScheduledDate,
		Time:        r.ScheduledTime,
		Location:    r.Location,
		Language:    language,
	}
	if r.Area != nil {
		params.Area = strconv.FormatFloat(*r.Area, 'f', -1, 64)
	}
	return params
}

func completionParams(r *servicerequest.Request, language string) dispatch.CompletionParams {
	return dispatch.CompletionParams{
		Phone:       r.ClientPhone,
		Email:       r.ClientEmail,
		ClientName:  r.ClientName,
		ServiceName: r.ServiceType,
		Language:    language,
	}
}

func printResult(channel string, r dispatch.Result) {
	if r.Success {
		fmt.Printf("%s sent (%s)\n", channel, r.MessageID)
		return
	}
	fmt.Printf("%s failed: %s\n", channel, r.Error)
}

func (p *panel) usersCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "users",
		ShortUsage: "panelctl users",
		ShortHelp:  "List accounts (administrators)",
		Exec: func(ctx context.Context, args []string) error {
			if err := p.setup(ctx); err != nil {
				return err
			}
			if err := p.requireSession(); err != nil {
				return err
			}
			list, err := p.client.AdminUsers(ctx)
			if err != nil {
				return err
			}
			p.offlineNotice(client.KeyAdminUsers)
			return writeUsers(os.Stdout, list)
		},
	}
}

func (p *panel) mapCommand() *ffcli.Command {
	fs := flag.NewFlagSet("panelctl map", flag.ExitOnError)
	var (
		all    = fs.Bool("all", false, "place the requests of every client (administrators)")
		status = fs.String("status", "", "only requests with this status")
	)
	return &ffcli.Command{
		Name:       "map",
		ShortUsage: "panelctl map [-all] [-status <status>]",
		ShortHelp:  "Resolve the coordinates of service locations",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if err := p.setup(ctx); err != nil {
				return err
			}
			if err := p.requireSession(); err != nil {
				return err
			}
			list, key, err := p.listRequests(ctx, *all)
			if err != nil {
				return err
			}
			p.offlineNotice(key)
			list = filterStatus(list, servicerequest.Status(*status))

			locations := make([]string, 0, len(list))
			for _, r := range list {
				locations = append(locations, r.Location)
			}
			g := geocode.New(p.l, p.hc, *p.nominatim, "panelctl (drone-panel)", p.store)
			points := g.Batch(ctx, locations)
			return writeMap(os.Stdout, list, points)
		},
	}
}

func filterStatus(list []servicerequest.Request, status servicerequest.Status) []servicerequest.Request {
	if status == "" {
		return list
	}
	out := list[:0:0]
	for _, r := range list {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}
