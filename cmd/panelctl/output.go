package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/geocode"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/servicerequest"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func writeRequests(w io.Writer, list []servicerequest.Request, withClient bool) error {
	tw := newTable(w)
	if withClient {
		fmt.Fprintln(tw, "ID\tCLIENT\tSERVICE\tDATE\tTIME\tLOCATION\tAREA\tSTATUS")
	} else {
		fmt.Fprintln(tw, "ID\tSERVICE\tDATE\tTIME\tLOCATION\tAREA\tSTATUS")
	}
	for _, r := range list {
		if withClient {
			fmt.Fprintf(tw, "%d\t%s\t", r.ID, r.ClientName)
		} else {
			fmt.Fprintf(tw, "%d\t", r.ID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ServiceType, r.ScheduledDate, r.ScheduledTime, r.Location, area(r.Area), r.Status)
	}
	return tw.Flush()
}

func area(a *float64) string {
	if a == nil {
		return "-"
	}
	return strconv.FormatFloat(*a, 'f', -1, 64) + " ha"
}

func writeUsers(w io.Writer, list []user.User) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tCOMPANY\tROLE")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Phone, u.Company, u.Role)
	}
	return tw.Flush()
}

// writeMap lists every request with its coordinates, unresolved locations show a dash
func writeMap(w io.Writer, list []servicerequest.Request, points map[string]geocode.Point) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTATUS\tLOCATION\tLAT\tLON")
	for _, r := range list {
		p, ok := points[r.Location]
		if !ok {
			fmt.Fprintf(tw, "%d\t%s\t%s\t-\t-\n", r.ID, r.Status, r.Location)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.5f\t%.5f\n", r.ID, r.Status, r.Location, p.Lat, p.Lon)
	}
	return tw.Flush()
}
