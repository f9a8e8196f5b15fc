package servicerequest

import (
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/database"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

func TestRepository(t *testing.T) {
	l := log.NewNopLogger()
	db, err := database.Open(l, ":memory:", migrations.API)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := user.NewRepository(l, db)
	ana := &user.User{Email: "ana@example.com", PasswordHash: "hash", Name: "Ana", Phone: "+34600123123"}
	luis := &user.User{Email: "luis@example.com", PasswordHash: "hash", Name: "Luis"}
	for _, u := range []*user.User{ana, luis} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	r := NewRepository(l, db)
	area := 4.5
	first := &Request{UserID: ana.ID, ServiceType: "fumigation", ScheduledDate: "2026-05-04", ScheduledTime: "08:30", Location: "Écija", Area: &area, Status: StatusCompleted}
	second := &Request{UserID: luis.ID, ServiceType: "mapping", ScheduledDate: "2026-05-10", ScheduledTime: "10:00", Location: "Carmona"}
	for _, req := range []*Request{first, second} {
		if err := r.Create(ctx, req); err != nil {
			t.Fatal(err)
		}
	}
	if first.Status != StatusPending {
		t.Errorf("new request status = %s, want pending", first.Status)
	}

	got, err := r.Get(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ClientName != "Ana" || got.ClientPhone != "+34600123123" || got.Area == nil || *got.Area != 4.5 {
		t.Errorf("Get() = %+v", got)
	}

	own, err := r.ListByUser(ctx, luis.ID)
	if err != nil || len(own) != 1 || own[0].ID != second.ID {
		t.Errorf("ListByUser() = %v, %v", own, err)
	}
	all, err := r.ListAll(ctx)
	if err != nil || len(all) != 2 {
		t.Errorf("ListAll() = %v, %v", all, err)
	}

	if err := r.UpdateStatus(ctx, first.ID, StatusConfirmed); err != nil {
		t.Fatal(err)
	}
	if got, _ := r.Get(ctx, first.ID); got.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}
	if err := r.UpdateStatus(ctx, 999, StatusConfirmed); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus() of unknown id error = %v", err)
	}

	// deleting an account removes its requests
	if err := users.Delete(ctx, ana.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("request outlived its client: %v", err)
	}
}
