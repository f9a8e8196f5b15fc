package users

import (
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/database"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/service/auth"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/servicerequest"
	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

type resetRecorder struct {
	ids []int64
}

func (r *resetRecorder) SendReset(ctx context.Context, id int64) error {
	r.ids = append(r.ids, id)
	return nil
}

func newTestService(t *testing.T) (*service, user.Repository, servicerequest.Repository, *resetRecorder) {
	t.Helper()
	l := log.NewNopLogger()
	db, err := database.Open(l, ":memory:", migrations.API)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	users := user.NewRepository(l, db)
	resets := &resetRecorder{}
	s := NewService(l, users, resets)
	s.cost = bcrypt.MinCost
	return s, users, servicerequest.NewRepository(l, db), resets
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name     string
		in       Input
		wantRole user.Role
		wantErr  error
	}{
		{name: "defaults to client", in: Input{Name: "Ana", Email: "ana@example.com", Password: "secret1"}, wantRole: user.RoleClient},
		{name: "admin", in: Input{Name: "Eva", Email: "eva@example.com", Password: "secret1", Role: user.RoleAdmin}, wantRole: user.RoleAdmin},
		{name: "unknown role", in: Input{Name: "Ana", Email: "ana@example.com", Password: "secret1", Role: "root"}, wantErr: ErrInvalidRole},
		{name: "short password", in: Input{Name: "Ana", Email: "ana@example.com", Password: "123"}, wantErr: auth.ErrWeakPassword},
		{name: "bad email", in: Input{Name: "Ana", Email: "ana", Password: "secret1"}, wantErr: auth.ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, _ := newTestService(t)
			u, err := s.Create(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && u.Role != tt.wantRole {
				t.Errorf("Create() role = %q, want %q", u.Role, tt.wantRole)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s, users, requests, _ := newTestService(t)
	ctx := context.Background()
	admin, err := s.Create(ctx, Input{Name: "Eva", Email: "eva@example.com", Password: "secret1", Role: user.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	client, err := s.Create(ctx, Input{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := requests.Create(ctx, &servicerequest.Request{UserID: client.ID, ServiceType: "mapping", ScheduledDate: "2026-06-01", Location: "Olivar"}); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, admin.ID, admin.ID); !errors.Is(err, ErrSelfDelete) {
		t.Errorf("self delete error = %v, want ErrSelfDelete", err)
	}
	if err := s.Delete(ctx, admin.ID, client.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := users.Get(ctx, client.ID); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("deleted user still found, err = %v", err)
	}
	all, err := requests.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("%d service requests survived their owner", len(all))
	}
	if err := s.Delete(ctx, admin.ID, client.ID); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSetPasswordAndReset(t *testing.T) {
	s, users, _, resets := newTestService(t)
	ctx := context.Background()
	u, err := s.Create(ctx, Input{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetPassword(ctx, u.ID, "another1"); err != nil {
		t.Fatal(err)
	}
	stored, err := users.Get(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("another1")) != nil {
		t.Error("password was not replaced")
	}
	if err := s.SetPassword(ctx, 999, "another1"); !errors.Is(err, user.ErrNotFound) {
		t.Errorf("SetPassword() on unknown user error = %v", err)
	}

	if err := s.SendReset(ctx, u.ID); err != nil {
		t.Fatal(err)
	}
	if len(resets.ids) != 1 || resets.ids[0] != u.ID {
		t.Errorf("reset sent to %v", resets.ids)
	}
}

func TestEnsureAdmin(t *testing.T) {
	s, _, _, _ := newTestService(t)
	ctx := context.Background()
	first, err := s.EnsureAdmin(ctx, "admin@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsAdmin() {
		t.Errorf("bootstrap account role = %q", first.Role)
	}
	second, err := s.EnsureAdmin(ctx, "admin@example.com", "different")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("EnsureAdmin() created a second account")
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("List() returned %d accounts, want 1", len(list))
	}
}
