package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/log"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/settings"
)

var configuredVonage = settings.Vonage{APIKey: "key", APISecret: "secret", From: "DronePanel", Enabled: true}

func Test_vonageRepository_Post(t *testing.T) {
	type fields struct {
		cfg     settings.Vonage
		handler http.HandlerFunc
	}
	type args struct {
		to   string
		text string
	}
	tests := []struct {
		name    string
		fields  fields
		args    args
		wantID  string
		wantErr bool
	}{
		{
			name: "accepted message",
			fields: fields{
				cfg: configuredVonage,
				handler: func(w http.ResponseWriter, r *http.Request) {
					if err := r.ParseForm(); err != nil {
						t.Fatal(err)
					}
					if r.Form.Get("to") != "34600111222" || r.Form.Get("api_key") != "key" || r.Form.Get("from") != "DronePanel" {
						t.Errorf("unexpected form %v", r.Form)
					}
					w.Write([]byte(`{"message-count":"1","messages":[{"to":"34600111222","message-id":"abc-123","status":"0"}]}`))
				},
			},
			args:   args{to: "+34 600 111 222", text: "Servicio confirmado"},
			wantID: "abc-123",
		},
		{
			name: "rejected by gateway",
			fields: fields{
				cfg: configuredVonage,
				handler: func(w http.ResponseWriter, r *http.Request) {
					w.Write([]byte(`{"message-count":"1","messages":[{"status":"4","error-text":"Bad Credentials"}]}`))
				},
			},
			args:    args{to: "34600111222", text: "hola"},
			wantErr: true,
		},
		{
			name: "gateway error status",
			fields: fields{
				cfg: configuredVonage,
				handler: func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				},
			},
			args:    args{to: "34600111222", text: "hola"},
			wantErr: true,
		},
		{
			name: "not configured",
			fields: fields{
				cfg: settings.Vonage{APIKey: "key", Enabled: true},
				handler: func(w http.ResponseWriter, r *http.Request) {
					t.Error("gateway should not be called without credentials")
				},
			},
			args:    args{to: "34600111222", text: "hola"},
			wantErr: true,
		},
		{
			name: "missing phone",
			fields: fields{
				cfg: configuredVonage,
				handler: func(w http.ResponseWriter, r *http.Request) {
					t.Error("gateway should not be called without a recipient")
				},
			},
			args:    args{to: "n/a", text: "hola"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.fields.handler)
			defer srv.Close()
			s := NewVonageRepository(log.NewNopLogger(), srv.Client(), srv.URL, tt.fields.cfg)
			id, err := s.Post(context.TODO(), Message{To: tt.args.to, Body: tt.args.text})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Post() error = %v, wantErr %v", err, tt.wantErr)
			}
			if id != tt.wantID {
				t.Errorf("Post() id = %q, want %q", id, tt.wantID)
			}
		})
	}
}

var phoneTests = []struct {
	in  string
	out string
}{
	{"+34 600 111 222", "34600111222"},
	{"0034-600-111-222", "34600111222"},
	{"(34) 600.111.222", "34600111222"},
	{"", ""},
}

func TestNormalizePhone(t *testing.T) {
	for _, tt := range phoneTests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizePhone(tt.in); got != tt.out {
				t.Errorf("got %q, want %q", got, tt.out)
			}
		})
	}
}
