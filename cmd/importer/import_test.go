package main

import (
	"testing"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/user"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantRole user.Role
		wantErr  bool
	}{
		{name: "client", line: "ana@example.com:Ana García:600123123", wantRole: ""},
		{name: "admin", line: "ops@example.com:Operaciones:600000000:admin", wantRole: user.RoleAdmin},
		{name: "too few fields", line: "ana@example.com:Ana", wantErr: true},
		{name: "too many fields", line: "a:b:c:d:e", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := parseLine(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLine() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if in.Role != tt.wantRole {
				t.Errorf("role = %q, want %q", in.Role, tt.wantRole)
			}
			if len(in.Password) != 12 {
				t.Errorf("password %q is not 12 characters", in.Password)
			}
		})
	}
}
