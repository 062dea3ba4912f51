package profile

import (
	"testing"
)

func TestValidateModeFallback(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want string
	}{
		{"empty mode falls back to demo", "", "demo"},
		{"unknown mode falls back to demo", "staging", "demo"},
		{"prod stays prod", "prod", "prod"},
		{"dev stays dev", "dev", "dev"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{Mode: tt.mode, Driver: "sqlite", Data: t.TempDir()}
			if err := p.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if p.Mode != tt.want {
				t.Errorf("Mode = %q, want %q", p.Mode, tt.want)
			}
		})
	}
}

func TestValidateSQLiteDefaultDSN(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir()}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.DSN == "" {
		t.Error("expected a default sqlite DSN, got empty")
	}
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "postgres", Data: t.TempDir()}
	if err := p.Validate(); err == nil {
		t.Error("expected error for postgres driver without DSN")
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	p := &Profile{Mode: "dev", Driver: "mongodb", Data: t.TempDir()}
	if err := p.Validate(); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
