package domain

import (
	"errors"
	"testing"
)

func TestConnectionForm_Validate(t *testing.T) {
	p, err := ConnectionForm{Host: "db", Database: "osm", Role: "reader", Password: "pw"}.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Port != DefaultPort {
		t.Errorf("expected default port, got %d", p.Port)
	}

	p, err = ConnectionForm{Host: "db", Port: "6543", Database: "osm", Role: "reader"}.Validate()
	if err != nil || p.Port != 6543 {
		t.Errorf("expected port 6543, got %d (%v)", p.Port, err)
	}
}

func TestConnectionForm_ValidateCollectsFields(t *testing.T) {
	_, err := ConnectionForm{Port: "54x2"}.Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"host", "port", "database", "role"} {
		if !verr.Invalid(field) {
			t.Errorf("expected %s to be invalid", field)
		}
	}
	if verr.Invalid("password") {
		t.Error("password is optional")
	}
}

func TestConnectionForm_BlankFieldsRejected(t *testing.T) {
	_, err := ConnectionForm{Host: "   ", Database: "\t", Role: " "}.Validate()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"host", "database", "role"} {
		if !verr.Invalid(field) {
			t.Errorf("expected blank %s to be invalid", field)
		}
	}

	p, err := ConnectionForm{Host: " db ", Database: " osm", Role: "reader "}.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Host != "db" || p.Database != "osm" || p.Role != "reader" {
		t.Errorf("expected trimmed profile, got %+v", p)
	}
}

func TestConnectionForm_PortRange(t *testing.T) {
	_, err := ConnectionForm{Host: "db", Port: "70000", Database: "osm", Role: "r"}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Invalid("port") {
		t.Errorf("expected port error, got %v", err)
	}
}

func TestConnectionProfile_SameTarget(t *testing.T) {
	a := ConnectionProfile{Host: "db", Port: 5432, Database: "osm", Role: "r", Password: "one"}
	b := a
	b.Password = "two"
	if !a.SameTarget(b) {
		t.Error("password must not affect identity")
	}
	b.Role = "admin"
	if a.SameTarget(b) {
		t.Error("role is part of identity")
	}
}

func TestConnectionProfile_DSNEscapes(t *testing.T) {
	p := ConnectionProfile{Host: "db", Database: "osm", Role: "reader", Password: "p@ss/word"}
	want := "postgres://reader:p%40ss%2Fword@db:5432/osm?sslmode=prefer"
	if got := p.DSN(); got != want {
		t.Errorf("DSN() = %s, want %s", got, want)
	}
}
