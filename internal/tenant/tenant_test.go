package tenant

import (
	"errors"
	"testing"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

func TestResolveQualifiesBareTableID(t *testing.T) {
	r := New(map[string]string{"client0": "client0"}, "proj", "ds")
	table, err := r.Resolve("client0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if table != "proj.ds.client0" {
		t.Fatalf("expected qualified table name, got %q", table)
	}
}

func TestResolvePassesThroughAlreadyQualifiedTableID(t *testing.T) {
	r := New(map[string]string{"client0": "proj.ds.raw_events"}, "proj", "ds")
	table, err := r.Resolve("client0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if table != "proj.ds.raw_events" {
		t.Fatalf("expected table passed through unchanged, got %q", table)
	}
}

func TestResolveUnknownOrg(t *testing.T) {
	r := New(map[string]string{"client0": "client0"}, "proj", "ds")
	_, err := r.Resolve("unknown")
	var unknown *chartspec.UnknownOrganisationError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownOrganisationError, got %v", err)
	}
}

func TestResolveMalformedTableName(t *testing.T) {
	r := New(map[string]string{"client0": "bare"}, "", "")
	_, err := r.Resolve("client0")
	var malformed *chartspec.MalformedTableNameError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedTableNameError, got %v", err)
	}
}
