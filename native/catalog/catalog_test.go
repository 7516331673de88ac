package catalog

import (
	"errors"
	"testing"
)

const sampleCatalog = `{
	"merchant": "example shop",
	"packages": [
		{"name": "basic", "duration": 2592000, "price": 1000},
		{"name": "gold", "duration": 2592000, "price": 5000, "trial": 86400},
		{"name": "basic", "duration": 604800, "price": 1}
	]
}`

func TestResolveExactName(t *testing.T) {
	pkg, err := Resolve(sampleCatalog, "gold")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pkg.Price != 5000 || pkg.Duration != 2592000 || pkg.Trial != 86400 {
		t.Fatalf("unexpected package: %+v", pkg)
	}
}

// Duplicate names resolve to the first declaration. Inherited behaviour,
// pinned here so a change shows up as a test failure.
func TestResolveDuplicateFirstMatchWins(t *testing.T) {
	pkg, err := Resolve(sampleCatalog, "basic")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pkg.Price != 1000 || pkg.Duration != 2592000 {
		t.Fatalf("expected first declaration, got %+v", pkg)
	}
}

func TestResolveUnknownPackage(t *testing.T) {
	if _, err := Resolve(sampleCatalog, "platinum"); !errors.Is(err, ErrUnknownPackage) {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestResolveIgnoresUnknownFields(t *testing.T) {
	data := `{"theme": {"color": "red"}, "packages": [{"name": "p", "duration": 60, "price": 10, "extra": true}]}`
	pkg, err := Resolve(data, "p")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pkg.Price != 10 {
		t.Fatalf("unexpected package: %+v", pkg)
	}
}

func TestResolveRejectsInvalidPackages(t *testing.T) {
	cases := map[string]string{
		"negative duration": `{"packages": [{"name": "p", "duration": -500000, "price": 10}]}`,
		"zero duration":     `{"packages": [{"name": "p", "duration": 0, "price": 10}]}`,
		"missing duration":  `{"packages": [{"name": "p", "price": 10}]}`,
		"negative trial":    `{"packages": [{"name": "p", "duration": 60, "price": 10, "trial": -1}]}`,
	}
	for label, data := range cases {
		if _, err := Resolve(data, "p"); !errors.Is(err, ErrInvalidPackage) {
			t.Fatalf("%s: expected ErrInvalidPackage, got %v", label, err)
		}
	}
}

// A free tier is a legal declaration; only the period fields are constrained.
func TestResolveAllowsZeroPrice(t *testing.T) {
	pkg, err := Resolve(`{"packages": [{"name": "free", "duration": 60, "price": 0}]}`, "free")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if pkg.Price != 0 || pkg.Duration != 60 {
		t.Fatalf("unexpected package: %+v", pkg)
	}
}

func TestResolveMissingCatalog(t *testing.T) {
	for _, data := range []string{"{}", "", "not json", `{"packages": "nope"}`} {
		if _, err := Resolve(data, "p"); !errors.Is(err, ErrInvalidCatalog) {
			t.Fatalf("data %q: expected ErrInvalidCatalog, got %v", data, err)
		}
	}
}

func TestPackageName(t *testing.T) {
	name, err := PackageName("sub1:gold")
	if err != nil {
		t.Fatalf("package name: %v", err)
	}
	if name != "gold" {
		t.Fatalf("unexpected package name %q", name)
	}

	for _, bad := range []string{"", "gold", "sub1:", ":"} {
		if _, err := PackageName(bad); !errors.Is(err, ErrMalformedName) {
			t.Fatalf("name %q: expected ErrMalformedName, got %v", bad, err)
		}
	}
}

func TestHasTrialPackages(t *testing.T) {
	if !HasTrialPackages(sampleCatalog) {
		t.Fatal("expected trial packages in sample catalog")
	}
	if HasTrialPackages(`{"packages": [{"name": "p", "duration": 60, "price": 10}]}`) {
		t.Fatal("no trial declared but probe matched")
	}
	if HasTrialPackages(`{"packages": [{"name": "p", "trial": 0}]}`) {
		t.Fatal("zero trial must not count")
	}
	if HasTrialPackages("not json at all") {
		t.Fatal("malformed metadata must not count")
	}
}
