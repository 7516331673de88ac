// Package catalog resolves subscription packages from a merchant's opaque
// metadata blob. The blob is merchant-defined JSON; only the "packages" key
// is interpreted and malformed content outside it never fails a caller.
package catalog

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidCatalog is returned when the metadata carries no usable
	// packages declaration.
	ErrInvalidCatalog = errors.New("catalog: invalid packages data")
	// ErrUnknownPackage is returned when no package matches the requested
	// name.
	ErrUnknownPackage = errors.New("catalog: unknown package")
	// ErrMalformedName is returned for subscription names that do not
	// follow the "<id>:<package>" convention.
	ErrMalformedName = errors.New("catalog: malformed subscription name")
	// ErrInvalidPackage is returned when the matched package declares a
	// non-positive duration or a negative trial window.
	ErrInvalidPackage = errors.New("catalog: invalid package declaration")
)

// Package is one named subscription tier from a merchant catalog.
type Package struct {
	Name string `json:"name"`
	// Duration of one billing period in seconds.
	Duration int64 `json:"duration"`
	// Price for one full period.
	Price uint64 `json:"price"`
	// Trial window in seconds; zero means no trial.
	Trial int64 `json:"trial,omitempty"`
}

// Packages is the declared catalog shape inside merchant metadata.
type Packages struct {
	Packages []Package `json:"packages"`
}

// Resolve finds the package with the exact name in the merchant metadata.
// When the catalog declares duplicate names the first occurrence in
// declaration order is authoritative. The matched package must carry a
// positive duration and a non-negative trial; period arithmetic downstream
// relies on both.
func Resolve(data, name string) (*Package, error) {
	declared := gjson.Get(data, "packages")
	if !declared.Exists() || !declared.IsArray() {
		return nil, ErrInvalidCatalog
	}
	var packages []Package
	if err := json.Unmarshal([]byte(declared.Raw), &packages); err != nil {
		return nil, ErrInvalidCatalog
	}
	for i := range packages {
		if packages[i].Name == name {
			pkg := packages[i]
			if pkg.Duration <= 0 || pkg.Trial < 0 {
				return nil, ErrInvalidPackage
			}
			return &pkg, nil
		}
	}
	return nil, ErrUnknownPackage
}

// PackageName extracts the package part of a subscription name of the form
// "<merchant-scoped-id>:<package-name>".
func PackageName(subscriptionName string) (string, error) {
	parts := strings.Split(subscriptionName, ":")
	if len(parts) < 2 || parts[1] == "" {
		return "", ErrMalformedName
	}
	return parts[1], nil
}

// HasTrialPackages reports whether the metadata declares at least one
// package with a positive trial window. The probe never fails: metadata
// without a well-formed catalog simply has no trial packages.
func HasTrialPackages(data string) bool {
	return gjson.Get(data, "packages.#(trial>0)").Exists()
}
