// Package pkginfo describes the rapidapi-setup distribution: its name,
// version and declared runtime requirements.
package pkginfo

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidDescriptor is returned (wrapped) when a Descriptor fails validation.
var ErrInvalidDescriptor = errors.New("pkginfo: invalid descriptor")

const (
	// Name is the distribution name.
	Name = "rapidapi-setup"
	// Version is the distribution version.
	Version = "1.0"
)

var (
	namePattern    = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)
)

// Requirement is a declared runtime dependency.
type Requirement struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose"`
}

// Descriptor is the packaging metadata of a distributable unit.
type Descriptor struct {
	Name     string        `json:"name"`
	Version  string        `json:"version"`
	Requires []Requirement `json:"requires"`
}

// Default returns the descriptor of this distribution.
func Default() *Descriptor {
	return &Descriptor{
		Name:    Name,
		Version: Version,
		Requires: []Requirement{
			{Name: "requests", Purpose: "http"},
			{Name: "python-dotenv", Purpose: "dotenv"},
		},
	}
}

// goModules maps a requirement purpose to the Go package serving it here.
var goModules = map[string]string{
	"http":   "net/http",
	"dotenv": "github.com/joho/godotenv",
}

// Go returns, for each declared requirement, the Go package that covers the
// same concern. Requirements with an unknown purpose map to "".
func (d *Descriptor) Go() map[string]string {
	out := make(map[string]string, len(d.Requires))
	for _, r := range d.Requires {
		out[r.Name] = goModules[r.Purpose]
	}
	return out
}

// RequirementNames returns requirement names in declaration order.
func (d *Descriptor) RequirementNames() []string {
	names := make([]string, 0, len(d.Requires))
	for _, r := range d.Requires {
		names = append(names, r.Name)
	}
	return names
}

// Validate checks the descriptor invariants.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("%w: name %q must be lower-case kebab", ErrInvalidDescriptor, d.Name)
	}
	if !versionPattern.MatchString(d.Version) {
		return fmt.Errorf("%w: version %q must be dotted numeric", ErrInvalidDescriptor, d.Version)
	}

	seen := make(map[string]bool, len(d.Requires))
	for i, r := range d.Requires {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("%w: requirement %d has no name", ErrInvalidDescriptor, i)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate requirement %q", ErrInvalidDescriptor, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// String returns "name version [req, ...]".
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s %s [%s]", d.Name, d.Version, strings.Join(d.RequirementNames(), ", "))
}

// JSON returns the indented JSON form of the descriptor.
func (d *Descriptor) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("pkginfo: encoding descriptor: %w", err)
	}
	return data, nil
}
