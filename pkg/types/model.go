// Package types defines the routing data model shared by the builder, executor and config loader
package types

import (
	"fmt"
	"slices"
	"time"
)

// CredentialClass tells which provider class a credential belongs to
type CredentialClass int

const (
	// ClassPrimary credentials are valid for the single primary provider
	ClassPrimary CredentialClass = iota
	// ClassSecondary credentials are valid for an enumerated provider list
	ClassSecondary
)

// String returns string representation of the class
func (c CredentialClass) String() string {
	switch c {
	case ClassPrimary:
		return "primary"
	case ClassSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

// Credential is an opaque secret plus the providers it may be used with.
// It is read-only after load.
type Credential struct {
	// Name is a log-safe label
	Name string

	// Secret is the API key or token; never logged
	Secret string

	// Class is the provider class
	Class CredentialClass

	// Providers lists supported provider names (secondary only)
	Providers []string
}

// Supports reports whether the credential may be used with provider
func (c Credential) Supports(provider string) bool {
	return slices.Contains(c.Providers, provider)
}

// String returns the credential name so secrets never reach logs
func (c Credential) String() string {
	return c.Name
}

// GoString keeps %#v from printing the secret
func (c Credential) GoString() string {
	return fmt.Sprintf("types.Credential{Name:%q, Class:%s}", c.Name, c.Class)
}

// PrimaryClass is the primary provider and the credentials valid for it
type PrimaryClass struct {
	Provider    string
	Credentials []Credential
}

// Routing is the validated, immutable routing configuration
type Routing struct {
	// Targets maps a target identifier to its ordered provider list
	Targets map[string][]string

	// Primary is tried first for every target
	Primary PrimaryClass

	// Secondary credentials are crossed with each target's providers
	Secondary []Credential

	// Waits is the default retry wait sequence
	Waits []time.Duration
}

// Providers returns the provider list of target
func (r *Routing) Providers(target string) ([]string, bool) {
	if r == nil {
		return nil, false
	}
	providers, ok := r.Targets[target]
	return providers, ok
}

// TargetNames returns configured targets in sorted order
func (r *Routing) TargetNames() []string {
	names := make([]string, 0, len(r.Targets))
	for name := range r.Targets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NodeID identifies an attempt node by position within its pipeline
type NodeID struct {
	Index      int
	Provider   string
	Credential string
}

// String returns a compact "#index provider/credential" form
func (n NodeID) String() string {
	return fmt.Sprintf("#%d %s/%s", n.Index, n.Provider, n.Credential)
}

// Call is what an attempt node hands to a provider adapter
type Call[T any] struct {
	// Target is the requested target identifier
	Target string

	// Provider is the node's provider
	Provider string

	// Credential is the node's credential
	Credential Credential

	// Attempt is 1 for the initial try and grows with each retry
	Attempt int

	// Payload is passed through unchanged
	Payload T
}
