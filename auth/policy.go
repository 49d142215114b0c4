package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"yamdb/models"
)

var (
	// ErrNotAuthenticated is returned when an anonymous caller needs credentials.
	ErrNotAuthenticated = errors.New("authentication credentials were not provided")
	// ErrPermissionDenied is returned when an authenticated caller lacks the capability.
	ErrPermissionDenied = errors.New("you do not have permission to perform this action")
)

// Capability is one bit of what a resource allows.
type Capability uint8

const (
	// CapRead lets anyone, anonymous included, use safe methods.
	CapRead Capability = 1 << iota
	// CapWriteOwn lets authenticated users write and owners mutate their objects.
	CapWriteOwn
	// CapWritePrivileged lets moderators mutate any object.
	CapWritePrivileged
	// CapAdminOnly restricts every non-read request to admins and superusers.
	CapAdminOnly
)

var capabilityNames = map[string]Capability{
	"read":             CapRead,
	"write-own":        CapWriteOwn,
	"write-privileged": CapWritePrivileged,
	"admin-only":       CapAdminOnly,
}

// ParseCapabilities turns configuration names into a capability set.
func ParseCapabilities(names []string) (Capability, error) {
	var c Capability
	for _, name := range names {
		bit, ok := capabilityNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown capability %q", name)
		}
		c |= bit
	}
	return c, nil
}

func (c Capability) Has(bit Capability) bool { return c&bit != 0 }

// Resource names used to select a policy.
const (
	ResourceCategories = "categories"
	ResourceGenres     = "genres"
	ResourceTitles     = "titles"
	ResourceReviews    = "reviews"
	ResourceComments   = "comments"
	ResourceUsers      = "users"
)

// DefaultCapabilities is the capability set of each resource unless overridden.
var DefaultCapabilities = map[string]Capability{
	ResourceCategories: CapRead | CapAdminOnly,
	ResourceGenres:     CapRead | CapAdminOnly,
	ResourceTitles:     CapRead | CapAdminOnly,
	ResourceReviews:    CapRead | CapWriteOwn | CapWritePrivileged,
	ResourceComments:   CapRead | CapWriteOwn | CapWritePrivileged,
	ResourceUsers:      CapAdminOnly | CapWriteOwn,
}

// Policy decides access to one resource type.
type Policy struct {
	Resource     string
	Capabilities Capability
}

// Policies holds the policy of every resource.
type Policies map[string]Policy

// NewPolicies builds the policy table from the defaults and configuration overrides.
func NewPolicies(overrides map[string][]string) (Policies, error) {
	p := make(Policies, len(DefaultCapabilities))
	for resource, caps := range DefaultCapabilities {
		p[resource] = Policy{Resource: resource, Capabilities: caps}
	}
	for resource, names := range overrides {
		if _, known := DefaultCapabilities[resource]; !known {
			return nil, fmt.Errorf("permissions: unknown resource %q", resource)
		}
		caps, err := ParseCapabilities(names)
		if err != nil {
			return nil, fmt.Errorf("permissions.%s: %w", resource, err)
		}
		p[resource] = Policy{Resource: resource, Capabilities: caps}
	}
	return p, nil
}

// For returns the policy of resource. Unknown resources get an admin-only policy.
func (p Policies) For(resource string) Policy {
	if policy, ok := p[resource]; ok {
		return policy
	}
	return Policy{Resource: resource, Capabilities: CapAdminOnly}
}

// IsSafeMethod reports whether method is read-only.
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// CheckRequest is the request-level check, evaluated before any object is loaded.
func (p Policy) CheckRequest(user *models.User, method string) error {
	if IsSafeMethod(method) && p.Capabilities.Has(CapRead) {
		return nil
	}
	if user == nil {
		return ErrNotAuthenticated
	}
	if p.Capabilities.Has(CapAdminOnly) {
		if user.IsAdmin() {
			return nil
		}
		return ErrPermissionDenied
	}
	if p.Capabilities.Has(CapWriteOwn) || p.Capabilities.Has(CapWritePrivileged) {
		return nil
	}
	return ErrPermissionDenied
}

// CheckObject is the object-level check. ownerID is the author of the object,
// or the user itself for user records.
func (p Policy) CheckObject(user *models.User, method string, ownerID uint) error {
	if IsSafeMethod(method) && p.Capabilities.Has(CapRead) {
		return nil
	}
	if user == nil {
		return ErrNotAuthenticated
	}
	if user.IsAdmin() {
		return nil
	}
	if p.Capabilities.Has(CapWritePrivileged) && user.IsModerator() {
		return nil
	}
	if p.Capabilities.Has(CapWriteOwn) && user.ID == ownerID {
		return nil
	}
	return ErrPermissionDenied
}

// Check runs the request-level check and then the object-level one.
func (p Policy) Check(user *models.User, method string, ownerID uint) error {
	if err := p.CheckRequest(user, method); err != nil {
		return err
	}
	return p.CheckObject(user, method, ownerID)
}
