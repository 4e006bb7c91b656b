package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Role is a capability tag held by a user.
type Role string

const (
	RoleArtist    Role = "ARTIST"
	RoleOrganizer Role = "ORGANIZER"
	RoleVisitor   Role = "VISITOR"
	RoleStaff     Role = "STAFF"
)

// ParseRole validates a raw role name against the closed set.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(raw))); r {
	case RoleArtist, RoleOrganizer, RoleVisitor, RoleStaff:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q: must be one of ARTIST, ORGANIZER, VISITOR, STAFF", raw)
}

// RoleSet is an immutable-by-convention set of roles.
type RoleSet map[Role]struct{}

// NewRoleSet builds a set from already validated roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// ParseRoleSet validates every raw role and rejects an empty list.
func ParseRoleSet(raw []string) (RoleSet, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	set := make(RoleSet, len(raw))
	var invalid []string
	for _, name := range raw {
		r, err := ParseRole(name)
		if err != nil {
			invalid = append(invalid, name)
			continue
		}
		set[r] = struct{}{}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid role(s) %s: must be one of ARTIST, ORGANIZER, VISITOR, STAFF", strings.Join(invalid, ", "))
	}
	return set, nil
}

// Has reports whether r is in the set.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether the set shares at least one role with roles.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// With returns a copy of s that also contains r.
func (s RoleSet) With(r Role) RoleSet {
	c := make(RoleSet, len(s)+1)
	for role := range s {
		c[role] = struct{}{}
	}
	c[r] = struct{}{}
	return c
}

// Strings returns the roles sorted by name.
func (s RoleSet) Strings() []string {
	out := make([]string, 0, len(s))
	for r := range s {
		out = append(out, string(r))
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted list of role names.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// UnmarshalJSON decodes and validates a list of role names.
func (s *RoleSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set, err := ParseRoleSet(raw)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// User is an account known to the identity directory.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	FullName     string    `json:"fullName"`
	Roles        RoleSet   `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	c.Roles = NewRoleSet()
	for r := range u.Roles {
		c.Roles[r] = struct{}{}
	}
	return &c
}
