package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role enumerates actor roles.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleDirector   Role = "Director"
	RoleAreaCoach  Role = "Area Coach"
	RoleManager    Role = "Manager"
	RoleTechnician Role = "Technician"
)

// ParseRole maps loosely formatted role names. Unknown roles fall back to Manager,
// the least privileged role.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "")) {
	case "admin":
		return RoleAdmin
	case "director":
		return RoleDirector
	case "areacoach":
		return RoleAreaCoach
	case "technician", "tech":
		return RoleTechnician
	default:
		return RoleManager
	}
}

const scopeAll = "all"

// StoreScope is the set of stores an actor may see: every store, or a list of codes.
// It decodes from "all", a single code, or a list of codes.
type StoreScope struct {
	All   bool
	Codes []string
}

// AllStores is the unrestricted scope.
func AllStores() StoreScope {
	return StoreScope{All: true}
}

// Stores builds a scope limited to the given codes.
func Stores(codes ...string) StoreScope {
	return StoreScope{Codes: codes}
}

// Contains reports whether code is in scope.
func (s StoreScope) Contains(code string) bool {
	if s.All {
		return true
	}
	for _, candidate := range s.Codes {
		if strings.EqualFold(candidate, code) {
			return true
		}
	}
	return false
}

func (s *StoreScope) set(values []string) {
	s.All = false
	s.Codes = nil
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.EqualFold(v, scopeAll) {
			s.All = true
			s.Codes = nil
			return
		}
		s.Codes = append(s.Codes, v)
	}
}

// UnmarshalJSON accepts a string or a list of strings.
func (s *StoreScope) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		s.set([]string{single})
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("store scope: %w", err)
	}
	s.set(list)
	return nil
}

// MarshalJSON writes "all", a single code, or a list.
func (s StoreScope) MarshalJSON() ([]byte, error) {
	if s.All {
		return json.Marshal(scopeAll)
	}
	if len(s.Codes) == 1 {
		return json.Marshal(s.Codes[0])
	}
	if s.Codes == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(s.Codes)
}

// UnmarshalYAML accepts a scalar or a sequence.
func (s *StoreScope) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		s.set([]string{node.Value})
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		s.set(list)
		return nil
	default:
		return fmt.Errorf("store scope: unsupported yaml node at line %d", node.Line)
	}
}

// Actor is the authenticated user acting on tickets.
type Actor struct {
	Email  string
	Name   string
	Role   Role
	Stores StoreScope
}

// DisplayName falls back to the email when no name is known.
func (a Actor) DisplayName() string {
	if strings.TrimSpace(a.Name) != "" {
		return a.Name
	}
	return a.Email
}

// SeesAllStores reports whether the actor is unrestricted by store.
func (a Actor) SeesAllStores() bool {
	return a.Role == RoleAdmin || a.Stores.All
}

// SameEmail compares addresses case-insensitively.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
