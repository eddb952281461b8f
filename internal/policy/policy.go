package policy

import (
	"fmt"
	"sort"

	"github.com/tmalloy/augur/internal/record"
)

// Role is one declared role in a policy pack.
type Role struct {
	Name         string
	AuthLevel    int
	Capabilities []string
	Invariants   []string
}

// Pack is a loaded, validated policy pack. Read-only after load.
type Pack struct {
	roles map[string]Role
}

// NewPack builds a pack from roles, validating invariant ids against
// the known set. Fail-closed: an unknown invariant id is an error.
func NewPack(roles []Role, knownInvariants []string) (*Pack, error) {
	known := make(map[string]bool, len(knownInvariants))
	for _, id := range knownInvariants {
		known[id] = true
	}

	byName := make(map[string]Role, len(roles))
	for _, r := range roles {
		if r.Name == "" {
			return nil, fmt.Errorf("policy pack: role with empty name")
		}
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("policy pack: duplicate role %q", r.Name)
		}
		for _, id := range r.Invariants {
			if !known[id] {
				return nil, fmt.Errorf("policy pack: role %q names unknown invariant %q", r.Name, id)
			}
		}
		byName[r.Name] = r
	}
	return &Pack{roles: byName}, nil
}

// Frame builds the observer frame for a role.
func (p *Pack) Frame(roleName string) (record.ObserverFrame, error) {
	r, ok := p.roles[roleName]
	if !ok {
		return record.ObserverFrame{}, fmt.Errorf("policy pack: unknown role %q", roleName)
	}
	return record.ObserverFrame{
		Role:              r.Name,
		Capabilities:      append([]string(nil), r.Capabilities...),
		AuthLevel:         r.AuthLevel,
		AllowedInvariants: append([]string(nil), r.Invariants...),
	}, nil
}

// Roles lists the declared role names, sorted.
func (p *Pack) Roles() []string {
	names := make([]string, 0, len(p.roles))
	for name := range p.roles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allows implements the engine's capability policy adapter: a
// capability is allowed when the pack's declaration for the frame's
// role includes it. A frame whose role the pack does not declare is
// allowed nothing.
func (p *Pack) Allows(capability string, frame record.ObserverFrame) bool {
	r, ok := p.roles[frame.Role]
	if !ok {
		return false
	}
	for _, c := range r.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
