package policy

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// LoadDir loads every CUE file in a directory as one policy pack and
// validates it against the known invariant ids.
func LoadDir(dir string, knownInvariants []string) (*Pack, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("policy dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("policy dir %s: not a directory", dir)
	}

	ctx := cuecontext.New()
	// Package "_" loads files without a package clause; cue v0.9's
	// default excludes them, unlike later releases.
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir, Package: "_"})
	if len(instances) == 0 {
		return nil, fmt.Errorf("policy dir %s: no CUE instances loaded", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("policy dir %s: loading CUE files: %w", dir, inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("policy dir %s: building CUE value: %w", dir, err)
	}

	return packFromValue(value, knownInvariants)
}

// LoadSource compiles a single CUE source string into a pack. Used by
// tests and by callers that embed their policy.
func LoadSource(src string, knownInvariants []string) (*Pack, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("policy source: %w", err)
	}
	return packFromValue(value, knownInvariants)
}

func packFromValue(value cue.Value, knownInvariants []string) (*Pack, error) {
	rolesVal := value.LookupPath(cue.ParsePath("role"))
	if !rolesVal.Exists() {
		return nil, fmt.Errorf("policy pack: no \"role\" declarations found")
	}

	iter, err := rolesVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("policy pack: iterating roles: %w", err)
	}

	var roles []Role
	for iter.Next() {
		r, err := roleFromValue(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return NewPack(roles, knownInvariants)
}

func roleFromValue(name string, v cue.Value) (Role, error) {
	r := Role{Name: name}

	if lv := v.LookupPath(cue.ParsePath("auth_level")); lv.Exists() {
		level, err := lv.Int64()
		if err != nil {
			return Role{}, fmt.Errorf("policy role %q: auth_level: %w", name, err)
		}
		r.AuthLevel = int(level)
	}

	caps, err := stringList(v, "capabilities")
	if err != nil {
		return Role{}, fmt.Errorf("policy role %q: %w", name, err)
	}
	r.Capabilities = caps

	invs, err := stringList(v, "invariants")
	if err != nil {
		return Role{}, fmt.Errorf("policy role %q: %w", name, err)
	}
	r.Invariants = invs

	return r, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	lv := v.LookupPath(cue.ParsePath(field))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, fmt.Errorf("%s: not a list: %w", field, err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, fmt.Errorf("%s: element: %w", field, err)
		}
		out = append(out, s)
	}
	return out, nil
}
