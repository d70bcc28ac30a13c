package plugin

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/module"
)

// Version is the plugin's version quadruple.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
	Build uint32
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// Factory creates a module. The host calls it at most once.
type Factory func() (module.Module, error)

// ModuleSpec names a module and the factory that builds it.
type ModuleSpec struct {
	Factory     Factory
	Name        string
	Description string
}

// Definition is the static declaration of a plugin.
type Definition struct {
	Name        string
	Description string
	Modules     []ModuleSpec
	Version     Version
}

// Define declares a plugin. Module order is preserved.
func Define(name, description string, version Version, modules ...ModuleSpec) *Definition {
	return &Definition{
		Name:        name,
		Description: description,
		Version:     version,
		Modules:     append([]ModuleSpec(nil), modules...),
	}
}

// Validate checks that the definition can be turned into a descriptor.
func (d *Definition) Validate() error {
	if d == nil {
		return errors.InvalidData(errors.PhaseRegister, "nil plugin definition")
	}
	if d.Name == "" {
		return errors.InvalidName("plugin")
	}
	if strings.IndexByte(d.Name, 0) >= 0 || strings.IndexByte(d.Description, 0) >= 0 {
		return errors.InvalidData(errors.PhaseRegister, "plugin name and description must not contain NUL")
	}
	seen := make(map[string]struct{}, len(d.Modules))
	for i, m := range d.Modules {
		if m.Name == "" {
			return errors.InvalidName(fmt.Sprintf("module %d", i))
		}
		if strings.IndexByte(m.Name, 0) >= 0 || strings.IndexByte(m.Description, 0) >= 0 {
			return errors.InvalidData(errors.PhaseRegister, "module name and description must not contain NUL")
		}
		if m.Factory == nil {
			return errors.New(errors.PhaseRegister, errors.KindInvalidData).
				Detail("module %q has no factory", m.Name).
				Build()
		}
		if _, dup := seen[m.Name]; dup {
			return errors.New(errors.PhaseRegister, errors.KindDuplicateName).
				Detail("module %q declared twice in plugin %q", m.Name, d.Name).
				Build()
		}
		seen[m.Name] = struct{}{}
	}
	return nil
}

var (
	registered  *Definition
	registerMu  sync.Mutex
	current     *Descriptor
	currentErr  error
	currentOnce sync.Once
)

// Register installs the process-wide plugin definition. It panics if a
// definition is already registered or def is invalid, so mistakes surface
// at load time.
func Register(def *Definition) {
	if err := def.Validate(); err != nil {
		panic(err)
	}
	registerMu.Lock()
	defer registerMu.Unlock()
	if registered != nil {
		panic(errors.New(errors.PhaseRegister, errors.KindDuplicateName).
			Detail("plugin %q already registered, cannot register %q", registered.Name, def.Name).
			Build())
	}
	registered = def
}

// Registered returns the registered definition, or nil.
func Registered() *Definition {
	registerMu.Lock()
	defer registerMu.Unlock()
	return registered
}

// Current returns the process-wide descriptor, building it on first use.
func Current() (*Descriptor, error) {
	currentOnce.Do(func() {
		def := Registered()
		if def == nil {
			currentErr = errors.NotFound(errors.PhaseRegister, "plugin", "registered")
			return
		}
		current, currentErr = New(def)
	})
	return current, currentErr
}
