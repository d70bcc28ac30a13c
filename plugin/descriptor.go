package plugin

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
	"sync"

	"github.com/wippyai/wasm-plugin-sdk/errors"
	"github.com/wippyai/wasm-plugin-sdk/module"
	"go.uber.org/zap"
)

// ModuleInfo is the load-time description of one module.
type ModuleInfo struct {
	Name        string
	Description string
}

// Descriptor is the assembled, immutable form of a Definition.
type Descriptor struct {
	name        string
	description string
	wire        []byte
	entries     []*entry
	version     Version
}

type entry struct {
	mod     module.Module
	err     error
	factory Factory
	info    ModuleInfo
	once    sync.Once
}

// New assembles a descriptor from def. Factories are not run.
func New(def *Definition) (*Descriptor, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	d := &Descriptor{
		name:        def.Name,
		description: def.Description,
		version:     def.Version,
		entries:     make([]*entry, len(def.Modules)),
	}
	for i, m := range def.Modules {
		d.entries[i] = &entry{
			info:    ModuleInfo{Name: m.Name, Description: m.Description},
			factory: m.Factory,
		}
	}
	d.wire = d.encode()
	return d, nil
}

func (d *Descriptor) Name() string {
	return d.name
}

func (d *Descriptor) Description() string {
	return d.description
}

func (d *Descriptor) Version() Version {
	return d.version
}

// NumModules returns the number of declared modules.
func (d *Descriptor) NumModules() int {
	return len(d.entries)
}

// Modules returns the declared modules in order.
func (d *Descriptor) Modules() []ModuleInfo {
	out := make([]ModuleInfo, len(d.entries))
	for i, e := range d.entries {
		out[i] = e.info
	}
	return out
}

// Index returns the position of the module called name.
func (d *Descriptor) Index(name string) (int, bool) {
	for i, e := range d.entries {
		if e.info.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Instantiate returns module i, running its factory on first use. The
// module is frozen. Later calls return the same module or the same error.
func (d *Descriptor) Instantiate(i int) (module.Module, error) {
	if i < 0 || i >= len(d.entries) {
		return nil, errors.NotFound(errors.PhaseRegister, "module", fmt.Sprintf("#%d", i))
	}
	e := d.entries[i]
	e.once.Do(func() {
		e.mod, e.err = e.create()
		if e.err != nil {
			Logger().Warn("module factory failed",
				zap.String("plugin", d.name),
				zap.String("module", e.info.Name),
				zap.Error(e.err))
			return
		}
		Logger().Debug("module instantiated",
			zap.String("plugin", d.name),
			zap.String("module", e.info.Name),
			zap.Int("funcs", len(e.mod.Funcs())))
	})
	return e.mod, e.err
}

// Module is Instantiate by module name.
func (d *Descriptor) Module(name string) (module.Module, error) {
	i, ok := d.Index(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseRegister, "module", name)
	}
	return d.Instantiate(i)
}

func (e *entry) create() (mod module.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			mod, err = nil, errors.Internal(e.info.Name, r)
		}
	}()
	mod, err = e.factory()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRegister, errors.KindInternal, err, "factory for module "+e.info.Name)
	}
	if mod == nil {
		return nil, errors.InvalidData(errors.PhaseRegister, "factory for module "+e.info.Name+" returned nil")
	}
	if mod.Name() != e.info.Name {
		return nil, errors.InvalidData(errors.PhaseRegister,
			fmt.Sprintf("factory for module %q built module %q", e.info.Name, mod.Name()))
	}
	mod.Freeze()
	return mod, nil
}

// Bytes returns a copy of the canonical byte form of the descriptor. It is
// computed once and identical on every call.
func (d *Descriptor) Bytes() []byte {
	return slices.Clone(d.wire)
}

func (d *Descriptor) encode() []byte {
	var buf bytes.Buffer
	putString(&buf, d.name)
	putString(&buf, d.description)
	putU32(&buf, d.version.Major)
	putU32(&buf, d.version.Minor)
	putU32(&buf, d.version.Patch)
	putU32(&buf, d.version.Build)
	putU32(&buf, uint32(len(d.entries)))
	for _, e := range d.entries {
		putString(&buf, e.info.Name)
		putString(&buf, e.info.Description)
	}
	return buf.Bytes()
}

func putString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
