package plugin

import (
	"bytes"
	"encoding/binary"

	"github.com/wippyai/wasm-plugin-sdk/errors"
)

// Manifest is a descriptor decoded from its byte form.
type Manifest struct {
	Name        string
	Description string
	Modules     []ModuleInfo
	Version     Version
}

// Manifest returns the descriptor's metadata without running factories.
func (d *Descriptor) Manifest() Manifest {
	return Manifest{
		Name:        d.name,
		Description: d.description,
		Version:     d.version,
		Modules:     d.Modules(),
	}
}

// ParseBytes decodes the canonical byte form produced by Descriptor.Bytes.
func ParseBytes(b []byte) (Manifest, error) {
	r := &wireReader{buf: b}
	var m Manifest
	m.Name = r.str()
	m.Description = r.str()
	m.Version.Major = r.u32()
	m.Version.Minor = r.u32()
	m.Version.Patch = r.u32()
	m.Version.Build = r.u32()
	n := r.u32()
	if r.err == nil && uint64(n) > uint64(len(r.buf)) {
		r.err = errors.InvalidData(errors.PhaseDecode, "module count exceeds descriptor size")
	}
	for i := uint32(0); i < n && r.err == nil; i++ {
		m.Modules = append(m.Modules, ModuleInfo{Name: r.str(), Description: r.str()})
	}
	if r.err != nil {
		return Manifest{}, r.err
	}
	if len(r.buf) != 0 {
		return Manifest{}, errors.InvalidData(errors.PhaseDecode, "trailing bytes after descriptor")
	}
	return m, nil
}

type wireReader struct {
	err error
	buf []byte
}

func (r *wireReader) str() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.buf, 0)
	if i < 0 {
		r.err = errors.InvalidData(errors.PhaseDecode, "unterminated string in descriptor")
		return ""
	}
	s := string(r.buf[:i])
	r.buf = r.buf[i+1:]
	return s
}

func (r *wireReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 4 {
		r.err = errors.InvalidData(errors.PhaseDecode, "truncated descriptor")
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf)
	r.buf = r.buf[4:]
	return v
}
