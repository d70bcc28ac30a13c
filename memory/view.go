package memory

import (
	"encoding/binary"
	"sync/atomic"
	"unicode/utf8"

	wasmplugin "github.com/wippyai/wasm-plugin-sdk"
	"github.com/wippyai/wasm-plugin-sdk/abi"
	"github.com/wippyai/wasm-plugin-sdk/errors"
)

var (
	_ wasmplugin.Memory      = (*View)(nil)
	_ wasmplugin.MemorySizer = (*View)(nil)
)

// View is a bounds-checked window over an instance's linear memory.
//
// Its length is snapshotted when the view is created and never changes, so
// a view is never stale within its own scope. Guest code run through a
// re-entrant call may grow memory; use Reacquire afterwards. Byte slices
// returned by Bytes alias guest memory and must not be used after a call
// that may have grown memory or after the host call returns.
type View struct {
	host  abi.Memory
	scope *scope
	size  uint64
}

// scope is shared by a view and every view reacquired from it.
type scope struct {
	released atomic.Bool
}

// New creates a view over host memory. A nil host yields an empty view.
func New(host abi.Memory) *View {
	return newView(host, &scope{})
}

func newView(host abi.Memory, s *scope) *View {
	v := &View{host: host, scope: s}
	if host != nil {
		v.size = uint64(len(host.Data()))
	}
	return v
}

// Len returns the byte length captured when the view was created.
func (v *View) Len() uint64 {
	return v.size
}

// Size returns the captured byte length, truncated to 32 bits.
func (v *View) Size() uint32 {
	if v.size > 1<<32-1 {
		return 1<<32 - 1
	}
	return uint32(v.size)
}

// Pages returns the captured length in 64KiB pages.
func (v *View) Pages() uint32 {
	return uint32(v.size / abi.PageSize)
}

// Reacquire returns a fresh view re-derived from the host memory, picking up
// any growth since v was created. The new view shares v's release scope.
func (v *View) Reacquire() (*View, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	return newView(v.host, v.scope), nil
}

// Release poisons the view and every view reacquired from it. Every later
// operation fails.
func (v *View) Release() {
	v.scope.released.Store(true)
}

// Released reports whether the view's scope was released.
func (v *View) Released() bool {
	return v.scope.released.Load()
}

// Bytes returns a mutable slice of length bytes at offset that aliases guest
// memory.
func (v *View) Bytes(offset, length uint32) ([]byte, error) {
	return v.region(uint64(offset), uint64(length))
}

// ReadExact copies length bytes at offset into a fresh buffer.
func (v *View) ReadExact(offset, length uint32) ([]byte, error) {
	b, err := v.region(uint64(offset), uint64(length))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Write copies data into linear memory at offset. Overlap with a slice from
// Bytes behaves as a forward byte-wise copy.
func (v *View) Write(data []byte, offset uint32) error {
	b, err := v.region(uint64(offset), uint64(len(data)))
	if err != nil {
		return err
	}
	for i := range data {
		b[i] = data[i]
	}
	return nil
}

// Read returns a copy of length bytes at offset.
func (v *View) Read(offset, length uint32) ([]byte, error) {
	return v.ReadExact(offset, length)
}

// WriteAt is Write with the offset first, matching the root Memory interface.
func (v *View) WriteAt(offset uint32, data []byte) error {
	return v.Write(data, offset)
}

// ReadString reads length bytes at offset as UTF-8.
func (v *View) ReadString(offset, length uint32) (string, error) {
	b, err := v.region(uint64(offset), uint64(length))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseMemory, b)
	}
	return string(b), nil
}

// ReadCString reads a NUL-terminated string starting at offset, scanning at
// most limit bytes.
func (v *View) ReadCString(offset, limit uint32) (string, error) {
	if err := v.check(); err != nil {
		return "", err
	}
	end := uint64(offset) + uint64(limit)
	if end > v.size {
		end = v.size
	}
	if uint64(offset) > end {
		return "", errors.OutOfBounds(uint64(offset), 1, v.size)
	}
	b, err := v.region(uint64(offset), end-uint64(offset))
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			if !utf8.Valid(b[:i]) {
				return "", errors.InvalidUTF8(errors.PhaseMemory, b[:i])
			}
			return string(b[:i]), nil
		}
	}
	return "", errors.New(errors.PhaseMemory, errors.KindInvalidData).
		Detail("no NUL terminator within %d bytes of %d", limit, offset).
		Build()
}

// ReadU8 reads one byte.
func (v *View) ReadU8(offset uint32) (uint8, error) {
	b, err := v.region(uint64(offset), 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (v *View) ReadU16(offset uint32) (uint16, error) {
	b, err := v.region(uint64(offset), 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (v *View) ReadU32(offset uint32) (uint32, error) {
	b, err := v.region(uint64(offset), 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (v *View) ReadU64(offset uint32) (uint64, error) {
	b, err := v.region(uint64(offset), 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU8 writes one byte.
func (v *View) WriteU8(offset uint32, value uint8) error {
	b, err := v.region(uint64(offset), 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (v *View) WriteU16(offset uint32, value uint16) error {
	b, err := v.region(uint64(offset), 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (v *View) WriteU32(offset uint32, value uint32) error {
	b, err := v.region(uint64(offset), 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (v *View) WriteU64(offset uint32, value uint64) error {
	b, err := v.region(uint64(offset), 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}

func (v *View) check() error {
	if v.scope.released.Load() {
		return errors.Released(errors.PhaseMemory, "memory view")
	}
	return nil
}

// region validates [offset, offset+length) against the snapshot and
// re-derives the base from the host. It never touches memory on failure.
func (v *View) region(offset, length uint64) ([]byte, error) {
	if err := v.check(); err != nil {
		return nil, err
	}
	end := offset + length
	if end < offset {
		return nil, errors.Overflow(offset, length)
	}
	if end > v.size {
		return nil, errors.OutOfBounds(offset, length, v.size)
	}
	if length == 0 {
		return []byte{}, nil
	}
	data := v.host.Data()
	if uint64(len(data)) < end {
		// live region shorter than the snapshot
		return nil, errors.OutOfBounds(offset, length, uint64(len(data)))
	}
	return data[offset:end:end], nil
}
