package module

import (
	"github.com/wippyai/wasm-plugin-sdk/abi"
)

// fakeMemory is an abi.Memory over a growable Go slice.
type fakeMemory struct {
	data []byte
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{data: make([]byte, abi.PageSize)}
}

func (m *fakeMemory) Data() []byte { return m.data }

func (m *fakeMemory) grow(pages int) {
	m.data = append(m.data, make([]byte, pages*abi.PageSize)...)
}

// fakeFunction is a guest export backed by a Go closure.
type fakeFunction struct {
	fn      func(args, results []abi.Slot) error
	params  []abi.Kind
	results []abi.Kind
}

func (f *fakeFunction) Params() []abi.Kind  { return f.params }
func (f *fakeFunction) Results() []abi.Kind { return f.results }

func (f *fakeFunction) Invoke(args, results []abi.Slot) error {
	return f.fn(args, results)
}

// fakeInstance is a guest instance with a fixed export table.
type fakeInstance struct {
	exports map[string]*fakeFunction
}

func (i *fakeInstance) FindExport(name string) (abi.Function, bool) {
	f, ok := i.exports[name]
	if !ok {
		return nil, false
	}
	return f, true
}
