// Package wasmtest assembles small WebAssembly guest modules for tests.
//
// Guests are built directly in the binary format: no toolchain, no text
// format. Only what host function tests need is supported: function
// imports, one memory, mutable i32 globals, exports and active data.
//
//	m := wasmtest.New()
//	upper := m.ImportFunc("memory_access_module", "to_uppercase", wasmtest.Sig(wasmtest.I32, wasmtest.I32).To(wasmtest.I32))
//	m.Memory(1)
//	m.Export("call_upper", m.Func(wasmtest.Sig(wasmtest.I32, wasmtest.I32).To(wasmtest.I32),
//		wasmtest.LocalGet(0), wasmtest.LocalGet(1), wasmtest.Call(upper)))
//	wasm := m.Bytes()
package wasmtest

// Value types.
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	externFunc   = 0x00
	externMemory = 0x02
	externGlobal = 0x03
)

// FuncType is a function signature.
type FuncType struct {
	Params  []byte
	Results []byte
}

// Sig starts a signature with the given parameters.
func Sig(params ...byte) FuncType {
	return FuncType{Params: params}
}

// To sets the results of a signature.
func (t FuncType) To(results ...byte) FuncType {
	t.Results = results
	return t
}

func (t FuncType) equal(o FuncType) bool {
	return string(t.Params) == string(o.Params) && string(t.Results) == string(o.Results)
}

type funcImport struct {
	module string
	name   string
	typ    uint32
}

type function struct {
	locals []byte
	body   []byte
	typ    uint32
}

type export struct {
	name  string
	kind  byte
	index uint32
}

type global struct {
	init int32
}

type segment struct {
	data   []byte
	offset int32
}

// Module is a guest module under construction.
type Module struct {
	types   []FuncType
	imports []funcImport
	funcs   []function
	globals []global
	exports []export
	data    []segment
	memMin  uint32
	memMax  uint32
	hasMem  bool
	hasMax  bool
}

func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(t FuncType) uint32 {
	for i, existing := range m.types {
		if existing.equal(t) {
			return uint32(i)
		}
	}
	m.types = append(m.types, t)
	return uint32(len(m.types) - 1)
}

// ImportFunc adds a function import and returns its function index.
// Imports must be added before any Func.
func (m *Module) ImportFunc(module, name string, t FuncType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must precede defined functions")
	}
	m.imports = append(m.imports, funcImport{module: module, name: name, typ: m.typeIndex(t)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function from instruction chunks and returns its index.
// The trailing end opcode is added automatically.
func (m *Module) Func(t FuncType, body ...[]byte) uint32 {
	return m.FuncWithLocals(t, nil, body...)
}

// FuncWithLocals is Func with extra locals declared after the parameters.
func (m *Module) FuncWithLocals(t FuncType, locals []byte, body ...[]byte) uint32 {
	var code []byte
	for _, b := range body {
		code = append(code, b...)
	}
	code = append(code, opEnd)
	m.funcs = append(m.funcs, function{typ: m.typeIndex(t), locals: locals, body: code})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory declares the module's memory with min pages and no maximum.
func (m *Module) Memory(minPages uint32) {
	m.hasMem, m.memMin = true, minPages
}

// MemoryMax declares the module's memory with min and max pages.
func (m *Module) MemoryMax(minPages, maxPages uint32) {
	m.hasMem, m.memMin, m.memMax, m.hasMax = true, minPages, maxPages, true
}

// Global adds a mutable i32 global and returns its index.
func (m *Module) Global(init int32) uint32 {
	m.globals = append(m.globals, global{init: init})
	return uint32(len(m.globals) - 1)
}

// Export exports a function.
func (m *Module) Export(name string, funcIndex uint32) {
	m.exports = append(m.exports, export{name: name, kind: externFunc, index: funcIndex})
}

// ExportMemory exports memory 0.
func (m *Module) ExportMemory(name string) {
	m.exports = append(m.exports, export{name: name, kind: externMemory})
}

// ExportGlobal exports a global.
func (m *Module) ExportGlobal(name string, index uint32) {
	m.exports = append(m.exports, export{name: name, kind: externGlobal, index: index})
}

// Data adds an active data segment for memory 0.
func (m *Module) Data(offset int32, data []byte) {
	m.data = append(m.data, segment{offset: offset, data: append([]byte(nil), data...)})
}

// Bytes encodes the module.
func (m *Module) Bytes() []byte {
	var w writer
	w.raw([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	if len(m.types) > 0 {
		var sec writer
		sec.u32(uint32(len(m.types)))
		for _, t := range m.types {
			sec.byte(0x60)
			sec.vec(t.Params)
			sec.vec(t.Results)
		}
		w.section(sectionType, &sec)
	}

	if len(m.imports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.imports)))
		for _, imp := range m.imports {
			sec.name(imp.module)
			sec.name(imp.name)
			sec.byte(externFunc)
			sec.u32(imp.typ)
		}
		w.section(sectionImport, &sec)
	}

	if len(m.funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			sec.u32(f.typ)
		}
		w.section(sectionFunction, &sec)
	}

	if m.hasMem {
		var sec writer
		sec.u32(1)
		if m.hasMax {
			sec.byte(0x01)
			sec.u32(m.memMin)
			sec.u32(m.memMax)
		} else {
			sec.byte(0x00)
			sec.u32(m.memMin)
		}
		w.section(sectionMemory, &sec)
	}

	if len(m.globals) > 0 {
		var sec writer
		sec.u32(uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.byte(I32)
			sec.byte(0x01) // mutable
			sec.raw(I32Const(g.init))
			sec.byte(opEnd)
		}
		w.section(sectionGlobal, &sec)
	}

	if len(m.exports) > 0 {
		var sec writer
		sec.u32(uint32(len(m.exports)))
		for _, e := range m.exports {
			sec.name(e.name)
			sec.byte(e.kind)
			sec.u32(e.index)
		}
		w.section(sectionExport, &sec)
	}

	if len(m.funcs) > 0 {
		var sec writer
		sec.u32(uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body writer
			body.u32(uint32(len(f.locals)))
			for _, l := range f.locals {
				body.u32(1)
				body.byte(l)
			}
			body.raw(f.body)
			sec.vec(body.bytes())
		}
		w.section(sectionCode, &sec)
	}

	if len(m.data) > 0 {
		var sec writer
		sec.u32(uint32(len(m.data)))
		for _, d := range m.data {
			sec.u32(0) // active, memory 0
			sec.raw(I32Const(d.offset))
			sec.byte(opEnd)
			sec.vec(d.data)
		}
		w.section(sectionData, &sec)
	}

	return w.bytes()
}
