package wasmplugin

// Memory represents the linear memory of the calling instance
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	WriteAt(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates memory in the guest through its malloc export.
// Freeing is the guest's responsibility.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
}
