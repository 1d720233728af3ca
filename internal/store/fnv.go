package store

// fnv1a32Offset and fnv1a32Prime are the 32-bit FNV-1a constants. The
// hash is computed entirely in 32-bit arithmetic and only widened to
// 64 bits afterward for bucket placement — this is not a native
// 64-bit FNV variant, and must stay byte-for-byte compatible with
// that choice for wire-level key placement to be reproducible.
const (
	fnv1a32Offset uint32 = 0x811C9DC5
	fnv1a32Prime  uint32 = 0x01000193
)

// FNV1a32 hashes data with a 32-bit FNV-1a-style function, which adds
// each byte to the state instead of XOR-ing it in, and widens the
// result to a uint64 for use as a hashtable.Node code.
func FNV1a32(data []byte) uint64 {
	h := fnv1a32Offset
	for _, b := range data {
		h = (h + uint32(b)) * fnv1a32Prime
	}
	return uint64(h)
}
