package segment

// segmentBits reserves the high bits of a packed id for the segment index,
// bounding the shard count well above any realistic hardware thread count
// while leaving the remaining bits for a segment-local arena id (spec
// §4.6: "segment << (32-log2 S_max) | local_id").
const (
	segmentBits = 6
	MaxSegments = 1 << segmentBits // 64

	localIDBits = 32 - segmentBits
	localIDMask = uint32(1)<<localIDBits - 1
)

// PackID combines a segment index and that segment's local arena id into a
// single segment-global id.
func PackID(segment int, local uint32) uint32 {
	return uint32(segment)<<localIDBits | (local & localIDMask)
}

// UnpackID splits a segment-global id back into its segment index and
// segment-local arena id.
func UnpackID(id uint32) (segment int, local uint32) {
	return int(id >> localIDBits), id & localIDMask
}
