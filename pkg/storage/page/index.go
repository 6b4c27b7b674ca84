package page

// IndexHeaderSize is the prefix of a hash directory page:
// type u16 | reserved u16 | level u32 | next split u32 | per u32.
const IndexHeaderSize = 16

// Index is a view over one hash directory page. Only the root's level and next split
// are authoritative; per is the number of buckets addressed by one slot.
type Index []byte

func (x Index) Init(per uint32) {
	clear(x)
	setType(x, TypeHashIndex)
	x.SetPer(per)
}

func (x Index) Level() uint32 { return u32(x, 4) }
func (x Index) SetLevel(v uint32) { putU32(x, 4, v) }
func (x Index) NextSplit() uint32 { return u32(x, 8) }
func (x Index) SetNextSplit(v uint32) { putU32(x, 8, v) }
func (x Index) Per() uint32 { return u32(x, 12) }
func (x Index) SetPer(v uint32) { putU32(x, 12, v) }
func (x Index) Slot(i int) uint32 { return u32(x, IndexHeaderSize+4*i) }
func (x Index) SetSlot(i int, id uint32) { putU32(x, IndexHeaderSize+4*i, id) }

// MaxSlots returns the fan-out of a directory page of size pageSize.
func MaxSlots(pageSize int) int {
	return (pageSize - IndexHeaderSize) / 4
}
