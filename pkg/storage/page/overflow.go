package page

// OverflowHeaderSize is the prefix of an overflow page: type u16 | reserved u16 | next u32.
const OverflowHeaderSize = 8

// Overflow is a view over a page of the shared overflow chain.
type Overflow []byte

func (o Overflow) Init() {
	clear(o[:OverflowHeaderSize])
	setType(o, TypeOverflow)
}

func (o Overflow) Next() uint32 { return u32(o, 4) }
func (o Overflow) SetNext(id uint32) { putU32(o, 4, id) }
func (o Overflow) Data() []byte { return o[OverflowHeaderSize:] }
