package bits

type Writer struct {
	buf  []byte // total buf
	bits byte   // bits left in last byte
}

func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) WriteBit(b byte) {
	if w.bits == 0 {
		w.buf = append(w.buf, 0)
		w.bits = 7
	} else {
		w.bits--
	}

	w.buf[len(w.buf)-1] |= b << w.bits
}

func (w *Writer) WriteBits(v uint32, n byte) {
	for i := n - 1; i != 255; i-- {
		w.WriteBit(byte(v>>i) & 0b1)
	}
}

func (w *Writer) WriteBits16(v uint16, n byte) {
	for i := n - 1; i != 255; i-- {
		w.WriteBit(byte(v>>i) & 0b1)
	}
}

func (w *Writer) WriteBits8(v, n byte) {
	for i := n - 1; i != 255; i-- {
		w.WriteBit((v >> i) & 0b1)
	}
}

func (w *Writer) WriteBits64(v uint64, n byte) {
	for i := n - 1; i != 255; i-- {
		w.WriteBit(byte(v>>i) & 0b1)
	}
}

func (w *Writer) WriteAllBits(bit, n byte) {
	for ; n > 0; n-- {
		w.WriteBit(bit)
	}
}

//goland:noinspection GoStandardMethods
func (w *Writer) WriteByte(b byte) {
	if w.bits != 0 {
		w.WriteBits8(b, 8)
	} else {
		w.buf = append(w.buf, b)
	}
}

func (w *Writer) WriteUint16(v uint16) {
	if w.bits != 0 {
		w.WriteBits16(v, 16)
	} else {
		w.buf = append(w.buf, byte(v>>8), byte(v))
	}
}

func (w *Writer) WriteUint24(v uint32) {
	if w.bits != 0 {
		w.WriteBits(v, 24)
	} else {
		w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v))
	}
}

func (w *Writer) WriteUint32(v uint32) {
	if w.bits != 0 {
		w.WriteBits(v, 32)
	} else {
		w.buf = append(w.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

func (w *Writer) WriteUint64(v uint64) {
	w.WriteUint32(uint32(v >> 32))
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteBytes(b ...byte) {
	if w.bits != 0 {
		for _, i := range b {
			w.WriteBits8(i, 8)
		}
	} else {
		w.buf = append(w.buf, b...)
	}
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.bits = 0
}
