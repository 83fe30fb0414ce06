package sharecode

// bitWriter appends fixed-width fields least significant bit first.
type bitWriter struct {
	buf []byte
	acc uint64
	n   int
}

// write appends the low width bits of v; width is at most 32.
func (w *bitWriter) write(v uint64, width int) {
	if width == 0 {
		return
	}
	w.acc |= (v & (1<<width - 1)) << w.n
	w.n += width
	for w.n >= 8 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc >>= 8
		w.n -= 8
	}
}

// bytes flushes the partial last byte, zero padded.
func (w *bitWriter) bytes() []byte {
	if w.n > 0 {
		w.buf = append(w.buf, byte(w.acc))
		w.acc, w.n = 0, 0
	}
	return w.buf
}

type bitReader struct {
	buf []byte
	pos int
	acc uint64
	n   int
}

func (r *bitReader) read(width int) (uint64, bool) {
	for r.n < width {
		if r.pos == len(r.buf) {
			return 0, false
		}
		r.acc |= uint64(r.buf[r.pos]) << r.n
		r.pos++
		r.n += 8
	}
	v := r.acc & (1<<width - 1)
	r.acc >>= width
	r.n -= width
	return v, true
}
