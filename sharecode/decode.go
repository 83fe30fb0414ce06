package sharecode

import (
	"encoding/binary"
	"fmt"
)

// Decode expands a code produced by Encode. The empty code decodes to nil.
func Decode(code string) ([]byte, error) {
	if code == "" {
		return nil, nil
	}

	flags := code[0] - 'A'
	if code[0] < 'A' || flags > flagMask {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidCode, code[0])
	}
	data, err := encoding.DecodeString(code[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCode, err)
	}

	p := payload{data: data}
	dictSize := int(p.u8())
	maxRun := p.uvarint()
	dict := p.next(dictSize)
	count := p.uvarint()
	if p.err != nil {
		return nil, p.err
	}

	switch {
	case (flags&flagDictionary != 0) != (dictSize > 0):
		return nil, fmt.Errorf("%w: dictionary size %d for method %q", ErrCorrupt, dictSize, code[0])
	case (flags&flagRunLength != 0) != (maxRun > 0):
		return nil, fmt.Errorf("%w: maximum run %d for method %q", ErrCorrupt, maxRun, code[0])
	case maxRun > MaxCells:
		return nil, fmt.Errorf("%w: run of %d cells", ErrTooLarge, maxRun)
	case count == 0 || count > MaxCells:
		return nil, fmt.Errorf("%w: %d values", ErrCorrupt, count)
	}
	n := int(count)

	body := p.rest()
	if flags&flagDeflate != 0 {
		if body, err = inflate(body, n*(1+binary.MaxVarintLen64)); err != nil {
			return nil, err
		}
	}

	var (
		vals []byte
		runs []int
	)
	if flags&flagBitPacked != 0 {
		vals, runs, err = unpack(body, n, dictSize, int(maxRun), flags&flagRunLength != 0)
	} else {
		vals, runs, err = split(body, n, int(maxRun), flags&flagRunLength != 0)
	}
	if err != nil {
		return nil, err
	}

	if dictSize > 0 {
		for i, v := range vals {
			if int(v) >= dictSize {
				return nil, fmt.Errorf("%w: index %d outside dictionary of %d", ErrCorrupt, v, dictSize)
			}
			vals[i] = dict[v]
		}
	}

	if runs == nil {
		return vals, nil
	}

	total := 0
	for _, r := range runs {
		if total += r; total > MaxCells {
			return nil, fmt.Errorf("%w: more than %d cells", ErrTooLarge, MaxCells)
		}
	}
	cells := make([]byte, 0, total)
	for i, v := range vals {
		for range runs[i] {
			cells = append(cells, v)
		}
	}
	return cells, nil
}

func unpack(body []byte, n, dictSize, maxRun int, runLength bool) ([]byte, []int, error) {
	r := bitReader{buf: body}

	vals := make([]byte, n)
	vw := valueWidth(dictSize)
	for i := range vals {
		v, ok := r.read(vw)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %d of %d values", ErrTruncated, i, n)
		}
		vals[i] = byte(v)
	}

	var runs []int
	if runLength {
		runs = make([]int, n)
		rw := runWidth(maxRun)
		for i := range runs {
			v, ok := r.read(rw)
			if !ok {
				return nil, nil, fmt.Errorf("%w: %d of %d runs", ErrTruncated, i, n)
			}
			if runs[i] = int(v) + 1; runs[i] > maxRun {
				return nil, nil, fmt.Errorf("%w: run of %d exceeds %d", ErrCorrupt, runs[i], maxRun)
			}
		}
	}

	if r.pos != len(body) {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(body)-r.pos)
	}
	return vals, runs, nil
}

func split(body []byte, n, maxRun int, runLength bool) ([]byte, []int, error) {
	p := payload{data: body}
	vals := p.next(n)

	var runs []int
	if runLength {
		runs = make([]int, n)
		for i := range runs {
			v := p.uvarint()
			if p.err != nil {
				return nil, nil, p.err
			}
			if v == 0 || v > uint64(maxRun) {
				return nil, nil, fmt.Errorf("%w: run of %d, maximum %d", ErrCorrupt, v, maxRun)
			}
			runs[i] = int(v)
		}
	}

	if p.err != nil {
		return nil, nil, p.err
	}
	if rest := p.rest(); len(rest) > 0 {
		return nil, nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(rest))
	}
	return vals, runs, nil
}

// payload reads the byte-aligned parts of a code. The first failure sticks
// in err and turns every later read into a no-op.
type payload struct {
	data []byte
	pos  int
	err  error
}

func (p *payload) u8() byte {
	b := p.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (p *payload) next(n int) []byte {
	if p.err != nil {
		return nil
	}
	if n > len(p.data)-p.pos {
		p.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, p.pos, len(p.data)-p.pos)
		return nil
	}
	b := p.data[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *payload) uvarint() uint64 {
	if p.err != nil {
		return 0
	}
	v, n := binary.Uvarint(p.data[p.pos:])
	switch {
	case n == 0:
		p.err = fmt.Errorf("%w: varint at offset %d", ErrTruncated, p.pos)
		return 0
	case n < 0:
		p.err = fmt.Errorf("%w: varint overflow at offset %d", ErrCorrupt, p.pos)
		return 0
	}
	p.pos += n
	return v
}

func (p *payload) rest() []byte {
	if p.err != nil {
		return nil
	}
	return p.data[p.pos:]
}
