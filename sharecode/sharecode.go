// Package sharecode turns a grid of palette indexes into a short URL-safe
// string and back.
//
// A code is one method letter followed by unpadded URL-safe base64 of a
// header and a body. The letter is 'A' plus a set of flags naming the stages
// that were applied:
//
//	1  dictionary   cells are replaced by indexes into a table of the
//	                distinct values, in order of first appearance
//	2  run-length   the value stream is split into (value, run) pairs
//	4  bit-packed   values and runs are written with the minimal bit width,
//	                least significant bit first
//	8  deflate      the body is zlib-compressed
//
// The header is dictSize (one byte, 0 without a dictionary), maxRun (uvarint,
// 0 without run-length coding), the dictionary bytes and valueCount
// (uvarint: the number of runs when run-length coded, otherwise the number of
// cells). Encode tries every combination and keeps the shortest.
package sharecode

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"
	"slices"

	"github.com/klauspost/compress/zlib"
)

const (
	flagDictionary = 1 << iota
	flagRunLength
	flagBitPacked
	flagDeflate

	flagMask = flagDictionary | flagRunLength | flagBitPacked | flagDeflate
)

const (
	// MaxCells bounds the number of cells a code may expand to.
	MaxCells = 1 << 20

	maxDictionary = 32
)

var (
	ErrInvalidCode = errors.New("sharecode: invalid code")
	ErrTruncated   = errors.New("sharecode: truncated payload")
	ErrCorrupt     = errors.New("sharecode: corrupt payload")
	ErrTooLarge    = errors.New("sharecode: grid too large")
)

var encoding = base64.RawURLEncoding

// Encode returns the shortest code for cells. An empty grid encodes to "".
func Encode(cells []byte) (string, error) {
	if len(cells) == 0 {
		return "", nil
	}
	if len(cells) > MaxCells {
		return "", fmt.Errorf("%w: %d cells", ErrTooLarge, len(cells))
	}

	var (
		best      []byte
		bestFlags byte
	)
	for flags := byte(0); flags <= flagMask; flags++ {
		payload, ok, err := encode(cells, flags)
		if err != nil {
			return "", err
		}
		if ok && (best == nil || len(payload) < len(best)) {
			best, bestFlags = payload, flags
		}
	}

	return string(rune('A'+bestFlags)) + encoding.EncodeToString(best), nil
}

// encode builds header || body for one combination of stages. The second
// result is false when the combination does not apply to cells.
func encode(cells []byte, flags byte) ([]byte, bool, error) {
	vals := cells
	var dict []byte
	if flags&flagDictionary != 0 {
		dict, vals = dictionary(cells)
		if dict == nil {
			return nil, false, nil
		}
	}

	var runs []int
	maxRun := 0
	if flags&flagRunLength != 0 {
		vals, runs = runLength(vals)
		maxRun = slices.Max(runs)
	}

	payload := []byte{byte(len(dict))}
	payload = binary.AppendUvarint(payload, uint64(maxRun))
	payload = append(payload, dict...)
	payload = binary.AppendUvarint(payload, uint64(len(vals)))

	var body []byte
	if flags&flagBitPacked != 0 {
		var w bitWriter
		vw := valueWidth(len(dict))
		for _, v := range vals {
			w.write(uint64(v), vw)
		}
		if runs != nil {
			rw := runWidth(maxRun)
			for _, r := range runs {
				w.write(uint64(r-1), rw)
			}
		}
		body = w.bytes()
	} else {
		body = append(body, vals...)
		for _, r := range runs {
			body = binary.AppendUvarint(body, uint64(r))
		}
	}

	if flags&flagDeflate != 0 {
		var err error
		if body, err = deflate(body); err != nil {
			return nil, false, err
		}
	}

	return append(payload, body...), true, nil
}

// dictionary maps cells to indexes into their distinct values. It returns a
// nil dictionary when there are too many distinct values.
func dictionary(cells []byte) ([]byte, []byte) {
	var (
		seen [256]int16
		dict []byte
	)
	for i := range seen {
		seen[i] = -1
	}

	idx := make([]byte, len(cells))
	for i, c := range cells {
		if seen[c] < 0 {
			if len(dict) == maxDictionary {
				return nil, nil
			}
			seen[c] = int16(len(dict))
			dict = append(dict, c)
		}
		idx[i] = byte(seen[c])
	}
	return dict, idx
}

func runLength(vals []byte) ([]byte, []int) {
	var (
		out  []byte
		runs []int
	)
	for i := 0; i < len(vals); {
		j := i + 1
		for j < len(vals) && vals[j] == vals[i] {
			j++
		}
		out = append(out, vals[i])
		runs = append(runs, j-i)
		i = j
	}
	return out, runs
}

func valueWidth(dictSize int) int {
	if dictSize == 0 {
		return 8
	}
	return bits.Len(uint(dictSize - 1))
}

func runWidth(maxRun int) int {
	return bits.Len(uint(maxRun - 1))
}

func deflate(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("could not create deflate writer: %w", err)
	}
	if _, err := zw.Write(b); err != nil {
		return nil, fmt.Errorf("could not deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("could not deflate: %w", err)
	}
	return buf.Bytes(), nil
}

func inflate(b []byte, limit int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	} else if len(out) > limit {
		return nil, fmt.Errorf("%w: deflated body exceeds %d bytes", ErrTooLarge, limit)
	}
	return out, nil
}
