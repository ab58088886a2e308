// Package mres reads and writes multires objects: the .mres container holding
// a base mesh, its modifier levels and displacement layer, and the .mdx files
// external displacement layers are paged from.
package mres

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrBadMagic    = errors.New("mres: bad magic")
	ErrChecksum    = errors.New("mres: checksum mismatch")
	ErrVersion     = errors.New("mres: unsupported version")
	ErrCompression = errors.New("mres: unsupported compression")
)

// Compression indicates the codec used for the content section.
type Compression uint8

const (
	CompNone Compression = 0
	CompZlib Compression = 1
	CompZstd Compression = 2
)

// ParseCompression maps a config name to a codec.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompNone, nil
	case "zlib":
		return CompZlib, nil
	case "zstd":
		return CompZstd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrCompression, s)
}

func (c Compression) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompZlib:
		return "zlib"
	case CompZstd:
		return "zstd"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

const (
	magic = "MRES"
	// VersionLegacy content is a pre-displacement level hierarchy.
	VersionLegacy uint8 = 1
	// VersionObject content is a base mesh with its displacement layer.
	VersionObject uint8 = 2

	headerLen  = 6
	trailerLen = 8
)

// wrap frames content: magic, version, compression, compressed content, and the
// xxhash64 of the uncompressed content.
func wrap(version uint8, content []byte, comp Compression) ([]byte, error) {
	var body []byte
	switch comp {
	case CompNone:
		body = content
	case CompZlib:
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(content); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		body = buf.Bytes()
	case CompZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		body = enc.EncodeAll(content, nil)
		_ = enc.Close()
	default:
		return nil, fmt.Errorf("%w: %d", ErrCompression, comp)
	}

	var out bytes.Buffer
	out.Grow(headerLen + len(body) + trailerLen)
	out.WriteString(magic)
	_ = binary.Write(&out, binary.LittleEndian, version)
	_ = binary.Write(&out, binary.LittleEndian, uint8(comp))
	_, _ = out.Write(body)
	_ = binary.Write(&out, binary.LittleEndian, xxhash.Sum64(content))
	return out.Bytes(), nil
}

// unwrap checks the framing of data and returns its version, codec and
// uncompressed content.
func unwrap(data []byte) (uint8, Compression, []byte, error) {
	if len(data) < headerLen+trailerLen || string(data[:4]) != magic {
		return 0, 0, nil, ErrBadMagic
	}
	version := data[4]
	comp := Compression(data[5])
	body := data[headerLen : len(data)-trailerLen]
	sum := binary.LittleEndian.Uint64(data[len(data)-trailerLen:])

	var content []byte
	switch comp {
	case CompNone:
		content = body
	case CompZlib:
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return 0, 0, nil, err
		}
		defer zr.Close()
		if content, err = io.ReadAll(zr); err != nil {
			return 0, 0, nil, err
		}
	case CompZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return 0, 0, nil, err
		}
		defer dec.Close()
		if content, err = dec.DecodeAll(body, nil); err != nil {
			return 0, 0, nil, err
		}
	default:
		return 0, 0, nil, fmt.Errorf("%w: %d", ErrCompression, comp)
	}
	if xxhash.Sum64(content) != sum {
		return 0, 0, nil, ErrChecksum
	}
	return version, comp, content, nil
}

// encoder appends little-endian fields to a growing content section.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8) { e.buf = append(e.buf, v) }

func (e *encoder) u16(v uint16) { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }

func (e *encoder) uvar(v int) { e.buf = binary.AppendUvarint(e.buf, uint64(v)) }

func (e *encoder) i32(v int) { e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(int32(v))) }

func (e *encoder) f32(v float64) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(float32(v)))
}

func (e *encoder) f64(v float64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v)) }

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
		return
	}
	e.u8(0)
}

func (e *encoder) str(s string) {
	e.uvar(len(s))
	e.buf = append(e.buf, s...)
}

func (e *encoder) blob(b []byte) {
	e.uvar(len(b))
	e.buf = append(e.buf, b...)
}

// decoder reads fields back; the first failure sticks and zero values follow.
type decoder struct {
	src []byte
	pos int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.pos+n > len(d.src) {
		d.err = io.ErrUnexpectedEOF
		return nil
	}
	b := d.src[d.pos : d.pos+n]
	d.pos += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) uvar() int {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.src[d.pos:])
	if n <= 0 || v > math.MaxInt32 {
		d.err = io.ErrUnexpectedEOF
		return 0
	}
	d.pos += n
	return int(v)
}

// count reads a length and rejects ones the remaining input cannot hold at
// minSize bytes per element.
func (d *decoder) count(minSize int) int {
	n := d.uvar()
	if d.err == nil && n*minSize > len(d.src)-d.pos {
		d.err = fmt.Errorf("mres: count %d exceeds remaining %d bytes", n, len(d.src)-d.pos)
		return 0
	}
	return n
}

func (d *decoder) i32() int {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return int(int32(binary.LittleEndian.Uint32(b)))
}

func (d *decoder) f32() float64 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func (d *decoder) f64() float64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

func (d *decoder) bool() bool { return d.u8() != 0 }

func (d *decoder) str() string { return string(d.take(d.count(1))) }

func (d *decoder) blob() []byte { return d.take(d.count(1)) }
