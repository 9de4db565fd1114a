package vectorindex

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

// Binary layout (little endian):
//
//	magic "MRIX" | version u16 | flags u16 | dim u32 | count u32 |
//	modelLen u16 | model bytes | [count*dim float32] | crc32 u32
//
// The checksum covers every preceding byte.
const (
	formatVersion uint16 = 1

	flagVectors uint16 = 1 << 0

	maxModelLen = 1 << 10
)

var magic = [4]byte{'M', 'R', 'I', 'X'}

// ErrCorrupt is returned when an encoded index cannot be decoded.
var ErrCorrupt = errors.New("corrupt vector index")

// Header describes an encoded index.
type Header struct {
	Version    uint16
	Model      string
	Dim        int
	Count      int
	HasVectors bool
}

// Encode writes the index stamped with the embedding model name. When
// withVectors is false only the header is written, and Decode returns a nil
// index.
func Encode(w io.Writer, idx *Flat, model string, withVectors bool) error {
	if len(model) > maxModelLen {
		return fmt.Errorf("model name too long: %d bytes", len(model))
	}

	crc := crc32.NewIEEE()
	bw := bufio.NewWriter(io.MultiWriter(w, crc))

	var flags uint16
	if withVectors {
		flags |= flagVectors
	}

	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	fixed := []any{
		formatVersion,
		flags,
		uint32(idx.Dim()),
		uint32(idx.Len()),
		uint16(len(model)),
	}
	for _, v := range fixed {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString(model); err != nil {
		return err
	}
	if withVectors {
		buf := make([]byte, 4)
		for _, v := range idx.data {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, crc.Sum32())
}

// Decode reads an encoded index. The returned *Flat is nil when the
// encoding carries no vectors.
func Decode(r io.Reader) (Header, *Flat, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Header{}, nil, err
	}
	if len(raw) < len(magic)+2+2+4+4+2+4 {
		return Header{}, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}

	body, sum := raw[:len(raw)-4], binary.LittleEndian.Uint32(raw[len(raw)-4:])
	if crc32.ChecksumIEEE(body) != sum {
		return Header{}, nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	br := bytes.NewReader(body)
	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil || gotMagic != magic {
		return Header{}, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}

	var (
		version, flags, modelLen uint16
		dim, count               uint32
	)
	for _, v := range []any{&version, &flags, &dim, &count, &modelLen} {
		if err := binary.Read(br, binary.LittleEndian, v); err != nil {
			return Header{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	if version != formatVersion {
		return Header{}, nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, version)
	}
	if dim == 0 || modelLen > maxModelLen {
		return Header{}, nil, fmt.Errorf("%w: invalid header", ErrCorrupt)
	}

	model := make([]byte, modelLen)
	if _, err := io.ReadFull(br, model); err != nil {
		return Header{}, nil, fmt.Errorf("%w: truncated model name", ErrCorrupt)
	}

	h := Header{
		Version:    version,
		Model:      string(model),
		Dim:        int(dim),
		Count:      int(count),
		HasVectors: flags&flagVectors != 0,
	}
	if !h.HasVectors {
		if br.Len() != 0 {
			return Header{}, nil, fmt.Errorf("%w: unexpected trailing data", ErrCorrupt)
		}
		return h, nil, nil
	}

	want := uint64(dim) * uint64(count) * 4
	if uint64(br.Len()) != want {
		return Header{}, nil, fmt.Errorf("%w: expected %d vector bytes, found %d", ErrCorrupt, want, br.Len())
	}
	data := make([]float32, int(dim)*int(count))
	buf := make([]byte, 4)
	for i := range data {
		if _, err := io.ReadFull(br, buf); err != nil {
			return Header{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
	}
	return h, &Flat{dim: int(dim), data: data}, nil
}
