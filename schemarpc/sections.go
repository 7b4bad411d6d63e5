package schemarpc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// wasmPreamble is the magic number followed by binary format version 1.
var wasmPreamble = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

const customSectionID = 0x00

var errLEB128Overflow = errors.New("leb128: overflow")

type customSection struct {
	name string
	data []byte
}

// splitCustomSections separates the custom sections of a WebAssembly binary
// from the rest of it. stripped holds the preamble and every other section
// unchanged, in order. Section contents are not interpreted, so a malformed
// "name" section is carried like any other custom section.
//
// Input without the preamble is returned as is for the compiler to reject.
func splitCustomSections(wasm []byte) (stripped []byte, sections []customSection, err error) {
	if !bytes.HasPrefix(wasm, wasmPreamble) {
		return wasm, nil, nil
	}
	r := bytes.NewReader(wasm[len(wasmPreamble):])
	stripped = make([]byte, 0, len(wasm))
	stripped = append(stripped, wasmPreamble...)

	for {
		start := len(wasm) - r.Len()
		id, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return stripped, sections, nil
		}
		size, err := readLEB128u(r)
		if err != nil {
			return nil, nil, fmt.Errorf("section %d at offset %d: size: %w", id, start, err)
		}
		if int64(size) > int64(r.Len()) {
			return nil, nil, fmt.Errorf("section %d at offset %d: size %d exceeds remaining %d bytes", id, start, size, r.Len())
		}
		bodyStart := len(wasm) - r.Len()
		body := wasm[bodyStart : bodyStart+int(size)]
		if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
			return nil, nil, err
		}

		if id != customSectionID {
			stripped = append(stripped, wasm[start:bodyStart+int(size)]...)
			continue
		}
		s, err := parseCustomSection(body)
		if err != nil {
			return nil, nil, fmt.Errorf("custom section at offset %d: %w", start, err)
		}
		sections = append(sections, s)
	}
}

func parseCustomSection(body []byte) (customSection, error) {
	r := bytes.NewReader(body)
	n, err := readLEB128u(r)
	if err != nil {
		return customSection{}, fmt.Errorf("name length: %w", err)
	}
	if int64(n) > int64(r.Len()) {
		return customSection{}, fmt.Errorf("name length %d exceeds section size", n)
	}
	offset := len(body) - r.Len()
	name := body[offset : offset+int(n)]
	if !utf8.Valid(name) {
		return customSection{}, fmt.Errorf("name is not valid UTF-8")
	}
	data := make([]byte, len(body)-offset-int(n))
	copy(data, body[offset+int(n):])
	return customSection{name: string(name), data: data}, nil
}

// readLEB128u reads an unsigned 32-bit LEB128 value.
func readLEB128u(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if shift == 28 && b&0x70 != 0 {
			return 0, errLEB128Overflow
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, errLEB128Overflow
		}
	}
}
