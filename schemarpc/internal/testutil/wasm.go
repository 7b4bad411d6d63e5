package testutil

import "encoding/binary"

// wasmPreamble is the magic number and version 1 of a WebAssembly binary.
var wasmPreamble = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

// Section is a custom section to embed in a test module.
type Section struct {
	Name string
	Data []byte
}

// ModuleWithCustomSections returns an otherwise empty WebAssembly module
// carrying the given custom sections in order.
func ModuleWithCustomSections(sections ...Section) []byte {
	out := append([]byte{}, wasmPreamble...)
	for _, s := range sections {
		var body []byte
		body = binary.AppendUvarint(body, uint64(len(s.Name)))
		body = append(body, s.Name...)
		body = append(body, s.Data...)

		out = append(out, 0x00) // custom section id
		out = binary.AppendUvarint(out, uint64(len(body)))
		out = append(out, body...)
	}
	return out
}

// Header returns a 12 byte module source header filled with b.
func Header(b byte) []byte {
	h := make([]byte, 12)
	for i := range h {
		h[i] = b
	}
	return h
}

// Source prefixes wasm with an arbitrary 12 byte header.
func Source(wasm []byte) []byte {
	return append(Header(0xab), wasm...)
}
