package crate

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// crateVersion is the fixed version string Serato writes in every crate
// file's vrsn chunk.
const crateVersion = "1.0/Serato ScratchLive Crate"

// Chunk tags of the crate container format. Each chunk is a 4-byte ASCII
// tag followed by a big-endian uint32 payload length and the payload.
const (
	tagVersion   = "vrsn"
	tagTrack     = "otrk"
	tagTrackPath = "ptrk"
)

// Encoder turns a crate node's track list into crate file bytes. resolve
// maps each absolute track path to its stored form. Children are not
// encoded; the writer issues one Encode call per node.
type Encoder interface {
	Encode(node *Node, resolve func(string) string) ([]byte, error)
}

// ChunkEncoder is the preferred encoder. It validates track paths before
// encoding so malformed input fails this strategy rather than producing a
// silently corrupt file.
type ChunkEncoder struct{}

// Encode produces the crate file bytes: a vrsn chunk, then one otrk chunk
// wrapping a ptrk chunk per track, in track order. No trailing data.
func (ChunkEncoder) Encode(node *Node, resolve func(string) string) ([]byte, error) {
	var buf bytes.Buffer

	writeChunk(&buf, tagVersion, encodeUTF16BE(crateVersion))

	for _, track := range node.Tracks {
		path := resolve(track)
		if !utf8.ValidString(path) {
			return nil, fmt.Errorf("crate: track path is not valid UTF-8: %q", path)
		}

		var ptrk bytes.Buffer
		writeChunk(&ptrk, tagTrackPath, encodeUTF16BE(path))
		writeChunk(&buf, tagTrack, ptrk.Bytes())
	}

	return buf.Bytes(), nil
}

// RawEncoder is the fallback encoder: same byte layout, but it encodes
// whatever it is given, substituting the Unicode replacement character for
// invalid sequences instead of failing.
type RawEncoder struct{}

// Encode produces the same chunk sequence as ChunkEncoder without input
// validation. It never returns an error.
func (RawEncoder) Encode(node *Node, resolve func(string) string) ([]byte, error) {
	var buf bytes.Buffer

	writeChunk(&buf, tagVersion, encodeUTF16BE(crateVersion))

	for _, track := range node.Tracks {
		var ptrk bytes.Buffer
		writeChunk(&ptrk, tagTrackPath, encodeUTF16BE(resolve(track)))
		writeChunk(&buf, tagTrack, ptrk.Bytes())
	}

	return buf.Bytes(), nil
}

// writeChunk appends one tagged chunk: 4 ASCII tag bytes, big-endian
// uint32 payload length, payload.
func writeChunk(buf *bytes.Buffer, tag string, payload []byte) {
	buf.WriteString(tag)

	var lenBytes [4]byte

	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(payload)))
	buf.Write(lenBytes[:])
	buf.Write(payload)
}

// encodeUTF16BE encodes s as UTF-16 big-endian with no byte-order mark and
// no terminator, the string encoding used throughout the crate format.
func encodeUTF16BE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))

	for i, u := range units {
		binary.BigEndian.PutUint16(out[2*i:], u)
	}

	return out
}
