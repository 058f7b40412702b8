package hpack

import "github.com/jpinner/hpack/internal/huffman"

// decodeString resolves a literal's raw wire bytes into the string value
// the representation carries: either a direct copy, or a Huffman decode
// against the decoder's direction-selected table (spec §4.5). The
// returned slice is freshly allocated and safe for the caller to retain.
func decodeString(raw []byte, huffmanEncoded bool, table *huffman.Table) ([]byte, error) {
	if !huffmanEncoded {
		return append([]byte(nil), raw...), nil
	}
	out, err := huffman.Decode(table, raw)
	if err != nil {
		return nil, decompressionError(err)
	}
	return out, nil
}
