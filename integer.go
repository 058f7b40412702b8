package hpack

import "math"

// decodeULE128 reads the continuation bytes of an HPACK variable-length
// integer (RFC 7541 §5.1 / the reference-set draft's equivalent), adding
// them to prefix (the value already extracted from the representation's
// leading byte by the caller, which consumed that byte itself — this
// function only reads continuation octets, at shifts 0, 7, 14, 21, 28).
//
// On a short read it marks the stream on entry and rewinds to that mark
// before returning ErrNeedMoreBytes, so the next call with more bytes
// available restarts the continuation from scratch with the same prefix.
func decodeULE128(stream StreamReader, prefix int) (value int, err error) {
	stream.Mark(5)

	n := prefix
	shift := uint(0)
	for i := 0; i < 5; i++ {
		if stream.Available() < 1 {
			stream.Reset()
			return 0, ErrNeedMoreBytes
		}
		b, _ := stream.ReadByte()

		// At the fifth octet (shift 28) the top 5 bits of the byte must be
		// zero: the continuation bit, so this octet ends the integer, and
		// the four high payload bits, so at most 7<<28 is added here.
		if shift == 28 && b&0xF8 != 0 {
			return 0, decompressionError(ErrIntegerOverflow)
		}

		n += int(b&0x7F) << shift

		if b&0x80 == 0 {
			if n > math.MaxInt32 {
				return 0, decompressionError(ErrIntegerEncodedTooLong)
			}
			return n, nil
		}
		shift += 7
	}
	return 0, decompressionError(ErrIntegerOverflow)
}
