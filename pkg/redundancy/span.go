package redundancy

import (
	"github.com/oneconcern/swarmtrie/pkg/swarm"
)

const levelMarker = 0x80

// EncodeLevel sets the redundancy level in the top byte of a span.
//
// The level is only encoded for intermediate chunks carrying parities: chunk
// spans never reach 2^56, so a top byte above 128 cannot be a length.
func EncodeLevel(span []byte, level Level) {
	span[swarm.SpanSize-1] = uint8(level) | levelMarker
}

// IsLevelEncoded tells if the span carries a redundancy level
func IsLevelEncoded(span []byte) bool {
	return span[swarm.SpanSize-1] > levelMarker
}

// DecodeSpan extracts the redundancy level of a span, and returns the span with its level removed.
//
// The input span is not modified.
func DecodeSpan(span []byte) (Level, []byte) {
	plain := make([]byte, swarm.SpanSize)
	copy(plain, span)
	if !IsLevelEncoded(plain) {
		return NONE, plain
	}
	level := Level(plain[swarm.SpanSize-1] &^ levelMarker)
	plain[swarm.SpanSize-1] = 0
	return level, plain
}

// EncodeSpanLevel builds a span for some length and level.
//
// NONE is not encoded.
func EncodeSpanLevel(length uint64, level Level) []byte {
	span := swarm.NewSpan(length)
	if level > NONE {
		EncodeLevel(span, level)
	}
	return span
}

// DecodeSpanLevel returns the length and redundancy level of a span
func DecodeSpanLevel(span []byte) (uint64, Level) {
	level, plain := DecodeSpan(span)
	return swarm.SpanLength(plain), level
}

// DecodeLevel returns the redundancy level encoded in a span
func DecodeLevel(span []byte) Level {
	level, _ := DecodeSpan(span)
	return level
}
