// Package event builds the canonical serialization of protocol events, their content-addressed
// ids and signatures.
package event

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/and161185/relay-loadgen/internal/errs"
	"github.com/and161185/relay-loadgen/internal/model"
)

const hexDigits = "0123456789abcdef"

var reHexKey = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Serialize returns [0,pubkey,created_at,kind,tags,content] as compact JSON.
// Output is byte-for-byte stable for equal input; nil tags become [].
func Serialize(f model.EventFields) []byte {
	dst := make([]byte, 0, 100+len(f.Content)+len(f.Tags)*80)

	dst = append(dst, `[0,`...)
	dst = appendString(dst, f.PubKey)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, f.CreatedAt, 10)
	dst = append(dst, ',')
	dst = strconv.AppendInt(dst, int64(f.Kind), 10)
	dst = append(dst, ',')

	dst = append(dst, '[')
	for i, tag := range f.Tags {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, s := range tag {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = appendString(dst, s)
		}
		dst = append(dst, ']')
	}
	dst = append(dst, "],"...)

	dst = appendString(dst, f.Content)
	dst = append(dst, ']')
	return dst
}

// ComputeID hashes the canonical serialization.
func ComputeID(f model.EventFields) [32]byte {
	return sha256.Sum256(Serialize(f))
}

// appendString writes s as a JSON string literal, escaping only what JSON requires.
func appendString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		default:
			if c < 0x20 {
				dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0x0f])
				continue
			}
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// Validate rejects field sets that would produce an event relays must refuse.
func Validate(f model.EventFields) error {
	if !reHexKey.MatchString(f.PubKey) {
		return fmt.Errorf("%w: pubkey must be 64 lowercase hex chars", errs.ErrInvalidEvent)
	}
	if f.CreatedAt < 0 {
		return fmt.Errorf("%w: negative created_at %d", errs.ErrInvalidEvent, f.CreatedAt)
	}
	if f.Kind < 0 || f.Kind > 65535 {
		return fmt.Errorf("%w: kind %d out of range", errs.ErrInvalidEvent, f.Kind)
	}
	for i, tag := range f.Tags {
		if len(tag) == 0 {
			return fmt.Errorf("%w: tag[%d] empty", errs.ErrInvalidEvent, i)
		}
		for _, s := range tag {
			if !utf8.ValidString(s) {
				return fmt.Errorf("%w: tag[%d] not utf-8", errs.ErrInvalidEvent, i)
			}
		}
	}
	if !utf8.ValidString(f.Content) {
		return fmt.Errorf("%w: content not utf-8", errs.ErrInvalidEvent)
	}
	return nil
}
