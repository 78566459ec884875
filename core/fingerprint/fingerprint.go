// Package fingerprint computes the content checksum used to decide whether a
// document buffer still matches the last synced disk content.
//
// The checksum is Adler-32 over the UTF-8 bytes of the content. It is used
// for equality checks only.
package fingerprint

import (
	"hash/adler32"
	"strconv"

	"github.com/FocuswithJustin/mdliaison/core/errors"
)

// Sum is a 32-bit content fingerprint.
type Sum uint32

// Empty is the fingerprint of the empty string.
const Empty Sum = 1

// Of returns the fingerprint of content.
func Of(content string) Sum {
	return Sum(adler32.Checksum([]byte(content)))
}

// OfBytes returns the fingerprint of data.
func OfBytes(data []byte) Sum {
	return Sum(adler32.Checksum(data))
}

// String returns the decimal form used in the persisted state blob.
func (s Sum) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Parse reads a fingerprint from its decimal form.
func Parse(s string) (Sum, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.NewParse("fingerprint", "", strconv.Quote(s)+": "+err.Error())
	}
	return Sum(v), nil
}
