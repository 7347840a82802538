package fingerprint

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register decoders
	_ "image/jpeg"
	_ "image/png"

	"github.com/corona10/goimagehash"
)

// DHash is the 64-bit difference hash of an image, folded to 32 bits.
type DHash struct{}

// Compute decodes a GIF, JPEG or PNG image and returns its folded dHash.
func (DHash) Compute(data []byte) (int32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("dhash: decode: %w", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return 0, errors.New("dhash: empty image")
	}

	h, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, fmt.Errorf("dhash: %w", err)
	}
	return Fold(h.GetHash()), nil
}

// Fold reduces a 64-bit hash to the 32-bit fingerprint stored per item.
func Fold(h uint64) int32 {
	return int32(uint32(h) ^ uint32(h>>32))
}
