package pipeline

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// DataURIPrefix prefixes every frame sent back to the browser.
const DataURIPrefix = "data:image/jpeg;base64,"

// ErrDecode is returned when a frame cannot be turned into an image.
var ErrDecode = errors.New("frame decode failed")

// DecodePayload returns the raw bytes of a base64 data URI. A bare base64
// string without the "data:...," header is accepted too.
func DecodePayload(dataURI string) ([]byte, error) {
	payload := dataURI
	if strings.HasPrefix(payload, "data:") {
		i := strings.IndexByte(payload, ',')
		if i < 0 {
			return nil, fmt.Errorf("%w: data URI has no payload", ErrDecode)
		}
		payload = payload[i+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}
	return raw, nil
}

// DecodeDataURI decodes a base64 image data URI into a color Mat.
// The caller must Close the returned Mat. On error nothing is allocated.
func DecodeDataURI(dataURI string) (gocv.Mat, error) {
	raw, err := DecodePayload(dataURI)
	if err != nil {
		return gocv.Mat{}, err
	}

	img, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("%w: not an image", ErrDecode)
	}
	return img, nil
}

// EncodeDataURI JPEG-encodes img and returns it as a data URI.
func EncodeDataURI(img gocv.Mat) (string, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return DataURIPrefix + base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
