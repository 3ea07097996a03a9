package artifacts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // Register decoders for uploaded covers
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

const coverWidth uint = 400

// GenerateCoverThumbnail takes raw image data, scales it to the cover
// width, encodes it as a Base64 JPEG, and returns it as a data URI
// string ready to embed in API responses.
func GenerateCoverThumbnail(imageData []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resizedImg := resize.Resize(coverWidth, 0, img, resize.Lanczos3)

	var buf bytes.Buffer
	// Encode the resized image as a JPEG. Quality 75 is a good balance.
	if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 75}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}

	base64Str := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf("data:image/jpeg;base64,%s", base64Str), nil
}
