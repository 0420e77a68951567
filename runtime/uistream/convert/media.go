package convert

import (
	"encoding/base64"
	"mime"
	"net/url"
	"strings"

	"goa.design/uistream/runtime/agent/model"
)

// imageFormats lists the image media types the agent accepts. Anything else,
// including image/bmp and image/tiff, is dropped during conversion.
var imageFormats = map[string]model.ImageFormat{
	"image/jpeg":    model.ImageFormatJPEG,
	"image/jpg":     model.ImageFormatJPEG,
	"image/png":     model.ImageFormatPNG,
	"image/gif":     model.ImageFormatGIF,
	"image/webp":    model.ImageFormatWebP,
	"image/heic":    model.ImageFormatHEIC,
	"image/heif":    model.ImageFormatHEIF,
	"image/svg+xml": model.ImageFormatSVG,
}

// ImageFormatFor returns the image format for mediaType. Parameters and case
// are ignored. ok is false for non-image and unsupported image types.
func ImageFormatFor(mediaType string) (model.ImageFormat, bool) {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	f, ok := imageFormats[mt]
	return f, ok
}

// imageContent converts a file part to image content. ok is false when the
// part is not a supported image or its data URL cannot be decoded.
func imageContent(p FilePart) (model.ImageContent, bool) {
	mediaType := p.MediaType
	if !strings.HasPrefix(p.URL, "data:") {
		f, ok := ImageFormatFor(mediaType)
		if !ok {
			return model.ImageContent{}, false
		}
		return model.ImageContent{URL: p.URL, Format: f}, true
	}
	dataType, data, ok := decodeDataURL(p.URL)
	if !ok {
		return model.ImageContent{}, false
	}
	if mediaType == "" {
		mediaType = dataType
	}
	f, ok := ImageFormatFor(mediaType)
	if !ok {
		return model.ImageContent{}, false
	}
	return model.ImageContent{Data: data, Format: f}, true
}

// decodeDataURL decodes an RFC 2397 data URL.
func decodeDataURL(s string) (mediaType string, data []byte, ok bool) {
	meta, payload, found := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !found {
		return "", nil, false
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if isBase64 {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			if b, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
				return "", nil, false
			}
		}
		return mediaType, b, true
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, false
	}
	return mediaType, []byte(unescaped), true
}
