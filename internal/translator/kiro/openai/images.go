package openai

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// parseImageURL decodes an OpenAI image_url.url into a KiroImage. Returns
// (nil, nil) for the "deferred" case — an http(s) URL this gateway does not
// fetch — and a non-nil error for any other unsupported scheme.
func parseImageURL(url string) (*KiroImage, error) {
	switch {
	case strings.HasPrefix(url, "data:"):
		header, data, ok := strings.Cut(url, ",")
		if !ok {
			return nil, errInvalidImageURL(url)
		}

		var format string
		switch {
		case strings.Contains(header, "image/png"):
			format = "png"
		case strings.Contains(header, "image/jpeg"), strings.Contains(header, "image/jpg"):
			format = "jpeg"
		case strings.Contains(header, "image/gif"):
			format = "gif"
		case strings.Contains(header, "image/webp"):
			format = "webp"
		default:
			return nil, errInvalidImageURL(url)
		}

		return &KiroImage{Format: format, Source: KiroImageSource{Bytes: data}}, nil

	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		log.Warnf("kiro-openai: remote image URL not supported, skipping: %s", url)
		return nil, nil

	default:
		return nil, errInvalidImageURL(url)
	}
}
