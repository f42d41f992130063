package campaign

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

type MediaKind string

const (
	MediaURL  MediaKind = "url"
	MediaData MediaKind = "data"
)

var ErrUnsupportedMedia = errors.New("media must be an http(s) URL or an image data URI")

// Media is a parsed promotional image or GIF. Src is what the renderer
// receives; Data is only set for data URIs.
type Media struct {
	Kind     MediaKind `json:"kind"`
	Src      string    `json:"src"`
	MIMEType string    `json:"mimeType,omitempty"`
	Data     []byte    `json:"-"`
}

// ParseMedia accepts an absolute http(s) URL or a data URI whose payload
// sniffs as an image.
func ParseMedia(s string) (Media, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		return parseDataURI(s)
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Media{}, ErrUnsupportedMedia
	}
	return Media{Kind: MediaURL, Src: s}, nil
}

func parseDataURI(s string) (Media, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return Media{}, fmt.Errorf("%w: missing payload separator", ErrUnsupportedMedia)
	}

	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(payload)
		}
	} else {
		var unescaped string
		unescaped, err = url.PathUnescape(payload)
		data = []byte(unescaped)
	}
	if err != nil {
		return Media{}, fmt.Errorf("%w: decode payload: %v", ErrUnsupportedMedia, err)
	}
	if len(data) == 0 {
		return Media{}, fmt.Errorf("%w: empty payload", ErrUnsupportedMedia)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Media{}, fmt.Errorf("%w: payload is %s", ErrUnsupportedMedia, mt.String())
	}
	return Media{Kind: MediaData, Src: s, MIMEType: mt.String(), Data: data}, nil
}
