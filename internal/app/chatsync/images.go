package chatsync

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidImage is returned for an image data URI that cannot be decoded.
var ErrInvalidImage = errors.New("chatsync: invalid image data")

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

func isDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// decodeDataURI parses a base64 `data:image/...;base64,` URI.
func decodeDataURI(raw string) (contentType string, payload []byte, err error) {
	header, data, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing payload", ErrInvalidImage)
	}
	mediaType, params, _ := strings.Cut(header, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if _, known := imageExtensions[mediaType]; !known {
		return "", nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidImage, mediaType)
	}
	if !strings.Contains(params, "base64") {
		return "", nil, fmt.Errorf("%w: not base64 encoded", ErrInvalidImage)
	}
	payload, err = base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(payload) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	return mediaType, payload, nil
}

func (c *Controller) uploadImage(ctx context.Context, conversationID, dataURI string) (string, error) {
	contentType, payload, err := decodeDataURI(dataURI)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("chat/%s/%s.%s", conversationID, uuid.NewString(), imageExtensions[contentType])
	url, err := c.images.Upload(ctx, key, bytes.NewReader(payload), contentType)
	if err != nil {
		return "", err
	}
	c.logger.Info("chat image uploaded", "conversation_id", conversationID, "key", key, "bytes", len(payload))
	return url, nil
}
