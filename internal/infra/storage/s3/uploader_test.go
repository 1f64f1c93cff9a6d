package s3

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(Config{Bucket: "chat-images"}, nil)
	assert.Error(t, err)
	_, err = NewClient(Config{Endpoint: "http://minio:9000"}, nil)
	assert.Error(t, err)
}

func TestObjectURL(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "http://minio:9000", Bucket: "chat-images"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/chat-images/chat/c1/a.png", c.ObjectURL("/chat/c1/a.png"))

	c, err = NewClient(Config{Endpoint: "minio:9000", PublicEndpoint: "cdn.example.test/", Bucket: "chat-images", UseSSL: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.test/chat-images/k.png", c.ObjectURL("k.png"))
}

func TestUploadRejectsEmptyKey(t *testing.T) {
	c, err := NewClient(Config{Endpoint: "http://minio:9000", Bucket: "chat-images"}, nil)
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), " / ", strings.NewReader("x"), "image/png")
	assert.EqualError(t, err, "s3: object key is required")
	_, err = c.Upload(context.Background(), "k.png", nil, "image/png")
	assert.EqualError(t, err, "s3: reader is required")
}
