package client

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
)

func TestPresignProductImageUpload(t *testing.T) {
	cfg := &config.Config{S3: config.S3Config{
		Region:    "ap-south-1",
		Bucket:    "vsgifts-products",
		Endpoint:  "http://localhost:9000",
		AccessKey: "test-access",
		SecretKey: "test-secret",
		URLExpiry: 15 * time.Minute,
	}}

	c, err := NewS3Client(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	upload, err := c.PresignProductImageUpload(context.Background(), "../My Lamp.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "PUT", upload.Method)
	assert.True(t, strings.HasPrefix(upload.Key, "products/"))
	assert.True(t, strings.HasSuffix(upload.Key, "-My_Lamp.png"))

	u, err := url.Parse(upload.URL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/vsgifts-products/"+upload.Key, u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestCleanFilename(t *testing.T) {
	assert.Equal(t, "a_b.jpg", cleanFilename("a b.jpg"))
	assert.Equal(t, "x.png", cleanFilename(`C:\tmp\x.png`))
	assert.Equal(t, "image", cleanFilename(""))
}
