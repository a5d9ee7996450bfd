// ABOUTME: Tests for the draft image entry
// ABOUTME: Sniffing, size limits, naming, and what reaches the backend

package products

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPendingImage(t *testing.T) {
	entry, err := newPendingImage(Upload{Data: pngBytes, ContentType: "application/octet-stream"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", entry.ContentType)
	assert.Equal(t, "image.png", entry.Filename, "name derived from the sniffed type")
	assert.True(t, entry.Pending())
	assert.Equal(t, len(pngBytes), entry.Size)

	up := entry.upload()
	require.NotNil(t, up)
	assert.Equal(t, pngBytes, up.Data)
}

func TestNewPendingImage_Rejections(t *testing.T) {
	_, err := newPendingImage(Upload{Filename: "a.png"}, 0)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = newPendingImage(Upload{Filename: "a.png", Data: pngBytes}, 8)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = newPendingImage(Upload{Filename: "a.csv", ContentType: "text/csv", Data: []byte("a,b\n1,2\n")}, 0)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestPersistedImage(t *testing.T) {
	assert.Nil(t, persistedImage(""))

	entry := persistedImage("https://img.test/a.jpg")
	require.NotNil(t, entry)
	assert.Equal(t, "Current Image", entry.Name())
	assert.False(t, entry.Pending())
	assert.Equal(t, "https://img.test/a.jpg", entry.previewURL())
	assert.Nil(t, entry.upload(), "persisted images are never re-sent")

	var none *ImageEntry
	assert.Nil(t, none.upload())
}
