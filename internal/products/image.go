// ABOUTME: The single image entry of a product draft
// ABOUTME: Either the persisted remote image or a pending upload sniffed for an image type

package products

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/stellara/stellara-admin/internal/backend"
)

// ErrNotImage is returned when a selected file is not an image.
var ErrNotImage = errors.New("not an image file")

// NotImageMessage is shown when a non-image file is picked.
const NotImageMessage = "You can only upload image files!"

// ErrImageTooLarge is returned when a selected file exceeds the size limit.
var ErrImageTooLarge = errors.New("image is too large")

// ErrEmptyImage is returned when a selected file has no content.
var ErrEmptyImage = errors.New("image file is empty")

// DefaultMaxImageSize caps pending uploads.
const DefaultMaxImageSize = 10 << 20

// currentImageName labels the persisted image of a product being edited.
const currentImageName = "Current Image"

// Upload is a file chosen in the image picker.
type Upload struct {
	Filename string
	// ContentType is what the browser declared; it is checked along with
	// the sniffed type.
	ContentType string
	Data        []byte
}

// ImageEntry is the one image slot of a draft.
type ImageEntry struct {
	// Persisted entries reference the product's existing remote image and
	// are never re-uploaded.
	Persisted bool
	URL       string

	Filename    string
	ContentType string
	Size        int
	data        []byte
	preview     string
}

// Name is the label shown in the picker.
func (e *ImageEntry) Name() string {
	if e.Persisted {
		return currentImageName
	}
	return e.Filename
}

// Pending reports whether the entry is an upload that has not reached the
// backend yet.
func (e *ImageEntry) Pending() bool {
	return !e.Persisted
}

// persistedImage seeds the picker for an edit.
func persistedImage(url string) *ImageEntry {
	if url == "" {
		return nil
	}
	return &ImageEntry{Persisted: true, URL: url}
}

// newPendingImage checks an upload and wraps it as a pending entry.
// The type is sniffed from content; a declared non-image type also rejects.
func newPendingImage(up Upload, maxSize int) (*ImageEntry, error) {
	if len(up.Data) == 0 {
		return nil, ErrEmptyImage
	}
	if maxSize > 0 && len(up.Data) > maxSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrImageTooLarge, len(up.Data), maxSize)
	}

	declared := strings.ToLower(strings.TrimSpace(up.ContentType))
	if declared != "" && declared != "application/octet-stream" && !strings.HasPrefix(declared, "image/") {
		return nil, ErrNotImage
	}

	detected := mimetype.Detect(up.Data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, ErrNotImage
	}

	name := up.Filename
	if name == "" {
		name = "image" + detected.Extension()
	}

	return &ImageEntry{
		Filename:    name,
		ContentType: detected.String(),
		Size:        len(up.Data),
		data:        append([]byte(nil), up.Data...),
	}, nil
}

// previewURL returns something an <img> can show: the remote URL for a
// persisted image, a data: URL for a pending one. The data URL is built on
// first use and cached.
func (e *ImageEntry) previewURL() string {
	if e.Persisted {
		return e.URL
	}
	if e.preview == "" {
		e.preview = "data:" + e.ContentType + ";base64," + base64.StdEncoding.EncodeToString(e.data)
	}
	return e.preview
}

// upload converts a pending entry for the backend; persisted entries
// return nil so the current image is kept.
func (e *ImageEntry) upload() *backend.ImageFile {
	if e == nil || e.Persisted {
		return nil
	}
	return &backend.ImageFile{
		Filename:    e.Filename,
		ContentType: e.ContentType,
		Data:        e.data,
	}
}
