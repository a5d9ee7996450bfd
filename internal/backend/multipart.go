// ABOUTME: Multipart encoding of product create and update payloads
// ABOUTME: Scalars go in their own fields, social links in one JSON field, the image as a file part

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// ImageField is the form field carrying the product image.
const ImageField = "image"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeProduct builds the multipart body for a create or update and returns
// it with its Content-Type. oldPrice falls back to price when unset, which
// is what the backend expects for products without a discount.
func EncodeProduct(in ProductInput) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	social, err := json.Marshal(in.Social)
	if err != nil {
		return nil, "", fmt.Errorf("encoding socialMedia: %w", err)
	}

	oldPrice := in.Price
	if in.OldPrice.Valid {
		oldPrice = in.OldPrice.Decimal
	}

	fields := []struct{ name, value string }{
		{"name", in.Name},
		{"price", in.Price.String()},
		{"oldPrice", oldPrice.String()},
		{"category", in.Category},
		{"socialMedia", string(social)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", f.name, err)
		}
	}

	if in.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			ImageField, quoteEscaper.Replace(in.Image.Filename)))
		contentType := in.Image.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("creating image part: %w", err)
		}
		if _, err := part.Write(in.Image.Data); err != nil {
			return nil, "", fmt.Errorf("writing image part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
