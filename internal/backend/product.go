// ABOUTME: Product records exchanged with the backend
// ABOUTME: Prices are decimals; ids arrive as "_id" with "id" as a fallback

package backend

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// SocialMedia holds the contact links of a product.
type SocialMedia struct {
	WhatsApp  string `json:"whatsapp"`
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
}

// Product is a catalog entry as the backend returns it.
type Product struct {
	ID          string              `json:"_id"`
	Name        string              `json:"name"`
	Price       decimal.Decimal     `json:"price"`
	OldPrice    decimal.NullDecimal `json:"oldPrice"`
	Category    string              `json:"category"`
	Image       string              `json:"image"`
	SocialMedia SocialMedia         `json:"socialMedia"`
}

// UnmarshalJSON accepts both "_id" and "id" and tolerates a null socialMedia.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var aux struct {
		plain
		AltID       string       `json:"id"`
		SocialMedia *SocialMedia `json:"socialMedia"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Product(aux.plain)
	if p.ID == "" {
		p.ID = aux.AltID
	}
	if aux.SocialMedia != nil {
		p.SocialMedia = *aux.SocialMedia
	}
	return nil
}

// ShowOldPrice reports whether the old price should be displayed struck
// through next to the price.
func (p Product) ShowOldPrice() bool {
	return p.OldPrice.Valid && !p.OldPrice.Decimal.Equal(p.Price)
}

// ImageFile is an image upload attached to a create or update.
type ImageFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ProductInput is the payload of a create or update.
type ProductInput struct {
	Name     string
	Price    decimal.Decimal
	OldPrice decimal.NullDecimal
	Category string
	Social   SocialMedia
	// Image is nil to keep the current image on update.
	Image *ImageFile
}
