// Package domain contains the wallet entities and their enumerated values.
package domain

import "time"

// BarcodeFormat identifies the symbology used to render a card's barcode.
type BarcodeFormat string

// Supported barcode formats. Stored as these literals.
const (
	FormatCode128 BarcodeFormat = "CODE128"
	FormatEAN13   BarcodeFormat = "EAN13"
	FormatEAN8    BarcodeFormat = "EAN8"
	FormatQR      BarcodeFormat = "QR"
	FormatCode39  BarcodeFormat = "CODE39"
	FormatUPCA    BarcodeFormat = "UPCA"
)

// BarcodeFormats lists every supported format in display order.
var BarcodeFormats = []BarcodeFormat{
	FormatCode128, FormatEAN13, FormatEAN8, FormatQR, FormatCode39, FormatUPCA,
}

// String returns the string representation of the format.
func (f BarcodeFormat) String() string {
	return string(f)
}

// IsValid checks if the format is a recognized value.
func (f BarcodeFormat) IsValid() bool {
	switch f {
	case FormatCode128, FormatEAN13, FormatEAN8, FormatQR, FormatCode39, FormatUPCA:
		return true
	default:
		return false
	}
}

// CardColor is the accent color a card is drawn with.
type CardColor string

// Card colors.
const (
	ColorBlue   CardColor = "blue"
	ColorRed    CardColor = "red"
	ColorGreen  CardColor = "green"
	ColorOrange CardColor = "orange"
	ColorGrey   CardColor = "grey"
)

// DefaultCardColor is used when the user picks no color.
const DefaultCardColor = ColorGrey

// String returns the string representation of the color.
func (c CardColor) String() string {
	return string(c)
}

// IsValid checks if the color is a recognized value.
func (c CardColor) IsValid() bool {
	switch c {
	case ColorBlue, ColorRed, ColorGreen, ColorOrange, ColorGrey:
		return true
	default:
		return false
	}
}

// LoyaltyCard is a single card in the wallet.
// Timestamps are ISO-8601 strings and are treated as opaque by storage.
type LoyaltyCard struct {
	ID            string        `json:"id" validate:"required,uuid"`
	Name          string        `json:"name" validate:"required,min=1,max=50"`
	Barcode       string        `json:"barcode" validate:"required"`
	BarcodeFormat BarcodeFormat `json:"barcode_format" validate:"required,barcode_format"`
	BrandID       *string       `json:"brand_id"`                                // nil means a custom card
	Color         CardColor     `json:"color" validate:"required,card_color"`
	IsFavorite    bool          `json:"is_favorite"`
	LastUsedAt    *string       `json:"last_used_at" validate:"omitnil,iso8601"` // nil until first display
	UsageCount    int           `json:"usage_count" validate:"gte=0"`
	CreatedAt     string        `json:"created_at" validate:"required,iso8601"`
	UpdatedAt     string        `json:"updated_at" validate:"required,iso8601"`
}

// IsCustom reports whether the card has no catalogue brand.
func (c *LoyaltyCard) IsCustom() bool {
	return c.BrandID == nil
}

// Touch refreshes UpdatedAt.
func (c *LoyaltyCard) Touch(now time.Time) {
	c.UpdatedAt = Timestamp(now)
}

// MarkUsed records a display of the card.
func (c *LoyaltyCard) MarkUsed(now time.Time) {
	ts := Timestamp(now)
	c.UsageCount++
	c.LastUsedAt = &ts
	c.UpdatedAt = ts
}

// Timestamp formats t the way card timestamps are persisted.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp parses a persisted card timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
