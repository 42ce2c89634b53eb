// Package barcode guesses barcode symbologies for manually entered values.
//
// Camera scans carry a trusted format from the platform scanner and never
// need inference; InferFormat is only for values the user typed or pasted.
package barcode

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/walletapp/wallet-core/internal/domain"
)

const (
	// Values longer than this cannot fit a linear code comfortably.
	maxLinearLength = 48
	// Longest value accepted as Code 39.
	maxCode39Length = 43
)

var (
	qrPrefix   = regexp.MustCompile(`(?i)^(https?://|mailto:|tel:)`)
	numeric    = regexp.MustCompile(`^\d+$`)
	code39Body = regexp.MustCompile(`^[A-Z0-9\s\-.$/+%]+$`)
)

var descriptions = map[domain.BarcodeFormat]string{
	domain.FormatCode128: "Code 128",
	domain.FormatEAN13:   "EAN-13",
	domain.FormatEAN8:    "EAN-8",
	domain.FormatQR:      "QR Code",
	domain.FormatCode39:  "Code 39",
	domain.FormatUPCA:    "UPC-A",
}

// InferFormat returns the most likely format for value. Rules are applied
// in order and the first match wins; CODE128 is the universal fallback.
func InferFormat(value string) domain.BarcodeFormat {
	v := strings.TrimSpace(value)
	if v == "" {
		return domain.FormatCode128
	}

	length := utf8.RuneCountInString(v)

	if qrPrefix.MatchString(v) || length > maxLinearLength {
		return domain.FormatQR
	}

	if numeric.MatchString(v) {
		switch length {
		case 13:
			return domain.FormatEAN13
		case 8:
			return domain.FormatEAN8
		case 12:
			return domain.FormatUPCA
		default:
			return domain.FormatCode128
		}
	}

	if code39Body.MatchString(v) && length <= maxCode39Length && !hasLower(v) {
		return domain.FormatCode39
	}

	return domain.FormatCode128
}

// Description returns a human-readable label for format.
// Unknown formats are returned as-is.
func Description(format domain.BarcodeFormat) string {
	if label, ok := descriptions[format]; ok {
		return label
	}
	return format.String()
}

func hasLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}
