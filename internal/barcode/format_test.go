package barcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walletapp/wallet-core/internal/domain"
)

func TestInferFormat(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  domain.BarcodeFormat
	}{
		{"ean13", "5901234123457", domain.FormatEAN13},
		{"ean8", "96385074", domain.FormatEAN8},
		{"upca", "012345678905", domain.FormatUPCA},
		{"https url", "https://x.io", domain.FormatQR},
		{"http url upper", "HTTP://EXAMPLE.COM", domain.FormatQR},
		{"mailto", "mailto:someone@example.com", domain.FormatQR},
		{"tel", "TEL:+4412345", domain.FormatQR},
		{"code39", "ABC-123", domain.FormatCode39},
		{"code39 symbols", "A B.$/+%", domain.FormatCode39},
		{"empty", "", domain.FormatCode128},
		{"whitespace only", "   ", domain.FormatCode128},
		{"lowercase", "abc123", domain.FormatCode128},
		{"numeric other length", "12345", domain.FormatCode128},
		{"trimmed ean13", "  5901234123457\n", domain.FormatEAN13},
		{"long numeric is qr", strings.Repeat("1", 49), domain.FormatQR},
		{"48 chars numeric", strings.Repeat("1", 48), domain.FormatCode128},
		{"code39 at limit", strings.Repeat("A", 43), domain.FormatCode39},
		{"code39 over limit", strings.Repeat("A", 44), domain.FormatCode128},
		{"unsupported symbol", "ABC#123", domain.FormatCode128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferFormat(tt.value))
		})
	}
}

func TestInferFormat_Deterministic(t *testing.T) {
	for range 3 {
		assert.Equal(t, domain.FormatEAN13, InferFormat("5901234123457"))
	}
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "Code 128", Description(domain.FormatCode128))
	assert.Equal(t, "EAN-13", Description(domain.FormatEAN13))
	assert.Equal(t, "EAN-8", Description(domain.FormatEAN8))
	assert.Equal(t, "QR Code", Description(domain.FormatQR))
	assert.Equal(t, "Code 39", Description(domain.FormatCode39))
	assert.Equal(t, "UPC-A", Description(domain.FormatUPCA))
	assert.Equal(t, "PDF417", Description("PDF417"))

	for _, f := range domain.BarcodeFormats {
		assert.NotEqual(t, f.String(), Description(f), "missing label for %s", f)
	}
}
