package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletapp/wallet-core/internal/domain"
	"github.com/walletapp/wallet-core/internal/errors"
	"github.com/walletapp/wallet-core/internal/service"
	"github.com/walletapp/wallet-core/internal/store/sqlite"
	"github.com/walletapp/wallet-core/internal/validation"
)

func newTestService(t *testing.T) *service.CardService {
	t.Helper()

	m := sqlite.NewManager(sqlite.Options{Path: filepath.Join(t.TempDir(), sqlite.DatabaseFileName)}, nil)
	_, err := m.Initialize(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() }) //nolint:errcheck // Test cleanup

	return service.NewCardService(sqlite.NewCardRepository(m), validation.New(), nil)
}

func runJSON(t *testing.T, svc *service.CardService, v any, args ...string) {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), svc, args, &out))
	require.NoError(t, json.Unmarshal(out.Bytes(), v))
}

func TestRun_CardLifecycle(t *testing.T) {
	svc := newTestService(t)

	var added domain.LoyaltyCard
	runJSON(t, svc, &added, "add", "-color", "blue", "Corner Cafe", "ABC-123")
	assert.Equal(t, "Corner Cafe", added.Name)
	assert.Equal(t, domain.FormatCode39, added.BarcodeFormat)
	assert.Equal(t, domain.ColorBlue, added.Color)

	var shown domain.LoyaltyCard
	runJSON(t, svc, &shown, "show", added.ID)
	assert.Equal(t, added, shown)

	var used domain.LoyaltyCard
	runJSON(t, svc, &used, "use", added.ID)
	assert.Equal(t, 1, used.UsageCount)

	var fav domain.LoyaltyCard
	runJSON(t, svc, &fav, "favorite", added.ID, "true")
	assert.True(t, fav.IsFavorite)

	var favorites []domain.LoyaltyCard
	runJSON(t, svc, &favorites, "list", "-favorites")
	require.Len(t, favorites, 1)

	var count map[string]int
	runJSON(t, svc, &count, "count")
	assert.Equal(t, 1, count["count"])

	var deleted map[string]string
	runJSON(t, svc, &deleted, "delete", added.ID)
	assert.Equal(t, added.ID, deleted["deleted"])

	var all []domain.LoyaltyCard
	runJSON(t, svc, &all, "list")
	assert.Empty(t, all)
}

func TestRun_Infer(t *testing.T) {
	var got map[string]string
	runJSON(t, nil, &got, "infer", "https://example.com/card")

	assert.Equal(t, "QR", got["format"])
	assert.Equal(t, "QR Code", got["description"])
}

func TestRun_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	var out bytes.Buffer

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"no command", nil, errors.ErrValidation},
		{"unknown command", []string{"frobnicate"}, errors.ErrValidation},
		{"show without id", []string{"show"}, errors.ErrValidation},
		{"show missing", []string{"show", "nope"}, errors.ErrNotFound},
		{"delete missing", []string{"delete", "nope"}, errors.ErrNotFound},
		{"bad favorite flag", []string{"favorite", "x", "maybe"}, errors.ErrValidation},
		{"add without barcode", []string{"add", "Name"}, errors.ErrValidation},
		{"most used negative", []string{"list", "-most-used", "-1"}, errors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(ctx, svc, tt.args, &out)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 3, exitCode(errors.NotFound("gone")))
	assert.Equal(t, 2, exitCode(errors.Validation("bad")))
	assert.Equal(t, 4, exitCode(errors.ErrNotInitialized))
	assert.Equal(t, 1, exitCode(assert.AnError))
}
