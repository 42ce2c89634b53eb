package providers

import (
	"github.com/samber/do/v2"

	"github.com/walletapp/wallet-core/internal/logger"
	"github.com/walletapp/wallet-core/internal/service"
	"github.com/walletapp/wallet-core/internal/store/sqlite"
	"github.com/walletapp/wallet-core/internal/validation"
)

// ProvideValidator provides the shared struct validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCardService provides the card service.
func ProvideCardService(i do.Injector) (*service.CardService, error) {
	repo := do.MustInvoke[*sqlite.CardRepository](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCardService(repo, validator, log.Logger), nil
}
