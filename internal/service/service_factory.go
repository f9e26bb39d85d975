package service

import (
	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/events"
	"vsgifts-api/internal/hashing"
	"vsgifts-api/internal/notify"
	"vsgifts-api/internal/otp"
	"vsgifts-api/internal/repository"
	"vsgifts-api/internal/session"
)

// Dependencies bundles what the services need. SearchIndex and Uploader
// may be nil when those backends are disabled.
type Dependencies struct {
	Accounts    repository.AccountRepository
	Products    repository.ProductRepository
	Hasher      *hashing.Hasher
	OTP         otp.Generator
	Notifier    notify.Notifier
	Issuer      *session.Issuer
	Publisher   events.Publisher
	SearchIndex SearchIndex
	Uploader    ImageUploader
}

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	deps   Dependencies
	auth   config.AuthConfig
	logger *zap.Logger

	accountService *AccountService
	profileService *ProfileService
	catalogService *CatalogService
}

func NewServiceFactory(deps Dependencies, authCfg config.AuthConfig, logger *zap.Logger) *ServiceFactory {
	return &ServiceFactory{
		deps:   deps,
		auth:   authCfg,
		logger: logger,
	}
}

// AccountService returns the account service instance (singleton)
func (f *ServiceFactory) AccountService() *AccountService {
	if f.accountService == nil {
		f.accountService = NewAccountService(
			f.deps.Accounts,
			f.deps.Hasher,
			f.deps.OTP,
			f.deps.Notifier,
			f.deps.Issuer,
			f.deps.Publisher,
			f.auth,
			f.logger,
		)
	}
	return f.accountService
}

func (f *ServiceFactory) ProfileService() *ProfileService {
	if f.profileService == nil {
		f.profileService = NewProfileService(f.deps.Accounts, f.deps.Products, f.logger)
	}
	return f.profileService
}

func (f *ServiceFactory) CatalogService() *CatalogService {
	if f.catalogService == nil {
		f.catalogService = NewCatalogService(f.deps.Products, f.deps.SearchIndex, f.deps.Uploader, f.logger)
	}
	return f.catalogService
}
