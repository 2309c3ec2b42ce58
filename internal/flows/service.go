package flows

import (
	"context"

	"github.com/MrEthical07/glazeAuth/api"
)

// Service is the centralized flow runner built once by the root client.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.Store != nil && s.deps.Login.API != nil
}

func (s Service) ProviderLogin(ctx context.Context) (*LoginResult, error) {
	return RunProviderLogin(ctx, s.deps.Login)
}

func (s Service) CredentialLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	return RunCredentialLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Logout(ctx context.Context) LogoutResult {
	return RunLogout(ctx, s.deps.Logout)
}

func (s Service) Restore(ctx context.Context) bool {
	return RunRestore(ctx, s.deps.Restore)
}

func (s Service) CheckLogin(ctx context.Context) error {
	return RunCheckLogin(ctx, s.deps.Restore)
}

func (s Service) BindProvider(ctx context.Context) (*api.BindResponse, error) {
	return RunBindProvider(ctx, s.deps.Account)
}

func (s Service) BindEmail(ctx context.Context, email, password string) (*api.BindResponse, error) {
	return RunBindEmail(ctx, email, password, s.deps.Account)
}

func (s Service) Unbind(ctx context.Context, bindType string) (*api.BindResponse, error) {
	return RunUnbind(ctx, bindType, s.deps.Account)
}

func (s Service) Refresh(ctx context.Context) error {
	return RunRefresh(ctx, s.deps.Account)
}
