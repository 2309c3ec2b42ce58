package flows

import (
	"context"

	"github.com/MrEthical07/glazeAuth/api"
	"github.com/MrEthical07/glazeAuth/request"
	"github.com/MrEthical07/glazeAuth/session"
)

// SessionStore is the session persistence used by flows. *session.Store
// satisfies it.
type SessionStore interface {
	Token(ctx context.Context) string
	User(ctx context.Context) *session.User
	RefreshToken(ctx context.Context) string
	SaveSession(ctx context.Context, token string, user session.User, refreshToken string) bool
	ClearSession(ctx context.Context) bool
	SetUser(ctx context.Context, u session.User) bool
	SetToken(ctx context.Context, token string) bool
	SetRefreshToken(ctx context.Context, token string) bool
	UpdateUser(ctx context.Context, patch session.UserPatch) (*session.User, bool)
}

// AuthAPI is the set of auth endpoints used by flows. *api.Auth satisfies it.
type AuthAPI interface {
	Login(ctx context.Context, cred api.Credential, opts request.Options) (*api.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string, opts request.Options) (*api.RefreshTokenResponse, error)
	Logout(ctx context.Context, opts request.Options) error
	Profile(ctx context.Context, opts request.Options) (*session.User, error)
	BindWx(ctx context.Context, code string, opts request.Options) (*api.BindResponse, error)
	BindEmail(ctx context.Context, email, password string, opts request.Options) (*api.BindResponse, error)
	Unbind(ctx context.Context, bindType string, opts request.Options) (*api.BindResponse, error)
}

// AuditRecord is the flow-local audit shape; the Client maps it to its sink.
type AuditRecord struct {
	EventType string
	UserID    string
	Success   bool
	Err       error
	Metadata  map[string]string
}

// EmitFunc forwards an audit record.
type EmitFunc func(ctx context.Context, rec AuditRecord)

// IncFunc increments the metric with the given id.
type IncFunc func(id int)

// Deps groups flow dependency sets. The root client builds this once and
// delegates its methods to the matching flow implementation.
type Deps struct {
	Login   LoginDeps
	Logout  LogoutDeps
	Restore RestoreDeps
	Account AccountDeps
}

func emit(ctx context.Context, fn EmitFunc, rec AuditRecord) {
	if fn != nil && rec.EventType != "" {
		fn(ctx, rec)
	}
}

func inc(fn IncFunc, id int) {
	if fn != nil && id >= 0 {
		fn(id)
	}
}
