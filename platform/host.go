package platform

import "context"

// ProviderProfile is the optional public profile released by the identity
// provider. JSON names follow the provider's own payload.
type ProviderProfile struct {
	NickName  string `json:"nickName"`
	AvatarURL string `json:"avatarUrl"`
	Gender    int    `json:"gender,omitempty"`
	Country   string `json:"country,omitempty"`
	Province  string `json:"province,omitempty"`
	City      string `json:"city,omitempty"`
	Language  string `json:"language,omitempty"`
}

// ProviderHost is the host bridge to the identity provider.
//
// LoginCode obtains a one-time authorization code. Profile asks the user to
// release their public profile; a refusal is reported as an error and is not
// fatal to login.
type ProviderHost interface {
	LoginCode(ctx context.Context) (string, error)
	Profile(ctx context.Context) (*ProviderProfile, error)
}

// Presenter shows transient UI owned by the host.
type Presenter interface {
	ShowLoading(text string)
	HideLoading()
	Toast(message string)
	Navigate(route string)
	// OfferBind prompts the user to link an account of bindType and reports
	// whether they accepted.
	OfferBind(bindType string) bool
}

// NopPresenter ignores every call.
type NopPresenter struct{}

func (NopPresenter) ShowLoading(string)    {}
func (NopPresenter) HideLoading()          {}
func (NopPresenter) Toast(string)          {}
func (NopPresenter) Navigate(string)       {}
func (NopPresenter) OfferBind(string) bool { return false }
