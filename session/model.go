package session

import "time"

const (
	// KeyToken holds the bearer token string.
	KeyToken = "token"
	// KeyUser holds the JSON-encoded [User].
	KeyUser = "userInfo"
	// KeyRefreshToken holds the refresh token string.
	KeyRefreshToken = "refreshToken"
	// KeyLoginTime holds the login timestamp in epoch milliseconds.
	KeyLoginTime = "loginTime"
)

// SessionKeys lists every key written by SaveSession, in write order.
var SessionKeys = []string{KeyToken, KeyUser, KeyLoginTime, KeyRefreshToken}

// DefaultMaxAge is the session age after which IsExpired reports true when the
// caller passes a non-positive max age.
const DefaultMaxAge = 7 * 24 * time.Hour

// User is the locally cached profile of the signed-in account.
//
// Field names mirror the server's JSON so the snapshot can be stored and
// re-read without translation.
type User struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Nickname     string `json:"nickname,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	HasWxBind    bool   `json:"hasWxBind"`
	HasEmailBind bool   `json:"hasEmailBind"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// UserPatch is a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	Nickname     *string `json:"nickname,omitempty"`
	Avatar       *string `json:"avatar,omitempty"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	HasWxBind    *bool   `json:"hasWxBind,omitempty"`
	HasEmailBind *bool   `json:"hasEmailBind,omitempty"`
	UpdatedAt    *string `json:"updatedAt,omitempty"`
}

// Apply returns a copy of u with every non-nil field of p merged in.
func (u User) Apply(p UserPatch) User {
	if p.Nickname != nil {
		u.Nickname = *p.Nickname
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.HasWxBind != nil {
		u.HasWxBind = *p.HasWxBind
	}
	if p.HasEmailBind != nil {
		u.HasEmailBind = *p.HasEmailBind
	}
	if p.UpdatedAt != nil {
		u.UpdatedAt = *p.UpdatedAt
	}
	return u
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Nickname == nil && p.Avatar == nil && p.Email == nil && p.Phone == nil &&
		p.HasWxBind == nil && p.HasEmailBind == nil && p.UpdatedAt == nil
}
