package authtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/glazeAuth/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Account is a user known to the fake server.
type Account struct {
	User     session.User
	Password string
	WxCode   string
}

// Recorded is one request seen by the server.
type Recorded struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Server is an in-process auth server. Tokens are HS256 JWTs whose subject is
// the account's userId.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	secret    []byte
	ttl       time.Duration
	accounts  map[string]*Account
	revoked   map[string]bool
	refresh   map[string]string
	requests  []Recorded
	overrides map[string]http.HandlerFunc
	needBind  map[string]string
}

// NewServer starts a fake server with the given accounts.
func NewServer(accounts ...Account) *Server {
	s := &Server{
		secret:    []byte("authtest-secret"),
		ttl:       time.Hour,
		accounts:  make(map[string]*Account),
		revoked:   make(map[string]bool),
		refresh:   make(map[string]string),
		overrides: make(map[string]http.HandlerFunc),
		needBind:  make(map[string]string),
	}
	for i := range accounts {
		a := accounts[i]
		s.accounts[a.User.UserID] = &a
	}

	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh-token", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.authed(s.handleLogout)).Methods(http.MethodPost)
	r.HandleFunc("/auth/profile", s.authed(s.handleProfile)).Methods(http.MethodGet)
	r.HandleFunc("/auth/bind-wx", s.authed(s.handleBindWx)).Methods(http.MethodPost)
	r.HandleFunc("/auth/bind-email", s.authed(s.handleBindEmail)).Methods(http.MethodPost)
	r.HandleFunc("/auth/unbind", s.authed(s.handleUnbind)).Methods(http.MethodPost)
	r.HandleFunc("/formulas", s.authed(s.handleFormulas)).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteEnvelope(w, 404, "not found", nil)
	})
	s.Server = httptest.NewServer(r)
	return s
}

// Override replaces the handler for path with h until cleared with nil.
func (s *Server) Override(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil {
		delete(s.overrides, path)
		return
	}
	s.overrides[path] = h
}

// RequireBind makes the next logins of userID report needBind with bindType.
func (s *Server) RequireBind(userID, bindType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needBind[userID] = bindType
}

// Requests returns a copy of every recorded request.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// Count returns how many requests hit path.
func (s *Server) Count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

// Issue signs a token for userID.
func (s *Server) Issue(userID string) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("authtest: sign token: %v", err))
	}
	return signed
}

// Revoke invalidates token so later calls with it receive the 401 envelope.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// WriteEnvelope writes a 200 response carrying the envelope.
func WriteEnvelope(w http.ResponseWriter, code any, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		override := s.overrides[r.URL.Path]
		s.mu.Unlock()

		if override != nil {
			override(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authed(h func(http.ResponseWriter, *http.Request, *Account)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			WriteEnvelope(w, 401, "missing token", nil)
			return
		}
		claims := jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		s.mu.Lock()
		revoked := s.revoked[raw]
		acct := s.accounts[claims.Subject]
		s.mu.Unlock()
		if err != nil || revoked || acct == nil {
			WriteEnvelope(w, "401", "token invalid", nil)
			return
		}
		h(w, r, acct)
	}
}

func (s *Server) loginResponse(acct *Account) map[string]any {
	token := s.Issue(acct.User.UserID)
	refresh := uuid.NewString()
	s.mu.Lock()
	s.refresh[refresh] = acct.User.UserID
	bindType := s.needBind[acct.User.UserID]
	s.mu.Unlock()

	resp := map[string]any{
		"token":        token,
		"refreshToken": refresh,
		"user":         acct.User,
		"expiresIn":    int(s.ttl / time.Second),
	}
	if bindType != "" {
		resp["needBind"] = true
		resp["bindType"] = bindType
	}
	return resp
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type     string          `json:"type"`
		Code     string          `json:"code"`
		Email    string          `json:"email"`
		Password string          `json:"password"`
		UserInfo json.RawMessage `json:"userInfo"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteEnvelope(w, 400, "bad request", nil)
		return
	}

	s.mu.Lock()
	var found *Account
	for _, a := range s.accounts {
		switch req.Type {
		case "wx":
			if a.WxCode != "" && a.WxCode == req.Code {
				found = a
			}
		case "email":
			if a.User.Email == req.Email && a.Password == req.Password {
				found = a
			}
		}
	}
	s.mu.Unlock()

	if found == nil {
		WriteEnvelope(w, 400, "invalid credentials", nil)
		return
	}
	WriteEnvelope(w, 200, "ok", s.loginResponse(found))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteEnvelope(w, 400, "bad request", nil)
		return
	}
	s.mu.Lock()
	userID, ok := s.refresh[req.RefreshToken]
	delete(s.refresh, req.RefreshToken)
	s.mu.Unlock()
	if !ok {
		WriteEnvelope(w, 401, "refresh token invalid", nil)
		return
	}
	next := uuid.NewString()
	s.mu.Lock()
	s.refresh[next] = userID
	s.mu.Unlock()
	WriteEnvelope(w, 200, "ok", map[string]any{
		"token":        s.Issue(userID),
		"refreshToken": next,
		"expiresIn":    int(s.ttl / time.Second),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *Account) {
	s.Revoke(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	WriteEnvelope(w, 200, "ok", nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request, acct *Account) {
	s.mu.Lock()
	u := acct.User
	s.mu.Unlock()
	WriteEnvelope(w, 200, "ok", u)
}

func (s *Server) handleBindWx(w http.ResponseWriter, r *http.Request, acct *Account) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil || req.Code == "" {
		WriteEnvelope(w, 400, "code required", nil)
		return
	}
	s.mu.Lock()
	acct.WxCode = req.Code
	acct.User.HasWxBind = true
	u := acct.User
	s.mu.Unlock()
	WriteEnvelope(w, 200, "ok", map[string]any{"success": true, "user": u})
}

func (s *Server) handleBindEmail(w http.ResponseWriter, r *http.Request, acct *Account) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil || req.Email == "" {
		WriteEnvelope(w, 400, "email required", nil)
		return
	}
	s.mu.Lock()
	acct.User.Email = req.Email
	acct.Password = req.Password
	acct.User.HasEmailBind = true
	u := acct.User
	s.mu.Unlock()
	WriteEnvelope(w, 200, "ok", map[string]any{"success": true, "user": u})
}

func (s *Server) handleUnbind(w http.ResponseWriter, r *http.Request, acct *Account) {
	var req struct {
		Type string `json:"type"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteEnvelope(w, 400, "bad request", nil)
		return
	}
	s.mu.Lock()
	switch req.Type {
	case "wx":
		acct.WxCode = ""
		acct.User.HasWxBind = false
	case "email":
		acct.User.HasEmailBind = false
	default:
		s.mu.Unlock()
		WriteEnvelope(w, 400, "unknown bind type", nil)
		return
	}
	u := acct.User
	s.mu.Unlock()
	WriteEnvelope(w, 200, "ok", map[string]any{"success": true, "user": u})
}

func (s *Server) handleFormulas(w http.ResponseWriter, r *http.Request, _ *Account) {
	WriteEnvelope(w, 200, "ok", map[string]any{
		"items": []string{"celadon", "tenmoku"},
		"cone":  r.URL.Query().Get("cone"),
	})
}
