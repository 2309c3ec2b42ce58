package authtest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/MrEthical07/glazeAuth/platform"
)

func readAll(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, err
}

func decodeBody(r *http.Request, v any) error {
	body, err := readAll(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// ProviderHost is a scripted provider bridge.
type ProviderHost struct {
	mu          sync.Mutex
	Code        string
	CodeErr     error
	UserProfile *platform.ProviderProfile
	ProfileErr  error
	codeCalls   int
}

// LoginCode returns the scripted code or error.
func (h *ProviderHost) LoginCode(context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.codeCalls++
	return h.Code, h.CodeErr
}

// Profile returns the scripted profile or error.
func (h *ProviderHost) Profile(context.Context) (*platform.ProviderProfile, error) {
	return h.UserProfile, h.ProfileErr
}

// CodeCalls returns how many times LoginCode ran.
func (h *ProviderHost) CodeCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.codeCalls
}
