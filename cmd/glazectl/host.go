package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/MrEthical07/glazeAuth/platform"
)

// stdoutPresenter prints UI side effects as tagged lines.
type stdoutPresenter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *stdoutPresenter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *stdoutPresenter) ShowLoading(text string) { p.printf("[loading] %s", text) }
func (p *stdoutPresenter) HideLoading()            {}
func (p *stdoutPresenter) Toast(message string)    { p.printf("[notice] %s", message) }
func (p *stdoutPresenter) Navigate(route string)   { p.printf("[navigate] %s", route) }

// OfferBind prints the offer and declines it; linking needs the app.
func (p *stdoutPresenter) OfferBind(bindType string) bool {
	p.printf("[offer] link a %s account", bindType)
	return false
}

var errNoCode = errors.New("no provider code given")

// codeProvider hands out the code passed on the command line. It never
// releases a profile.
type codeProvider struct {
	code string
}

func (c *codeProvider) LoginCode(context.Context) (string, error) {
	if c.code == "" {
		return "", errNoCode
	}
	return c.code, nil
}

func (c *codeProvider) Profile(context.Context) (*platform.ProviderProfile, error) {
	return nil, platform.ErrProbeUnavailable
}
