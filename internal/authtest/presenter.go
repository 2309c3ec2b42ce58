package authtest

import "sync"

// Presenter records every call made to it. AcceptBind is the answer given to
// bind offers.
type Presenter struct {
	AcceptBind bool

	mu      sync.Mutex
	events  []string
	toasts  []string
	routes  []string
	binds   []string
	visible bool
}

// ShowLoading records a loading indicator.
func (p *Presenter) ShowLoading(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "loading:"+text)
	p.visible = true
}

// HideLoading records the indicator being released.
func (p *Presenter) HideLoading() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "hide")
	p.visible = false
}

// Toast records a notice.
func (p *Presenter) Toast(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "toast:"+message)
	p.toasts = append(p.toasts, message)
}

// Navigate records a navigation.
func (p *Presenter) Navigate(route string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "navigate:"+route)
	p.routes = append(p.routes, route)
}

// OfferBind records a bind offer.
func (p *Presenter) OfferBind(bindType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "bind:"+bindType)
	p.binds = append(p.binds, bindType)
	return p.AcceptBind
}

// Events returns every recorded call in order.
func (p *Presenter) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// Toasts returns recorded notices.
func (p *Presenter) Toasts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.toasts...)
}

// Routes returns recorded navigations.
func (p *Presenter) Routes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.routes...)
}

// Binds returns recorded bind offers.
func (p *Presenter) Binds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.binds...)
}

// LoadingVisible reports whether a loading indicator is currently shown.
func (p *Presenter) LoadingVisible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}
