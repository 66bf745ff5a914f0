package gateways

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

// Registry is the ordered set of gateways built at startup.
type Registry struct {
	ordered []Gateway
	byKey   map[string]Gateway
}

// NewRegistry keeps gateways in the given order and rejects duplicate keys.
func NewRegistry(gateways ...Gateway) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Gateway, len(gateways))}
	for _, g := range gateways {
		if g == nil {
			continue
		}
		key := g.Key()
		if _, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("gateway %q registered twice", key)
		}
		r.byKey[key] = g
		r.ordered = append(r.ordered, g)
	}
	return r, nil
}

// Ordered sorts gateways by the configured key order. Keys not listed keep
// their relative order after the listed ones.
func Ordered(order []string, gateways ...Gateway) []Gateway {
	rank := make(map[string]int, len(order))
	for i, key := range order {
		rank[strings.TrimSpace(key)] = i
	}
	out := make([]Gateway, 0, len(gateways))
	var rest []Gateway
	for _, key := range order {
		for _, g := range gateways {
			if g != nil && g.Key() == strings.TrimSpace(key) {
				out = append(out, g)
			}
		}
	}
	for _, g := range gateways {
		if g == nil {
			continue
		}
		if _, listed := rank[g.Key()]; !listed {
			rest = append(rest, g)
		}
	}
	return append(out, rest...)
}

// Keys lists registered gateway keys in display order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.ordered))
	for _, g := range r.ordered {
		keys = append(keys, g.Key())
	}
	return keys
}

// Get returns the gateway registered under key.
func (r *Registry) Get(key string) (Gateway, error) {
	g, ok := r.byKey[strings.TrimSpace(key)]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment gateway not found").
			WithDetails(map[string]any{"gateway": key})
	}
	return g, nil
}

// Available lists gateways a buyer can choose for this priced cart.
func (r *Registry) Available(priced *modifiers.PricedCart) []Gateway {
	var out []Gateway
	for _, g := range r.ordered {
		if g.IsEnabled() && g.IsConnected() && g.IsActive(priced) && g.ShouldShow() {
			out = append(out, g)
		}
	}
	return out
}

// Usable checks the gateway can take the priced cart right now.
func Usable(g Gateway, priced *modifiers.PricedCart) error {
	details := map[string]any{"gateway": g.Key()}
	switch {
	case !g.IsEnabled():
		return pkgerrors.New(pkgerrors.CodeValidation, "payment gateway is disabled").WithDetails(details)
	case !g.IsConnected():
		return pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "payment gateway is not connected").WithDetails(details)
	case !g.IsActive(priced):
		return pkgerrors.New(pkgerrors.CodePricingInconsistency, "payment gateway cannot take this order total").WithDetails(details)
	}
	return nil
}
