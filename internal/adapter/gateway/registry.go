package gateway

import (
	"fmt"
	"sort"

	domainErrors "github.com/polkiloo/gophercheckout/internal/domain/errors"
	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

// Registry maps payment methods to adapters.
type Registry struct {
	adapters map[model.PaymentMethod]Adapter
}

// NewRegistry builds a registry; a method may be registered once.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[model.PaymentMethod]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.adapters[a.Method()]; dup {
			return nil, fmt.Errorf("duplicate adapter for method %s", a.Method())
		}
		r.adapters[a.Method()] = a
	}
	return r, nil
}

// Get returns the adapter for the method or ErrUnsupportedMethod.
func (r *Registry) Get(method model.PaymentMethod) (Adapter, error) {
	a, ok := r.adapters[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrUnsupportedMethod, method)
	}
	return a, nil
}

// Methods lists registered methods in a stable order.
func (r *Registry) Methods() []model.PaymentMethod {
	methods := make([]model.PaymentMethod, 0, len(r.adapters))
	for m := range r.adapters {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
