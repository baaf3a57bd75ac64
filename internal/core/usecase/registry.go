package usecase

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

// FormRegistry keeps live forms in memory, bounded by an LRU. A form leaving
// the registry, by eviction or removal, is handed to the release callback.
type FormRegistry struct {
	cache *lru.Cache[string, *Form]
}

func NewFormRegistry(size int, release func(*Form)) (*FormRegistry, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.NewWithEvict[string, *Form](size, func(_ string, form *Form) {
		if release != nil {
			release(form)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create form cache: %w", err)
	}
	return &FormRegistry{cache: cache}, nil
}

func (r *FormRegistry) Add(form *Form) {
	r.cache.Add(form.ID(), form)
}

func (r *FormRegistry) Get(id string) (*Form, error) {
	form, ok := r.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: id=%s", domain.ErrFormNotFound, id)
	}
	return form, nil
}

func (r *FormRegistry) Remove(id string) bool {
	return r.cache.Remove(id)
}

func (r *FormRegistry) Len() int {
	return r.cache.Len()
}
