package store

import (
	"context"
	"fmt"

	"github.com/ppiankov/claimlens/internal/model"
)

// New opens the store selected by cfg. The close function is never nil.
func New(ctx context.Context, cfg model.StoreConfig) (Store, func() error, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), func() error { return nil }, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, func() error { return nil }, err
		}
		return s, s.Close, nil
	default:
		return nil, func() error { return nil }, fmt.Errorf("unknown store driver: %s", cfg.Driver)
	}
}
