package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StockReader reports the stock level of a product.
type StockReader interface {
	Quantity(ctx context.Context, productID uuid.UUID) (int, error)
}

// Service serves catalog pages with a Redis read-through cache.
type Service struct {
	store  Store
	cache  *Cache
	stock  StockReader
	logger zerolog.Logger
	now    func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  Store
	Cache  *Cache
	Stock  StockReader
	Logger zerolog.Logger
}

// Detail is a single catalog entry with its stock level.
type Detail struct {
	Buyable
	Stock     int  `json:"stock"`
	Orderable bool `json:"orderable"`
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, stock: cfg.Stock, logger: cfg.Logger, now: time.Now}, nil
}

// ListByType returns the catalog page for one product type.
func (s *Service) ListByType(ctx context.Context, t BuyableType) ([]Buyable, error) {
	cached, ok, err := s.cache.Page(ctx, t)
	if err != nil {
		s.logger.Warn().Err(err).Str("type", string(t)).Msg("catalog cache read failed")
	} else if ok {
		return cached, nil
	}

	items, err := s.store.FindByType(ctx, t)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Buyable{}
	}
	if err := s.cache.StorePage(ctx, t, items); err != nil {
		s.logger.Warn().Err(err).Str("type", string(t)).Msg("catalog cache write failed")
	}
	return items, nil
}

// Get returns one entry regardless of type.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Buyable, error) {
	return s.store.FindByID(ctx, id)
}

// Detail returns an entry with comments, stock level and whether it can be ordered.
func (s *Service) Detail(ctx context.Context, id uuid.UUID) (Detail, error) {
	b, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Buyable: b}
	if s.stock != nil {
		qty, err := s.stock.Quantity(ctx, id)
		if err != nil {
			return Detail{}, err
		}
		d.Stock = qty
		d.Orderable = qty > 0
	}
	return d, nil
}

// AddComment stores a review for a disc.
func (s *Service) AddComment(ctx context.Context, id uuid.UUID, text string, rating int) (Comment, error) {
	b, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Comment{}, err
	}
	if !b.Type.IsDisc() {
		return Comment{}, errors.Join(ErrInvalidArgument, errors.New("only discs can be commented"))
	}
	c, err := NewComment(text, rating, s.now().UTC())
	if err != nil {
		return Comment{}, err
	}
	if err := s.store.AddComment(ctx, id, c); err != nil {
		return Comment{}, err
	}
	return c, nil
}

// Save stores an entry and drops the cached page of its type.
func (s *Service) Save(ctx context.Context, b Buyable) error {
	if err := s.store.Save(ctx, b); err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, b.Type)
}
