package model

import (
	"context"

	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/model/filter"
	"github.com/R3E-Network/model_layer/internal/model/schema"
)

// Bmc binds an entity descriptor to its read shape E, create shape C and
// update shape U. Adding an entity is declaring the three structs and one Bmc.
type Bmc[E, C, U any] struct {
	Desc *schema.Descriptor
}

// NewBmc describes the entity stored in table from its full row type R.
// It panics on a malformed row type.
func NewBmc[R, E, C, U any](table string) Bmc[E, C, U] {
	return Bmc[E, C, U]{Desc: schema.MustDescribe[R](table)}
}

// Entity returns the entity name.
func (b Bmc[E, C, U]) Entity() string {
	return b.Desc.Entity()
}

func (b Bmc[E, C, U]) Create(ctx context.Context, c identity.Ctx, mm *Manager, data C) (int64, error) {
	return Create(ctx, c, mm, b.Desc, data)
}

func (b Bmc[E, C, U]) Get(ctx context.Context, c identity.Ctx, mm *Manager, id int64) (E, error) {
	return Get[E](ctx, c, mm, b.Desc, id)
}

func (b Bmc[E, C, U]) List(ctx context.Context, c identity.Ctx, mm *Manager, filters []filter.Group, opts *filter.ListOptions) ([]E, error) {
	return List[E](ctx, c, mm, b.Desc, filters, opts)
}

func (b Bmc[E, C, U]) First(ctx context.Context, c identity.Ctx, mm *Manager, filters []filter.Group, opts *filter.ListOptions) (*E, error) {
	return First[E](ctx, c, mm, b.Desc, filters, opts)
}

func (b Bmc[E, C, U]) Update(ctx context.Context, c identity.Ctx, mm *Manager, id int64, data U) error {
	return Update(ctx, c, mm, b.Desc, id, data)
}

func (b Bmc[E, C, U]) Delete(ctx context.Context, c identity.Ctx, mm *Manager, id int64) error {
	return Delete(ctx, c, mm, b.Desc, id)
}
