package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/model"
	"github.com/R3E-Network/model_layer/internal/model/filter"
)

// RegisterBmc registers the five CRUD methods of one entity:
//
//	create_<singular>  {"data": C}           -> E
//	get_<singular>     {"id": n}             -> E
//	list_<plural>      {"filters"?, "list_options"?} -> []E
//	update_<singular>  {"id": n, "data": U}  -> E
//	delete_<singular>  {"id": n}             -> E as it was before deletion
func RegisterBmc[E, C, U any](d *Dispatcher, singular, plural string, bmc model.Bmc[E, C, U]) error {
	entity := bmc.Entity()
	createShape := shapeOf(reflect.TypeOf((*C)(nil)).Elem())
	updateShape := shapeOf(reflect.TypeOf((*U)(nil)).Elem())

	methods := map[string]Handler{
		"create_" + singular: func(ctx context.Context, c identity.Ctx, mm *model.Manager, params json.RawMessage) (any, error) {
			p, err := object(params, false)
			if err != nil {
				return nil, err
			}
			if err := requireData(entity, p, createShape); err != nil {
				return nil, err
			}
			var in ParamsForCreate[C]
			if err := decode(params, &in); err != nil {
				return nil, err
			}
			id, err := bmc.Create(ctx, c, mm, in.Data)
			if err != nil {
				return nil, err
			}
			return bmc.Get(ctx, c, mm, id)
		},

		"get_" + singular: func(ctx context.Context, c identity.Ctx, mm *model.Manager, params json.RawMessage) (any, error) {
			id, err := idParam(params)
			if err != nil {
				return nil, err
			}
			return bmc.Get(ctx, c, mm, id)
		},

		"list_" + plural: func(ctx context.Context, c identity.Ctx, mm *model.Manager, params json.RawMessage) (any, error) {
			if _, err := object(params, true); err != nil {
				return nil, err
			}
			var in ParamsList
			if len(params) > 0 {
				if err := decode(params, &in); err != nil {
					return nil, err
				}
			}
			filters, err := filter.Decode(in.Filters)
			if err != nil {
				return nil, err
			}
			opts, err := filter.DecodeListOptions(in.ListOptions)
			if err != nil {
				return nil, err
			}
			return bmc.List(ctx, c, mm, filters, opts)
		},

		"update_" + singular: func(ctx context.Context, c identity.Ctx, mm *model.Manager, params json.RawMessage) (any, error) {
			p, err := object(params, false)
			if err != nil {
				return nil, err
			}
			if err := requireID(p); err != nil {
				return nil, err
			}
			if err := requireData(entity, p, updateShape); err != nil {
				return nil, err
			}
			var in ParamsForUpdate[U]
			if err := decode(params, &in); err != nil {
				return nil, err
			}
			if err := bmc.Update(ctx, c, mm, in.ID, in.Data); err != nil {
				return nil, err
			}
			return bmc.Get(ctx, c, mm, in.ID)
		},

		"delete_" + singular: func(ctx context.Context, c identity.Ctx, mm *model.Manager, params json.RawMessage) (any, error) {
			id, err := idParam(params)
			if err != nil {
				return nil, err
			}
			before, err := bmc.Get(ctx, c, mm, id)
			if err != nil {
				return nil, err
			}
			if err := bmc.Delete(ctx, c, mm, id); err != nil {
				return nil, err
			}
			return before, nil
		},
	}

	for name, h := range methods {
		if err := d.Register(name, h); err != nil {
			return fmt.Errorf("register %s: %w", entity, err)
		}
	}
	return nil
}

func idParam(params json.RawMessage) (int64, error) {
	p, err := object(params, false)
	if err != nil {
		return 0, err
	}
	if err := requireID(p); err != nil {
		return 0, err
	}
	var in ParamsIded
	if err := decode(params, &in); err != nil {
		return 0, err
	}
	return in.ID, nil
}

// New returns a dispatcher with every service method registered.
func New(mm *model.Manager) *Dispatcher {
	d := NewDispatcher(mm)
	if err := RegisterBmc(d, "task", "tasks", model.TaskBmc); err != nil {
		panic(err)
	}
	return d
}
