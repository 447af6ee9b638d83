package dispatch

import (
	"context"
)

// Querier serves named read queries.
type Querier interface {
	Methods() []string
	Query(ctx context.Context, method string, params map[string]any) ([]map[string]any, error)
}

// RegisterStore adds one method per query the store serves. Params are
// read from the first positional param as a JSON object.
func RegisterStore(d *Dispatcher, q Querier) {
	for _, name := range q.Methods() {
		method := name
		d.Register(method, func(ctx context.Context, params []any) (any, error) {
			obj, err := ObjectParam(params)
			if err != nil {
				return nil, err
			}
			return q.Query(ctx, method, obj)
		})
	}
}
