package store

import (
	"context"
	"fmt"
	"net/http"

	"billed/internal/core"
)

// OwnedBy restricts a bills resource to the bills of one employee. Lists are
// filtered by email, creations and updates are stamped with it, and updates of
// someone else's bill are refused when the inner store can load bills. An
// employee never sets the status of a bill; the stored one is kept.
func OwnedBy(inner BillsResource, email string) BillsResource {
	return &owned{inner: inner, email: email}
}

type owned struct {
	inner BillsResource
	email string
}

func (o *owned) List(ctx context.Context) ([]core.Bill, error) {
	all, err := o.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Bill, 0, len(all))
	for _, b := range all {
		if b.Email == o.email {
			out = append(out, b)
		}
	}
	return out, nil
}

func (o *owned) Create(ctx context.Context, p CreatePayload) (UploadResult, error) {
	p.Email = o.email
	return o.inner.Create(ctx, p)
}

func (o *owned) Update(ctx context.Context, p UpdatePayload) (core.Bill, error) {
	if g, ok := o.inner.(BillGetter); ok {
		cur, err := g.Get(ctx, p.Selector)
		if err != nil {
			return core.Bill{}, err
		}
		if cur.Email != o.email {
			return core.Bill{}, fmt.Errorf("update bill %s: %w", p.Selector, NewError(http.StatusForbidden))
		}
	}
	p.Bill.Email = o.email
	p.Bill.Status = ""
	return o.inner.Update(ctx, p)
}

// Resource adapts a BillsResource into a Store.
type Resource struct {
	BillsResource
}

func (r Resource) Bills() BillsResource {
	return r.BillsResource
}
