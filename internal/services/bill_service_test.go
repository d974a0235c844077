package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billed/internal/core"
	"billed/internal/store"
	"billed/internal/store/memory"
)

type fakePublisher struct {
	ids []string
	err error
}

func (p *fakePublisher) PublishBillSubmitted(_ context.Context, id, _ string) error {
	p.ids = append(p.ids, id)
	return p.err
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestUpdatePublishesSubmittedBill(t *testing.T) {
	repo := memory.New("")
	pub := &fakePublisher{}
	svc := NewBillService(repo, pub)
	ctx := context.Background()

	res, err := svc.Create(ctx, store.CreatePayload{File: core.ReceiptFile{Name: "a.png"}, Email: "a@a.com"})
	require.NoError(t, err)
	assert.Empty(t, pub.ids)

	_, err = svc.Update(ctx, store.UpdatePayload{Selector: res.Key, Bill: core.Bill{Email: "a@a.com"}})
	require.NoError(t, err)
	assert.Equal(t, []string{res.Key}, pub.ids)
}

func TestUpdateSurvivesPublishFailure(t *testing.T) {
	repo := memory.New("")
	svc := NewBillService(repo, &fakePublisher{err: errors.New("broker down")})
	ctx := context.Background()

	res, err := svc.Create(ctx, store.CreatePayload{File: core.ReceiptFile{Name: "a.png"}})
	require.NoError(t, err)
	b, err := svc.Update(ctx, store.UpdatePayload{Selector: res.Key, Bill: core.Bill{Name: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "x", b.Name)
}

func TestUpdateFailureDoesNotPublish(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewBillService(memory.New(""), pub)
	_, err := svc.Update(context.Background(), store.UpdatePayload{Selector: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, pub.ids)
}

func TestNilPublisherAndClose(t *testing.T) {
	closed := 0
	svc := NewBillService(memory.New(""), nil,
		closerFunc(func() error { closed++; return nil }),
		closerFunc(func() error { closed++; return errors.New("x") }))
	ctx := context.Background()
	res, err := svc.Create(ctx, store.CreatePayload{File: core.ReceiptFile{Name: "a.png"}})
	require.NoError(t, err)
	_, err = svc.Update(ctx, store.UpdatePayload{Selector: res.Key})
	require.NoError(t, err)

	assert.Error(t, svc.Close())
	assert.Equal(t, 2, closed)
}

func TestCloseJoinsErrors(t *testing.T) {
	errAMQP := errors.New("amqp close")
	errDB := errors.New("db close")
	svc := NewBillService(memory.New(""), nil,
		closerFunc(func() error { return errAMQP }),
		nil,
		closerFunc(func() error { return errDB }))

	err := svc.Close()
	assert.ErrorIs(t, err, errAMQP)
	assert.ErrorIs(t, err, errDB)

	assert.NoError(t, NewBillService(memory.New(""), nil).Close())
}
