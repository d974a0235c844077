package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billed/internal/core"
	"billed/internal/routes"
	"billed/internal/session"
	"billed/internal/store"
)

var employee = session.User{Type: session.TypeEmployee, Email: "employee@test.tld"}

func pngReceipt() core.ReceiptFile {
	return core.ReceiptFile{Name: "test.png", ContentType: "image/png", Content: []byte("png")}
}

func uploadedStore() *fakeStore {
	return &fakeStore{createRes: store.UploadResult{FileURL: "https://localhost:3456/images/test.jpg", Key: "1234"}}
}

func filledForm() BillForm {
	return BillForm{
		Type:       "Transports",
		Name:       "Vol Paris Londres",
		Date:       "2022-02-22",
		Amount:     "348",
		VAT:        "70",
		Pct:        "",
		Commentary: "",
	}
}

func TestNewBillRegistersOnView(t *testing.T) {
	view := &fakeNewBillView{submitEnabled: true}
	NewNewBill(NewBillConfig{View: view})

	assert.NotNil(t, view.fileSelected)
	assert.NotNil(t, view.submit)
	assert.False(t, view.submitEnabled)
}

func TestPNGReceiptIsAccepted(t *testing.T) {
	view := &fakeNewBillView{}
	fs := uploadedStore()
	c := NewNewBill(NewBillConfig{View: view, Store: fs, User: employee})

	require.NoError(t, view.fileSelected(context.Background(), pngReceipt()))

	assert.Equal(t, FileReady, c.State())
	assert.Zero(t, view.cleared)
	assert.False(t, view.fileError)
	assert.True(t, view.submitEnabled)

	require.Len(t, fs.creates, 1)
	assert.Equal(t, "test.png", fs.creates[0].File.Name)
	assert.Equal(t, employee.Email, fs.creates[0].Email)

	rec, ok := c.Receipt()
	require.True(t, ok)
	assert.Equal(t, Receipt{Key: "1234", FileURL: "https://localhost:3456/images/test.jpg", FileName: "test.png"}, rec)
}

func TestPDFReceiptIsRejectedWithoutUpload(t *testing.T) {
	view := &fakeNewBillView{}
	fs := uploadedStore()
	c := NewNewBill(NewBillConfig{View: view, Store: fs, User: employee})

	err := view.fileSelected(context.Background(), core.ReceiptFile{Name: "test.pdf", ContentType: "application/pdf"})

	require.NoError(t, err)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 1, view.cleared)
	assert.True(t, view.fileError)
	assert.False(t, view.submitEnabled)
	_, create, _ := fs.calls()
	assert.Zero(t, create)
}

func TestUploadFailureReturnsToIdle(t *testing.T) {
	view := &fakeNewBillView{}
	fs := &fakeStore{createErr: store.NewError(500)}
	c := NewNewBill(NewBillConfig{View: view, Store: fs, User: employee})

	err := c.HandleChangeFile(context.Background(), pngReceipt())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpload))
	var se *store.Error
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, Idle, c.State())
	_, ok := c.Receipt()
	assert.False(t, ok)
	assert.False(t, view.submitEnabled)
}

func TestUploadWithoutStore(t *testing.T) {
	c := NewNewBill(NewBillConfig{User: employee})
	err := c.HandleChangeFile(context.Background(), pngReceipt())
	assert.ErrorIs(t, err, ErrUpload)
	assert.ErrorIs(t, err, ErrNoStore)
	assert.Equal(t, Idle, c.State())
}

func TestReselectionDiscardsPreviousUpload(t *testing.T) {
	fs := uploadedStore()
	c := NewNewBill(NewBillConfig{Store: fs, User: employee})
	ctx := context.Background()

	require.NoError(t, c.HandleChangeFile(ctx, pngReceipt()))
	require.Equal(t, FileReady, c.State())

	require.NoError(t, c.HandleChangeFile(ctx, core.ReceiptFile{Name: "scan.gif"}))
	assert.Equal(t, Idle, c.State())
	_, ok := c.Receipt()
	assert.False(t, ok)
	assert.ErrorIs(t, c.HandleSubmit(ctx, filledForm()), ErrReceiptNotReady)
}

func TestStaleUploadIsIgnored(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fs := &fakeStore{}
	fs.createHook = func(p store.CreatePayload) {
		if p.File.Name == "first.png" {
			close(started)
			<-release
		}
	}
	fs.createRes = store.UploadResult{FileURL: "https://host/receipts/k", Key: "k"}
	c := NewNewBill(NewBillConfig{Store: fs, User: employee})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.HandleChangeFile(ctx, core.ReceiptFile{Name: "first.png"}))
	}()
	<-started

	require.NoError(t, c.HandleChangeFile(ctx, core.ReceiptFile{Name: "second.jpg"}))
	close(release)
	wg.Wait()

	rec, ok := c.Receipt()
	require.True(t, ok)
	assert.Equal(t, "second.jpg", rec.FileName)
}

func TestSubmitUpdatesOnceAndNavigatesBeforeSettling(t *testing.T) {
	fs := uploadedStore()
	fs.updateGate = make(chan struct{})
	nav := &navRecorder{}
	results := make(chan SubmissionResult, 1)
	view := &fakeNewBillView{}
	c := NewNewBill(NewBillConfig{
		View:     view,
		Navigate: nav.navigate,
		Store:    fs,
		User:     employee,
		Observer: func(r SubmissionResult) { results <- r },
	})
	ctx := context.Background()

	require.NoError(t, view.fileSelected(ctx, pngReceipt()))
	require.NoError(t, view.submit(ctx, filledForm()))

	// navigation happened while the update is still blocked
	assert.Equal(t, []routes.Route{routes.Bills}, nav.got())
	_, _, update := fs.calls()
	assert.Zero(t, update)
	assert.Equal(t, Done, c.State())
	assert.False(t, view.submitEnabled)

	close(fs.updateGate)
	c.Wait()

	_, _, update = fs.calls()
	require.Equal(t, 1, update)
	p := fs.updates[0]
	assert.Equal(t, "1234", p.Selector)
	assert.Equal(t, employee.Email, p.Bill.Email)
	require.NotNil(t, p.Bill.Amount)
	assert.Equal(t, int64(348), *p.Bill.Amount)
	assert.Equal(t, "https://localhost:3456/images/test.jpg", p.Bill.FileURL)
	assert.Equal(t, "test.png", p.Bill.FileName)
	assert.Equal(t, core.DefaultPct, p.Bill.Pct)
	assert.Equal(t, "Transports", p.Bill.Type)

	select {
	case r := <-results:
		assert.NoError(t, r.Err)
		assert.Equal(t, "1234", r.Key)
		assert.Equal(t, core.StatusPending, r.Bill.Status)
	case <-time.After(time.Second):
		t.Fatal("observer not called")
	}
	assert.Equal(t, []routes.Route{routes.Bills}, nav.got())
}

func TestSubmitFailureStillNavigates(t *testing.T) {
	fs := uploadedStore()
	fs.updateErr = store.NewError(500)
	nav := &navRecorder{}
	var got SubmissionResult
	c := NewNewBill(NewBillConfig{
		Navigate: nav.navigate,
		Store:    fs,
		User:     employee,
		Observer: func(r SubmissionResult) { got = r },
	})
	ctx := context.Background()

	require.NoError(t, c.HandleChangeFile(ctx, pngReceipt()))
	require.NoError(t, c.HandleSubmit(ctx, filledForm()))
	c.Wait()

	assert.Equal(t, []routes.Route{routes.Bills}, nav.got())
	assert.EqualError(t, got.Err, "Erreur 500")
}

func TestSubmitSurvivesRequestCancellation(t *testing.T) {
	fs := uploadedStore()
	c := NewNewBill(NewBillConfig{Store: fs, User: employee})

	require.NoError(t, c.HandleChangeFile(context.Background(), pngReceipt()))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.HandleSubmit(ctx, filledForm()))
	cancel()
	c.Wait()

	_, _, update := fs.calls()
	assert.Equal(t, 1, update)
}

func TestSubmitOutsideFileReady(t *testing.T) {
	fs := uploadedStore()
	nav := &navRecorder{}
	c := NewNewBill(NewBillConfig{Navigate: nav.navigate, Store: fs, User: employee})
	ctx := context.Background()

	assert.ErrorIs(t, c.HandleSubmit(ctx, filledForm()), ErrReceiptNotReady)
	assert.Equal(t, Idle, c.State())

	require.NoError(t, c.HandleChangeFile(ctx, pngReceipt()))
	require.NoError(t, c.HandleSubmit(ctx, filledForm()))
	assert.ErrorIs(t, c.HandleSubmit(ctx, filledForm()), ErrReceiptNotReady)
	c.Wait()

	_, _, update := fs.calls()
	assert.Equal(t, 1, update)
	assert.Len(t, nav.got(), 1)
}

func TestAssembleKeepsUnparseableFields(t *testing.T) {
	c := NewNewBill(NewBillConfig{User: employee})
	form := BillForm{Type: " Transports ", Name: "x", Date: "2022-02-22", Amount: "abc", VAT: "12,5", Pct: "nope"}

	b := c.assemble(form, Receipt{FileURL: "u", FileName: "f.png"})

	assert.Nil(t, b.Amount)
	assert.Equal(t, "12.5", b.VAT)
	assert.Equal(t, core.DefaultPct, b.Pct)
	assert.Equal(t, "Transports", b.Type)
	assert.Empty(t, b.Status)
	assert.ErrorIs(t, b.Validate(), core.ErrInvalidAmount)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "file_ready", FileReady.String())
	assert.Equal(t, "state(42)", State(42).String())
}
