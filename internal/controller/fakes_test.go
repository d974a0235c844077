package controller

import (
	"context"
	"sync"

	"billed/internal/core"
	"billed/internal/routes"
	"billed/internal/store"
)

type fakeStore struct {
	mu sync.Mutex

	bills   []core.Bill
	listErr error

	createRes  store.UploadResult
	createErr  error
	createHook func(store.CreatePayload)
	creates    []store.CreatePayload

	updateErr   error
	updateGate  chan struct{}
	updates     []store.UpdatePayload
	listCalls   int
	updateCalls int
}

func (s *fakeStore) Bills() store.BillsResource { return s }

func (s *fakeStore) List(context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.bills, nil
}

func (s *fakeStore) Create(_ context.Context, p store.CreatePayload) (store.UploadResult, error) {
	if s.createHook != nil {
		s.createHook(p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, p)
	return s.createRes, s.createErr
}

func (s *fakeStore) Update(_ context.Context, p store.UpdatePayload) (core.Bill, error) {
	if s.updateGate != nil {
		<-s.updateGate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateCalls++
	s.updates = append(s.updates, p)
	if s.updateErr != nil {
		return core.Bill{}, s.updateErr
	}
	b := p.Bill
	b.ID = p.Selector
	b.Status = core.StatusPending
	return b, nil
}

func (s *fakeStore) calls() (list, create, update int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls, len(s.creates), s.updateCalls
}

type navRecorder struct {
	mu     sync.Mutex
	routes []routes.Route
}

func (n *navRecorder) navigate(r routes.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, r)
}

func (n *navRecorder) got() []routes.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]routes.Route(nil), n.routes...)
}

type fakeBillsView struct {
	eye      func(ReceiptTarget)
	newBill  func()
	previews []Preview
}

func (v *fakeBillsView) OnEyeClick(f func(ReceiptTarget)) { v.eye = f }
func (v *fakeBillsView) OnNewBill(f func())               { v.newBill = f }
func (v *fakeBillsView) ShowReceipt(p Preview)            { v.previews = append(v.previews, p) }

type fakeNewBillView struct {
	mu            sync.Mutex
	fileSelected  func(context.Context, core.ReceiptFile) error
	submit        func(context.Context, BillForm) error
	cleared       int
	fileError     bool
	submitEnabled bool
}

func (v *fakeNewBillView) OnFileSelected(f func(context.Context, core.ReceiptFile) error) {
	v.fileSelected = f
}

func (v *fakeNewBillView) OnSubmit(f func(context.Context, BillForm) error) { v.submit = f }

func (v *fakeNewBillView) ClearFileInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared++
}

func (v *fakeNewBillView) ShowFileError(show bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.fileError = show
}

func (v *fakeNewBillView) SetSubmitEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitEnabled = enabled
}
