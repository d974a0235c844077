package http

import (
	"context"
	"sync"

	"billed/internal/controller"
	"billed/internal/core"
	"billed/internal/routes"
)

// billsView collects what the Bills controller does to the page during one
// request. Registered handlers are fired by the request handlers the way the
// browser would fire them on click.
type billsView struct {
	eyeClick func(controller.ReceiptTarget)
	newBill  func()
	preview  *controller.Preview
}

var _ controller.BillsView = (*billsView)(nil)

func (v *billsView) OnEyeClick(fn func(controller.ReceiptTarget)) { v.eyeClick = fn }
func (v *billsView) OnNewBill(fn func())                          { v.newBill = fn }
func (v *billsView) ShowReceipt(p controller.Preview)             { v.preview = &p }

// newBillView is the new bill form of one session. It outlives requests,
// so its state is guarded.
type newBillView struct {
	mu            sync.Mutex
	fileSelected  func(context.Context, core.ReceiptFile) error
	submit        func(context.Context, controller.BillForm) error
	fileError     bool
	submitEnabled bool
	fileName      string
}

var _ controller.NewBillView = (*newBillView)(nil)

func (v *newBillView) OnFileSelected(fn func(context.Context, core.ReceiptFile) error) {
	v.mu.Lock()
	v.fileSelected = fn
	v.mu.Unlock()
}

func (v *newBillView) OnSubmit(fn func(context.Context, controller.BillForm) error) {
	v.mu.Lock()
	v.submit = fn
	v.mu.Unlock()
}

func (v *newBillView) ClearFileInput() {
	v.mu.Lock()
	v.fileName = ""
	v.mu.Unlock()
}

func (v *newBillView) ShowFileError(show bool) {
	v.mu.Lock()
	v.fileError = show
	v.mu.Unlock()
}

func (v *newBillView) SetSubmitEnabled(enabled bool) {
	v.mu.Lock()
	v.submitEnabled = enabled
	v.mu.Unlock()
}

// pick fires the file change handler. The name is shown until the
// controller clears the input.
func (v *newBillView) pick(ctx context.Context, f core.ReceiptFile) error {
	v.mu.Lock()
	fn := v.fileSelected
	v.fileName = f.Name
	v.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, f)
}

func (v *newBillView) send(ctx context.Context, form controller.BillForm) error {
	v.mu.Lock()
	fn := v.submit
	v.mu.Unlock()
	if fn == nil {
		return controller.ErrReceiptNotReady
	}
	return fn(ctx, form)
}

// fileFieldData is rendered by the file_field and submit_button templates.
type fileFieldData struct {
	FileError     bool
	UploadError   string
	SubmitEnabled bool
	FileName      string
	OOB           bool
}

func (v *newBillView) snapshot() fileFieldData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fileFieldData{
		FileError:     v.fileError,
		SubmitEnabled: v.submitEnabled,
		FileName:      v.fileName,
	}
}

// navRecorder is the Navigator handed to controllers; the handler turns the
// recorded route into a redirect once the controller returns.
type navRecorder struct {
	mu    sync.Mutex
	route routes.Route
	set   bool
}

func (n *navRecorder) Navigate(r routes.Route) {
	n.mu.Lock()
	n.route, n.set = r, true
	n.mu.Unlock()
}

// Take returns and forgets the last navigation.
func (n *navRecorder) Take() (routes.Route, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.route, n.set
	n.route, n.set = "", false
	return r, ok
}
