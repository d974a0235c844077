package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"billed/internal/core"
	"billed/internal/log"
	"billed/internal/metrics"
	"billed/internal/routes"
	"billed/internal/session"
	"billed/internal/store"
)

// State is the position of a NewBill controller in its submission flow.
type State int

const (
	Idle State = iota
	FileSelected
	Uploading
	FileReady
	Submitting
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FileSelected:
		return "file_selected"
	case Uploading:
		return "uploading"
	case FileReady:
		return "file_ready"
	case Submitting:
		return "submitting"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DefaultUpdateTimeout bounds the background update of a submitted bill.
const DefaultUpdateTimeout = 30 * time.Second

var (
	ErrUpload          = errors.New("receipt upload failed")
	ErrReceiptNotReady = errors.New("receipt not uploaded yet")
	ErrNoStore         = errors.New("no bill store configured")
)

// SubmissionResult is the settled outcome of a background bill update.
type SubmissionResult struct {
	Key  string
	Bill core.Bill
	Err  error
}

// SubmissionObserver receives every settled update. It runs on the update
// goroutine.
type SubmissionObserver func(SubmissionResult)

// Receipt is the uploaded receipt a bill will be submitted with.
type Receipt struct {
	Key      string
	FileURL  string
	FileName string
}

type NewBillConfig struct {
	View          NewBillView
	Navigate      routes.Navigator
	Store         store.Store
	User          session.User
	UpdateTimeout time.Duration
	Observer      SubmissionObserver
	Logger        *log.Logger
}

// NewBill drives the new bill form: the receipt is uploaded when picked,
// and submitting completes the bill created by that upload.
type NewBill struct {
	view          NewBillView
	navigate      routes.Navigator
	store         store.Store
	user          session.User
	updateTimeout time.Duration
	observer      SubmissionObserver
	logger        *log.Logger

	mu      sync.Mutex
	state   State
	gen     uint64
	receipt Receipt

	pending sync.WaitGroup
}

func NewNewBill(cfg NewBillConfig) *NewBill {
	c := &NewBill{
		view:          cfg.View,
		navigate:      cfg.Navigate,
		store:         cfg.Store,
		user:          cfg.User,
		updateTimeout: cfg.UpdateTimeout,
		observer:      cfg.Observer,
		logger:        cfg.Logger,
	}
	if c.updateTimeout <= 0 {
		c.updateTimeout = DefaultUpdateTimeout
	}
	if c.logger == nil {
		c.logger = log.Default(log.ComponentNewBill)
	}
	if c.view != nil {
		c.view.OnFileSelected(c.HandleChangeFile)
		c.view.OnSubmit(c.HandleSubmit)
		c.view.SetSubmitEnabled(false)
	}
	return c
}

func (c *NewBill) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Receipt returns the uploaded receipt; ok is false outside FileReady.
func (c *NewBill) Receipt() (r Receipt, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.receipt, c.state == FileReady
}

// HandleChangeFile validates and uploads a newly picked receipt. A rejected
// file is reported on the view only. Any previous upload is discarded, and
// an upload overtaken by a newer pick is ignored when it returns.
func (c *NewBill) HandleChangeFile(ctx context.Context, f core.ReceiptFile) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = FileSelected
	c.receipt = Receipt{}
	c.mu.Unlock()
	c.setSubmitEnabled(false)

	if err := f.Validate(); err != nil {
		c.setStateIf(gen, Idle)
		if c.view != nil {
			c.view.ClearFileInput()
			c.view.ShowFileError(true)
		}
		metrics.RecordReceiptUpload(metrics.ResultRejected)
		c.logger.WarnContext(ctx, "Receipt rejected", log.FieldFileName, f.Name, log.FieldError, err)
		return nil
	}
	if c.view != nil {
		c.view.ShowFileError(false)
	}

	if !c.setStateIf(gen, Uploading) {
		return nil
	}
	if c.store == nil {
		c.setStateIf(gen, Idle)
		return fmt.Errorf("%w: %w", ErrUpload, ErrNoStore)
	}

	res, err := c.store.Bills().Create(ctx, store.CreatePayload{File: f, Email: c.user.Email})

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		metrics.RecordReceiptUpload(metrics.ResultStale)
		c.logger.DebugContext(ctx, "Dropping superseded upload", log.FieldFileName, f.Name)
		return nil
	}
	if err != nil {
		c.state = Idle
		c.mu.Unlock()
		metrics.RecordReceiptUpload(metrics.ResultError)
		c.logger.ErrorContext(ctx, "Receipt upload failed",
			log.FieldOperation, log.OpUpload, log.FieldFileName, f.Name, log.FieldError, err)
		return fmt.Errorf("%w: %w", ErrUpload, err)
	}
	c.receipt = Receipt{Key: res.Key, FileURL: res.FileURL, FileName: f.Name}
	c.state = FileReady
	c.mu.Unlock()

	metrics.RecordReceiptUpload(metrics.ResultSuccess)
	c.logger.InfoContext(ctx, "Receipt uploaded", log.FieldBillID, res.Key, log.FieldFileURL, res.FileURL)
	c.setSubmitEnabled(true)
	return nil
}

// HandleSubmit completes the uploaded bill with the form values. The update
// runs in the background; the user is sent to the bills page right away and
// the outcome only reaches the logs and the observer.
func (c *NewBill) HandleSubmit(ctx context.Context, form BillForm) error {
	c.mu.Lock()
	if c.state != FileReady {
		st := c.state
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "Submit without uploaded receipt", log.FieldState, st.String())
		return fmt.Errorf("%w (state %s)", ErrReceiptNotReady, st)
	}
	c.state = Submitting
	rec := c.receipt
	bill := c.assemble(form, rec)
	c.pending.Add(1)
	c.mu.Unlock()

	c.setSubmitEnabled(false)
	go c.update(context.WithoutCancel(ctx), rec.Key, bill)

	if c.navigate != nil {
		c.navigate(routes.Bills)
	}
	c.mu.Lock()
	c.state = Done
	c.mu.Unlock()
	return nil
}

// Wait blocks until every background update has settled.
func (c *NewBill) Wait() {
	c.pending.Wait()
}

func (c *NewBill) assemble(form BillForm, rec Receipt) core.Bill {
	b := core.Bill{
		Email:      c.user.Email,
		Type:       strings.TrimSpace(form.Type),
		Name:       strings.TrimSpace(form.Name),
		Date:       strings.TrimSpace(form.Date),
		VAT:        core.NormalizeVAT(form.VAT),
		Pct:        core.ParsePct(form.Pct),
		Commentary: strings.TrimSpace(form.Commentary),
		FileURL:    rec.FileURL,
		FileName:   rec.FileName,
	}
	if amount, ok := core.ParseAmount(form.Amount); ok {
		b.Amount = &amount
	}
	return b
}

func (c *NewBill) update(ctx context.Context, key string, bill core.Bill) {
	defer c.pending.Done()

	ctx, cancel := context.WithTimeout(ctx, c.updateTimeout)
	defer cancel()

	var (
		updated core.Bill
		err     error
	)
	if c.store == nil {
		err = ErrNoStore
	} else {
		updated, err = c.store.Bills().Update(ctx, store.UpdatePayload{Selector: key, Bill: bill})
	}
	metrics.RecordSubmission(err)

	if err != nil {
		log.NewStructuredLogger(c.logger).LogError(ctx, "Bill update failed", err,
			log.ComponentNewBill, log.OpUpdate, log.NewFields().WithBill(key, bill.Email, bill.Type))
		updated = bill
	} else {
		log.NewStructuredLogger(c.logger).LogBillSubmitted(ctx, key, bill.Email, bill.Type)
	}
	if c.observer != nil {
		c.observer(SubmissionResult{Key: key, Bill: updated, Err: err})
	}
}

func (c *NewBill) setStateIf(gen uint64, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.state = s
	return true
}

func (c *NewBill) setSubmitEnabled(enabled bool) {
	if c.view != nil {
		c.view.SetSubmitEnabled(enabled)
	}
}
