package watcher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/opencorp/filing-gateway/govtalk"
	"github.com/opencorp/filing-gateway/store"
)

// Metrics are the watcher's injected Prometheus counters.
type Metrics struct {
	Cycles           prometheus.Counter
	StatusesApplied  prometheus.Counter
	DocumentsFetched prometheus.Counter
	BatchesAborted   prometheus.Counter
}

// cycleOutcome is the typed result of one poll cycle. The loop only logs
// and counts; all decisions happen inside the cycle, which keeps it
// testable without timers.
type cycleOutcome int

const (
	// cycleIdle: no pending submissions, nothing polled.
	cycleIdle cycleOutcome = iota
	// cycleNoStatus: the gateway reported it has nothing for us.
	cycleNoStatus
	// cyclePollFailed: the poll itself failed; retried next tick.
	cyclePollFailed
	// cycleAborted: reconciliation stopped mid-batch; the batch was not
	// acknowledged, so the gateway re-reports it next tick.
	cycleAborted
	// cycleCompleted: every status reconciled or deliberately skipped, and
	// the batch acknowledged.
	cycleCompleted
)

// Watcher is the lifecycle tracker: a single background loop that polls for
// outstanding submission statuses, reconciles them into the store, fetches
// referenced documents and acknowledges the batch.
//
// It is the only writer of remote-originated submission state. Request
// handlers insert new Pending rows concurrently; that is safe because the
// watcher only reads Pending rows and updates by primary key.
type Watcher struct {
	logger      logrus.FieldLogger
	transactor  govtalk.Transactor
	store       store.Store
	fetcher     DocumentFetcher
	presenterID string
	interval    time.Duration
	metrics     Metrics

	ctx    context.Context
	cancel context.CancelFunc
	stop   chan chan struct{}
	poke   chan struct{}

	cycles  uint64
	applied uint64
}

func New(
	logger logrus.FieldLogger,
	transactor govtalk.Transactor,
	st store.Store,
	fetcher DocumentFetcher,
	presenterID string,
	interval time.Duration,
	metrics Metrics) *Watcher {

	w := &Watcher{
		logger:      logger,
		transactor:  transactor,
		store:       st,
		fetcher:     fetcher,
		presenterID: presenterID,
		interval:    interval,
		metrics:     metrics,
		stop:        make(chan chan struct{}),
		poke:        make(chan struct{}),
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	return w
}

// Run loops until Stop is called. Every error is absorbed into the cycle
// outcome; nothing terminates the loop early.
func (w *Watcher) Run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case ch := <-w.stop:
			w.cancel()
			close(ch)
			return
		case <-ticker.C:
		case <-w.poke:
		}
		w.metrics.Cycles.Inc()
		atomic.AddUint64(&w.cycles, 1)
		outcome := w.safeCycle(w.ctx)
		switch outcome {
		case cycleAborted:
			w.metrics.BatchesAborted.Inc()
		case cycleCompleted:
			w.logger.Debug("Poll cycle completed")
		}
	}
}

// Poke is a non-blocking request for an immediate poll, skipped if a cycle
// is already due.
func (w *Watcher) Poke() {
	select {
	case w.poke <- struct{}{}:
		w.logger.Info("Forcing an immediate poll")
	default:
		w.logger.Info("A poll is already in progress")
	}
}

// LogStats emits the loop's lifetime counters.
func (w *Watcher) LogStats() {
	w.logger.WithFields(logrus.Fields{
		"cycles":  atomic.LoadUint64(&w.cycles),
		"applied": atomic.LoadUint64(&w.applied),
	}).Warn("Watcher statistics")
}

// Stop blocks until the loop terminates.
func (w *Watcher) Stop() {
	ch := make(chan struct{})
	w.stop <- ch
	<-ch
}

// safeCycle keeps a panicking cycle from taking the loop down with it.
func (w *Watcher) safeCycle(ctx context.Context) (outcome cycleOutcome) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf("Cycle panicked: %v", r)
			outcome = cyclePollFailed
		}
	}()
	return w.runCycle(ctx)
}

// runCycle executes one pass of countPending -> poll -> reconcile -> ack.
func (w *Watcher) runCycle(ctx context.Context) cycleOutcome {
	pending, err := w.store.CountPending(ctx)
	if err != nil {
		w.logger.Errorf("Unable to count pending submissions: %v", err)
		return cyclePollFailed
	}
	if pending == 0 {
		return cycleIdle
	}

	body, outcome := w.poll(ctx)
	if outcome != cycleCompleted {
		return outcome
	}

	if !w.reconcileBatch(ctx, body.Status) {
		return cycleAborted
	}

	// Only a fully reconciled batch is acknowledged; an aborted batch stays
	// queued remotely and is re-reported next tick.
	if _, err := w.transactor.Execute(ctx, "StatusAck", govtalk.StatusAck{}); err != nil {
		w.logger.Errorf("Unable to acknowledge submission statuses: %v", err)
		return cyclePollFailed
	}
	return cycleCompleted
}

func (w *Watcher) poll(ctx context.Context) (*govtalk.SubmissionStatus, cycleOutcome) {
	res, err := w.transactor.Execute(ctx, "GetSubmissionStatus", govtalk.GetSubmissionStatus{
		PresenterID: w.presenterID,
	})
	if err != nil {
		if terr, ok := err.(*govtalk.TransactionError); ok && terr.AllCode(govtalk.ErrCodeNoStatusAvailable) {
			return nil, cycleNoStatus
		}
		w.logger.Errorf("Unable to query submission status: %v", err)
		return nil, cyclePollFailed
	}
	body, ok := res.Body.(*govtalk.SubmissionStatus)
	if !ok {
		w.logger.Errorf("Mismatched response body %T for submission status", res.Body)
		return nil, cyclePollFailed
	}
	return body, cycleCompleted
}

// reconcileBatch applies every reported status. Returns false when the
// batch aborted mid-way (document fetch or persistence failure); the
// remaining statuses are left for the next cycle.
func (w *Watcher) reconcileBatch(ctx context.Context, statuses []govtalk.Status) bool {
	for _, status := range statuses {
		logger := w.logger.WithField("submission_number", status.SubmissionNumber)

		sub, err := w.store.GetSubmissionByNumber(ctx, status.SubmissionNumber)
		if err != nil {
			logger.Errorf("Unable to look up submission: %v", err)
			return false
		}
		if sub == nil {
			// Not ours. Skipped permanently; the batch ack clears it.
			logger.Warn("Unknown submission number")
			continue
		}

		rejections, ok := w.applyStatus(ctx, logger, sub, &status)
		if !ok {
			return false
		}
		if err := w.store.UpdateSubmission(ctx, sub, rejections); err != nil {
			logger.Errorf("Unable to persist submission update: %v", err)
			return false
		}
		w.metrics.StatusesApplied.Inc()
		atomic.AddUint64(&w.applied, 1)
	}
	return true
}

// applyStatus mutates the local submission from one reported status,
// fetching the referenced document when one is present. False means the
// cycle must abort.
func (w *Watcher) applyStatus(ctx context.Context, logger logrus.FieldLogger, sub *store.Submission, status *govtalk.Status) ([]store.SubmissionRejection, bool) {
	mapped, known := mapStatusCode(status.StatusCode)
	if !known {
		logger.Warnf("Unknown status code %q", status.StatusCode)
		return nil, true
	}
	sub.Status = mapped
	sub.CustomerReference = optional(status.CustomerReference)

	// First write wins: a locally known company number is never
	// overwritten by a later report.
	if sub.CompanyNumber == nil {
		sub.CompanyNumber = optional(status.CompanyNumber)
	}

	var rejections []store.SubmissionRejection
	if status.Rejections != nil {
		sub.RejectReference = optional(status.Rejections.RejectReference)
		for _, reject := range status.Rejections.Rejections {
			rejections = append(rejections, store.SubmissionRejection{
				ID:             uuid.New(),
				SubmissionID:   sub.ID,
				Code:           reject.RejectCode,
				Description:    reject.Description,
				InstanceNumber: reject.InstanceNumber,
			})
		}
	}

	if status.Examiner != nil {
		sub.ExaminerTelephone = &status.Examiner.Telephone
		sub.ExaminerComment = optional(status.Examiner.Comment)
	}

	if key := status.DocumentKey(); key != "" {
		documentID, err := w.fetcher.FetchDocument(ctx, key)
		if err != nil {
			logger.Errorf("Unable to fetch document: %v", err)
			return nil, false
		}
		w.metrics.DocumentsFetched.Inc()
		sub.DocumentID = &documentID
		switch {
		case status.Incorporation != nil:
			date := status.Incorporation.IncorporationDate.Time
			sub.IncorporationDate = &date
			sub.AuthenticationCode = &status.Incorporation.AuthenticationCode
		case status.Charge != nil:
			sub.ChargeCode = optional(status.Charge.ChargeCode)
		}
	}

	return rejections, true
}

func mapStatusCode(code govtalk.StatusCode) (store.Status, bool) {
	switch code {
	case govtalk.StatusCodePending:
		return store.StatusPending, true
	case govtalk.StatusCodeAccepted:
		return store.StatusAccepted, true
	case govtalk.StatusCodeRejected:
		return store.StatusRejected, true
	case govtalk.StatusCodeParked:
		return store.StatusParked, true
	case govtalk.StatusCodeInternalFailure:
		return store.StatusInternalFailure, true
	}
	return "", false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
