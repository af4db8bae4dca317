package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/followerscart/backend/internal/domain/job"
)

type fakeJobsRepo struct {
	claimFn      func(ctx context.Context, workerID string) (job.Job, error)
	doneFn       func(ctx context.Context, id string) error
	failedFn     func(ctx context.Context, id string, errMsg string) error
	rescheduleFn func(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

func (f *fakeJobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	if f.claimFn != nil {
		return f.claimFn(ctx, workerID)
	}
	return job.Job{}, job.ErrJobNotFound
}

func (f *fakeJobsRepo) MarkDone(ctx context.Context, id string) error {
	if f.doneFn != nil {
		return f.doneFn(ctx, id)
	}
	return nil
}

func (f *fakeJobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	if f.failedFn != nil {
		return f.failedFn(ctx, id, errMsg)
	}
	return nil
}

func (f *fakeJobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	if f.rescheduleFn != nil {
		return f.rescheduleFn(ctx, id, runAt, errMsg)
	}
	return nil
}

type fakeNotifier struct {
	sendFn func(ctx context.Context, to, subject, htmlBody string) error
}

func (f *fakeNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	if f.sendFn != nil {
		return f.sendFn(ctx, to, subject, htmlBody)
	}
	return nil
}

func refundReceivedJob(t *testing.T, attempts, maxAttempts int) job.Job {
	t.Helper()

	payload, err := job.EncodePayload(job.TypeRefundReceived, job.RefundReceivedPayload{
		RefundID:    "r-1",
		OrderID:     "ORD-1",
		ClientName:  "Jamie",
		ClientEmail: "jamie@example.com",
		Amount:      12.50,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}

	return job.Job{
		ID:          "j-1",
		Type:        job.TypeRefundReceived,
		Payload:     payload,
		Status:      job.StatusProcessing,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}
}

func TestProcessOneEmptyQueue(t *testing.T) {
	w := New(Config{WorkerID: "t-1"}, &fakeJobsRepo{}, &fakeNotifier{}, nil, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if processed {
		t.Fatal("nothing should be processed on an empty queue")
	}
}

func TestProcessOneSendsAndMarksDone(t *testing.T) {
	j := refundReceivedJob(t, 1, 5)

	var sentTo string
	var doneID string

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
		doneFn: func(ctx context.Context, id string) error {
			doneID = id
			return nil
		},
	}

	notifier := &fakeNotifier{
		sendFn: func(ctx context.Context, to, subject, htmlBody string) error {
			sentTo = to
			if !strings.Contains(htmlBody, "ORD-1") {
				t.Errorf("email body missing order id: %s", htmlBody)
			}
			return nil
		},
	}

	w := New(Config{WorkerID: "t-1"}, repo, notifier, nil, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Fatal("expected a job to be processed")
	}
	if sentTo != "jamie@example.com" {
		t.Fatalf("email went to %q", sentTo)
	}
	if doneID != "j-1" {
		t.Fatalf("job %q was marked done", doneID)
	}
}

func TestProcessOneReschedulesOnSendFailure(t *testing.T) {
	j := refundReceivedJob(t, 1, 5)

	var rescheduled bool
	var failed bool

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
		rescheduleFn: func(ctx context.Context, id string, runAt time.Time, errMsg string) error {
			rescheduled = true
			if !runAt.After(time.Now().UTC()) {
				t.Errorf("retry scheduled in the past: %v", runAt)
			}
			return nil
		},
		failedFn: func(ctx context.Context, id string, errMsg string) error {
			failed = true
			return nil
		},
	}

	notifier := &fakeNotifier{
		sendFn: func(ctx context.Context, to, subject, htmlBody string) error {
			return errors.New("smtp down")
		},
	}

	w := New(Config{WorkerID: "t-1"}, repo, notifier, nil, nil)

	processed, err := w.ProcessOne(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !processed {
		t.Fatal("expected a job to be processed")
	}
	if !rescheduled {
		t.Fatal("job was not rescheduled")
	}
	if failed {
		t.Fatal("job should not be marked failed before retries run out")
	}
}

func TestProcessOneMarksFailedAtMaxAttempts(t *testing.T) {
	// four retries already spent, this is the fifth and last execution
	j := refundReceivedJob(t, 4, 5)

	var failedMsg string

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
		rescheduleFn: func(ctx context.Context, id string, runAt time.Time, errMsg string) error {
			t.Fatal("exhausted job must not be rescheduled")
			return nil
		},
		failedFn: func(ctx context.Context, id string, errMsg string) error {
			failedMsg = errMsg
			return nil
		},
	}

	notifier := &fakeNotifier{
		sendFn: func(ctx context.Context, to, subject, htmlBody string) error {
			return errors.New("smtp still down")
		},
	}

	w := New(Config{WorkerID: "t-1"}, repo, notifier, nil, nil)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(failedMsg, "smtp still down") {
		t.Fatalf("failure message %q", failedMsg)
	}
}

// A payload that cannot be decoded is a permanent failure once retries are
// spent; meanwhile it backs off like any other error.
func TestProcessOneBadPayload(t *testing.T) {
	j := job.Job{
		ID:          "j-bad",
		Type:        job.TypeRefundReceived,
		Payload:     []byte(`{`),
		Attempts:    5,
		MaxAttempts: 5,
	}

	var failed bool

	repo := &fakeJobsRepo{
		claimFn: func(ctx context.Context, workerID string) (job.Job, error) {
			return j, nil
		},
		failedFn: func(ctx context.Context, id string, errMsg string) error {
			failed = true
			return nil
		},
	}

	w := New(Config{WorkerID: "t-1"}, repo, &fakeNotifier{
		sendFn: func(ctx context.Context, to, subject, htmlBody string) error {
			t.Fatal("send must not be called for an undecodable payload")
			return nil
		},
	}, nil, nil)

	if _, err := w.ProcessOne(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !failed {
		t.Fatal("job was not marked failed")
	}
}

func TestExponentialBackoffGrows(t *testing.T) {
	prev := time.Duration(0)

	for attempt := 0; attempt < 5; attempt++ {
		d := ExponentialBackoff(attempt)

		if d < prev {
			t.Fatalf("backoff shrank at attempt %d: %v < %v", attempt, d, prev)
		}
		prev = d
	}

	if d := ExponentialBackoff(20); d > 5*time.Minute+time.Second {
		t.Fatalf("backoff exceeded cap: %v", d)
	}
}
