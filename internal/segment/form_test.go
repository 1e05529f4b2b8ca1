package segment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeStore struct {
	mu      sync.Mutex
	created []*Payload
	updated map[string]*Payload
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (s *fakeStore) wait() {
	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		<-s.block
	}
}

func (s *fakeStore) CreateSegment(ctx context.Context, p *Payload) (*Segment, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, p)
	seg := p.Segment()
	seg.ID = "seg-1"
	return seg, nil
}

func (s *fakeStore) UpdateSegment(ctx context.Context, id string, p *Payload) (*Segment, error) {
	s.wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.updated == nil {
		s.updated = make(map[string]*Payload)
	}
	s.updated[id] = p
	seg := p.Segment()
	seg.ID = id
	return seg, nil
}

func staticCounter(n int) Counter {
	return CounterFunc(func(context.Context, []Rule) (int, error) { return n, nil })
}

func newTestForm(store Store, counter Counter) *Form {
	return NewForm(store, counter, FormOptions{Debounce: testDebounce})
}

func TestFormLifecycle(t *testing.T) {
	store := &fakeStore{}
	f := newTestForm(store, staticCounter(4))

	if f.State() != StateClosed {
		t.Fatalf("initial state = %s, want closed", f.State())
	}
	if err := f.SetName("x"); !errors.Is(err, ErrFormClosed) {
		t.Errorf("SetName on closed form = %v, want ErrFormClosed", err)
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrFormClosed) {
		t.Errorf("Submit on closed form = %v, want ErrFormClosed", err)
	}

	if err := f.Open(nil); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if f.State() != StateEditing {
		t.Fatalf("state after Open = %s, want editing", f.State())
	}
	if err := f.Open(nil); err == nil {
		t.Error("second Open should fail")
	}

	rules := f.Rules()
	if len(rules) != 1 || !rules[0].Value.IsEmpty() || rules[0].Field != FieldTags {
		t.Fatalf("new form rules = %v, want one default rule", rules)
	}

	must(t, f.SetName("  VIP buyers  "))
	must(t, f.SetDescription("Repeat customers"))
	must(t, f.UpdateRule(0, AttrValue, []string{"vip"}))

	waitFor(t, func() bool { return f.Count() == 4 })

	seg, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if seg.ID != "seg-1" {
		t.Errorf("saved id = %q, want seg-1", seg.ID)
	}
	if f.State() != StateClosed {
		t.Errorf("state after success = %s, want closed", f.State())
	}
	if f.Rules() != nil || f.Count() != 0 {
		t.Error("form not reset after successful submit")
	}

	if len(store.created) != 1 {
		t.Fatalf("created %d segments, want 1", len(store.created))
	}
	p := store.created[0]
	if p.Name != "VIP buyers" || p.Type != TypeDynamic || len(p.Rules) != 1 || p.ContactIDs != nil {
		t.Errorf("payload = %+v", p)
	}
}

func TestFormValidationBlocksSubmit(t *testing.T) {
	store := &fakeStore{}
	f := newTestForm(store, staticCounter(0))
	must(t, f.Open(nil))
	defer f.Close()

	// Empty name
	_, err := f.Submit(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Message != "Segment name is required" {
		t.Fatalf("Submit without name = %v", err)
	}
	if f.State() != StateEditing {
		t.Errorf("state = %s, want editing", f.State())
	}
	if !errors.Is(f.Err(), err) {
		t.Errorf("Err() = %v, want %v", f.Err(), err)
	}

	// Default rule has no value
	must(t, f.SetName("Dormant"))
	if _, err := f.Submit(context.Background()); !IsValidationError(err) {
		t.Fatalf("Submit with empty rule value = %v, want validation error", err)
	}

	if len(store.created) != 0 {
		t.Errorf("store called %d times on invalid form", len(store.created))
	}
}

func TestFormStoreFailureReturnsToEditing(t *testing.T) {
	storeErr := errors.New("HTTP 500: internal error")
	store := &fakeStore{err: storeErr}
	f := newTestForm(store, staticCounter(0))
	must(t, f.Open(nil))
	defer f.Close()

	must(t, f.SetName("Lapsed"))
	must(t, f.UpdateRule(0, AttrField, FieldEngagementStatus))
	must(t, f.UpdateRule(0, AttrValue, []string{EngagementInactive}))

	if _, err := f.Submit(context.Background()); !errors.Is(err, storeErr) {
		t.Fatalf("Submit = %v, want %v", err, storeErr)
	}
	if f.State() != StateEditing {
		t.Errorf("state = %s, want editing", f.State())
	}
	if !errors.Is(f.Err(), storeErr) {
		t.Errorf("Err() = %v", f.Err())
	}

	// Edits still work and a retry succeeds
	store.mu.Lock()
	store.err = nil
	store.mu.Unlock()
	must(t, f.SetDescription("retry"))
	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if f.State() != StateClosed {
		t.Errorf("state after retry = %s, want closed", f.State())
	}
}

func TestFormLockedWhileSubmitting(t *testing.T) {
	store := &fakeStore{block: make(chan struct{}), entered: make(chan struct{})}
	f := newTestForm(store, staticCounter(0))
	must(t, f.Open(nil))

	must(t, f.SetName("Locked"))
	must(t, f.UpdateRule(0, AttrValue, []string{"vip"}))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-store.entered

	if f.State() != StateSubmitting {
		t.Errorf("state = %s, want submitting", f.State())
	}
	if err := f.AddRule(); !errors.Is(err, ErrFormLocked) {
		t.Errorf("AddRule while submitting = %v, want ErrFormLocked", err)
	}
	if err := f.SetName("other"); !errors.Is(err, ErrFormLocked) {
		t.Errorf("SetName while submitting = %v, want ErrFormLocked", err)
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrFormLocked) {
		t.Errorf("second Submit = %v, want ErrFormLocked", err)
	}

	close(store.block)
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.State() != StateClosed {
		t.Errorf("state = %s, want closed", f.State())
	}
}

func TestFormUpdatesExisting(t *testing.T) {
	store := &fakeStore{}
	f := newTestForm(store, staticCounter(0))

	existing := &Segment{
		ID:    "seg-42",
		Name:  "Spring buyers",
		Type:  TypeDynamic,
		Rules: []Rule{{FieldCampaignParticipated, OpIn, ListValue("spring-sale")}},
	}
	must(t, f.Open(existing))
	must(t, f.AddRule())
	must(t, f.UpdateRule(1, AttrField, "last_active_date"))
	must(t, f.UpdateRule(1, AttrValue, "2024-06-01"))

	// The caller's segment is not modified by edits
	if len(existing.Rules) != 1 {
		t.Errorf("existing segment mutated: %v", existing.Rules)
	}

	seg, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if seg.ID != "seg-42" {
		t.Errorf("id = %q, want seg-42", seg.ID)
	}
	p, ok := store.updated["seg-42"]
	if !ok {
		t.Fatal("UpdateSegment not called")
	}
	if len(p.Rules) != 2 || p.Rules[1].Operator != OpGte {
		t.Errorf("payload rules = %v", p.Rules)
	}
	if len(store.created) != 0 {
		t.Error("CreateSegment called for existing segment")
	}
}

func TestFormStaticSegment(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	counter := CounterFunc(func(context.Context, []Rule) (int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return 50, nil
	})

	store := &fakeStore{}
	f := newTestForm(store, counter)
	must(t, f.Open(&Segment{Name: "Hand picked", Type: TypeStatic}))

	must(t, f.SetContactIDs([]string{"c1", "c2", "c3"}))
	if f.Count() != 3 {
		t.Errorf("static Count() = %d, want 3", f.Count())
	}

	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p := store.created[0]
	if p.Type != TypeStatic || len(p.ContactIDs) != 3 || p.Rules != nil {
		t.Errorf("payload = %+v", p)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("remote counter called %d times for static segment", calls)
	}
}

func TestFormStaticIgnoresRuleEdits(t *testing.T) {
	counter := &fakeCounter{fn: func(int, []Rule) (int, error) { return 2, nil }}
	f := newTestForm(&fakeStore{}, counter)
	must(t, f.Open(&Segment{Name: "Hand picked", Type: TypeStatic}))
	defer f.Close()

	must(t, f.AddRule())
	must(t, f.UpdateRule(0, AttrValue, ListValue("vip")))

	time.Sleep(4 * testDebounce)
	if calls := counter.callCount(); calls != 0 {
		t.Errorf("remote counter called %d times for rule edits on a static form", calls)
	}

	// Switching back to dynamic counts the edited rules
	must(t, f.SetType(TypeDynamic))
	waitFor(t, func() bool { return counter.callCount() == 1 })
}

func TestFormCountTimeout(t *testing.T) {
	const timeout = 200 * time.Millisecond
	remaining := make(chan time.Duration, 1)
	counter := CounterFunc(func(ctx context.Context, _ []Rule) (int, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			remaining <- -1
			return 0, nil
		}
		remaining <- time.Until(deadline)
		return 1, nil
	})

	f := NewForm(&fakeStore{}, counter, FormOptions{Debounce: testDebounce, Timeout: timeout})
	must(t, f.Open(nil))
	defer f.Close()

	select {
	case d := <-remaining:
		if d <= 0 || d > timeout {
			t.Errorf("count request deadline in %v, want within %v", d, timeout)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("count request not sent")
	}
}

func TestFormSetTypeRejectsUnknown(t *testing.T) {
	f := newTestForm(&fakeStore{}, staticCounter(0))
	must(t, f.Open(nil))
	defer f.Close()

	if err := f.SetType("smart"); !IsValidationError(err) {
		t.Errorf("SetType(smart) = %v, want validation error", err)
	}
}

func TestFormCloseDiscards(t *testing.T) {
	store := &fakeStore{}
	f := newTestForm(store, staticCounter(9))
	must(t, f.Open(nil))
	must(t, f.SetName("draft"))
	f.Close()

	if f.State() != StateClosed {
		t.Errorf("state = %s, want closed", f.State())
	}
	if err := f.Open(nil); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	if f.Segment().Name != "" {
		t.Error("draft name survived Close")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
