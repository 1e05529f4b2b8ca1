package segment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxzi/reachgate/internal/metrics"
)

// State is the lifecycle position of a segment form
type State int

const (
	StateClosed State = iota
	StateEditing
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	default:
		return "closed"
	}
}

// Store persists segments
type Store interface {
	CreateSegment(ctx context.Context, p *Payload) (*Segment, error)
	UpdateSegment(ctx context.Context, id string, p *Payload) (*Segment, error)
}

// FormOptions configures a Form
type FormOptions struct {
	Debounce time.Duration
	// Timeout bounds each remote count request
	Timeout time.Duration
	Logger  *slog.Logger
	// OnCount receives every accepted dynamic count
	OnCount func(count int)
}

// Form drives one segment create/edit session:
// Closed -> Editing -> Submitting -> Closed on success, Editing on failure.
// Edits are rejected while submitting. There is no automatic retry.
type Form struct {
	store   Store
	counter Counter
	opts    FormOptions
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	id          string
	name        string
	description string
	typ         Type
	editor      *Editor
	contactIDs  []string
	refresher   *Refresher
	lastErr     error
}

// NewForm creates a closed form
func NewForm(store Store, counter Counter, opts FormOptions) *Form {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Form{
		store:   store,
		counter: counter,
		opts:    opts,
		logger:  logger,
	}
}

// Open starts editing. A nil segment starts a new dynamic segment with one
// default rule; otherwise the form edits a copy of existing.
func (f *Form) Open(existing *Segment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateClosed {
		return fmt.Errorf("segment form already %s", f.state)
	}

	seg := &Segment{Type: TypeDynamic}
	if existing != nil {
		seg = existing
	}

	f.id = seg.ID
	f.name = seg.Name
	f.description = seg.Description
	f.typ = seg.Type
	if f.typ == "" {
		f.typ = TypeDynamic
	}
	f.contactIDs = append([]string(nil), seg.ContactIDs...)
	f.lastErr = nil

	f.refresher = NewRefresher(f.counter, RefresherOptions{
		Debounce: f.opts.Debounce,
		Timeout:  f.opts.Timeout,
		Logger:   f.logger,
		OnCount:  f.opts.OnCount,
	})
	f.editor = NewEditor(seg.Rules)
	refresher := f.refresher
	// Rule edits only happen inside f.edit, so f.mu is held here
	f.editor.OnChange(func(rules []Rule) {
		if f.typ == TypeDynamic {
			refresher.Schedule(rules)
		}
	})

	f.state = StateEditing
	if f.typ == TypeDynamic {
		f.refresher.Schedule(f.editor.Rules())
	}
	return nil
}

// State returns the current lifecycle state
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error of the last failed submission, if any
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// SetName sets the segment name
func (f *Form) SetName(name string) error {
	return f.edit(func() error {
		f.name = name
		return nil
	})
}

// SetDescription sets the segment description
func (f *Form) SetDescription(desc string) error {
	return f.edit(func() error {
		f.description = desc
		return nil
	})
}

// SetType switches between dynamic and static membership
func (f *Form) SetType(t Type) error {
	if t != TypeDynamic && t != TypeStatic {
		return validationErrorf("type", "segment type must be %q or %q", TypeDynamic, TypeStatic)
	}
	return f.edit(func() error {
		if f.typ == t {
			return nil
		}
		f.typ = t
		if t == TypeDynamic {
			f.refresher.Schedule(f.editor.Rules())
		}
		return nil
	})
}

// SetContactIDs replaces the members of a static segment
func (f *Form) SetContactIDs(ids []string) error {
	return f.edit(func() error {
		f.contactIDs = append([]string(nil), ids...)
		return nil
	})
}

// AddRule appends a default rule
func (f *Form) AddRule() error {
	return f.edit(func() error {
		f.editor.Add()
		return nil
	})
}

// RemoveRule removes the rule at index
func (f *Form) RemoveRule(index int) error {
	return f.edit(func() error {
		return f.editor.Remove(index)
	})
}

// UpdateRule changes one attribute of the rule at index, see Editor.Update
func (f *Form) UpdateRule(index int, attr Attribute, value any) error {
	return f.edit(func() error {
		return f.editor.Update(index, attr, value)
	})
}

// Rules returns a copy of the current rules, nil when closed
func (f *Form) Rules() []Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editor == nil {
		return nil
	}
	return f.editor.Rules()
}

// Count returns the audience size shown next to the form: the last accepted
// remote count for dynamic segments, the member count for static ones.
func (f *Form) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.state == StateClosed:
		return 0
	case f.typ == TypeStatic:
		return len(f.contactIDs)
	default:
		return f.refresher.Count()
	}
}

// Segment returns a snapshot of the segment being edited
func (f *Form) Segment() *Segment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Submit validates locally and then creates or updates the segment.
// Validation failures keep the form in Editing and make no call.
// Store failures return the form to Editing with the error kept in Err.
func (f *Form) Submit(ctx context.Context) (*Segment, error) {
	f.mu.Lock()
	switch f.state {
	case StateClosed:
		f.mu.Unlock()
		return nil, ErrFormClosed
	case StateSubmitting:
		f.mu.Unlock()
		return nil, ErrFormLocked
	}

	seg := f.snapshot()
	if err := seg.Validate(); err != nil {
		f.lastErr = err
		f.mu.Unlock()
		metrics.IncSegmentSubmission("invalid")
		return nil, err
	}

	f.state = StateSubmitting
	id := f.id
	f.mu.Unlock()

	var (
		saved  *Segment
		err    error
		result = "created"
	)
	if id == "" {
		saved, err = f.store.CreateSegment(ctx, seg.Payload())
	} else {
		result = "updated"
		saved, err = f.store.UpdateSegment(ctx, id, seg.Payload())
	}

	f.mu.Lock()
	if f.state != StateSubmitting {
		// Closed while the call was in flight
		f.mu.Unlock()
		return saved, err
	}
	if err != nil {
		f.state = StateEditing
		f.lastErr = err
		f.mu.Unlock()
		metrics.IncSegmentSubmission("error")
		f.logger.Warn("segment submission failed", "segment_id", id, "name", seg.Name, "error", err)
		return nil, err
	}
	stale := f.reset()
	f.mu.Unlock()

	stale.Close()
	metrics.IncSegmentSubmission(result)
	f.logger.Info("segment saved", "segment_id", savedID(saved, id), "name", seg.Name, "result", result)
	return saved, nil
}

// Close discards the session and returns to Closed
func (f *Form) Close() {
	f.mu.Lock()
	stale := f.reset()
	f.mu.Unlock()

	stale.Close()
}

// edit runs fn if the form accepts edits
func (f *Form) edit(fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateClosed:
		return ErrFormClosed
	case StateSubmitting:
		return ErrFormLocked
	}
	return fn()
}

func (f *Form) snapshot() *Segment {
	seg := &Segment{
		ID:          f.id,
		Name:        f.name,
		Description: f.description,
		Type:        f.typ,
	}
	if f.editor != nil && f.typ == TypeDynamic {
		seg.Rules = f.editor.Rules()
	}
	if f.typ == TypeStatic {
		seg.ContactIDs = append([]string(nil), f.contactIDs...)
	}
	return seg
}

// reset clears the session and hands back its refresher. The caller closes
// it after releasing f.mu, since Close waits for OnCount callbacks.
func (f *Form) reset() *Refresher {
	r := f.refresher
	f.state = StateClosed
	f.id = ""
	f.name = ""
	f.description = ""
	f.typ = ""
	f.editor = nil
	f.contactIDs = nil
	f.refresher = nil
	return r
}

func savedID(saved *Segment, fallback string) string {
	if saved != nil && strings.TrimSpace(saved.ID) != "" {
		return saved.ID
	}
	return fallback
}
