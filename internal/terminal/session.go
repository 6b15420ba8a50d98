package terminal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"storyai/internal/logging"

	"github.com/google/uuid"
)

// DefaultProcessingDelay is the pause inserted before a command's response
// is rendered.
const DefaultProcessingDelay = 100 * time.Millisecond

// Options configures a new Session.
type Options struct {
	Registry *Registry

	// Boot is replayed into scrollback by Start. An empty schedule makes the
	// session interactive as soon as it starts.
	Boot Schedule

	// ProcessingDelay is slept between echoing the input and running the
	// handler. Zero disables it.
	ProcessingDelay time.Duration

	// HistoryLimit caps stored commands; zero keeps them all.
	HistoryLimit int

	// Now overrides the clock used for line timestamps.
	Now func() time.Time
}

// Session is one terminal: scrollback, input buffer, history and the
// processing flag, owned exclusively by this value. Every method is safe to
// call from multiple goroutines; state changes are serialized on mu.
type Session struct {
	id       string
	registry *Registry
	boot     Schedule
	delay    time.Duration
	now      func() time.Time

	mu          sync.Mutex
	scrollback  Scrollback
	history     *History
	buffer      string
	processing  bool
	interactive bool
	started     bool
	closed      bool

	cancelBoot context.CancelFunc
	bootDone   chan struct{}

	subsMu sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewSession builds a session around a registry. The session does nothing
// until Start is called.
func NewSession(opts Options) (*Session, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("terminal: registry is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	delay := opts.ProcessingDelay
	if delay < 0 {
		delay = 0
	}
	return &Session{
		id:       uuid.NewString(),
		registry: opts.Registry,
		boot:     append(Schedule(nil), opts.Boot...),
		delay:    delay,
		now:      now,
		history:  NewHistory(opts.HistoryLimit),
		subs:     make(map[int]chan struct{}),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Registry returns the command set the session dispatches against.
func (s *Session) Registry() *Registry { return s.registry }

// =============================================================================
// LIFECYCLE
// =============================================================================

// Start begins the boot sequence. Calling it more than once has no effect.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true

	if len(s.boot) == 0 {
		s.interactive = true
		s.mu.Unlock()
		logging.Session("session %s started without boot sequence", s.id)
		s.notify()
		return
	}

	bootCtx, cancel := context.WithCancel(ctx)
	s.cancelBoot = cancel
	s.bootDone = make(chan struct{})
	seq := NewSequencer(s.boot)
	s.mu.Unlock()

	logging.Boot("session %s: replaying %d boot steps over %s", s.id, len(s.boot), s.boot.Duration())
	go func() {
		defer close(s.bootDone)
		if err := seq.Run(bootCtx, s.deliverBoot); err != nil {
			logging.BootDebug("session %s: boot sequence stopped: %v", s.id, err)
		}
	}()
}

func (s *Session) deliverBoot(step BootStep, last bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.scrollback.Append(Line{
		Content:   PromptPrefix + step.Message,
		Kind:      KindOutput,
		Timestamp: s.now(),
	})
	if last && !s.interactive {
		s.interactive = true
		logging.Boot("session %s: boot complete, terminal interactive", s.id)
	}
	s.mu.Unlock()
	s.notify()
}

// Close tears the session down. Pending boot deliveries are cancelled and
// awaited; results of in-flight commands are discarded when they finish.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel, done := s.cancelBoot, s.bootDone
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	s.subsMu.Lock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.subsMu.Unlock()
	logging.Session("session %s closed", s.id)
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Interactive reports whether the boot sequence has finished.
func (s *Session) Interactive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interactive
}

// Processing reports whether a command is in flight.
func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Lines returns a copy of the scrollback.
func (s *Session) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollback.Lines()
}

// Len returns the scrollback length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollback.Len()
}

// Since returns the lines from index n onward together with the current
// clear epoch. A reader whose epoch differs must restart from zero.
func (s *Session) Since(n int) ([]Line, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrollback.Since(n), s.scrollback.Epoch()
}

// CommandHistory returns the submitted commands, oldest first.
func (s *Session) CommandHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Entries()
}

// HistoryOffset returns the navigation cursor (-1 when nothing is selected).
func (s *Session) HistoryOffset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Offset()
}

// ClearScrollback empties the scrollback.
func (s *Session) ClearScrollback() {
	s.mu.Lock()
	s.scrollback.Clear()
	s.mu.Unlock()
	s.notify()
}

// Print appends lines outside of any command, e.g. a wallet event.
func (s *Session) Print(kind Kind, animated bool, lines ...string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.appendLocked(kind, animated, lines...)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) appendLocked(kind Kind, animated bool, lines ...string) {
	ts := s.now()
	for _, content := range lines {
		s.scrollback.Append(Line{Content: content, Kind: kind, Timestamp: ts, Animated: animated})
	}
}

// =============================================================================
// INPUT BUFFER AND HISTORY NAVIGATION
// =============================================================================

// Buffer returns the live input buffer.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// SetBuffer replaces the live input buffer (typed input).
func (s *Session) SetBuffer(v string) {
	s.mu.Lock()
	s.buffer = v
	s.mu.Unlock()
}

// HistoryUp recalls the previous command into the buffer and returns the
// buffer. At the oldest entry the buffer is left unchanged.
func (s *Session) HistoryUp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.history.Up(); ok {
		s.buffer = v
	}
	return s.buffer
}

// HistoryDown moves toward the present and returns the buffer. Leaving the
// newest entry clears the buffer; with nothing selected it is a no-op.
func (s *Session) HistoryDown() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.history.Down(); ok {
		s.buffer = v
	}
	return s.buffer
}

// Complete replaces the buffer with the first command name it prefixes and
// returns the buffer. Without a match the buffer is left alone.
func (s *Session) Complete() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.registry.Complete(s.buffer); ok {
		s.buffer = name
	}
	return s.buffer
}

// =============================================================================
// DISPATCH
// =============================================================================

// Invocation is an accepted submission that has been echoed and now holds
// the processing flag. Run must be called exactly once to release it.
type Invocation struct {
	session *Session
	raw     string
	text    string
	once    sync.Once
}

// Text returns the trimmed submission.
func (inv *Invocation) Text() string { return inv.text }

// Begin accepts a submission. Whitespace-only input is rejected with
// ErrEmptyInput and leaves every piece of state untouched. Otherwise the
// raw text is pushed onto history, echoed as an input line, the buffer is
// cleared and the processing flag is taken; while it is held further
// submissions fail with ErrBusy.
func (s *Session) Begin(raw string) (*Invocation, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	case !s.interactive:
		s.mu.Unlock()
		return nil, ErrBooting
	case s.processing:
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.processing = true
	s.history.Push(raw)
	s.buffer = ""
	s.appendLocked(KindInput, false, PromptPrefix+raw)
	s.mu.Unlock()
	s.notify()

	logging.CommandsDebug("session %s: accepted %q", s.id, text)
	return &Invocation{session: s, raw: raw, text: text}, nil
}

// Run resolves and executes the invocation, appends its response and
// releases the processing flag, whatever happens. The returned error is the
// failure that was rendered (nil on success); it is informational only.
func (inv *Invocation) Run(ctx context.Context) (err error) {
	ran := false
	inv.once.Do(func() {
		ran = true
		err = inv.session.execute(ctx, inv.text)
	})
	if !ran {
		return fmt.Errorf("terminal: invocation %q already ran", inv.text)
	}
	return err
}

// Submit is Begin followed by Run.
func (s *Session) Submit(ctx context.Context, raw string) error {
	inv, err := s.Begin(raw)
	if err != nil {
		return err
	}
	return inv.Run(ctx)
}

func (s *Session) execute(ctx context.Context, text string) (rendered error) {
	start := time.Now()
	defer func() {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
		s.notify()
		logging.CommandsDebug("session %s: %q finished in %s", s.id, text, time.Since(start))
	}()

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	match := s.registry.Resolve(text)
	if !match.Found() {
		err := &CommandError{
			Kind:    ErrUnknownCommand,
			Message: fmt.Sprintf("Command not found: %s. Type 'help' to see available commands.", match.Verb),
		}
		s.emit(KindError, false, err.Message)
		logging.Commands("session %s: unknown command %q", s.id, match.Verb)
		return err
	}

	resp, err := s.invoke(ctx, match)
	if err != nil {
		s.emit(KindError, false, renderError(err))
		logging.Commands("session %s: %s failed (%v): %v", s.id, match.Command.Name, Classify(err), err)
		return err
	}

	kind := resp.Kind
	if !kind.Valid() {
		kind = KindOutput
	}
	s.emit(kind, resp.Animated, resp.Lines...)
	return nil
}

func (s *Session) invoke(ctx context.Context, match Match) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
			logging.Get(logging.CategoryCommands).Error("session %s: %s panicked: %v", s.id, match.Command.Name, r)
		}
	}()
	return match.Command.Handler(ctx, s, match.Args)
}

// emit appends a command's output unless the session has gone away.
func (s *Session) emit(kind Kind, animated bool, lines ...string) {
	if len(lines) == 0 {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.appendLocked(kind, animated, lines...)
	s.mu.Unlock()
	s.notify()
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// Subscribe returns a channel that receives a signal whenever the session
// changes. Signals coalesce: a reader that falls behind sees one pending
// signal, not one per change, and should re-read state. The channel is
// closed by unsubscribe or Close.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ch := make(chan struct{}, 1)
	if s.Closed() {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

func (s *Session) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
