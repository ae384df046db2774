package oauth

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/custodia-labs/capshare/internal/core/domain"
	"github.com/custodia-labs/capshare/internal/core/ports/driven"
	"github.com/custodia-labs/capshare/internal/logger"
)

// Ensure PasteListener implements the listener port.
var _ driven.CallbackListener = (*PasteListener)(nil)

// ErrNoInput is returned when the input closes before a line was pasted.
var ErrNoInput = errors.New("no redirect URL pasted")

// PasteListener is the copy/paste fallback for machines where the browser
// cannot reach the loopback listener. The user pastes the URL the browser
// was redirected to, or the bare code, and it goes through the same
// validation as a real callback.
type PasteListener struct {
	port           int
	expectedState  string
	requiredScopes []string
	src            *lineSource
	out            io.Writer

	res *resolution
}

// NewPasteListener creates a paste listener reading one line from in.
// Prompts go to out.
func NewPasteListener(port int, expectedState string, requiredScopes []string, in io.Reader, out io.Writer) *PasteListener {
	return newPasteListener(port, expectedState, requiredScopes, newLineSource(in), out)
}

func newPasteListener(port int, expectedState string, requiredScopes []string, src *lineSource, out io.Writer) *PasteListener {
	return &PasteListener{
		port:           port,
		expectedState:  expectedState,
		requiredScopes: requiredScopes,
		src:            src,
		out:            out,
		res:            newResolution(),
	}
}

// NewPasteListenerFactory returns a factory creating PasteListeners that
// share one reader of in, so a stopped attempt never swallows the line
// meant for the next one.
func NewPasteListenerFactory(in io.Reader, out io.Writer) driven.CallbackListenerFactory {
	src := newLineSource(in)
	return func(port int, expectedState string, requiredScopes []string) driven.CallbackListener {
		return newPasteListener(port, expectedState, requiredScopes, src, out)
	}
}

// Start prompts and waits for the next pasted line.
func (p *PasteListener) Start() error {
	if _, err := fmt.Fprintln(p.out, "After approving, paste the full address your browser was sent to (or just the code):"); err != nil {
		return fmt.Errorf("write prompt: %w", err)
	}
	p.src.attach(p)
	return nil
}

func (p *PasteListener) deliver(line string) {
	p.res.resolve(p.parse(line))
}

func (p *PasteListener) fail(err error) {
	if err == nil {
		err = ErrNoInput
	}
	p.res.resolve(domain.CallbackResult{Err: err})
}

// parse accepts a redirect URL, a bare query string, or a bare code.
func (p *PasteListener) parse(line string) domain.CallbackResult {
	switch {
	case strings.Contains(line, "://"):
		u, err := url.Parse(line)
		if err != nil {
			return domain.CallbackResult{Err: fmt.Errorf("%w: %w", ErrMalformedQuery, err)}
		}
		return ValidateCallback(u.RawQuery, p.expectedState, p.requiredScopes)
	case strings.Contains(line, "="):
		return ValidateCallback(strings.TrimPrefix(line, "?"), p.expectedState, p.requiredScopes)
	default:
		// A bare code carries no state to compare.
		return domain.CallbackResult{Code: line}
	}
}

// Stop detaches the listener from the input. Lines read afterwards go to
// the next attempt.
func (p *PasteListener) Stop(_ context.Context) error {
	p.src.detach(p)
	return nil
}

// RedirectURI returns the loopback URI the browser is sent to.
func (p *PasteListener) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d", p.port)
}

// Done is closed once a line has been read.
func (p *PasteListener) Done() <-chan struct{} {
	return p.res.done
}

// Result returns the parsed paste, if any.
func (p *PasteListener) Result() (domain.CallbackResult, bool) {
	return p.res.get()
}

// lineSource scans one input on a single goroutine and hands each
// non-empty line to the listener waiting at that moment. Lines arriving
// while nobody waits are dropped.
type lineSource struct {
	in   io.Reader
	once sync.Once

	mu      sync.Mutex
	waiting *PasteListener
	closed  bool
	err     error
}

func newLineSource(in io.Reader) *lineSource {
	return &lineSource{in: in}
}

func (s *lineSource) attach(p *PasteListener) {
	s.mu.Lock()
	if s.closed {
		err := s.err
		s.mu.Unlock()
		p.fail(err)
		return
	}
	s.waiting = p
	s.mu.Unlock()

	s.once.Do(func() { go s.scan() })
}

func (s *lineSource) detach(p *PasteListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiting == p {
		s.waiting = nil
	}
}

func (s *lineSource) scan() {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.mu.Lock()
		p := s.waiting
		s.waiting = nil
		s.mu.Unlock()

		if p == nil {
			logger.Debug("paste: no authorization waiting, input ignored")
			continue
		}
		p.deliver(line)
	}

	s.mu.Lock()
	s.closed = true
	s.err = scanner.Err()
	p := s.waiting
	s.waiting = nil
	s.mu.Unlock()

	if p != nil {
		p.fail(s.err)
	}
}
