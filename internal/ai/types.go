package ai

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Provider identifies an LLM backend. The set is closed: adding a vendor
// means adding a constant here and a client for it in the pool.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// KnownProviders returns every provider the pool can be configured with.
func KnownProviders() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini}
}

// Request is a single completion request, provider-agnostic.
type Request struct {
	Model     string
	System    string
	Prompt    string
	JSONMode  bool // forced-JSON output where the provider supports it
	MaxTokens int  // 0 means provider default
}

// Client is one configured LLM backend. A single client handle serves both
// call flavors and is safe for concurrent use.
type Client interface {
	Provider() Provider

	// Complete waits for the full completion and returns it as one string.
	Complete(ctx context.Context, req *Request) (string, error)

	// Stream returns a lazy, single-pass, in-order fragment sequence. The
	// caller must drain it; no full-response buffering happens here.
	Stream(ctx context.Context, req *Request) (*Stream, error)
}

// Stream carries response fragments as they arrive. Terminal and
// non-restartable: once Recv returns io.EOF or an error, it stays done.
type Stream struct {
	items     chan streamItem
	done      chan struct{}
	closeOnce sync.Once
}

type streamItem struct {
	text string
	err  error
}

// NewStream creates an empty stream with its producer side exposed.
// Production code receives streams from clients; tests and wrapping
// layers build their own.
func NewStream() *Stream {
	return newStream()
}

func newStream() *Stream {
	return &Stream{
		items: make(chan streamItem, 16),
		done:  make(chan struct{}),
	}
}

// Send pushes a fragment. Returns false when the consumer has closed the
// stream; the producer should stop.
func (s *Stream) Send(text string) bool {
	select {
	case s.items <- streamItem{text: text}:
		return true
	case <-s.done:
		return false
	}
}

func (s *Stream) send(text string) bool {
	return s.Send(text)
}

// Finish terminates the stream. A nil err means clean end of output.
func (s *Stream) Finish(err error) {
	if err != nil {
		select {
		case s.items <- streamItem{err: err}:
		case <-s.done:
		}
	}
	close(s.items)
}

func (s *Stream) finish(err error) {
	s.Finish(err)
}

// Close abandons the stream from the consumer side. Producers observe it
// through Send and stop; fragment production simply ceases.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Recv returns the next fragment, io.EOF on clean end, or the transport
// error that interrupted the stream.
func (s *Stream) Recv() (string, error) {
	item, ok := <-s.items
	if !ok {
		return "", io.EOF
	}
	if item.err != nil {
		return "", item.err
	}
	return item.text, nil
}

// Collect drains the stream and concatenates all fragments.
func (s *Stream) Collect() (string, error) {
	var out []byte
	for {
		frag, err := s.Recv()
		if err == io.EOF {
			return string(out), nil
		}
		if err != nil {
			return string(out), err
		}
		out = append(out, frag...)
	}
}

// UnknownProviderError is returned when a model name matches no known
// vendor prefix. Never defaulted away: silently misrouting a request
// would bill the wrong account.
type UnknownProviderError struct {
	Model string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown model provider for model: %s", e.Model)
}
