package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/ai"
)

// fakeClient plays back a canned response for one provider, in both
// call flavors.
type fakeClient struct {
	provider ai.Provider
	text     string
	err      error
}

func (f *fakeClient) Provider() ai.Provider { return f.provider }

func (f *fakeClient) Complete(ctx context.Context, req *ai.Request) (string, error) {
	return f.text, f.err
}

func (f *fakeClient) Stream(ctx context.Context, req *ai.Request) (*ai.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := ai.NewStream()
	go func() {
		text := f.text
		for len(text) > 0 {
			n := 3
			if n > len(text) {
				n = len(text)
			}
			if !s.Send(text[:n]) {
				return
			}
			text = text[n:]
		}
		s.Finish(nil)
	}()
	return s, nil
}

func newTestAsker(clients ...ai.Client) *Asker {
	return NewAsker(ai.NewClientPoolFromClients(clients...))
}

func TestAskBlockingAndStreamingAgree(t *testing.T) {
	t.Parallel()

	const want = "a generated reply spanning several fragments"
	asker := newTestAsker(&fakeClient{provider: ai.ProviderOpenAI, text: want})

	blocking, err := asker.Ask(context.Background(), &AskRequest{Prompt: "hi", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	require.False(t, blocking.Streaming())
	assert.Equal(t, want, blocking.Text)

	streaming, err := asker.Ask(context.Background(), &AskRequest{Prompt: "hi", Model: "gpt-4o-mini", Streaming: true})
	require.NoError(t, err)
	require.True(t, streaming.Streaming())

	full, err := streaming.Stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, blocking.Text, full)
}

func TestAskDefaultsModel(t *testing.T) {
	t.Parallel()

	asker := newTestAsker(&fakeClient{provider: ai.ProviderOpenAI, text: "ok"})

	reply, err := asker.Ask(context.Background(), &AskRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Text)
}

func TestAskValidatesCeilings(t *testing.T) {
	t.Parallel()

	asker := newTestAsker(&fakeClient{provider: ai.ProviderOpenAI, text: "ok"})

	var validation *ValidationError

	_, err := asker.Ask(context.Background(), &AskRequest{
		Prompt:    "hi",
		MaxTokens: MaxOutputTokens + 1,
	})
	require.ErrorAs(t, err, &validation)

	_, err = asker.Ask(context.Background(), &AskRequest{
		Prompt: strings.Repeat("word ", MaxInputTokens+1),
	})
	require.ErrorAs(t, err, &validation)
}

func TestAskUnknownModelSurfaces(t *testing.T) {
	t.Parallel()

	asker := newTestAsker(&fakeClient{provider: ai.ProviderOpenAI, text: "ok"})

	_, err := asker.Ask(context.Background(), &AskRequest{Prompt: "hi", Model: "mistral-large"})

	var unknown *ai.UnknownProviderError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "mistral-large", unknown.Model)
}

func TestAskWrapsProviderErrors(t *testing.T) {
	t.Parallel()

	asker := newTestAsker(&fakeClient{provider: ai.ProviderOpenAI, err: errors.New("rate limited")})

	_, err := asker.Ask(context.Background(), &AskRequest{Prompt: "hi", Model: "gpt-4o-mini"})

	var call *ProviderCallError
	require.ErrorAs(t, err, &call)
	assert.Contains(t, call.Error(), "an error occurred while processing your request")
	assert.Contains(t, call.Message, "rate limited")
}

func TestCollectReplyRunsHookAfterConsumerCloses(t *testing.T) {
	t.Parallel()

	const want = "full text the consumer never finished reading"

	inner := ai.NewStream()
	go func() {
		for _, frag := range strings.SplitAfter(want, " ") {
			if !inner.Send(frag) {
				return
			}
		}
		inner.Finish(nil)
	}()

	collected := make(chan string, 1)
	reply := collectReply(&Reply{Stream: inner}, func(full string) {
		collected <- full
	})

	// Read one fragment, then abandon the stream.
	_, err := reply.Stream.Recv()
	require.NoError(t, err)
	reply.Stream.Close()

	select {
	case full := <-collected:
		assert.Equal(t, want, full)
	case <-time.After(5 * time.Second):
		t.Fatal("completion hook never ran")
	}
}

func TestCollectReplyForwardsFullStream(t *testing.T) {
	t.Parallel()

	inner := ai.NewStream()
	go func() {
		inner.Send("one ")
		inner.Send("two")
		inner.Finish(nil)
	}()

	collected := make(chan string, 1)
	reply := collectReply(&Reply{Stream: inner}, func(full string) {
		collected <- full
	})

	full, err := reply.Stream.Collect()
	require.NoError(t, err)
	assert.Equal(t, "one two", full)
	assert.Equal(t, "one two", <-collected)
}
