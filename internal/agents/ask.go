package agents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ideaforge/internal/ai"
	"ideaforge/internal/logging"

	"go.uber.org/zap"
)

// Hard ceilings on a single ask. Output is bounded by what the providers
// will emit in one completion; input by the smallest shared context
// window, approximated by whitespace token count.
const (
	MaxOutputTokens = 16384
	MaxInputTokens  = 128000
)

// AskRequest is the shared primitive's input: one system prompt, one user
// prompt, resolved against a provider by model name.
type AskRequest struct {
	System    string
	Prompt    string
	Model     string
	Streaming bool
	JSONMode  bool
	MaxTokens int
}

// Asker dispatches stage prompts to the provider pool. It is the one
// shared piece every stage composes with instead of inheriting from.
type Asker struct {
	pool *ai.ClientPool
}

// NewAsker creates an Asker over a configured client pool.
func NewAsker(pool *ai.ClientPool) *Asker {
	return &Asker{pool: pool}
}

// Ask validates the request, routes it to the right provider, and
// dispatches in the requested flavor. Provider failures come back as a
// single *ProviderCallError shape; an unknown model prefix surfaces as
// *ai.UnknownProviderError.
func (a *Asker) Ask(ctx context.Context, req *AskRequest) (*Reply, error) {
	model := req.Model
	if model == "" {
		model = ai.DefaultModel
	}

	if req.MaxTokens > MaxOutputTokens {
		return nil, &ValidationError{
			Message: fmt.Sprintf("max_tokens %d exceeds the output ceiling of %d", req.MaxTokens, MaxOutputTokens),
		}
	}
	if n := approxTokens(req.System) + approxTokens(req.Prompt); n > MaxInputTokens {
		return nil, &ValidationError{
			Message: fmt.Sprintf("prompt size of ~%d tokens exceeds the input ceiling of %d", n, MaxInputTokens),
		}
	}

	provider, err := ai.GetModelProvider(model)
	if err != nil {
		var unknown *ai.UnknownProviderError
		if errors.As(err, &unknown) {
			return nil, unknown
		}
		return nil, err
	}

	client, err := a.pool.Get(provider)
	if err != nil {
		return nil, a.wrap(err)
	}

	call := &ai.Request{
		Model:     model,
		System:    req.System,
		Prompt:    req.Prompt,
		JSONMode:  req.JSONMode,
		MaxTokens: req.MaxTokens,
	}

	logging.L().Info("dispatching ask",
		zap.String("provider", string(provider)),
		zap.String("model", model),
		zap.Bool("streaming", req.Streaming),
		zap.Bool("json_mode", req.JSONMode),
	)

	if req.Streaming {
		stream, err := client.Stream(ctx, call)
		if err != nil {
			return nil, a.wrap(err)
		}
		return &Reply{Stream: stream}, nil
	}

	text, err := client.Complete(ctx, call)
	if err != nil {
		return nil, a.wrap(err)
	}
	return &Reply{Text: text}, nil
}

func (a *Asker) wrap(err error) *ProviderCallError {
	wrapped := wrapProviderError(err)
	logging.L().Error("agent response error",
		zap.String("kind", wrapped.Kind),
		zap.String("message", wrapped.Message),
	)
	return wrapped
}

func approxTokens(s string) int {
	return len(strings.Fields(s))
}

// collectReply wraps a streaming reply so that the full text is
// accumulated and handed to onComplete once the provider stream ends.
// The inner stream is always drained to its end, so the hook runs even
// when the outer consumer closes early.
func collectReply(reply *Reply, onComplete func(string)) *Reply {
	if !reply.Streaming() || onComplete == nil {
		return reply
	}

	inner := reply.Stream
	outer := ai.NewStream()
	go func() {
		var full strings.Builder
		forwarding := true
		var streamErr error
		for {
			frag, err := inner.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					streamErr = err
				}
				break
			}
			full.WriteString(frag)
			if forwarding && !outer.Send(frag) {
				forwarding = false
			}
		}
		onComplete(full.String())
		outer.Finish(streamErr)
	}()
	return &Reply{Stream: outer}
}
