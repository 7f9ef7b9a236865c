package agent

import (
	"context"
	"encoding/json"

	"ai-chat/internal/logger"
	"ai-chat/internal/service/llm"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SomeInput is the input of the "some" tool.
type SomeInput struct {
	Query string `json:"query"`
}

// SomeOutput is the output of the "some" tool.
type SomeOutput struct {
	Result string `json:"result"`
}

// Some is a placeholder tool; it answers every query with the same result.
func Some(ctx context.Context, in SomeInput) (SomeOutput, error) {
	return SomeOutput{Result: "Some result"}, nil
}

type emitterKey struct{}

// emitter forwards tool activity of one run to its stream.
type emitter func(llm.StreamChunk) bool

func withEmitter(ctx context.Context, e emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, e)
}

func emitterFrom(ctx context.Context) emitter {
	if e, ok := ctx.Value(emitterKey{}).(emitter); ok {
		return e
	}
	return func(llm.StreamChunk) bool { return true }
}

// observed wraps a tool function so that each invocation is reported on the run's
// stream as a tool call followed by its result.
func observed[In, Out any](name string, verbose bool, fn func(context.Context, In) (Out, error)) func(*ai.ToolContext, In) (Out, error) {
	return func(tc *ai.ToolContext, in In) (Out, error) {
		emit := emitterFrom(tc)
		callID := "call_" + uuid.NewString()

		args, err := json.Marshal(in)
		if err != nil {
			var zero Out
			return zero, err
		}
		emit(llm.StreamChunk{ToolCall: &llm.ToolCall{ID: callID, Name: name, Arguments: string(args)}})

		if verbose {
			logger.Log.WithFields(logrus.Fields{
				"tool":         name,
				"tool_call_id": callID,
				"input":        string(args),
			}).Info("Agent tool call")
		}

		out, err := fn(tc, in)
		if err != nil {
			logger.Log.WithError(err).WithField("tool", name).Warn("Agent tool failed")
			return out, err
		}

		result, err := json.Marshal(out)
		if err != nil {
			return out, err
		}
		emit(llm.StreamChunk{ToolResult: &llm.ToolResult{ToolCallID: callID, Name: name, Output: result}})

		return out, nil
	}
}
