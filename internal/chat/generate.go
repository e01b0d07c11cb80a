package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"

	arenacb "github.com/dohr-michael/arena/internal/callbacks"
	"github.com/dohr-michael/arena/internal/events"
	"github.com/dohr-michael/arena/internal/models"
)

// Usage is the token accounting reported by a provider, when it reports any.
type Usage struct {
	Input  int
	Output int
}

// Reply is a successful model answer.
type Reply struct {
	Content  string
	Usage    Usage
	Duration time.Duration
}

// Generate sends in to client and returns the answer text. Request and
// response phases are published on bus (nil disables publishing), tagged
// with the session carried by ctx. Clients that run their own callbacks
// report through them; others are wrapped here.
func Generate(ctx context.Context, client model.BaseChatModel, in Input, bus *events.Bus) (Reply, error) {
	msgs := in.Messages()

	managed := components.IsCallbacksEnabled(client)
	if bus != nil {
		ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
			Name:      in.Model.ID,
			Type:      in.Model.Provider,
			Component: components.ComponentOfChatModel,
		}, arenacb.NewEventBusHandler(bus, events.SourceChat))
	}
	if !managed {
		ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: msgs})
	}

	start := time.Now()
	resp, err := client.Generate(ctx, msgs)
	elapsed := time.Since(start)
	if err == nil && resp == nil {
		err = fmt.Errorf("empty response from %s", in.Model.ID)
	}
	if err != nil {
		err = models.HandleError(err)
		if !managed {
			callbacks.OnError(ctx, err)
		}
		return Reply{}, err
	}

	reply := Reply{Content: resp.Content, Duration: elapsed}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		reply.Usage = Usage{
			Input:  resp.ResponseMeta.Usage.PromptTokens,
			Output: resp.ResponseMeta.Usage.CompletionTokens,
		}
	}
	if !managed {
		callbacks.OnEnd(ctx, &model.CallbackOutput{Message: resp})
	}
	return reply, nil
}
