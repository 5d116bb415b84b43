package consumer

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/modtag/modtag/internal/handler"
)

type recordingHandler struct {
	events []handler.BuildEvent
	err    error
}

func (h *recordingHandler) Handle(_ context.Context, event handler.BuildEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func newTestConsumer(h EventHandler) *Consumer {
	return New(nil, "mbs.module.state.change", "modtag", h, zerolog.Nop())
}

func TestProcess_ReadyBuildIsHandled(t *testing.T) {
	h := &recordingHandler{}
	c := newTestConsumer(h)

	c.process(context.Background(), &nats.Msg{
		Subject: "mbs.module.state.change",
		Data: []byte(`{"id": "42", "name": "nodejs", "stream": "10",
			"version": "20190101", "context": "abcd1234", "state_name": "ready"}`),
	})

	assert.Len(t, h.events, 1)
	assert.Equal(t, "nodejs-10-20190101-abcd1234", h.events[0].NSVC())
}

func TestProcess_IgnoresNonReadyStates(t *testing.T) {
	h := &recordingHandler{}
	c := newTestConsumer(h)

	for _, state := range []string{"init", "wait", "build", "failed", "garbage"} {
		c.process(context.Background(), &nats.Msg{
			Subject: "mbs.module.state.change",
			Data:    []byte(`{"name": "nodejs", "state_name": "` + state + `"}`),
		})
	}

	assert.Empty(t, h.events)
}

func TestProcess_DiscardsMalformedPayload(t *testing.T) {
	h := &recordingHandler{}
	c := newTestConsumer(h)

	c.process(context.Background(), &nats.Msg{
		Subject: "mbs.module.state.change",
		Data:    []byte("not json"),
	})

	assert.Empty(t, h.events)
}

func TestProcess_HandlerErrorDoesNotPanic(t *testing.T) {
	h := &recordingHandler{err: assert.AnError}
	c := newTestConsumer(h)

	c.process(context.Background(), &nats.Msg{
		Subject: "mbs.module.state.change",
		Data:    []byte(`{"name": "nodejs", "state_name": "ready"}`),
	})

	assert.Len(t, h.events, 1)
}
