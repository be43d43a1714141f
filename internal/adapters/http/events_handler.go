package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/tasksync/internal/infrastructure/events"
	"github.com/taskmaster/tasksync/internal/infrastructure/logger"
)

const (
	streamBuffer    = 64
	streamKeepalive = 15 * time.Second
)

// StateSource returns the current payload of every topic
type StateSource interface {
	Current(ctx context.Context) []events.Envelope
}

// EventsHandler streams bus events to HTTP clients as server-sent events
type EventsHandler struct {
	bus    *events.Bus
	state  StateSource
	logger *logger.Logger
}

// NewEventsHandler creates a new events handler. state may be nil.
func NewEventsHandler(bus *events.Bus, state StateSource, appLogger *logger.Logger) *EventsHandler {
	return &EventsHandler{
		bus:    bus,
		state:  state,
		logger: appLogger.WithComponent("events-handler"),
	}
}

// Stream opens with the current state of every topic, written to this
// client only, then forwards every topic until the client goes away. A
// client that falls behind loses events rather than blocking publishers.
func (h *EventsHandler) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	res := c.Response()

	// the server write timeout would cut the stream
	_ = http.NewResponseController(res.Writer).SetWriteDeadline(time.Time{})

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	queue := make(chan events.Envelope, streamBuffer)
	subs := h.bus.SubscribeAll(func(env events.Envelope) {
		select {
		case queue <- env:
		default:
			h.logger.Warnw("Event stream client too slow, dropping event", "topic", env.Topic)
		}
	})
	defer h.bus.UnsubscribeAll(subs)

	// subscribed first so no change between the snapshot and the loop is missed
	if h.state != nil {
		for _, env := range h.state.Current(ctx) {
			if err := h.write(res, env); err != nil {
				return nil
			}
		}
	}

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-queue:
			if err := h.write(res, env); err != nil {
				return nil
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(res, ": keepalive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

// write sends one event frame. An unencodable payload is logged and skipped.
func (h *EventsHandler) write(res *echo.Response, env events.Envelope) error {
	data, err := json.Marshal(env.Payload)
	if err != nil {
		h.logger.Errorw("Failed to encode event", "topic", env.Topic, "error", err)
		return nil
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", env.Topic, data); err != nil {
		return err
	}
	res.Flush()
	return nil
}
