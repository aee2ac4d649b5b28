package hardware

import (
	"context"

	"scentpanel/internal/metrics"
)

// InstrumentedController counts every gateway call on the prometheus
// collectors while delegating to the wrapped controller.
type InstrumentedController struct {
	inner Controller
	m     *metrics.Metrics
}

func NewInstrumentedController(inner Controller, m *metrics.Metrics) *InstrumentedController {
	return &InstrumentedController{inner: inner, m: m}
}

func (c *InstrumentedController) Status(ctx context.Context) (RoomState, error) {
	st, err := c.inner.Status(ctx)
	c.m.RecordControllerOp("status", err)
	return st, err
}

func (c *InstrumentedController) LastError(ctx context.Context) (string, error) {
	msg, err := c.inner.LastError(ctx)
	c.m.RecordControllerOp("error", err)
	return msg, err
}

func (c *InstrumentedController) Pressurize(ctx context.Context) (Phase, error) {
	phase, err := c.inner.Pressurize(ctx)
	c.m.RecordControllerOp("pressurize", err)
	return phase, err
}

func (c *InstrumentedController) SelectRoom(ctx context.Context, room int) (int, error) {
	selected, err := c.inner.SelectRoom(ctx, room)
	c.m.RecordControllerOp("select", err)
	return selected, err
}

func (c *InstrumentedController) ClearSelection(ctx context.Context) error {
	err := c.inner.ClearSelection(ctx)
	c.m.RecordControllerOp("select-clear", err)
	return err
}

func (c *InstrumentedController) OpenRoom(ctx context.Context) (Phase, error) {
	phase, err := c.inner.OpenRoom(ctx)
	c.m.RecordControllerOp("open", err)
	return phase, err
}

func (c *InstrumentedController) Standby(ctx context.Context) (Phase, error) {
	phase, err := c.inner.Standby(ctx)
	c.m.RecordControllerOp("standby", err)
	return phase, err
}
