package hardware

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RemoteController talks to the physical rig over its HTTP protocol
// with basic credentials. Precondition violations are reported by the
// device as HTTP 409 with a reason; those come back to callers as
// *PreconditionError, everything else as a transport failure.
type RemoteController struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// statusResponse wire form of GET /status.
type statusResponse struct {
	Connected    bool    `json:"connected"`
	Phase        string  `json:"phase"`
	Pressure     float64 `json:"pressure"`
	SelectedRoom int     `json:"selected_room"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type phaseResponse struct {
	Phase string `json:"phase"`
}

type selectResponse struct {
	SelectedRoom int `json:"selected_room"`
}

type failureResponse struct {
	Reason string `json:"reason"`
}

func NewRemoteController(baseURL, username, password string, logger *zap.Logger) *RemoteController {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if username != "" {
		client.SetBasicAuth(username, password)
	}

	return &RemoteController{
		httpClient: client,
		logger:     logger,
	}
}

// post runs a command request and folds the device's failure modes into
// our error taxonomy.
func (c *RemoteController) post(ctx context.Context, op, path string, result any) error {
	var failure failureResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&failure).
		Post(path)
	if err != nil {
		c.logger.Error("Room controller request failed",
			zap.String("op", op),
			zap.Error(err),
		)
		return fmt.Errorf("room controller %s: %w", op, err)
	}
	if resp.IsError() {
		reason := failure.Reason
		if reason == "" {
			reason = fmt.Sprintf("device returned status %d", resp.StatusCode())
		}
		return &PreconditionError{Op: op, Reason: reason}
	}
	return nil
}

func (c *RemoteController) Status(ctx context.Context) (RoomState, error) {
	var status statusResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/status")
	if err != nil {
		return RoomState{}, fmt.Errorf("room controller status: %w", err)
	}
	if resp.IsError() {
		return RoomState{}, fmt.Errorf("room controller status: device returned %d", resp.StatusCode())
	}
	return RoomState{
		Connected:    status.Connected,
		Phase:        Phase(status.Phase),
		Pressure:     status.Pressure,
		SelectedRoom: status.SelectedRoom,
	}, nil
}

func (c *RemoteController) LastError(ctx context.Context) (string, error) {
	var errResp errorResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&errResp).
		Get("/error")
	if err != nil {
		return "", fmt.Errorf("room controller error query: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("room controller error query: device returned %d", resp.StatusCode())
	}
	return errResp.Error, nil
}

func (c *RemoteController) Pressurize(ctx context.Context) (Phase, error) {
	var pr phaseResponse
	if err := c.post(ctx, "pressurize", "/pressurize", &pr); err != nil {
		return PhaseError, err
	}
	return Phase(pr.Phase), nil
}

func (c *RemoteController) SelectRoom(ctx context.Context, room int) (int, error) {
	var sr selectResponse
	if err := c.post(ctx, "select", fmt.Sprintf("/select/%d", room), &sr); err != nil {
		return NoRoomSelected, err
	}
	return sr.SelectedRoom, nil
}

func (c *RemoteController) ClearSelection(ctx context.Context) error {
	var sr selectResponse
	return c.post(ctx, "select-clear", "/select/clear", &sr)
}

func (c *RemoteController) OpenRoom(ctx context.Context) (Phase, error) {
	var pr phaseResponse
	if err := c.post(ctx, "open", "/open", &pr); err != nil {
		return PhaseError, err
	}
	return Phase(pr.Phase), nil
}

func (c *RemoteController) Standby(ctx context.Context) (Phase, error) {
	var pr phaseResponse
	if err := c.post(ctx, "standby", "/standby", &pr); err != nil {
		return PhaseError, err
	}
	return Phase(pr.Phase), nil
}
