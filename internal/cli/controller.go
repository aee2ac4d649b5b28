package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"scentpanel/internal/hardware"
)

// apiResult mirrors the service's response envelope.
type apiResult[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func client(cmd *cobra.Command) *resty.Client {
	server, _ := cmd.Flags().GetString("server")
	return resty.New().
		SetBaseURL(server).
		SetTimeout(10 * time.Second)
}

func getJSON[T any](c *resty.Client, path string) (T, error) {
	var envelope apiResult[T]
	resp, err := c.R().SetResult(&envelope).Get(path)
	if err != nil {
		return envelope.Result, err
	}
	if resp.IsError() || envelope.Code != 2000 {
		return envelope.Result, fmt.Errorf("server: %s", envelope.Message)
	}
	return envelope.Result, nil
}

func phaseColor(phase hardware.Phase) *color.Color {
	switch phase {
	case hardware.PhaseReady:
		return color.New(color.FgGreen)
	case hardware.PhasePressurizing, hardware.PhaseValveOpened:
		return color.New(color.FgYellow)
	case hardware.PhaseError:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

func printState(state hardware.RoomState) {
	phaseColor(state.Phase).Printf("phase: %s\n", state.Phase)
	fmt.Printf("connected: %v\n", state.Connected)
	fmt.Printf("pressure: %.1f kPa\n", state.Pressure)
	if state.SelectedRoom == hardware.NoRoomSelected {
		fmt.Println("selected room: none")
	} else {
		fmt.Printf("selected room: %d\n", state.SelectedRoom)
	}
}

func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the room controller state",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := getJSON[hardware.RoomState](client(cmd), "/api/v1/controller/status")
			if err != nil {
				return fmt.Errorf("failed to fetch status: %w", err)
			}
			printState(state)
			return nil
		},
	}
}

func ErrorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "error",
		Short: "Show the last recorded rig error",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := getJSON[map[string]string](client(cmd), "/api/v1/controller/error")
			if err != nil {
				return fmt.Errorf("failed to fetch last error: %w", err)
			}
			msg := result["error"]
			if msg == hardware.NoErrorSentinel {
				color.Green("%s", msg)
			} else {
				color.Red("%s", msg)
			}
			return nil
		},
	}
}

func postPhase(cmd *cobra.Command, path string) error {
	var envelope apiResult[map[string]string]
	resp, err := client(cmd).R().SetResult(&envelope).SetError(&envelope).Post(path)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	if resp.IsError() || envelope.Code != 2000 {
		return fmt.Errorf("server: %s", envelope.Message)
	}
	color.Green("rig is in %s", envelope.Result["phase"])
	return nil
}

func StandbyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "standby",
		Short: "Force the rig back to standby",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postPhase(cmd, "/api/v1/controller/standby")
		},
	}
}

func PressurizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pressurize",
		Short: "Start pressurizing the rig",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postPhase(cmd, "/api/v1/controller/pressurize")
		},
	}
}

func SelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <room|clear>",
		Short: "Select a room on the pressurized rig, or clear the selection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var envelope apiResult[map[string]int]
			resp, err := client(cmd).R().
				SetResult(&envelope).
				SetError(&envelope).
				Post("/api/v1/controller/select/" + args[0])
			if err != nil {
				return fmt.Errorf("failed to reach server: %w", err)
			}
			if resp.IsError() || envelope.Code != 2000 {
				return fmt.Errorf("server: %s", envelope.Message)
			}
			if room := envelope.Result["selected_room"]; room == hardware.NoRoomSelected {
				color.Green("selection cleared")
			} else {
				color.Green("room %d selected", room)
			}
			return nil
		},
	}
}

func OpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open the valve for the selected room",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postPhase(cmd, "/api/v1/controller/open")
		},
	}
}

func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the controller state until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			interval, _ := cmd.Flags().GetDuration("interval")
			c := client(cmd)
			for {
				state, err := getJSON[hardware.RoomState](c, "/api/v1/controller/status")
				if err != nil {
					color.Red("poll failed: %v", err)
				} else {
					line, _ := json.Marshal(state)
					phaseColor(state.Phase).Println(string(line))
				}
				time.Sleep(interval)
			}
		},
	}
	cmd.Flags().Duration("interval", 2*time.Second, "poll interval")
	return cmd
}
