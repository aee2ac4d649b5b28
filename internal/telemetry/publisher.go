package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"scentpanel/internal/config"
	"scentpanel/internal/hardware"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Publisher pushes room-controller phase transitions to an MQTT topic
// so rig technicians can watch the hardware without hitting the API.
type Publisher struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

// phaseEvent wire form of one transition.
type phaseEvent struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	Pressure     float64 `json:"pressure"`
	SelectedRoom int     `json:"selected_room"`
	At           int64   `json:"at"` // unix millis
}

func NewPublisher(cfg *config.MQTTConfig, logger *zap.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client: client,
		topic:  cfg.Topic,
		logger: logger,
	}, nil
}

// PhaseListener adapts the publisher to the controller's listener hook.
// Publishing happens on its own goroutine; the controller must never
// wait on the broker.
func (p *Publisher) PhaseListener() hardware.PhaseListener {
	return func(from, to hardware.Phase, state hardware.RoomState) {
		event := phaseEvent{
			From:         string(from),
			To:           string(to),
			Pressure:     state.Pressure,
			SelectedRoom: state.SelectedRoom,
			At:           time.Now().UnixMilli(),
		}
		go p.publish(event)
	}
}

func (p *Publisher) publish(event phaseEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal phase event", zap.Error(err))
		return
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		p.logger.Warn("Failed to publish phase event",
			zap.String("topic", p.topic),
			zap.Error(token.Error()),
		)
	}
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
