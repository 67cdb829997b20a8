package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatpumpcop/internal/ports"
	"github.com/Agrid-Dev/heatpumpcop/internal/session"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.SessionService
	cfg Config
	log *zap.Logger

	client mqtt.Client
}

func New(svc ports.SessionService, cfg Config, log *zap.Logger) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "heatpumpcop/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "heatpumpcop-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
		log: log.With(zap.String("controller", "mqtt"), zap.String("device_id", cfg.DeviceID)),
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Error("subscribe failed", zap.String("topic", topic), zap.Error(err))
			return
		}
		c.log.Info("subscribed", zap.String("topic", topic))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		c.log.Warn("connection lost", zap.Error(err))
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.log.Info("connected", zap.String("broker", c.cfg.BrokerURL))

	// Publish loop: publish snapshot on interval, and only when inputs changed.
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last := c.svc.Get()
	c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := c.svc.Get()
			if !reflect.DeepEqual(cur, last) {
				c.publishSnapshot()
				last = cur
			}
		}
	}
}

func (c *Controller) publishSnapshot() {
	dto := toSnapshotDTO(c.svc.Get())
	if ev, err := c.svc.Evaluate(); err != nil {
		dto.EvaluationError = err.Error()
	} else {
		dto.CarnotCOP = &ev.CarnotCOP
		dto.COP = &ev.COP
		dto.Rating = ev.Rating.String()
		dto.ElectricalEnergy = &ev.Consumption.Electrical
		dto.BoilerEnergy = &ev.Consumption.Boiler
	}
	b, err := json.Marshal(dto)
	if err != nil {
		c.log.Error("marshal snapshot", zap.Error(err))
		return
	}
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

type snapshotDTO struct {
	OutdoorTemperature float64 `json:"outdoor_temperature"`
	IndoorTemperature  float64 `json:"indoor_temperature"`
	FlowTemperature    float64 `json:"flow_temperature"`
	HeatDemand         float64 `json:"heat_demand"`
	DeratingFactor     float64 `json:"derating_factor"`
	BoilerEfficiency   float64 `json:"boiler_efficiency"`

	CarnotCOP        *float64 `json:"carnot_cop,omitempty"`
	COP              *float64 `json:"cop,omitempty"`
	Rating           string   `json:"rating,omitempty"`
	ElectricalEnergy *float64 `json:"electrical_energy,omitempty"`
	BoilerEnergy     *float64 `json:"boiler_energy,omitempty"`
	EvaluationError  string   `json:"evaluation_error,omitempty"`
}

func toSnapshotDTO(in session.Inputs) snapshotDTO {
	return snapshotDTO{
		OutdoorTemperature: in.OutdoorTemperature,
		IndoorTemperature:  in.IndoorTemperature,
		FlowTemperature:    in.FlowTemperature,
		HeatDemand:         in.HeatDemand,
		DeratingFactor:     in.DeratingFactor,
		BoilerEfficiency:   in.BoilerEfficiency,
	}
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) setter(field string) func(float64) error {
	switch field {
	case "outdoor_temperature":
		return c.svc.SetOutdoorTemperature
	case "indoor_temperature":
		return c.svc.SetIndoorTemperature
	case "flow_temperature":
		return c.svc.SetFlowTemperature
	case "heat_demand":
		return c.svc.SetHeatDemand
	case "derating_factor":
		return c.svc.SetDeratingFactor
	case "boiler_efficiency":
		return c.svc.SetBoilerEfficiency
	}
	return nil
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := c.topic("set/")
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	apply := c.setter(field)
	if apply == nil {
		c.log.Warn("unknown field", zap.String("topic", t))
		return
	}

	v, err := decodeValueStrict[float64](msg.Payload())
	if err != nil {
		c.log.Warn("rejected command", zap.String("field", field), zap.Error(err))
		return
	}
	if err := apply(v); err != nil {
		c.log.Warn("rejected command", zap.String("field", field), zap.Float64("value", v), zap.Error(err))
		return
	}
	c.log.Debug("applied command", zap.String("field", field), zap.Float64("value", v))
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
