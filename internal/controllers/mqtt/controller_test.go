package mqttctrl

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
	"github.com/Agrid-Dev/heatpumpcop/internal/testutil"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeToken struct {
	err  error
	done chan struct{}
}

func (t fakeToken) Done() <-chan struct{} {
	if t.done == nil {
		t.done = make(chan struct{})
		close(t.done)
	}
	return t.done
}

func (t fakeToken) Wait() bool                       { return true }
func (t fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t fakeToken) Error() error                     { return t.err }

type publishCall struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type fakeClient struct {
	publishes []publishCall
}

func (c *fakeClient) IsConnected() bool      { return true }
func (c *fakeClient) IsConnectionOpen() bool { return true }
func (c *fakeClient) Connect() mqtt.Token    { return fakeToken{} }
func (c *fakeClient) Disconnect(_ uint)      {}
func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = append([]byte(nil), v...)
	case string:
		b = []byte(v)
	default:
		tmp, _ := json.Marshal(v)
		b = tmp
	}
	c.publishes = append(c.publishes, publishCall{
		topic: topic, qos: qos, retain: retained, payload: b,
	})
	return fakeToken{}
}
func (c *fakeClient) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return fakeToken{}
}
func (c *fakeClient) Unsubscribe(_ ...string) mqtt.Token       { return fakeToken{} }
func (c *fakeClient) AddRoute(_ string, _ mqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() mqtt.ClientOptionsReader  { return mqtt.ClientOptionsReader{} }

// ---- tests ----
func newDefaultSvc() *testutil.FakeSessionService {
	return testutil.NewFakeSessionService()
}

func newObservedController(t *testing.T, svc *testutil.FakeSessionService) (*Controller, *fakeClient, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	c, err := New(svc, Config{DeviceID: "hp1"}, zap.New(core))
	if err != nil {
		t.Fatal(err)
	}
	fc := &fakeClient{}
	c.client = fc
	return c, fc, logs
}

func TestNewDefaults(t *testing.T) {
	svc := newDefaultSvc()
	c, err := New(svc, Config{DeviceID: "hp1"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if c.cfg.BrokerURL != "tcp://localhost:1883" {
		t.Fatalf("expected default BrokerURL, got %q", c.cfg.BrokerURL)
	}
	if c.cfg.BaseTopic != "heatpumpcop/hp1" {
		t.Fatalf("expected default BaseTopic, got %q", c.cfg.BaseTopic)
	}
	if c.cfg.ClientID != "heatpumpcop-hp1" {
		t.Fatalf("expected default ClientID, got %q", c.cfg.ClientID)
	}
	if c.cfg.PublishInterval != 1*time.Second {
		t.Fatalf("expected default PublishInterval, got %v", c.cfg.PublishInterval)
	}
}

func TestNewValidation(t *testing.T) {
	svc := newDefaultSvc()

	if _, err := New(svc, Config{}, nil); err == nil {
		t.Fatal("expected error when DeviceID missing")
	}

	if _, err := New(svc, Config{DeviceID: "x", QoS: 2}, nil); err == nil {
		t.Fatal("expected error when QoS > 1")
	}
}

func TestTopicJoin(t *testing.T) {
	svc := newDefaultSvc()
	c, err := New(svc, Config{DeviceID: "hp1", BaseTopic: "heatpumpcop/hp1/"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.topic("snapshot"); got != "heatpumpcop/hp1/snapshot" {
		t.Fatalf("expected topic without double slashes, got %q", got)
	}
}

func TestDecodeValueStrict(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		v, err := decodeValueStrict[float64]([]byte(`{"value": 12.5}`))
		if err != nil {
			t.Fatal(err)
		}
		if v != 12.5 {
			t.Fatalf("expected 12.5, got %v", v)
		}
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := decodeValueStrict[float64]([]byte(`{}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, err := decodeValueStrict[float64]([]byte(`{"value":3,"extra":1}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := decodeValueStrict[float64]([]byte(`{"value":"cold"}`))
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := decodeValueStrict[float64]([]byte(`{"value":`))
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestOnMessage_IgnoresWrongPrefix(t *testing.T) {
	svc := newDefaultSvc()
	c, _, _ := newObservedController(t, svc)

	c.onMessage(nil, fakeMessage{
		topic:   "otherprefix/set/outdoor_temperature",
		payload: []byte(`{"value":3}`),
	})

	if svc.SetOutdoorCalled {
		t.Fatal("expected SetOutdoorTemperature not called")
	}
}

func TestOnMessage_Setters(t *testing.T) {
	tests := []struct {
		field  string
		value  float64
		called func(*testutil.FakeSessionService) (bool, float64)
	}{
		{"outdoor_temperature", -4, func(f *testutil.FakeSessionService) (bool, float64) { return f.SetOutdoorCalled, f.SetOutdoorArg }},
		{"indoor_temperature", 22, func(f *testutil.FakeSessionService) (bool, float64) { return f.SetIndoorCalled, f.SetIndoorArg }},
		{"flow_temperature", 40, func(f *testutil.FakeSessionService) (bool, float64) { return f.SetFlowCalled, f.SetFlowArg }},
		{"heat_demand", 7.5, func(f *testutil.FakeSessionService) (bool, float64) { return f.SetHeatDemandCalled, f.SetHeatDemandArg }},
		{"derating_factor", 0.35, func(f *testutil.FakeSessionService) (bool, float64) { return f.SetDeratingCalled, f.SetDeratingArg }},
		{"boiler_efficiency", 0.92, func(f *testutil.FakeSessionService) (bool, float64) { return f.SetBoilerCalled, f.SetBoilerArg }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			svc := newDefaultSvc()
			c, _, _ := newObservedController(t, svc)

			b, _ := json.Marshal(map[string]float64{"value": tt.value})
			c.onMessage(nil, fakeMessage{topic: "heatpumpcop/hp1/set/" + tt.field, payload: b})

			called, arg := tt.called(svc)
			if !called || arg != tt.value {
				t.Fatalf("expected setter(%v), got called=%v arg=%v", tt.value, called, arg)
			}
		})
	}
}

func TestOnMessage_UnknownField_Logged(t *testing.T) {
	svc := newDefaultSvc()
	c, _, logs := newObservedController(t, svc)

	c.onMessage(nil, fakeMessage{
		topic:   "heatpumpcop/hp1/set/fan_speed",
		payload: []byte(`{"value":1}`),
	})

	if logs.FilterMessage("unknown field").Len() != 1 {
		t.Fatalf("expected unknown field to be logged, got %v", logs.All())
	}
}

func TestOnMessage_InvalidPayload_DoesNotCallService(t *testing.T) {
	svc := newDefaultSvc()
	c, _, logs := newObservedController(t, svc)

	c.onMessage(nil, fakeMessage{
		topic:   "heatpumpcop/hp1/set/heat_demand",
		payload: []byte(`{"value":"lots"}`),
	})

	if svc.SetHeatDemandCalled {
		t.Fatal("expected SetHeatDemand not called")
	}
	if logs.FilterMessage("rejected command").Len() != 1 {
		t.Fatalf("expected rejection to be logged, got %v", logs.All())
	}
}

func TestOnMessage_ServiceError_IsLogged(t *testing.T) {
	svc := newDefaultSvc()
	svc.SetDeratingErr = errors.New("boom")
	c, _, logs := newObservedController(t, svc)

	c.onMessage(nil, fakeMessage{
		topic:   "heatpumpcop/hp1/set/derating_factor",
		payload: []byte(`{"value":2}`),
	})

	if !svc.SetDeratingCalled {
		t.Fatal("expected SetDeratingFactor called")
	}
	rejected := logs.FilterMessage("rejected command").All()
	if len(rejected) != 1 {
		t.Fatalf("expected one rejection, got %d", len(rejected))
	}
	if got := rejected[0].ContextMap()["field"]; got != "derating_factor" {
		t.Fatalf("expected field=derating_factor, got %v", got)
	}
}

func TestPublishSnapshot_PublishesJSON(t *testing.T) {
	svc := newDefaultSvc()
	c, _ := New(svc, Config{DeviceID: "hp1", QoS: 1, RetainSnapshot: true}, nil)

	fc := &fakeClient{}
	c.client = fc

	c.publishSnapshot()

	if len(fc.publishes) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(fc.publishes))
	}

	p := fc.publishes[0]
	if p.topic != "heatpumpcop/hp1/snapshot" {
		t.Fatalf("expected snapshot topic, got %q", p.topic)
	}
	if p.qos != 1 || p.retain != true {
		t.Fatalf("expected qos=1 retain=true, got qos=%d retain=%v", p.qos, p.retain)
	}

	var got snapshotDTO
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatalf("invalid published json: %v payload=%s", err, string(p.payload))
	}
	if got.COP == nil || *got.COP < 5.86 || *got.COP > 5.87 {
		t.Fatalf("expected cop≈5.863, got %v", got.COP)
	}
	if got.Rating != heatpump.RatingGood.String() {
		t.Fatalf("expected rating=good, got %v", got.Rating)
	}
	if got.FlowTemperature != heatpump.DefaultFlowTemperature {
		t.Fatalf("expected flow_temperature=%v, got %v", heatpump.DefaultFlowTemperature, got.FlowTemperature)
	}
}

func TestPublishSnapshot_EvaluationError(t *testing.T) {
	svc := newDefaultSvc()
	svc.EvaluateErr = heatpump.ErrInvalidTemperatureRange
	c, fc, _ := newObservedController(t, svc)

	c.publishSnapshot()

	var got map[string]any
	if err := json.Unmarshal(fc.publishes[0].payload, &got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["cop"]; ok {
		t.Fatalf("expected no cop on failed evaluation, got %v", got)
	}
	if got["evaluation_error"] == "" || got["evaluation_error"] == nil {
		t.Fatalf("expected evaluation_error, got %v", got)
	}
}
