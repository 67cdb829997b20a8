package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	koanfjson "github.com/knadh/koanf/parsers/json"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
	"github.com/Agrid-Dev/heatpumpcop/internal/logging"
	"github.com/Agrid-Dev/heatpumpcop/internal/session"
	"github.com/Agrid-Dev/heatpumpcop/internal/tariff"
)

// EnvPrefix prefixes every environment override, e.g.
// HEATPUMPCOP_CONTROLLERS_HTTP_ADDR or HEATPUMPCOP_ESTIMATOR_DERATING_FACTOR.
const EnvPrefix = "HEATPUMPCOP_"

type Config struct {
	DeviceID    string            `koanf:"device_id" json:"device_id" yaml:"device_id"`
	Controllers ControllersConfig `koanf:"controllers" json:"controllers" yaml:"controllers"`

	Session   SessionConfig   `koanf:"session" json:"session" yaml:"session"`
	Estimator EstimatorConfig `koanf:"estimator" json:"estimator" yaml:"estimator"`
	Sweep     SweepConfig     `koanf:"sweep" json:"sweep" yaml:"sweep"`
	System    SystemConfig    `koanf:"system" json:"system" yaml:"system"`
	Tariff    TariffConfig    `koanf:"tariff" json:"tariff" yaml:"tariff"`
	Logging   logging.Config  `koanf:"logging" json:"logging" yaml:"logging"`
}

type ControllersConfig struct {
	HTTP   HTTPConfig   `koanf:"http" json:"http" yaml:"http"`
	MQTT   MQTTConfig   `koanf:"mqtt" json:"mqtt" yaml:"mqtt"`
	MODBUS ModbusConfig `koanf:"modbus" json:"modbus" yaml:"modbus"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" json:"addr" yaml:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
	BrokerURL       string        `koanf:"broker_url" json:"broker_url" yaml:"broker_url"`
	ClientID        string        `koanf:"client_id" json:"client_id" yaml:"client_id"`
	BaseTopic       string        `koanf:"base_topic" json:"base_topic" yaml:"base_topic"`
	QoS             byte          `koanf:"qos" json:"qos" yaml:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot" json:"retain_snapshot" yaml:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval" json:"publish_interval" yaml:"publish_interval"`
	Username        string        `koanf:"username" json:"username" yaml:"username"`
	Password        string        `koanf:"password" json:"password" yaml:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" json:"addr" yaml:"addr"`
	UnitID  byte   `koanf:"unit_id" json:"unit_id" yaml:"unit_id"`
}

// SessionConfig holds the inputs a session starts from.
type SessionConfig struct {
	OutdoorTemperature float64 `koanf:"outdoor_temperature" json:"outdoor_temperature" yaml:"outdoor_temperature"`
	IndoorTemperature  float64 `koanf:"indoor_temperature" json:"indoor_temperature" yaml:"indoor_temperature"`
	FlowTemperature    float64 `koanf:"flow_temperature" json:"flow_temperature" yaml:"flow_temperature"`
	HeatDemand         float64 `koanf:"heat_demand" json:"heat_demand" yaml:"heat_demand"`
}

type EstimatorConfig struct {
	DeratingFactor   float64 `koanf:"derating_factor" json:"derating_factor" yaml:"derating_factor"`
	BoilerEfficiency float64 `koanf:"boiler_efficiency" json:"boiler_efficiency" yaml:"boiler_efficiency"`
}

type SweepConfig struct {
	From  float64 `koanf:"from" json:"from" yaml:"from"`
	To    float64 `koanf:"to" json:"to" yaml:"to"`
	Steps int     `koanf:"steps" json:"steps" yaml:"steps"`
}

type SystemConfig struct {
	SystemEfficiency     float64 `koanf:"system_efficiency" json:"system_efficiency" yaml:"system_efficiency"`
	HeatExchangerPenalty bool    `koanf:"heat_exchanger_penalty" json:"heat_exchanger_penalty" yaml:"heat_exchanger_penalty"`
	SourceDelta          float64 `koanf:"source_delta" json:"source_delta" yaml:"source_delta"`
	SinkDelta            float64 `koanf:"sink_delta" json:"sink_delta" yaml:"sink_delta"`
	Defrost              bool    `koanf:"defrost" json:"defrost" yaml:"defrost"`
	Humidity             float64 `koanf:"humidity" json:"humidity" yaml:"humidity"`
	PartLoad             bool    `koanf:"part_load" json:"part_load" yaml:"part_load"`
	MaxCapacity          float64 `koanf:"max_capacity" json:"max_capacity" yaml:"max_capacity"`
	Parasitics           bool    `koanf:"parasitics" json:"parasitics" yaml:"parasitics"`
	ParasiticPower       float64 `koanf:"parasitic_power" json:"parasitic_power" yaml:"parasitic_power"`
	LoadKW               float64 `koanf:"load_kw" json:"load_kw" yaml:"load_kw"`
}

type TariffConfig struct {
	Enabled          bool    `koanf:"enabled" json:"enabled" yaml:"enabled"`
	ElectricityPrice float64 `koanf:"electricity_price" json:"electricity_price" yaml:"electricity_price"`
	GasPrice         float64 `koanf:"gas_price" json:"gas_price" yaml:"gas_price"`
	Currency         string  `koanf:"currency" json:"currency" yaml:"currency"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	in := session.DefaultInputs()
	sys := heatpump.DefaultSystemParams()
	rng := heatpump.DefaultRange()
	return Config{
		DeviceID: "default",
		Controllers: ControllersConfig{
			HTTP:   HTTPConfig{Enabled: true, Addr: ":8080"},
			MQTT:   MQTTConfig{PublishInterval: 1 * time.Second},
			MODBUS: ModbusConfig{Addr: "127.0.0.1:1502", UnitID: 1},
		},
		Session: SessionConfig{
			OutdoorTemperature: in.OutdoorTemperature,
			IndoorTemperature:  in.IndoorTemperature,
			FlowTemperature:    in.FlowTemperature,
			HeatDemand:         in.HeatDemand,
		},
		Estimator: EstimatorConfig{
			DeratingFactor:   in.DeratingFactor,
			BoilerEfficiency: in.BoilerEfficiency,
		},
		Sweep: SweepConfig{From: rng.From, To: rng.To, Steps: rng.Steps},
		System: SystemConfig{
			SystemEfficiency:     sys.SystemEfficiency,
			HeatExchangerPenalty: sys.HeatExchangerPenalty,
			SourceDelta:          sys.SourceDelta,
			SinkDelta:            sys.SinkDelta,
			Defrost:              sys.Defrost,
			Humidity:             sys.Humidity,
			PartLoad:             sys.PartLoad,
			MaxCapacity:          sys.MaxCapacity,
			Parasitics:           sys.Parasitics,
			ParasiticPower:       sys.ParasiticPower,
			LoadKW:               6,
		},
		Tariff: TariffConfig{
			ElectricityPrice: 0.25,
			GasPrice:         0.10,
			Currency:         tariff.DefaultCurrency,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load layers defaults, the optional config file, HEATPUMPCOP_* environment
// variables and PORT, in that order. A missing file is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return Config{}, err
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, EnvPrefix)), value
		},
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// PORT is common in containers; an explicit HEATPUMPCOP_CONTROLLERS_HTTP_ADDR wins.
	if v := os.Getenv("PORT"); v != "" && os.Getenv(EnvPrefix+"CONTROLLERS_HTTP_ADDR") == "" {
		cfg.Controllers.HTTP.Addr = ":" + v
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat config: %w", err)
	}

	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = koanfyaml.Parser()
	case ".json":
		parser = koanfjson.Parser()
	default:
		return fmt.Errorf("unsupported config extension %q", ext)
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	return nil
}

// sections lists the top-level config blocks an environment key may start with.
var sections = []string{"session", "estimator", "sweep", "system", "tariff", "logging"}

// envKeyTransform maps an environment key without its prefix to a koanf path:
// CONTROLLERS_HTTP_ADDR -> controllers.http.addr,
// ESTIMATOR_DERATING_FACTOR -> estimator.derating_factor.
// Keys that match no section are lowercased as is.
func envKeyTransform(s string) string {
	k := strings.ToLower(strings.TrimSpace(s))
	if k == "" {
		return ""
	}

	if rest, ok := strings.CutPrefix(k, "controllers_"); ok {
		ctrl, field, ok := strings.Cut(rest, "_")
		if !ok {
			return k
		}
		return "controllers." + ctrl + "." + field
	}

	for _, sec := range sections {
		if rest, ok := strings.CutPrefix(k, sec+"_"); ok && rest != "" {
			return sec + "." + rest
		}
	}
	return k
}

// Validate rejects values no component would accept.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DeviceID) == "" {
		return errors.New("config: device_id is required")
	}
	if _, err := session.New(c.Inputs()); err != nil {
		return fmt.Errorf("config: session: %w", err)
	}
	params := c.Params()
	if err := params.Validate(); err != nil {
		return fmt.Errorf("config: estimator: %w", err)
	}
	rng := c.Range()
	if err := rng.Validate(); err != nil {
		return fmt.Errorf("config: sweep: %w", err)
	}
	sys := c.SystemParams()
	if err := sys.Validate(); err != nil {
		return fmt.Errorf("config: system: %w", err)
	}
	if c.System.LoadKW < 0 {
		return fmt.Errorf("config: system: %w: load_kw %v must be >= 0", heatpump.ErrInvalidParameter, c.System.LoadKW)
	}
	if c.Tariff.Enabled {
		if _, err := c.TariffModel(); err != nil {
			return fmt.Errorf("config: tariff: %w", err)
		}
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging: unsupported format %q", c.Logging.Format)
	}
	if c.Controllers.MQTT.QoS > 1 {
		return errors.New("config: mqtt: qos must be 0 or 1")
	}
	if c.Controllers.MODBUS.Enabled && c.Controllers.MODBUS.UnitID == 0 {
		return errors.New("config: modbus: unit_id is required")
	}
	return nil
}

// Inputs builds the initial session inputs.
func (c Config) Inputs() session.Inputs {
	return session.Inputs{
		OutdoorTemperature: c.Session.OutdoorTemperature,
		IndoorTemperature:  c.Session.IndoorTemperature,
		FlowTemperature:    c.Session.FlowTemperature,
		HeatDemand:         c.Session.HeatDemand,
		DeratingFactor:     c.Estimator.DeratingFactor,
		BoilerEfficiency:   c.Estimator.BoilerEfficiency,
	}
}

func (c Config) Params() heatpump.Params {
	return c.Inputs().Params()
}

func (c Config) Range() heatpump.Range {
	return heatpump.Range{From: c.Sweep.From, To: c.Sweep.To, Steps: c.Sweep.Steps}
}

func (c Config) SystemParams() heatpump.SystemParams {
	s := c.System
	return heatpump.SystemParams{
		SystemEfficiency:     s.SystemEfficiency,
		HeatExchangerPenalty: s.HeatExchangerPenalty,
		SourceDelta:          s.SourceDelta,
		SinkDelta:            s.SinkDelta,
		Defrost:              s.Defrost,
		Humidity:             s.Humidity,
		PartLoad:             s.PartLoad,
		MaxCapacity:          s.MaxCapacity,
		Parasitics:           s.Parasitics,
		ParasiticPower:       s.ParasiticPower,
	}
}

// TariffModel builds the cost model. Callers check Tariff.Enabled first.
func (c Config) TariffModel() (tariff.Tariff, error) {
	return tariff.New(c.Tariff.ElectricityPrice, c.Tariff.GasPrice, c.Tariff.Currency)
}

// SessionOptions returns the session options implied by the config.
func (c Config) SessionOptions() ([]session.Option, error) {
	opts := []session.Option{session.WithSystemParams(c.SystemParams())}
	if c.Tariff.Enabled {
		t, err := c.TariffModel()
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithTariff(t))
	}
	return opts, nil
}
