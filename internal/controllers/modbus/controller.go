package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	mbserver "github.com/tbrandon/mbserver"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatpumpcop/internal/ports"
	"github.com/Agrid-Dev/heatpumpcop/internal/session"
)

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
}

// Register scales. A register holds round(value*scale).
const (
	TemperatureScale = 100
	EnergyScale      = 10
	FactorScale      = 1000
	COPScale         = 100
)

// holding describes one writable input register.
type holding struct {
	scale  float64
	signed bool
	get    func(session.Inputs) float64
	set    func(ports.SessionService, float64) error
}

// Holding registers 0..5.
var holdingRegisters = []holding{
	{TemperatureScale, true,
		func(in session.Inputs) float64 { return in.OutdoorTemperature },
		ports.SessionService.SetOutdoorTemperature},
	{TemperatureScale, true,
		func(in session.Inputs) float64 { return in.IndoorTemperature },
		ports.SessionService.SetIndoorTemperature},
	{EnergyScale, false,
		func(in session.Inputs) float64 { return in.HeatDemand },
		ports.SessionService.SetHeatDemand},
	{FactorScale, false,
		func(in session.Inputs) float64 { return in.DeratingFactor },
		ports.SessionService.SetDeratingFactor},
	{FactorScale, false,
		func(in session.Inputs) float64 { return in.BoilerEfficiency },
		ports.SessionService.SetBoilerEfficiency},
	{TemperatureScale, true,
		func(in session.Inputs) float64 { return in.FlowTemperature },
		ports.SessionService.SetFlowTemperature},
}

// Input registers 0..4.
const (
	InputCOP = iota
	InputCarnotCOP
	InputElectricalEnergy
	InputBoilerEnergy
	InputRating
	inputCount
)

type Controller struct {
	svc ports.SessionService
	cfg Config
	log *zap.Logger

	serv *mbserver.Server
}

func New(svc ports.SessionService, cfg Config, log *zap.Logger) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
		log: log.With(zap.String("controller", "modbus"), zap.String("device_id", cfg.DeviceID)),
	}, nil
}

// Run starts the Modbus server with handlers that apply writes immediately and
// answer reads from the session. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers before ListenTCP: mbserver reads the handler table from
	// its connection goroutines. Every function mbserver serves by default is
	// overridden so none falls through to its in-memory tables.
	serv.RegisterFunctionHandler(1, c.readCoils)
	serv.RegisterFunctionHandler(2, readOnly)
	serv.RegisterFunctionHandler(3, c.readHoldingRegisters)
	serv.RegisterFunctionHandler(4, c.readInputRegisters)
	serv.RegisterFunctionHandler(5, readOnly)
	serv.RegisterFunctionHandler(6, c.writeSingleRegister)
	serv.RegisterFunctionHandler(15, readOnly)
	serv.RegisterFunctionHandler(16, c.writeMultipleRegisters)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}
	c.log.Info("listening", zap.String("addr", c.cfg.Addr))

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// Read Coils (function 1): coil 0 is set when the current inputs evaluate.
func (c *Controller) readCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(data[0:2])
	qty := binary.BigEndian.Uint16(data[2:4])
	if qty == 0 || qty > 2000 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if start != 0 || qty != 1 {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	coilByte := byte(0)
	if _, err := c.svc.Evaluate(); err == nil {
		coilByte = 0x01
	}
	return []byte{1, coilByte}, &mbserver.Success
}

// Read Holding Registers (function 3): the session inputs.
func (c *Controller) readHoldingRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame, len(holdingRegisters))
	if exc != nil {
		return []byte{}, exc
	}
	in := c.svc.Get()
	regs := make([]uint16, qty)
	for i := range regs {
		h := holdingRegisters[start+i]
		regs[i] = encode(h.get(in), h.scale, h.signed)
	}
	return registerResponse(regs), &mbserver.Success
}

// Read Input Registers (function 4): evaluation results, all zero when the
// inputs do not evaluate.
func (c *Controller) readInputRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame, inputCount)
	if exc != nil {
		return []byte{}, exc
	}
	var all [inputCount]uint16
	if ev, err := c.svc.Evaluate(); err == nil {
		all[InputCOP] = encode(ev.COP, COPScale, false)
		all[InputCarnotCOP] = encode(ev.CarnotCOP, COPScale, false)
		all[InputElectricalEnergy] = encode(ev.Consumption.Electrical, EnergyScale, false)
		all[InputBoilerEnergy] = encode(ev.Consumption.Boiler, EnergyScale, false)
		all[InputRating] = uint16(ev.Rating)
	}
	return registerResponse(all[start : start+qty]), &mbserver.Success
}

// Write Single Register (function 6)
func (c *Controller) writeSingleRegister(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := int(binary.BigEndian.Uint16(data[0:2]))
	value := binary.BigEndian.Uint16(data[2:4])

	if exc := c.apply(addr, value); exc != nil {
		return []byte{}, exc
	}

	// echo request (address + value)
	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

// Write Multiple Registers (function 16). Registers are applied in order and
// the first rejected one stops the write.
func (c *Controller) writeMultipleRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	d := frame.GetData()
	if len(d) < 5 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(d[0:2])
	quantity := binary.BigEndian.Uint16(d[2:4])
	byteCount := int(d[4])
	if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if int(start)+int(quantity) > len(holdingRegisters) {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	for i := 0; i < int(quantity); i++ {
		val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
		if exc := c.apply(int(start)+i, val); exc != nil {
			return []byte{}, exc
		}
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], start)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, &mbserver.Success
}

func (c *Controller) apply(addr int, raw uint16) *mbserver.Exception {
	if addr < 0 || addr >= len(holdingRegisters) {
		return &mbserver.IllegalDataAddress
	}
	h := holdingRegisters[addr]
	v := decode(raw, h.scale, h.signed)
	if err := h.set(c.svc, v); err != nil {
		c.log.Warn("rejected write", zap.Int("register", addr), zap.Float64("value", v), zap.Error(err))
		return &mbserver.IllegalDataValue
	}
	return nil
}

// readOnly rejects coil writes and discrete input reads.
func readOnly(_ *mbserver.Server, _ mbserver.Framer) ([]byte, *mbserver.Exception) {
	return []byte{}, &mbserver.IllegalFunction
}

func readRange(frame mbserver.Framer, size int) (int, int, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	if start+qty > size {
		return 0, 0, &mbserver.IllegalDataAddress
	}
	return start, qty, nil
}

func registerResponse(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}

// encode scales v and clamps it to the int16 or uint16 range.
func encode(v, scale float64, signed bool) uint16 {
	r := math.Round(v * scale)
	if math.IsNaN(r) {
		return 0
	}
	if signed {
		return uint16(int16(min(max(r, math.MinInt16), math.MaxInt16)))
	}
	return uint16(min(max(r, 0), math.MaxUint16))
}

func decode(u uint16, scale float64, signed bool) float64 {
	if signed {
		return float64(int16(u)) / scale
	}
	return float64(u) / scale
}
