package httpctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Agrid-Dev/heatpumpcop/internal/chart"
	"github.com/Agrid-Dev/heatpumpcop/internal/heatpump"
	"github.com/Agrid-Dev/heatpumpcop/internal/ports"
	"github.com/Agrid-Dev/heatpumpcop/internal/session"
)

// Heat load used by /v1/breakdown and the curve when the request does not give one.
const defaultLoadKW = 6.0

type Server struct {
	svc      ports.SessionService
	srv      *http.Server
	deviceID string
	log      *zap.Logger
}

// New returns a runnable server.
func New(svc ports.SessionService, addr string, deviceID string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()
	s := &Server{svc: svc, deviceID: deviceID, log: log}

	// Read
	mux.HandleFunc("GET /v1", s.handleGet)
	mux.HandleFunc("GET /v1/sweep", s.handleSweep)
	mux.HandleFunc("GET /v1/seasonal", s.handleSeasonal)
	mux.HandleFunc("GET /v1/breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /v1/curve.png", s.handleCurve("png", "image/png"))
	mux.HandleFunc("GET /v1/curve.svg", s.handleCurve("svg", "image/svg+xml"))

	// Write: one endpoint per input
	mux.HandleFunc("POST /v1/outdoor_temperature", s.handlePostFloat(svc.SetOutdoorTemperature))
	mux.HandleFunc("POST /v1/indoor_temperature", s.handlePostFloat(svc.SetIndoorTemperature))
	mux.HandleFunc("POST /v1/flow_temperature", s.handlePostFloat(svc.SetFlowTemperature))
	mux.HandleFunc("POST /v1/heat_demand", s.handlePostFloat(svc.SetHeatDemand))
	mux.HandleFunc("POST /v1/derating_factor", s.handlePostFloat(svc.SetDeratingFactor))
	mux.HandleFunc("POST /v1/boiler_efficiency", s.handlePostFloat(svc.SetBoilerEfficiency))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ---- DTOs ----

type snapshotDTO struct {
	DeviceID           string         `json:"device_id"`
	OutdoorTemperature float64        `json:"outdoor_temperature"`
	IndoorTemperature  float64        `json:"indoor_temperature"`
	FlowTemperature    float64        `json:"flow_temperature"`
	HeatDemand         float64        `json:"heat_demand"`
	DeratingFactor     float64        `json:"derating_factor"`
	BoilerEfficiency   float64        `json:"boiler_efficiency"`
	Evaluation         *evaluationDTO `json:"evaluation,omitempty"`
	EvaluationError    string         `json:"evaluation_error,omitempty"`
}

type evaluationDTO struct {
	CarnotCOP        float64  `json:"carnot_cop"`
	COP              float64  `json:"cop"`
	Rating           string   `json:"rating"`
	ElectricalEnergy float64  `json:"electrical_energy"`
	BoilerEnergy     float64  `json:"boiler_energy"`
	EnergySavings    float64  `json:"energy_savings"`
	Cost             *costDTO `json:"cost,omitempty"`
}

type costDTO struct {
	HeatPump string `json:"heat_pump"`
	Boiler   string `json:"boiler"`
	Savings  string `json:"savings"`
	Currency string `json:"currency"`
}

type pointDTO struct {
	OutdoorTemperature float64 `json:"outdoor_temperature"`
	CarnotCOP          float64 `json:"carnot_cop"`
	COP                float64 `json:"cop"`
}

type sweepDTO struct {
	IndoorTemperature float64    `json:"indoor_temperature"`
	DeratingFactor    float64    `json:"derating_factor"`
	Points            []pointDTO `json:"points"`
}

type seasonDTO struct {
	Label              string  `json:"label"`
	OutdoorTemperature float64 `json:"outdoor_temperature"`
	COP                float64 `json:"cop"`
	Rating             string  `json:"rating"`
}

type breakdownDTO struct {
	LoadKW                float64 `json:"load_kw"`
	FlowTemperature       float64 `json:"flow_temperature"`
	COP                   float64 `json:"cop"`
	CarnotCOP             float64 `json:"carnot_cop"`
	RawCOP                float64 `json:"raw_cop"`
	DefrostPenalty        float64 `json:"defrost_penalty"`
	InverterCorrection    float64 `json:"inverter_correction"`
	LoadFactor            float64 `json:"load_factor"`
	EvaporatorTemperature float64 `json:"evaporator_temperature"`
	CondenserTemperature  float64 `json:"condenser_temperature"`
	CompressorPower       float64 `json:"compressor_power"`
	ParasiticPower        float64 `json:"parasitic_power"`
	ElectricalPower       float64 `json:"electrical_power"`
	EfficiencyLoss        float64 `json:"efficiency_loss"`
}

func toDTO(in session.Inputs) snapshotDTO {
	return snapshotDTO{
		OutdoorTemperature: in.OutdoorTemperature,
		IndoorTemperature:  in.IndoorTemperature,
		FlowTemperature:    in.FlowTemperature,
		HeatDemand:         in.HeatDemand,
		DeratingFactor:     in.DeratingFactor,
		BoilerEfficiency:   in.BoilerEfficiency,
	}
}

func toEvaluationDTO(ev session.Evaluation) *evaluationDTO {
	dto := &evaluationDTO{
		CarnotCOP:        ev.CarnotCOP,
		COP:              ev.COP,
		Rating:           ev.Rating.String(),
		ElectricalEnergy: ev.Consumption.Electrical,
		BoilerEnergy:     ev.Consumption.Boiler,
		EnergySavings:    ev.Consumption.Savings(),
	}
	if ev.Cost != nil {
		dto.Cost = &costDTO{
			HeatPump: ev.Cost.HeatPumpCost.StringFixed(2),
			Boiler:   ev.Cost.BoilerCost.StringFixed(2),
			Savings:  ev.Cost.Savings.StringFixed(2),
			Currency: ev.Cost.Currency,
		}
	}
	return dto
}

// ---- Handlers ----

func (s *Server) handleGet(w http.ResponseWriter, _ *http.Request) {
	s.respondSnapshot(w)
}

func (s *Server) handlePostFloat(apply func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postValue(s, w, r, apply)
	}
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	in := s.svc.Get()
	rng, err := rangeFromQuery(r.URL.Query(), in.IndoorTemperature)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	pts, err := s.svc.Sweep(rng)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	dto := sweepDTO{
		IndoorTemperature: in.IndoorTemperature,
		DeratingFactor:    in.DeratingFactor,
		Points:            make([]pointDTO, len(pts)),
	}
	for i, p := range pts {
		dto.Points[i] = pointDTO{OutdoorTemperature: p.OutdoorTemperature, CarnotCOP: p.CarnotCOP, COP: p.COP}
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleSeasonal(w http.ResponseWriter, _ *http.Request) {
	seasons, err := s.svc.Seasonal()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	out := make([]seasonDTO, len(seasons))
	for i, sp := range seasons {
		out[i] = seasonDTO{
			Label:              sp.Label,
			OutdoorTemperature: sp.OutdoorTemperature,
			COP:                sp.COP,
			Rating:             sp.Rating.String(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	load, err := queryFloat(r.URL.Query().Get("load"), defaultLoadKW)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid 'load'")
		return
	}
	b, err := s.svc.Breakdown(load)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, breakdownDTO{
		LoadKW:                load,
		FlowTemperature:       s.svc.Get().FlowTemperature,
		COP:                   b.COP,
		CarnotCOP:             b.CarnotCOP,
		RawCOP:                b.RawCOP,
		DefrostPenalty:        b.DefrostPenalty,
		InverterCorrection:    b.InverterCorrection,
		LoadFactor:            b.LoadFactor,
		EvaporatorTemperature: b.EvaporatorTemperature,
		CondenserTemperature:  b.CondenserTemperature,
		CompressorPower:       b.CompressorPower,
		ParasiticPower:        b.ParasiticPower,
		ElectricalPower:       b.ElectricalPower,
		EfficiencyLoss:        b.EfficiencyLoss,
	})
}

func (s *Server) handleCurve(format, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		in := s.svc.Get()
		rng, err := rangeFromQuery(q, in.IndoorTemperature)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		load, err := queryFloat(q.Get("load"), defaultLoadKW)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid 'load'")
			return
		}
		pts, err := s.svc.Sweep(rng)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		ideal, err := s.svc.IdealCurve(rng, load)
		if err != nil {
			writeErr(w, http.StatusBadRequest, err.Error())
			return
		}
		system := s.svc.System()
		c := chart.Chart{
			Title: fmt.Sprintf("Indoor: %.1f°C | Flow: %.1f°C | Load: %.1f kW",
				in.IndoorTemperature, in.FlowTemperature, load),
			Points:      pts,
			Ideal:       ideal,
			IdealLabel:  chart.IdealLegend(system),
			DefrostZone: system.ShowsDefrostZone(),
		}
		if ev, err := s.svc.Evaluate(); err == nil {
			c.Current = &heatpump.Point{OutdoorTemperature: in.OutdoorTemperature, CarnotCOP: ev.CarnotCOP, COP: ev.COP}
		}
		s.renderChart(w, c, format, contentType)
	}
}

// renderChart sets headers only once the whole image has rendered.
func (s *Server) renderChart(w http.ResponseWriter, c chart.Chart, format, contentType string) {
	var buf bytes.Buffer
	if err := c.Render(&buf, format); err != nil {
		s.log.Error("render curve", zap.String("format", format), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ---- generic helpers ----

func (s *Server) respondSnapshot(w http.ResponseWriter) {
	dto := toDTO(s.svc.Get())
	dto.DeviceID = s.deviceID
	if ev, err := s.svc.Evaluate(); err != nil {
		dto.EvaluationError = err.Error()
	} else {
		dto.Evaluation = toEvaluationDTO(ev)
	}
	writeJSON(w, http.StatusOK, dto)
}

func postValue[T any](s *Server, w http.ResponseWriter, r *http.Request, apply func(T) error) {
	dec := json.NewDecoder(r.Body)
	var req struct {
		Value *T `json:"value"`
	}
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Value == nil {
		writeErr(w, http.StatusBadRequest, "missing field 'value'")
		return
	}

	if err := apply(*req.Value); err != nil {
		s.log.Debug("rejected write", zap.String("path", r.URL.Path), zap.Error(err))
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondSnapshot(w)
}

// rangeFromQuery overlays from, to and steps on the default range. Unless
// 'to' is given, the warm end is capped below indoorC so the default curve
// stays inside the heating range.
func rangeFromQuery(q url.Values, indoorC float64) (heatpump.Range, error) {
	rng := heatpump.DefaultRange()
	var err error
	if rng.From, err = queryFloat(q.Get("from"), rng.From); err != nil {
		return rng, errors.New("invalid 'from'")
	}
	if rng.To, err = queryFloat(q.Get("to"), rng.To); err != nil {
		return rng, errors.New("invalid 'to'")
	}
	if v := q.Get("steps"); v != "" {
		if rng.Steps, err = strconv.Atoi(v); err != nil {
			return rng, errors.New("invalid 'steps'")
		}
	}
	if q.Has("to") {
		return rng, nil
	}
	return rng.Below(indoorC)
}

func queryFloat(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
