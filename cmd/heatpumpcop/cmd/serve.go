package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httpctrl "github.com/Agrid-Dev/heatpumpcop/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/heatpumpcop/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/heatpumpcop/internal/controllers/mqtt"
	"github.com/Agrid-Dev/heatpumpcop/internal/device"
)

// runner is the shape every controller shares.
type runner interface {
	Run(ctx context.Context) error
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose a live estimator session over HTTP, MQTT and Modbus",
		Long: `Start the controllers enabled in the config. Every controller reads and
writes the same session, so a change made over Modbus shows up on HTTP and in
the next MQTT snapshot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	s, err := c.session(c.cfg.Inputs())
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	dev := device.New(c.cfg.DeviceID, s)

	runners, err := c.controllers(dev)
	if err != nil {
		return err
	}
	if len(runners) == 0 {
		return errors.New("no controller enabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	for name, r := range runners {
		g.Go(func() error {
			c.log.Info("controller starting", zap.String("controller", name))
			if err := r.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		c.log.Error("serve stopped", zap.Error(err))
		return err
	}
	c.log.Info("serve stopped")
	return nil
}

func (c *cli) controllers(dev *device.Device) (map[string]runner, error) {
	ctrls := c.cfg.Controllers
	out := map[string]runner{}

	if ctrls.HTTP.Enabled {
		out["http"] = httpctrl.New(dev.S, ctrls.HTTP.Addr, dev.ID, c.log.Named("http"))
		c.log.Info("http enabled", zap.String("addr", ctrls.HTTP.Addr))
	}
	if ctrls.MQTT.Enabled {
		m, err := mqttctrl.New(dev.S, mqttctrl.Config{
			DeviceID:        dev.ID,
			BrokerURL:       ctrls.MQTT.BrokerURL,
			ClientID:        ctrls.MQTT.ClientID,
			BaseTopic:       ctrls.MQTT.BaseTopic,
			QoS:             ctrls.MQTT.QoS,
			RetainSnapshot:  ctrls.MQTT.RetainSnapshot,
			PublishInterval: ctrls.MQTT.PublishInterval,
			Username:        ctrls.MQTT.Username,
			Password:        ctrls.MQTT.Password,
		}, c.log)
		if err != nil {
			return nil, err
		}
		out["mqtt"] = m
	}
	if ctrls.MODBUS.Enabled {
		m, err := modbusctrl.New(dev.S, modbusctrl.Config{
			DeviceID: dev.ID,
			Addr:     ctrls.MODBUS.Addr,
			UnitID:   ctrls.MODBUS.UnitID,
		}, c.log)
		if err != nil {
			return nil, err
		}
		out["modbus"] = m
	}
	return out, nil
}
