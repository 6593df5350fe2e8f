package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"encodermotor-go/bus"
	"encodermotor-go/drivers/encodermotor"
	"encodermotor-go/services/config"
	"encodermotor-go/services/motor"
	"encodermotor-go/types"
)

func serveCommand(logger func() *zap.SugaredLogger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the motor service on an in-process bus and log telemetry",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfig, Usage: "JSON config `FILE`; overrides --device"},
			&cli.StringFlag{Name: flagDevice, Value: "rpi", Usage: "embedded config to use"},
		},
		Action: func(c *cli.Context) error {
			log := logger()
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = config.WithDevice(ctx, c.String(flagDevice))

			cfgSvc := config.NewConfigService(log)
			if path := c.String(flagConfig); path != "" {
				raw, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				cfgSvc.WithRaw(raw)
			}
			mc, err := cfgSvc.Motor(ctx)
			if err != nil {
				return err
			}
			cfg, err := boardConfig(c, motor.BoardConfig(mc))
			if err != nil {
				return err
			}
			b, closeBus, err := openBoard(c, log, cfg)
			if err != nil {
				return err
			}
			defer closeBus()

			mb := bus.NewBus(32)
			if err := cfgSvc.Publish(ctx, mb.NewConnection("config")); err != nil {
				return err
			}

			ex := encodermotor.NewExclusive(b)
			svc := motor.New(mb.NewConnection("motor"), ex, log)
			done := make(chan struct{})
			go func() { svc.Run(ctx); close(done) }()

			watch(ctx, mb.NewConnection("cli"), log)
			<-done

			// Leave the motors stopped.
			return ex.Do(func(b *encodermotor.Board) error {
				for _, ch := range b.All() {
					if err := ch.Stop(); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

// watch logs telemetry and status until ctx is done.
func watch(ctx context.Context, conn *bus.Connection, log *zap.SugaredLogger) {
	defer conn.Disconnect()
	vals := conn.Subscribe(bus.T("hal", "cap", "motor", bus.Single, "value"))
	stat := conn.Subscribe(bus.T("hal", "cap", "motor", bus.Single, "status"))
	info := conn.Subscribe(motor.TopicInfo())

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-info.Channel():
			if i, ok := m.Payload.(types.MotorBoardInfo); ok {
				log.Infow("board", "addr", i.Address, "version", i.Version)
			}
		case m := <-vals.Channel():
			if v, ok := m.Payload.(types.MotorValue); ok {
				log.Infow("value", "channel", m.Topic.At(3), "pwm", v.PWM, "rpm", v.SpeedRPM,
					"position", v.Position, "reached", v.Reached)
			}
		case m := <-stat.Channel():
			if s, ok := m.Payload.(types.CapabilityStatus); ok {
				log.Infow("status", "channel", m.Topic.At(3), "link", s.Link, "error", s.Error)
			}
		}
	}
}
