// Package motor exposes an encoder-motor board on the bus: retained
// telemetry per channel, control verbs with replies, and calibration from
// config/motor.
package motor

import (
	"context"
	"time"

	"encodermotor-go/bus"
	"encodermotor-go/drivers/encodermotor"
	"encodermotor-go/errcode"
	"encodermotor-go/types"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultPollInterval = 500 * time.Millisecond

type Service struct {
	conn *bus.Connection
	ex   *encodermotor.Exclusive
	log  *zap.SugaredLogger

	interval time.Duration
	links    [encodermotor.NumChannels]types.Link
	codes    [encodermotor.NumChannels]errcode.Code
	now      func() time.Time
}

// New returns a service for the board behind ex. The board must already be
// initialised.
func New(conn *bus.Connection, ex *encodermotor.Exclusive, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		conn:     conn,
		ex:       ex,
		log:      log.Named("motor"),
		interval: defaultPollInterval,
		now:      time.Now,
	}
}

// Run serves until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(configTopic())
	ctrlSub := s.conn.Subscribe(controlPattern())
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishInfo()
	s.pollAll()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for i := range encodermotor.NumChannels {
				s.setLink(i, types.LinkDown, nil)
			}
			return

		case msg, ok := <-cfgSub.Channel():
			if !ok {
				s.log.Warnw("config subscription closed")
				return
			}
			cfg, ok := msg.Payload.(types.MotorBoardConfig)
			if !ok {
				s.log.Warnw("ignoring config", "type", typeName(msg.Payload))
				continue
			}
			if iv := s.applyConfig(cfg); iv != s.interval {
				s.interval = iv
				ticker.Reset(iv)
				s.log.Infow("poll interval", "interval", iv)
			}

		case msg, ok := <-ctrlSub.Channel():
			if !ok {
				s.log.Warnw("control subscription closed")
				return
			}
			s.handleControl(msg)

		case <-ticker.C:
			s.pollAll()
		}
	}
}

// -----------------------------------------------------------------------------
// Info and telemetry
// -----------------------------------------------------------------------------

func (s *Service) publishInfo() {
	var info types.MotorBoardInfo
	err := s.ex.Do(func(b *encodermotor.Board) error {
		v, err := b.Version()
		info = types.MotorBoardInfo{Address: b.Address(), Version: v, Channels: encodermotor.NumChannels}
		return err
	})
	if err != nil {
		s.log.Warnw("version read failed", "error", err)
	}
	s.conn.Publish(s.conn.NewMessage(TopicInfo(), info, true))
}

func (s *Service) pollAll() {
	for i := range encodermotor.NumChannels {
		s.poll(i)
	}
}

// poll reads one channel, publishes its value and tracks link state.
func (s *Service) poll(i int) (types.MotorValue, error) {
	var v types.MotorValue
	err := s.ex.Do(func(b *encodermotor.Board) error {
		var err error
		v, err = readValue(b.Channel(i))
		return err
	})
	if err != nil {
		s.setLink(i, types.LinkDegraded, err)
		return v, err
	}
	v.TS = s.now().UnixMilli()
	s.conn.Publish(s.conn.NewMessage(TopicValue(i), v, true))
	s.setLink(i, types.LinkUp, nil)
	return v, nil
}

func readValue(c *encodermotor.Channel) (v types.MotorValue, err error) {
	if v.PWM, err = c.CurrentPWM(); err != nil {
		return v, err
	}
	if v.SpeedRPM, err = c.CurrentSpeed(); err != nil {
		return v, err
	}
	if v.Position, err = c.CurrentPosition(); err != nil {
		return v, err
	}
	v.Reached, err = c.IsTargetPositionReached()
	return v, err
}

// setLink publishes status only when the link or error code changes.
func (s *Service) setLink(i int, l types.Link, err error) {
	code := errcode.Code("")
	if err != nil {
		code = errcode.Of(err)
		s.log.Debugw("poll failed", "channel", i, "error", err)
	}
	if s.links[i] == l && s.codes[i] == code {
		return
	}
	s.links[i], s.codes[i] = l, code
	st := types.CapabilityStatus{Link: l, TS: s.now().UnixMilli(), Error: string(code)}
	s.conn.Publish(s.conn.NewMessage(TopicStatus(i), st, true))
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// applyConfig writes calibration for every configured channel and returns
// the poll interval to use. Failures on one channel do not stop the rest.
func (s *Service) applyConfig(cfg types.MotorBoardConfig) time.Duration {
	iv := s.interval
	if cfg.PollIntervalMs > 0 {
		iv = time.Duration(cfg.PollIntervalMs) * time.Millisecond
	}

	var errs error
	_ = s.ex.Do(func(b *encodermotor.Board) error {
		if cfg.Address != 0 && cfg.Address != b.Address() {
			s.log.Warnw("config address differs from board; restart to apply",
				"config", cfg.Address, "board", b.Address())
		}
		for _, cc := range cfg.Channels {
			if int(cc.Index) >= encodermotor.NumChannels {
				errs = multierr.Append(errs, &errcode.E{C: errcode.UnknownChannel, Op: "config"})
				continue
			}
			errs = multierr.Append(errs, calibrate(b.Channel(int(cc.Index)), cc))
		}
		return nil
	})
	for _, err := range multierr.Errors(errs) {
		s.log.Errorw("calibration failed", "error", err, "code", errcode.Of(err))
	}
	if errs == nil && len(cfg.Channels) > 0 {
		s.log.Infow("calibration applied", "channels", len(cfg.Channels))
	}
	return iv
}

func calibrate(c *encodermotor.Channel, cc types.MotorChannelConfig) error {
	var errs error
	op := func(name string, err error) {
		errs = multierr.Append(errs, errcode.Wrap(errcode.Of(err), name, err))
	}
	if cc.ReductionRatio != nil {
		op("set_ratio", c.SetReductionRatio(*cc.ReductionRatio))
	}
	if cc.PPR != nil {
		op("set_ppr", c.SetPulsesPerRevolution(*cc.PPR))
	}
	if cc.PositiveBLevel != nil {
		op("set_b_level", c.SetPositiveBLevel(*cc.PositiveBLevel))
	}
	if p := cc.SpeedPID; p != nil {
		op("set_speed_pid", c.SetSpeedPID(p.P, p.I, p.D))
	}
	if p := cc.PositionPID; p != nil {
		op("set_position_pid", c.SetPositionPID(p.P, p.I, p.D))
	}
	return errs
}
