package motor

import (
	"encoding/json"
	"fmt"

	"encodermotor-go/bus"
	"encodermotor-go/drivers/encodermotor"
	"encodermotor-go/errcode"
	"encodermotor-go/types"

	"go.uber.org/multierr"
)

// Control verbs.
const (
	VerbReset          = "reset"
	VerbStop           = "stop"
	VerbRunPWM         = "run_pwm"
	VerbRunSpeed       = "run_speed"
	VerbMove           = "move"
	VerbMoveTo         = "move_to"
	VerbSetSpeedPID    = "set_speed_pid"
	VerbSetPositionPID = "set_position_pid"
	VerbSetRatio       = "set_ratio"
	VerbSetPPR         = "set_ppr"
	VerbSetPosition    = "set_position"
	VerbSetBLevel      = "set_b_level"
	VerbReadNow        = "read_now"
	VerbGetSpeedPID    = "get_speed_pid"
	VerbGetPositionPID = "get_position_pid"
	VerbGetCalibration = "get_calibration"
)

func (s *Service) handleControl(m *bus.Message) {
	idx, ok := m.Topic.At(3).(int)
	if !ok || idx < 0 || idx >= encodermotor.NumChannels {
		s.replyErr(m, errcode.UnknownChannel)
		return
	}
	verb, _ := m.Topic.At(5).(string)

	val, err := s.dispatch(idx, verb, m.Payload)
	if err != nil {
		s.log.Debugw("control failed", "channel", idx, "verb", verb, "error", err)
		s.replyErr(m, errcode.Of(err))
		return
	}
	if val != nil {
		s.conn.Reply(m, types.ValueReply{OK: true, Value: val})
		return
	}
	s.conn.Reply(m, types.OKReply{OK: true})
}

func (s *Service) replyErr(m *bus.Message, c errcode.Code) {
	s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(c)})
}

// dispatch decodes the payload for verb and runs it on channel i. A non-nil
// value is returned for query verbs.
func (s *Service) dispatch(i int, verb string, payload any) (any, error) {
	switch verb {
	case VerbReset:
		return nil, s.do(i, (*encodermotor.Channel).Reset)
	case VerbStop:
		return nil, s.do(i, (*encodermotor.Channel).Stop)

	case VerbRunPWM:
		p, err := decode[types.MotorRunPWM](payload)
		if err != nil {
			return nil, err
		}
		return nil, s.do(i, func(c *encodermotor.Channel) error { return c.RunPWM(p.PWM) })

	case VerbRunSpeed:
		p, err := decode[types.MotorRunSpeed](payload)
		if err != nil {
			return nil, err
		}
		return nil, s.do(i, func(c *encodermotor.Channel) error { return c.RunSpeed(p.RPM) })

	case VerbMove, VerbMoveTo:
		p, err := decode[types.MotorMove](payload)
		if err != nil {
			return nil, err
		}
		if p.RPM == 0 {
			return nil, &errcode.E{C: errcode.InvalidParams, Op: verb, Msg: "rpm must be > 0"}
		}
		return nil, s.do(i, func(c *encodermotor.Channel) error {
			if verb == VerbMove {
				return c.MovePosition(p.Position, p.RPM)
			}
			return c.MoveTo(p.Position, p.RPM)
		})

	case VerbSetSpeedPID, VerbSetPositionPID:
		p, err := decode[types.PIDGains](payload)
		if err != nil {
			return nil, err
		}
		return nil, s.do(i, func(c *encodermotor.Channel) error {
			if verb == VerbSetSpeedPID {
				return c.SetSpeedPID(p.P, p.I, p.D)
			}
			return c.SetPositionPID(p.P, p.I, p.D)
		})

	case VerbSetRatio, VerbSetPPR, VerbSetBLevel:
		p, err := decode[types.MotorSetU8](payload)
		if err != nil {
			return nil, err
		}
		return nil, s.do(i, func(c *encodermotor.Channel) error {
			switch verb {
			case VerbSetRatio:
				return c.SetReductionRatio(p.Value)
			case VerbSetPPR:
				return c.SetPulsesPerRevolution(p.Value)
			}
			return c.SetPositiveBLevel(p.Value)
		})

	case VerbSetPosition:
		p, err := decode[types.MotorSetPosition](payload)
		if err != nil {
			return nil, err
		}
		return nil, s.do(i, func(c *encodermotor.Channel) error { return c.SetCurrentPosition(p.Position) })

	case VerbReadNow:
		v, err := s.poll(i)
		if err != nil {
			return nil, err
		}
		return v, nil

	case VerbGetSpeedPID, VerbGetPositionPID:
		var pid encodermotor.PID
		err := s.do(i, func(c *encodermotor.Channel) (err error) {
			if verb == VerbGetSpeedPID {
				pid, err = c.SpeedPID()
			} else {
				pid, err = c.PositionPID()
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return types.PIDGains{P: pid.P, I: pid.I, D: pid.D}, nil

	case VerbGetCalibration:
		var cal types.MotorCalibration
		err := s.do(i, func(c *encodermotor.Channel) error {
			var e1, e2, e3 error
			cal.ReductionRatio, e1 = c.ReductionRatio()
			cal.PPR, e2 = c.PulsesPerRevolution()
			cal.PositiveBLevel, e3 = c.PositiveBLevel()
			return multierr.Combine(e1, e2, e3)
		})
		if err != nil {
			// First cause decides the code.
			return nil, multierr.Errors(err)[0]
		}
		return cal, nil
	}
	return nil, &errcode.E{C: errcode.UnknownVerb, Op: verb}
}

func (s *Service) do(i int, fn func(c *encodermotor.Channel) error) error {
	return s.ex.Do(func(b *encodermotor.Board) error { return fn(b.Channel(i)) })
}

// decode accepts T, *T, or JSON ([]byte, json.RawMessage, string).
func decode[T any](p any) (T, error) {
	var v T
	switch x := p.(type) {
	case T:
		return x, nil
	case *T:
		if x != nil {
			return *x, nil
		}
	case []byte:
		return v, decodeJSON(x, &v)
	case json.RawMessage:
		return v, decodeJSON(x, &v)
	case string:
		return v, decodeJSON([]byte(x), &v)
	}
	return v, &errcode.E{C: errcode.InvalidPayload, Msg: "unexpected payload " + typeName(p)}
}

func decodeJSON(b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return &errcode.E{C: errcode.InvalidPayload, Msg: err.Error(), Err: err}
	}
	return nil
}

func typeName(v any) string { return fmt.Sprintf("%T", v) }
