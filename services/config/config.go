package config

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"encodermotor-go/bus"
	"encodermotor-go/drivers/encodermotor"
	"encodermotor-go/errcode"
	"encodermotor-go/types"
	"encodermotor-go/x/mathx"

	"github.com/andreyvit/tinyjson"
	"go.uber.org/zap"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	motorKey     = "motor"
)

// Poll interval bounds applied to motor configs.
const (
	DefaultPollInterval = 500 * time.Millisecond
	MinPollInterval     = 20 * time.Millisecond
	MaxPollInterval     = time.Minute
)

type ctxKey struct{}

// WithDevice stores the device ID used to pick the embedded config.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ctxKey{}, device)
}

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// TopicMotor is where the decoded motor board config is retained.
var TopicMotor = bus.T(configPrefix, motorKey)

// -----------------------------------------------------------------------------
// Decoding
// -----------------------------------------------------------------------------

// DecodeMotor parses a motor board config, fills defaults and checks the
// channel list. Numeric fields out of their wire range fail to decode.
func DecodeMotor(raw []byte) (types.MotorBoardConfig, error) {
	var c types.MotorBoardConfig
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, &errcode.E{C: errcode.InvalidPayload, Op: "decode_motor", Msg: err.Error(), Err: err}
	}
	return Normalise(c)
}

// Normalise applies defaults and bounds to c.
func Normalise(c types.MotorBoardConfig) (types.MotorBoardConfig, error) {
	if c.Address == 0 {
		c.Address = encodermotor.DefaultAddress
	}
	if c.Address > 0x7F {
		return c, &errcode.E{C: errcode.InvalidParams, Op: "decode_motor", Msg: "address must be 7-bit"}
	}
	iv := DefaultPollInterval
	if c.PollIntervalMs != 0 {
		iv = mathx.Clamp(time.Duration(c.PollIntervalMs)*time.Millisecond, MinPollInterval, MaxPollInterval)
	}
	c.PollIntervalMs = uint32(iv / time.Millisecond)

	seen := map[uint8]bool{}
	for _, ch := range c.Channels {
		if ch.Index >= encodermotor.NumChannels {
			return c, &errcode.E{C: errcode.UnknownChannel, Op: "decode_motor", Msg: "channel " + strconv.Itoa(int(ch.Index))}
		}
		if seen[ch.Index] {
			return c, &errcode.E{C: errcode.InvalidParams, Op: "decode_motor", Msg: "duplicate channel " + strconv.Itoa(int(ch.Index))}
		}
		seen[ch.Index] = true
		if ch.PositiveBLevel != nil && *ch.PositiveBLevel > 1 {
			return c, &errcode.E{C: errcode.InvalidParams, Op: "decode_motor", Msg: "positive_b_level must be 0 or 1"}
		}
	}
	return c, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

// ConfigService publishes the device configuration as retained messages, one
// per top-level key. The "motor" key is published decoded.
type ConfigService struct {
	Name string
	log  *zap.SugaredLogger
	raw  []byte
}

func NewConfigService(log *zap.SugaredLogger) *ConfigService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ConfigService{Name: serviceName, log: log.Named(serviceName)}
}

// WithRaw makes the service publish raw instead of the embedded config.
func (s *ConfigService) WithRaw(raw []byte) *ConfigService {
	s.raw = raw
	return s
}

func (s *ConfigService) source(ctx context.Context) ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	device, _ := ctx.Value(ctxKey{}).(string)
	if device == "" {
		return nil, errors.New("missing device ID in context")
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for device: " + device)
	}
	return raw, nil
}

type entry struct {
	key   string
	value any
}

// parse splits the top-level object into one entry per key. The "motor"
// value is decoded into types.MotorBoardConfig; everything else is kept as
// tinyjson produces it.
func parse(raw []byte) (out []entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg, ok := r.(string)
			if !ok {
				msg = "invalid JSON"
			}
			err = &errcode.E{C: errcode.InvalidPayload, Op: "parse_config", Msg: msg}
		}
	}()

	r := tinyjson.Raw(raw)
	if r.Peek() != tinyjson.StartObject {
		return nil, &errcode.E{C: errcode.InvalidPayload, Op: "parse_config", Msg: "config is not a JSON object"}
	}
	for key := r.StartObject(); key != nil; key = r.ContinueObject() {
		k := key.Str()
		if k != motorKey {
			out = append(out, entry{k, r.Value()})
			continue
		}
		// Slice the raw motor value out for typed decoding.
		before := r
		r.Skip()
		mc, err := DecodeMotor(before[:len(before)-len(r)])
		if err != nil {
			return nil, err
		}
		out = append(out, entry{k, mc})
	}
	r.EnsureEOF()
	return out, nil
}

// Publish reads the config and publishes every top-level key retained. A
// config that fails to parse publishes nothing.
func (s *ConfigService) Publish(ctx context.Context, conn *bus.Connection) error {
	raw, err := s.source(ctx)
	if err != nil {
		return err
	}
	entries, err := parse(raw)
	if err != nil {
		return err
	}
	for _, e := range entries {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, e.key), e.value, true))
		s.log.Debugw("published", "key", e.key)
	}
	return nil
}

// Motor returns the decoded motor section, or its defaults when the config
// has none.
func (s *ConfigService) Motor(ctx context.Context) (types.MotorBoardConfig, error) {
	raw, err := s.source(ctx)
	if err != nil {
		return types.MotorBoardConfig{}, err
	}
	entries, err := parse(raw)
	if err != nil {
		return types.MotorBoardConfig{}, err
	}
	for _, e := range entries {
		if e.key == motorKey {
			return e.value.(types.MotorBoardConfig), nil
		}
	}
	return Normalise(types.MotorBoardConfig{})
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.Publish(ctx, conn); err != nil {
			s.log.Errorw("publish failed", "error", err)
		}
	}()
}
