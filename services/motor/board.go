package motor

import (
	"encodermotor-go/drivers/encodermotor"
	"encodermotor-go/types"
)

// BoardConfig maps the board-level fields of a motor config onto the driver
// config. Address and strictness are fixed once the board is built; later
// config updates only change calibration and the poll interval.
func BoardConfig(cfg types.MotorBoardConfig) encodermotor.Config {
	c := encodermotor.DefaultConfig()
	if cfg.Address != 0 {
		c.Address = cfg.Address
	}
	c.StrictReads = cfg.StrictReads
	return c
}
