//go:build rp2040 || rp2350

// Command pico-motor-demo sweeps every channel of an encoder-motor board
// through a speed ramp and prints telemetry on the USB console.
package main

import (
	"machine"
	"time"

	"encodermotor-go/drivers/encodermotor"
	"encodermotor-go/x/ramp"
)

const (
	busHz     = 100_000
	sweepRPM  = 120
	rampTime  = 2 * time.Second
	rampSteps = 20
	dwell     = 3 * time.Second
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
		Frequency: busHz,
	}); err != nil {
		println("i2c configure:", err.Error())
		return
	}

	b := encodermotor.New(encodermotor.DefaultConfig())
	for {
		err := b.Initialize(encodermotor.NewI2C(i2c))
		if err == nil {
			break
		}
		println("board init:", err.Error())
		time.Sleep(time.Second)
	}
	if v, err := b.Version(); err == nil {
		println("firmware version", v)
	}

	for {
		for i, ch := range b.All() {
			println("channel", i, "forward")
			sweep(ch, sweepRPM)
			println("channel", i, "reverse")
			sweep(ch, -sweepRPM)
			if err := ch.Stop(); err != nil {
				println("stop:", err.Error())
			}
		}
	}
}

// sweep ramps ch to rpm, holds it while printing telemetry, then ramps back
// to zero.
func sweep(ch *encodermotor.Channel, rpm int16) {
	if err := ramp.Linear(0, rpm, rampTime, rampSteps, ramp.Sleep, ch.RunSpeed); err != nil {
		println("ramp:", err.Error())
		return
	}
	for end := time.Now().Add(dwell); time.Now().Before(end); {
		report(ch)
		time.Sleep(500 * time.Millisecond)
	}
	if err := ramp.Linear(rpm, 0, rampTime, rampSteps, ramp.Sleep, ch.RunSpeed); err != nil {
		println("ramp:", err.Error())
	}
}

func report(ch *encodermotor.Channel) {
	pwm, err := ch.CurrentPWM()
	if err != nil {
		println("read:", err.Error())
		return
	}
	rpm, _ := ch.CurrentSpeed()
	pos, _ := ch.CurrentPosition()
	println("  ch", ch.Index(), "pwm", pwm, "rpm", int32(rpm), "pos", pos)
}
