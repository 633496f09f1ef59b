/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package hw

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/findy-ble/findy/fdxact/fdxutil"
)

var hostInitDone bool

// InitHost loads the periph host drivers.  Safe to call more than once.
func InitHost() error {
	if hostInitDone {
		return nil
	}

	if _, err := host.Init(); err != nil {
		return errors.Wrapf(err, "periph host init failed")
	}

	hostInitDone = true
	return nil
}

// PWM on a GPIO pin that supports hardware PWM (e.g., "GPIO18" on a
// Raspberry Pi).
type PeriphPwm struct {
	name   string
	pin    gpio.PinIO
	period time.Duration
	duty   float64
}

func NewPeriphPwm(pinName string) (*PeriphPwm, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fdxutil.NewHwError(pinName, "no such pin")
	}

	return &PeriphPwm{
		name: pinName,
		pin:  pin,
	}, nil
}

func (p *PeriphPwm) SetPeriod(seconds float64) error {
	if seconds < 0 {
		return fdxutil.FmtHwError(p.name, "negative period: %f", seconds)
	}

	p.period = time.Duration(seconds * float64(time.Second))
	return p.apply()
}

func (p *PeriphPwm) SetDutyCycle(fraction float64) error {
	p.duty = clampUnit(fraction)
	return p.apply()
}

func (p *PeriphPwm) apply() error {
	if p.period <= 0 {
		if err := p.pin.Out(gpio.Low); err != nil {
			return fdxutil.FmtHwError(p.name, "%s", err.Error())
		}
		return nil
	}

	duty := gpio.Duty(p.duty * float64(gpio.DutyMax))
	freq := physic.PeriodToFrequency(p.period)
	if err := p.pin.PWM(duty, freq); err != nil {
		return fdxutil.FmtHwError(p.name, "%s", err.Error())
	}

	log.Debugf("pwm %s: duty=%s freq=%s", p.name, duty.String(),
		freq.String())
	return nil
}

func (p *PeriphPwm) Halt() error {
	return p.pin.Halt()
}

type AdcCfg struct {
	// I2C bus name; "" selects the first bus.
	Bus     string
	Addr    uint16
	Channel int
	// Input voltage mapped to a normalized sample of 1.0.
	FullScaleMv int
}

func NewAdcCfg() AdcCfg {
	return AdcCfg{
		Addr:        0x48,
		Channel:     0,
		FullScaleMv: 1800,
	}
}

var adsChannels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// Single-ended ADS1115 channel read over I2C.
type PeriphAdc struct {
	cfg       AdcCfg
	bus       i2c.BusCloser
	pin       ads1x15.PinADC
	fullScale physic.ElectricPotential
}

func NewPeriphAdc(cfg AdcCfg) (*PeriphAdc, error) {
	if cfg.Channel < 0 || cfg.Channel >= len(adsChannels) {
		return nil, errors.Errorf("invalid ADC channel: %d", cfg.Channel)
	}
	if cfg.FullScaleMv <= 0 {
		return nil, errors.Errorf("invalid ADC full scale: %d mV",
			cfg.FullScaleMv)
	}

	if err := InitHost(); err != nil {
		return nil, err
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open I2C bus \"%s\"",
			cfg.Bus)
	}

	opts := ads1x15.DefaultOpts
	opts.I2cAddress = cfg.Addr

	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, errors.Wrapf(err, "failed to open ADS1115 at 0x%02x",
			cfg.Addr)
	}

	fullScale := physic.ElectricPotential(cfg.FullScaleMv) * physic.MilliVolt
	pin, err := dev.PinForChannel(adsChannels[cfg.Channel], fullScale,
		1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, errors.Wrapf(err, "failed to configure ADC channel %d",
			cfg.Channel)
	}

	return &PeriphAdc{
		cfg:       cfg,
		bus:       bus,
		pin:       pin,
		fullScale: fullScale,
	}, nil
}

func (a *PeriphAdc) Read() (float64, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, fdxutil.FmtHwError(a.pin.Name(), "%s", err.Error())
	}

	return clampUnit(float64(s.V) / float64(a.fullScale)), nil
}

func (a *PeriphAdc) Close() error {
	if err := a.pin.Halt(); err != nil {
		log.Debugf("failed to halt ADC pin: %s", err.Error())
	}
	return a.bus.Close()
}
