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
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// A single PWM configuration change recorded by SimPwm.
type PwmEvent struct {
	Period float64
	Duty   float64
}

func (e PwmEvent) String() string {
	if e.Period == 0 {
		return "silent"
	}
	return fmt.Sprintf("%.0fHz@%.2f", 1/e.Period, e.Duty)
}

// Buzzer stand-in.  Records every configuration change.
type SimPwm struct {
	mtx    sync.Mutex
	period float64
	duty   float64
	events []PwmEvent
}

func NewSimPwm() *SimPwm {
	return &SimPwm{}
}

func (p *SimPwm) record() {
	ev := PwmEvent{Period: p.period, Duty: p.duty}
	p.events = append(p.events, ev)
	log.Debugf("sim pwm: %s", ev.String())
}

func (p *SimPwm) SetPeriod(seconds float64) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.period = seconds
	p.record()
	return nil
}

func (p *SimPwm) SetDutyCycle(fraction float64) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.duty = clampUnit(fraction)
	p.record()
	return nil
}

func (p *SimPwm) Events() []PwmEvent {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return append([]PwmEvent(nil), p.events...)
}

func (p *SimPwm) Reset() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.events = nil
}

// Analog input with a settable sample.  An injected error is returned by
// every read until cleared.
type SimAdc struct {
	mtx   sync.Mutex
	value float64
	err   error
	reads int
}

func NewSimAdc(value float64) *SimAdc {
	return &SimAdc{value: value}
}

func (a *SimAdc) Set(value float64) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.value = value
}

func (a *SimAdc) SetErr(err error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.err = err
}

func (a *SimAdc) Reads() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.reads
}

func (a *SimAdc) Read() (float64, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.reads++
	if a.err != nil {
		return 0, a.err
	}
	return a.value, nil
}
