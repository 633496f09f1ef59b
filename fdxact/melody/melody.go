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

// Package melody plays the four-beep buzzer melody, one beep per tick.
package melody

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/findy-ble/findy/fdxact/hw"
)

// Buzzer tone period in seconds (~3.95 kHz).
const TonePeriod = 0.000253

const volOffset = 0.2

func volLevel(n int) float64 {
	return float64(n)/10 + volOffset
}

var (
	VolLevel2 = volLevel(2)
	VolLevel3 = volLevel(3)
	VolLevel4 = volLevel(4)
	VolLevel6 = volLevel(6)
)

// One buzzer setting held for a fixed duration.  A zero period is silence.
type Step struct {
	Period float64
	Duty   float64
	Hold   time.Duration
}

func (s Step) String() string {
	if s.Period == 0 {
		return fmt.Sprintf("silence %s", s.Hold)
	}
	return fmt.Sprintf("tone@%.1f %s", s.Duty, s.Hold)
}

type Pattern []Step

func (p Pattern) Duration() time.Duration {
	var d time.Duration
	for _, s := range p {
		d += s.Hold
	}
	return d
}

func tone(duty float64, hold time.Duration) Step {
	return Step{Period: TonePeriod, Duty: duty, Hold: hold}
}

func silence(hold time.Duration) Step {
	return Step{Period: 0, Duty: VolLevel2, Hold: hold}
}

const NumPatterns = 4

var Patterns = [NumPatterns]Pattern{
	{
		tone(VolLevel4, 300*time.Millisecond),
		silence(10 * time.Millisecond),
	},
	{
		tone(VolLevel4, 300*time.Millisecond),
		silence(10 * time.Millisecond),
	},
	// Two-tone swell.
	{
		tone(VolLevel3, 300*time.Millisecond),
		tone(VolLevel6, 300*time.Millisecond),
		silence(10 * time.Millisecond),
	},
	{
		tone(VolLevel4, 300*time.Millisecond),
		silence(1000 * time.Millisecond),
	},
}

type State struct {
	// Index of the next pattern to play; always < NumPatterns.
	Progress uint8
	Active   bool
}

func (s State) String() string {
	return fmt.Sprintf("active=%t progress=%d", s.Active, s.Progress)
}

// Player owns the melody state.  It is not safe for concurrent use; the
// device only touches it from its work queue.
type Player struct {
	pwm   hw.PwmOut
	delay func(time.Duration)
	state State
}

// A nil delay function selects time.Sleep.
func NewPlayer(pwm hw.PwmOut, delay func(time.Duration)) *Player {
	if delay == nil {
		delay = time.Sleep
	}

	return &Player{
		pwm:   pwm,
		delay: delay,
	}
}

func (p *Player) State() State {
	return p.state
}

// Activate starts the melody.  It does not reset the progress of a melody
// that is already playing.  Returns true if the player was idle.
func (p *Player) Activate() bool {
	if p.state.Active {
		return false
	}

	p.state.Active = true
	return true
}

// Tick plays the next pattern of an active melody.  It blocks for the
// duration of the pattern.
func (p *Player) Tick() error {
	if !p.state.Active {
		return nil
	}

	idx := p.state.Progress
	log.Debugf("melody: playing pattern %d", idx+1)
	p.play(Patterns[idx])

	p.state.Progress++
	if p.state.Progress >= NumPatterns {
		p.state = State{}
		log.Debugf("melody: done")
	}

	return nil
}

// PlayAll plays every pattern once without touching the melody state.
// progress, if non-nil, is called after each pattern.
func (p *Player) PlayAll(progress func(idx int)) {
	for i, pat := range Patterns {
		p.play(pat)
		if progress != nil {
			progress(i)
		}
	}
}

func (p *Player) play(pat Pattern) {
	for _, s := range pat {
		if err := p.pwm.SetPeriod(s.Period); err != nil {
			log.Errorf("melody: failed to set buzzer period: %s",
				err.Error())
		}
		if err := p.pwm.SetDutyCycle(s.Duty); err != nil {
			log.Errorf("melody: failed to set buzzer duty cycle: %s",
				err.Error())
		}
		p.delay(s.Hold)
	}
}
