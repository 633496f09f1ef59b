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

// Package sensor converts battery divider samples into a battery level and
// keeps the battery level attribute current.
package sensor

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/findy-ble/findy/fdxact/gatts"
	"github.com/findy-ble/findy/fdxact/hw"
)

const (
	// ADC input range and battery divider ratio.
	AdcRangeMv   = 1800
	DividerRatio = 2

	FullChargeMv = 3600
)

// Millivolts converts a normalized sample to the battery voltage in mV.
func Millivolts(sample float64) float64 {
	return sample * AdcRangeMv * DividerRatio
}

// Percent converts a battery voltage to a charge percentage.
func Percent(mv float64) float64 {
	return mv / FullChargeMv * 100
}

// Level is the one-byte battery level for a sample.  Samples are clamped to
// [0,1] so the level never exceeds 100.
func Level(sample float64) uint8 {
	return uint8(Percent(Millivolts(clampSample(sample))))
}

func clampSample(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type Reading struct {
	Sample float64
	Mv     float64
	Level  uint8
}

func (r Reading) String() string {
	return fmt.Sprintf("%.0f mV (%d%%)", r.Mv, r.Level)
}

// Destination for battery telemetry.
type Sink interface {
	PublishBattery(mv float64, level uint8) error
}

type Sampler struct {
	adc    hw.AnalogIn
	store  *gatts.AttrStore
	handle uint16
	sink   Sink
}

func NewSampler(adc hw.AnalogIn, store *gatts.AttrStore,
	battHandle uint16) *Sampler {

	return &Sampler{
		adc:    adc,
		store:  store,
		handle: battHandle,
	}
}

func (s *Sampler) SetSink(sink Sink) {
	s.sink = sink
}

func (s *Sampler) Sample() (Reading, error) {
	v, err := s.adc.Read()
	if err != nil {
		return Reading{}, err
	}

	v = clampSample(v)
	mv := Millivolts(v)
	return Reading{
		Sample: v,
		Mv:     mv,
		Level:  uint8(Percent(mv)),
	}, nil
}

// Refresh takes a fresh sample and stores it in the battery level attribute,
// notifying subscribers.  The attribute is left untouched if the read fails.
func (s *Sampler) Refresh() (Reading, error) {
	r, err := s.Sample()
	if err != nil {
		return r, err
	}

	if err := s.store.Set(s.handle, r.Level); err != nil {
		return r, err
	}

	return r, nil
}

// Update is the periodic sampling job.
func (s *Sampler) Update() error {
	r, err := s.Refresh()
	if err != nil {
		log.Errorf("battery sample failed: %s", err.Error())
		return err
	}

	log.Infof("Vbatt: %.0f mV", r.Mv)

	if s.sink != nil {
		if err := s.sink.PublishBattery(r.Mv, r.Level); err != nil {
			log.Warnf("failed to publish battery telemetry: %s",
				err.Error())
		}
	}

	return nil
}
