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

// Package findy implements the Findy peripheral: a battery level
// characteristic and a buzzer command characteristic, a melody played on
// demand and a periodic battery sample, all serialized on a single task
// queue.
package findy

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	. "github.com/findy-ble/findy/fdxact/bledefs"
	"github.com/findy-ble/findy/fdxact/fdxutil"
	"github.com/findy-ble/findy/fdxact/gatts"
	"github.com/findy-ble/findy/fdxact/hw"
	"github.com/findy-ble/findy/fdxact/melody"
	"github.com/findy-ble/findy/fdxact/sensor"
	"github.com/findy-ble/findy/fdxact/task"
)

// Buzzer command that starts the melody.
const BuzzCmdPlay = 1

type DeviceCfg struct {
	MelodyPeriod time.Duration
	SamplePeriod time.Duration

	// Blocking delay used between buzzer steps; nil means time.Sleep.
	Delay func(time.Duration)
}

func NewDeviceCfg() DeviceCfg {
	return DeviceCfg{
		MelodyPeriod: 1000 * time.Millisecond,
		SamplePeriod: 2000 * time.Millisecond,
	}
}

type Device struct {
	cfg     DeviceCfg
	store   *gatts.AttrStore
	player  *melody.Player
	sampler *sensor.Sampler

	battHandle uint16
	buzzHandle uint16

	// Set by Start.
	q *task.TaskQueue
}

func NewDevice(cfg DeviceCfg, pwm hw.PwmOut, adc hw.AnalogIn) (*Device, error) {
	d := &Device{
		cfg:    cfg,
		store:  gatts.NewAttrStore(),
		player: melody.NewPlayer(pwm, cfg.Delay),
	}

	if err := d.store.Register(d.services()); err != nil {
		return nil, err
	}

	batt := d.store.FindByUuid(MustParseUuid(BattSvcUuid),
		MustParseUuid(BattLevelChrUuid))
	buzz := d.store.FindByUuid(MustParseUuid(BuzzSvcUuid),
		MustParseUuid(BuzzCmdChrUuid))
	if batt == nil || buzz == nil {
		return nil, fmt.Errorf("Device characteristics not registered")
	}
	d.battHandle = batt.ValHandle
	d.buzzHandle = buzz.ValHandle

	d.sampler = sensor.NewSampler(adc, d.store, d.battHandle)

	return d, nil
}

func (d *Device) services() []BleSvc {
	return []BleSvc{
		BleSvc{
			Uuid:    MustParseUuid(BattSvcUuid),
			SvcType: BLE_SVC_TYPE_PRIMARY,
			Chrs: []BleChr{
				BleChr{
					Uuid:        MustParseUuid(BattLevelChrUuid),
					Name:        "battery level",
					Flags:       BLE_GATT_F_RWNI,
					Value:       []byte{0},
					WriteAuthCb: d.authorizeWrite,
				},
			},
		},
		BleSvc{
			Uuid:    MustParseUuid(BuzzSvcUuid),
			SvcType: BLE_SVC_TYPE_PRIMARY,
			Chrs: []BleChr{
				BleChr{
					Uuid:        MustParseUuid(BuzzCmdChrUuid),
					Name:        "buzzer command",
					Flags:       BLE_GATT_F_RWNI,
					Value:       []byte{0},
					WriteAuthCb: d.authorizeWrite,
				},
			},
		},
	}
}

// Start serves the device's attributes over srv and schedules the melody
// and battery sampling jobs on q.  q must already be running; every BLE
// access and periodic job runs on it.
func (d *Device) Start(srv gatts.Server, q *task.TaskQueue) error {
	if d.q != nil {
		return fdxutil.NewAlreadyError("Device already started")
	}
	if !q.Active() {
		return task.InactiveError
	}

	if err := srv.Serve(d.store, gatts.NewDispatcher(d.store, d, q)); err != nil {
		return err
	}
	d.q = q

	// The transport may number attributes differently on the air.
	log.Infof("Battery level store handle: %d", d.battHandle)
	log.Infof("Buzzer command store handle: %d", d.buzzHandle)

	if err := q.CallEvery(d.cfg.MelodyPeriod, "melody",
		d.player.Tick); err != nil {

		return err
	}
	if err := q.CallEvery(d.cfg.SamplePeriod, "battery sample",
		d.sampler.Update); err != nil {

		return err
	}

	return nil
}

func (d *Device) Store() *gatts.AttrStore {
	return d.store
}

func (d *Device) Player() *melody.Player {
	return d.player
}

func (d *Device) Sampler() *sensor.Sampler {
	return d.sampler
}

func (d *Device) BatteryHandle() uint16 {
	return d.battHandle
}

func (d *Device) BuzzerHandle() uint16 {
	return d.buzzHandle
}

func (d *Device) SetTelemetrySink(sink sensor.Sink) {
	d.sampler.SetSink(sink)
}

// Runs fn on the device's queue once the device is started; directly
// otherwise.  Must not be called from a queue job.
func (d *Device) Exec(fn func() error) error {
	if d.q == nil {
		return fn()
	}
	return d.q.Run(fn)
}

// MelodyState returns a snapshot of the melody state.  Fails with
// task.InactiveError once the device's queue has stopped.  Must not be called
// from a queue job.
func (d *Device) MelodyState() (melody.State, error) {
	var st melody.State
	err := d.Exec(func() error {
		st = d.player.State()
		return nil
	})
	if err != nil {
		return melody.State{}, err
	}
	return st, nil
}

func (d *Device) chrName(attHandle uint16) string {
	a := d.store.FindByHandle(attHandle)
	if a == nil {
		return "???"
	}
	return a.Name
}

func (d *Device) OnDataWritten(w BleGattWrite) {
	log.Infof("Data written: chr=%s %s", d.chrName(w.AttHandle),
		w.String())

	if w.AttHandle == d.buzzHandle && len(w.Data) > 0 &&
		w.Data[0] == BuzzCmdPlay {

		if d.player.Activate() {
			log.Infof("Melody activated")
		}
	}
}

func (d *Device) OnDataRead(r BleGattRead) {
	log.Debugf("Data read: peer=%s chr=%s att_handle=%d", r.Peer,
		d.chrName(r.AttHandle), r.AttHandle)

	if r.AttHandle == d.battHandle {
		if _, err := d.sampler.Refresh(); err != nil {
			log.Errorf("Failed to refresh battery level: %s", err.Error())
		}
	}
}

func (d *Device) OnDataSent(s BleGattSent) {
	kind := "notification"
	if s.Indicate {
		kind = "indication"
	}

	log.Debugf("Data sent: %s peer=%s chr=%s att_handle=%d", kind, s.Peer,
		d.chrName(s.AttHandle), s.AttHandle)
}
