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

package findy

import (
	"fmt"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"

	. "github.com/findy-ble/findy/fdxact/bledefs"
	"github.com/findy-ble/findy/fdxact/fdxutil"
	"github.com/findy-ble/findy/fdxact/hw"
	"github.com/findy-ble/findy/fdxact/melody"
	"github.com/findy-ble/findy/fdxact/simble"
	"github.com/findy-ble/findy/fdxact/task"
)

type testEnv struct {
	dev    *Device
	pwm    *hw.SimPwm
	adc    *hw.SimAdc
	srv    *simble.SimServer
	q      *task.TaskQueue
	delays []time.Duration
}

func newTestEnv(t *testing.T, melodyPeriod time.Duration,
	samplePeriod time.Duration) *testEnv {

	e := &testEnv{
		pwm: hw.NewSimPwm(),
		adc: hw.NewSimAdc(0.5),
		srv: simble.NewSimServer(nil),
	}

	cfg := NewDeviceCfg()
	cfg.MelodyPeriod = melodyPeriod
	cfg.SamplePeriod = samplePeriod
	cfg.Delay = func(d time.Duration) {
		e.delays = append(e.delays, d)
	}

	dev, err := NewDevice(cfg, e.pwm, e.adc)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	e.dev = dev

	q := task.NewTaskQueue("test")
	if err := q.Start(8); err != nil {
		t.Fatalf("start queue: %v", err)
	}
	e.q = &q

	if err := dev.Start(e.srv, e.q); err != nil {
		t.Fatalf("start device: %v", err)
	}

	return e
}

// Periodic jobs effectively never fire; tests drive them by hand.
func newManualEnv(t *testing.T) *testEnv {
	return newTestEnv(t, time.Hour, time.Hour)
}

func (e *testEnv) stop() {
	e.srv.WaitSent()
	e.q.Stop(fmt.Errorf("done"))
}

func (e *testEnv) tick(t *testing.T) {
	if err := e.q.Run(e.dev.Player().Tick); err != nil {
		t.Fatalf("melody tick: %v", err)
	}
}

func (e *testEnv) state(t *testing.T) melody.State {
	st, err := e.dev.MelodyState()
	if err != nil {
		t.Fatalf("melody state: %v", err)
	}
	return st
}

func (e *testEnv) write(t *testing.T, h uint16, data ...byte) BleAttErrCode {
	rc, err := e.srv.Write(h, 0, data)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return rc
}

func (e *testEnv) read(t *testing.T, h uint16) byte {
	val, rc, err := e.srv.Read(h)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if rc != ERR_CODE_ATT_SUCCESS {
		t.Fatalf("read returned %s", rc.String())
	}
	if len(val) != 1 {
		t.Fatalf("read returned %d bytes; want 1", len(val))
	}
	return val[0]
}

func TestHandles(t *testing.T) {
	e := newManualEnv(t)
	defer e.stop()

	if e.dev.BatteryHandle() != 3 || e.dev.BuzzerHandle() != 7 {
		t.Errorf("unexpected handles: battery=%d buzzer=%d",
			e.dev.BatteryHandle(), e.dev.BuzzerHandle())
	}

	for _, a := range e.dev.Store().Attrs() {
		if a.Size() != 1 {
			t.Errorf("%s is %d bytes; want 1", a.Name, a.Size())
		}
		if a.Flags != BLE_GATT_F_RWNI {
			t.Errorf("%s has flags 0x%x", a.Name, int(a.Flags))
		}
	}
}

func TestStartTwice(t *testing.T) {
	e := newManualEnv(t)
	defer e.stop()

	err := e.dev.Start(simble.NewSimServer(nil), e.q)
	if !fdxutil.IsAlready(err) {
		t.Errorf("second Start() = %v; want AlreadyError", err)
	}
}

func TestStartInactiveQueue(t *testing.T) {
	dev, err := NewDevice(NewDeviceCfg(), hw.NewSimPwm(), hw.NewSimAdc(0))
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}

	q := task.NewTaskQueue("test")
	if err := dev.Start(simble.NewSimServer(nil), &q); err != task.InactiveError {
		t.Errorf("Start() on inactive queue = %v", err)
	}
}

func TestBuzzerActivation(t *testing.T) {
	e := newManualEnv(t)
	defer e.stop()

	// Only command 1 starts the melody.
	for _, v := range []byte{0, 2, 59} {
		if rc := e.write(t, e.dev.BuzzerHandle(), v); rc != ERR_CODE_ATT_SUCCESS {
			t.Fatalf("write %d: %s", v, rc.String())
		}
		if st := e.state(t); st.Active {
			t.Fatalf("melody active after writing %d", v)
		}
	}

	// Rejected writes have no effect.
	if rc := e.write(t, e.dev.BuzzerHandle(), 1, 1); rc !=
		ERR_CODE_ATT_INVALID_ATTR_VALUE_LEN {

		t.Fatalf("two-byte write returned %s", rc.String())
	}
	if st := e.state(t); st.Active {
		t.Fatalf("melody active after rejected write")
	}

	e.write(t, e.dev.BuzzerHandle(), 1)
	st := e.state(t)
	if !st.Active || st.Progress != 0 {
		t.Fatalf("after activation: %s", st.String())
	}

	e.tick(t)
	e.tick(t)

	// Writing 1 again doesn't restart the melody.
	e.write(t, e.dev.BuzzerHandle(), 1)
	st = e.state(t)
	if !st.Active || st.Progress != 2 {
		t.Fatalf("after reactivation: %s", st.String())
	}
}

func TestMelodyEndToEnd(t *testing.T) {
	e := newManualEnv(t)
	defer e.stop()

	if rc := e.write(t, e.dev.BuzzerHandle(), 1); rc != ERR_CODE_ATT_SUCCESS {
		t.Fatalf("write returned %s", rc.String())
	}

	for i := 0; i < melody.NumPatterns; i++ {
		st := e.state(t)
		if !st.Active || int(st.Progress) != i {
			t.Fatalf("before tick %d: %s", i+1, st.String())
		}

		before := len(e.pwm.Events())
		e.tick(t)
		after := len(e.pwm.Events())

		// One period and one duty cycle change per step.
		if want := 2 * len(melody.Patterns[i]); after-before != want {
			t.Errorf("tick %d: %d buzzer changes; want %d", i+1,
				after-before, want)
		}
	}

	st := e.state(t)
	if st.Active || st.Progress != 0 {
		t.Fatalf("after 4 ticks: %s", st.String())
	}

	// Fifth tick is a no-op.
	before := len(e.pwm.Events())
	e.tick(t)
	if len(e.pwm.Events()) != before {
		t.Errorf("idle tick drove the buzzer")
	}
	if st := e.state(t); st.Active || st.Progress != 0 {
		t.Errorf("after idle tick: %s", st.String())
	}

	var total time.Duration
	for _, d := range e.delays {
		total += d
	}
	if total != 2530*time.Millisecond {
		t.Errorf("melody held the buzzer for %s; want 2.53s", total)
	}
}

func TestBatteryRead(t *testing.T) {
	e := newManualEnv(t)
	defer e.stop()

	if err := e.srv.Subscribe(e.dev.BatteryHandle(), true, false); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if v := e.read(t, e.dev.BatteryHandle()); v != 50 {
		t.Errorf("battery level = %d; want 50", v)
	}

	// Every read takes a fresh sample.
	e.adc.Set(0.25)
	if v := e.read(t, e.dev.BatteryHandle()); v != 25 {
		t.Errorf("battery level = %d; want 25", v)
	}
	if e.adc.Reads() != 2 {
		t.Errorf("ADC read %d times; want 2", e.adc.Reads())
	}

	// Reading the buzzer doesn't sample.
	e.read(t, e.dev.BuzzerHandle())
	if e.adc.Reads() != 2 {
		t.Errorf("buzzer read sampled the ADC")
	}

	pushes := e.srv.Pushes()
	if len(pushes) != 2 || pushes[0].Value[0] != 50 ||
		pushes[1].Value[0] != 25 {

		t.Errorf("unexpected pushes: %+v", pushes)
	}

	// A failed sample leaves the stored level alone.
	e.adc.SetErr(fdxutil.NewHwError("adc", "unplugged"))
	if v := e.read(t, e.dev.BatteryHandle()); v != 25 {
		t.Errorf("battery level = %d after failed sample; want 25", v)
	}
}

func TestBatteryWrite(t *testing.T) {
	e := newManualEnv(t)
	defer e.stop()

	h := e.dev.BatteryHandle()
	if rc := e.write(t, h, 30); rc != ERR_CODE_ATT_WRITE_NOT_PERMITTED {
		t.Errorf("write 30 returned %s", rc.String())
	}
	if rc := e.write(t, h, 23); rc != ERR_CODE_ATT_SUCCESS {
		t.Errorf("write 23 returned %s", rc.String())
	}

	var v byte
	e.q.Run(func() error {
		v, _ = e.dev.Store().Get(h)
		return nil
	})
	if v != 23 {
		t.Errorf("battery level = %d; want 23", v)
	}

	// Writing 1 to the battery doesn't start the melody.
	e.write(t, h, 1)
	if e.state(t).Active {
		t.Errorf("battery write started the melody")
	}
}

func TestSampleUpdate(t *testing.T) {
	e := newManualEnv(t)
	defer e.stop()

	e.adc.Set(0.5)
	if err := e.q.Run(e.dev.Sampler().Update); err != nil {
		t.Fatalf("update: %v", err)
	}

	var v byte
	e.q.Run(func() error {
		v, _ = e.dev.Store().Get(e.dev.BatteryHandle())
		return nil
	})
	if v != 50 {
		t.Errorf("battery level = %d; want 50", v)
	}
}

func TestPeriodicJobs(t *testing.T) {
	e := newTestEnv(t, 5*time.Millisecond, 5*time.Millisecond)
	defer e.stop()

	e.adc.Set(0.75)
	e.write(t, e.dev.BuzzerHandle(), 1)

	deadline := time.Now().Add(2 * time.Second)
	for {
		var level byte
		var st melody.State
		e.q.Run(func() error {
			level, _ = e.dev.Store().Get(e.dev.BatteryHandle())
			st = e.dev.Player().State()
			return nil
		})

		if level == 75 && !st.Active &&
			len(e.pwm.Events()) == 18 {

			return
		}

		if time.Now().After(deadline) {
			t.Fatalf("periodic jobs did not run: level=%d melody=%s "+
				"buzzer changes=%d", level, st.String(), len(e.pwm.Events()))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMelodyStateStoppedQueue(t *testing.T) {
	e := newManualEnv(t)
	e.stop()

	if _, err := e.dev.MelodyState(); err != task.InactiveError {
		t.Errorf("MelodyState() on stopped queue = %v; want %v", err,
			task.InactiveError)
	}
}

func TestStartLogsStoreHandles(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	e := newManualEnv(t)
	defer e.stop()

	want := map[string]bool{
		"Battery level store handle: 3":  false,
		"Buzzer command store handle: 7": false,
	}
	for _, entry := range hook.AllEntries() {
		if _, ok := want[entry.Message]; ok {
			want[entry.Message] = true
		}
	}
	for msg, seen := range want {
		if !seen {
			t.Errorf("missing log entry \"%s\"", msg)
		}
	}
}
