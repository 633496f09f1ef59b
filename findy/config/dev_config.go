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

package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/structs"
	"github.com/spf13/cast"

	"mynewt.apache.org/newt/util"

	"github.com/findy-ble/findy/fdxact/hw"
	"github.com/findy-ble/findy/fdxact/power"
	"github.com/findy-ble/findy/fdxact/telem"
	"github.com/findy-ble/findy/findy/bll"
)

// Device settings, parsed from a devstring of comma-separated key=value
// pairs (e.g., "buzzer_pin=GPIO13,adc_addr=0x49,sim=true").
type DevConfig struct {
	Name         string `key:"name"`
	HciIdx       int    `key:"hci"`
	BuzzerPin    string `key:"buzzer_pin"`
	AdcBus       string `key:"adc_bus"`
	AdcAddr      uint16 `key:"adc_addr"`
	AdcChannel   int    `key:"adc_channel"`
	AdcFullMv    int    `key:"adc_full_mv"`
	Sim          bool   `key:"sim"`
	MqttBroker   string `key:"mqtt_broker"`
	MqttClientId string `key:"mqtt_client_id"`
	MqttFormat   string `key:"mqtt_format"`
	DeviceId     string `key:"device_id"`
	PowerSave    bool   `key:"power_save"`
}

func NewDevConfig() *DevConfig {
	return &DevConfig{
		Name:         "Findy",
		BuzzerPin:    "GPIO18",
		AdcAddr:      0x48,
		AdcFullMv:    1800,
		MqttClientId: "findy",
		MqttFormat:   "json",
		DeviceId:     "findy",
		PowerSave:    true,
	}
}

func einvalDevString(f string, args ...interface{}) error {
	suffix := fmt.Sprintf(f, args...)
	return util.FmtNewtError("Invalid devstring; %s", suffix)
}

func ParseDevString(ds string) (*DevConfig, error) {
	dc := NewDevConfig()

	if strings.TrimSpace(ds) == "" {
		return dc, nil
	}

	parts := strings.Split(ds, ",")
	for _, p := range parts {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, einvalDevString("Expected key=value, got \"%s\"", p)
		}

		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])
		if err := dc.Set(k, v); err != nil {
			return nil, err
		}
	}

	return dc, nil
}

// Set assigns a single setting by its devstring key.
func (dc *DevConfig) Set(k string, v string) error {
	var err error

	switch k {
	case "name":
		dc.Name = v

	case "hci":
		dc.HciIdx, err = cast.ToIntE(v)
		if err != nil || dc.HciIdx < 0 {
			return einvalDevString("Invalid hci: %s", v)
		}

	case "buzzer_pin":
		dc.BuzzerPin = v

	case "adc_bus":
		dc.AdcBus = v

	case "adc_addr":
		dc.AdcAddr, err = cast.ToUint16E(v)
		if err != nil {
			return einvalDevString("Invalid adc_addr: %s", v)
		}

	case "adc_channel":
		dc.AdcChannel, err = cast.ToIntE(v)
		if err != nil || dc.AdcChannel < 0 || dc.AdcChannel > 3 {
			return einvalDevString("Invalid adc_channel: %s", v)
		}

	case "adc_full_mv":
		dc.AdcFullMv, err = cast.ToIntE(v)
		if err != nil || dc.AdcFullMv <= 0 {
			return einvalDevString("Invalid adc_full_mv: %s", v)
		}

	case "sim":
		dc.Sim, err = cast.ToBoolE(v)
		if err != nil {
			return einvalDevString("Invalid sim: %s", v)
		}

	case "mqtt_broker":
		dc.MqttBroker = v

	case "mqtt_client_id":
		dc.MqttClientId = v

	case "mqtt_format":
		if _, err := telem.ParseFormat(v); err != nil {
			return einvalDevString("Invalid mqtt_format: %s", v)
		}
		dc.MqttFormat = v

	case "device_id":
		dc.DeviceId = v

	case "power_save":
		dc.PowerSave, err = cast.ToBoolE(v)
		if err != nil {
			return einvalDevString("Invalid power_save: %s", v)
		}

	default:
		return einvalDevString("Unrecognized key: %s", k)
	}

	return nil
}

type Setting struct {
	Key   string
	Value interface{}
}

// Settings lists every setting sorted by key.
func (dc *DevConfig) Settings() []Setting {
	var settings []Setting
	for _, f := range structs.New(dc).Fields() {
		settings = append(settings, Setting{
			Key:   f.Tag("key"),
			Value: f.Value(),
		})
	}

	sort.Slice(settings, func(i int, j int) bool {
		return settings[i].Key < settings[j].Key
	})

	return settings
}

func BuildPwm(dc *DevConfig) (hw.PwmOut, error) {
	if dc.Sim {
		return hw.NewSimPwm(), nil
	}

	pwm, err := hw.NewPeriphPwm(dc.BuzzerPin)
	if err != nil {
		return nil, util.ChildNewtError(err)
	}
	return pwm, nil
}

func BuildAdc(dc *DevConfig) (hw.AnalogIn, error) {
	if dc.Sim {
		return hw.NewSimAdc(0.5), nil
	}

	ac := hw.NewAdcCfg()
	ac.Bus = dc.AdcBus
	ac.Addr = dc.AdcAddr
	ac.Channel = dc.AdcChannel
	ac.FullScaleMv = dc.AdcFullMv

	adc, err := hw.NewPeriphAdc(ac)
	if err != nil {
		return nil, util.ChildNewtError(err)
	}
	return adc, nil
}

func BuildXportCfg(dc *DevConfig) bll.XportCfg {
	xc := bll.NewXportCfg()
	xc.HciIdx = dc.HciIdx
	if dc.Name != "" {
		xc.LocalName = dc.Name
	}

	return xc
}

// BuildMqttCfg returns false if telemetry is not configured.
func BuildMqttCfg(dc *DevConfig) (telem.MqttCfg, bool, error) {
	mc := telem.NewMqttCfg()
	if dc.MqttBroker == "" {
		return mc, false, nil
	}

	format, err := telem.ParseFormat(dc.MqttFormat)
	if err != nil {
		return mc, false, util.ChildNewtError(err)
	}

	mc.Broker = dc.MqttBroker
	if !strings.Contains(mc.Broker, "://") {
		mc.Broker = "tcp://" + mc.Broker
	}
	mc.ClientId = dc.MqttClientId
	mc.DeviceId = dc.DeviceId
	mc.Format = format

	return mc, true, nil
}

func BuildSaver(dc *DevConfig) power.Saver {
	if dc.Sim || !dc.PowerSave {
		return power.NopSaver{}
	}

	return power.NewCpufreqSaver()
}
