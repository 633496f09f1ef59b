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

// Package telem publishes battery telemetry to an MQTT broker.
package telem

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

type Format int

const (
	FORMAT_JSON Format = iota
	FORMAT_CBOR
)

var formatStringMap = map[Format]string{
	FORMAT_JSON: "json",
	FORMAT_CBOR: "cbor",
}

func (f Format) String() string {
	s := formatStringMap[f]
	if s == "" {
		return "???"
	}
	return s
}

func ParseFormat(s string) (Format, error) {
	for f, name := range formatStringMap {
		if name == s {
			return f, nil
		}
	}

	return 0, fmt.Errorf("Invalid telemetry format: \"%s\"", s)
}

type BatteryRecord struct {
	DeviceId    string `codec:"device_id"`
	TimestampMs int64  `codec:"timestamp_ms"`
	BatteryMv   int    `codec:"battery_mv"`
	BatteryPct  uint8  `codec:"battery_pct"`
	Sequence    uint32 `codec:"sequence"`
}

func Encode(rec BatteryRecord, format Format) ([]byte, error) {
	var h codec.Handle
	switch format {
	case FORMAT_JSON:
		h = new(codec.JsonHandle)
	case FORMAT_CBOR:
		h = new(codec.CborHandle)
	default:
		return nil, fmt.Errorf("Invalid telemetry format: %d", int(format))
	}

	var payload []byte
	enc := codec.NewEncoderBytes(&payload, h)
	if err := enc.Encode(rec); err != nil {
		return nil, errors.Wrapf(err, "failed to encode battery record")
	}

	return payload, nil
}

func BatteryTopic(deviceId string) string {
	return fmt.Sprintf("findy/%s/battery", deviceId)
}

type MqttCfg struct {
	// e.g., "tcp://localhost:1883".
	Broker   string
	ClientId string
	DeviceId string
	Format   Format
	Qos      byte

	PublishTimeout time.Duration
}

func NewMqttCfg() MqttCfg {
	return MqttCfg{
		ClientId:       "findy",
		DeviceId:       "findy",
		Format:         FORMAT_JSON,
		Qos:            1,
		PublishTimeout: 5 * time.Second,
	}
}

// MqttSink implements sensor.Sink.  Publishing never waits for the broker;
// delivery is confirmed in the background.
type MqttSink struct {
	cfg    MqttCfg
	client mqtt.Client
	seq    uint32
	wg     sync.WaitGroup
}

func NewMqttSink(cfg MqttCfg) *MqttSink {
	s := &MqttSink{
		cfg: cfg,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientId)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("MQTT connection to %s lost: %s", cfg.Broker, err.Error())
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Start initiates the broker connection and waits up to timeout for it to
// complete.  With connect retry enabled the client keeps trying in the
// background if the wait expires.
func (s *MqttSink) Start(timeout time.Duration) error {
	token := s.client.Connect()
	if !token.WaitTimeout(timeout) {
		log.Warnf("MQTT connect to %s still pending", s.cfg.Broker)
		return nil
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "MQTT connect to %s failed", s.cfg.Broker)
	}

	return nil
}

func (s *MqttSink) PublishBattery(mv float64, level uint8) error {
	s.seq++
	rec := BatteryRecord{
		DeviceId:    s.cfg.DeviceId,
		TimestampMs: time.Now().UnixNano() / int64(time.Millisecond),
		BatteryMv:   int(mv),
		BatteryPct:  level,
		Sequence:    s.seq,
	}

	if !s.client.IsConnected() {
		log.Debugf("MQTT not connected; dropping battery record %d", rec.Sequence)
		return nil
	}

	payload, err := Encode(rec, s.cfg.Format)
	if err != nil {
		return err
	}

	topic := BatteryTopic(s.cfg.DeviceId)
	token := s.client.Publish(topic, s.cfg.Qos, false, payload)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if !token.WaitTimeout(s.cfg.PublishTimeout) {
			log.Warnf("MQTT publish to %s timed out", topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Warnf("MQTT publish to %s failed: %s", topic, err.Error())
			return
		}
		log.Debugf("Published battery record %d to %s", rec.Sequence, topic)
	}()

	return nil
}

func (s *MqttSink) Stop() {
	s.wg.Wait()
	s.client.Disconnect(250)
}
