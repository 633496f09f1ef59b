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

package telem

import (
	"testing"

	"github.com/ugorji/go/codec"
)

func TestEncode(t *testing.T) {
	rec := BatteryRecord{
		DeviceId:    "findy-1",
		TimestampMs: 1700000000123,
		BatteryMv:   1800,
		BatteryPct:  50,
		Sequence:    7,
	}

	handles := map[Format]codec.Handle{
		FORMAT_JSON: new(codec.JsonHandle),
		FORMAT_CBOR: new(codec.CborHandle),
	}

	for format, h := range handles {
		t.Run(format.String(), func(t *testing.T) {
			payload, err := Encode(rec, format)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			var m map[string]interface{}
			if err := codec.NewDecoderBytes(payload, h).Decode(&m); err != nil {
				t.Fatalf("decode: %v", err)
			}

			for _, k := range []string{"device_id", "timestamp_ms",
				"battery_mv", "battery_pct", "sequence"} {

				if _, ok := m[k]; !ok {
					t.Errorf("missing field %s in %v", k, m)
				}
			}

			var out BatteryRecord
			if err := codec.NewDecoderBytes(payload, h).Decode(&out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out != rec {
				t.Errorf("decoded %+v; want %+v", out, rec)
			}
		})
	}

	if _, err := Encode(rec, Format(9)); err == nil {
		t.Errorf("encoded with an invalid format")
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "cbor"} {
		f, err := ParseFormat(s)
		if err != nil || f.String() != s {
			t.Errorf("ParseFormat(%s) = %s, %v", s, f.String(), err)
		}
	}

	if _, err := ParseFormat("xml"); err == nil {
		t.Errorf("parsed an invalid format")
	}
}

func TestBatteryTopic(t *testing.T) {
	if topic := BatteryTopic("findy-1"); topic != "findy/findy-1/battery" {
		t.Errorf("unexpected topic: %s", topic)
	}
}

func TestPublishDisconnected(t *testing.T) {
	cfg := NewMqttCfg()
	cfg.Broker = "tcp://127.0.0.1:1"
	s := NewMqttSink(cfg)

	// Records are dropped while the broker is unreachable.
	if err := s.PublishBattery(1800, 50); err != nil {
		t.Errorf("publish: %v", err)
	}
	if err := s.PublishBattery(1800, 50); err != nil {
		t.Errorf("publish: %v", err)
	}
	if s.seq != 2 {
		t.Errorf("sequence = %d; want 2", s.seq)
	}
	s.Stop()
}
