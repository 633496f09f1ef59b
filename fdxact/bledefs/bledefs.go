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

package bledefs

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
)

const BLE_ATT_ATTR_MAX_LEN = 512

const BLE_ATT_MTU_DFLT = 23

// Battery service and battery level characteristic (SIG assigned).
const BattSvcUuid = "0000180f-0000-1000-8000-00805f9b34fb"
const BattLevelChrUuid = "00002a19-0000-1000-8000-00805f9b34fb"

// Buzzer service and buzzer command characteristic (vendor specific).
const BuzzSvcUuid = "12345678-0800-0008-05f9-b34fb1234567"
const BuzzCmdChrUuid = "12345679-8000-0080-5f9b-34fb12345670"

// Base UUID used to expand 16-bit SIG UUIDs to 128 bits.
var bleBaseUuid = BleUuid128{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00,
	0x80, 0x00, 0x00, 0x80, 0x5f, 0x9b, 0x34, 0xfb,
}

type BleUuid16 uint16

func (bu16 *BleUuid16) String() string {
	return fmt.Sprintf("0x%04x", *bu16)
}

func ParseUuid16(s string) (BleUuid16, error) {
	val, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return BleUuid16(0), fmt.Errorf("Invalid UUID: %s", s)
	}

	return BleUuid16(val), nil
}

type BleUuid128 [16]byte

func (bu128 *BleUuid128) String() string {
	var buf bytes.Buffer
	buf.Grow(len(bu128)*2 + 3)

	for i, b := range bu128 {
		switch i {
		case 4, 6, 8, 10:
			buf.WriteString("-")
		}

		fmt.Fprintf(&buf, "%02x", b)
	}

	return buf.String()
}

func ParseUuid128(s string) (BleUuid128, error) {
	var bu128 BleUuid128

	if len(s) != 36 {
		return bu128, fmt.Errorf("Invalid UUID: %s", s)
	}

	boff := 0
	for i := 0; i < 36; {
		switch i {
		case 8, 13, 18, 23:
			if s[i] != '-' {
				return bu128, fmt.Errorf("Invalid UUID: %s", s)
			}
			i++

		default:
			u64, err := strconv.ParseUint(s[i:i+2], 16, 8)
			if err != nil {
				return bu128, fmt.Errorf("Invalid UUID: %s", s)
			}
			bu128[boff] = byte(u64)
			i += 2
			boff++
		}
	}

	return bu128, nil
}

// Shorten reports the 16-bit form of a 128-bit UUID built on the SIG base
// UUID.
func (bu128 *BleUuid128) Shorten() (BleUuid16, bool) {
	if bu128[0] != 0 || bu128[1] != 0 ||
		!bytes.Equal(bu128[4:], bleBaseUuid[4:]) {

		return 0, false
	}

	return BleUuid16(uint16(bu128[2])<<8 | uint16(bu128[3])), true
}

type BleUuid struct {
	// Set to 0 if the 128-bit UUID should be used.
	U16 BleUuid16

	// Set to nil if the 16-bit UUID should be used.
	U128 BleUuid128
}

func (bu *BleUuid) String() string {
	if bu.U16 != 0 {
		return bu.U16.String()
	} else {
		return bu.U128.String()
	}
}

// ParseUuid accepts "0x180f" style 16-bit UUIDs and dashed 128-bit UUIDs.  A
// 128-bit UUID derived from the SIG base UUID is stored in its 16-bit form.
func ParseUuid(uuidStr string) (BleUuid, error) {
	bu := BleUuid{}
	var err error

	// First, try to parse as a 16-bit UUID.
	bu.U16, err = ParseUuid16(uuidStr)
	if err == nil {
		return bu, nil
	}

	// Try to parse as a 128-bit UUID.
	bu.U128, err = ParseUuid128(uuidStr)
	if err != nil {
		return bu, err
	}

	if u16, ok := bu.U128.Shorten(); ok {
		return BleUuid{U16: u16}, nil
	}

	return bu, nil
}

func MustParseUuid(uuidStr string) BleUuid {
	bu, err := ParseUuid(uuidStr)
	if err != nil {
		panic(err.Error())
	}

	return bu
}

func CompareUuids(a BleUuid, b BleUuid) int {
	if a.U16 != 0 || b.U16 != 0 {
		return int(a.U16) - int(b.U16)
	} else {
		return bytes.Compare(a.U128[:], b.U128[:])
	}
}

type BleSvcType int

const (
	BLE_SVC_TYPE_PRIMARY BleSvcType = iota
	BLE_SVC_TYPE_SECONDARY
)

var BleSvcTypeStringMap = map[BleSvcType]string{
	BLE_SVC_TYPE_PRIMARY:   "primary",
	BLE_SVC_TYPE_SECONDARY: "secondary",
}

func BleSvcTypeToString(svcType BleSvcType) string {
	s := BleSvcTypeStringMap[svcType]
	if s == "" {
		return "???"
	}

	return s
}

type BleChrFlags int

const (
	BLE_GATT_F_BROADCAST       BleChrFlags = 0x0001
	BLE_GATT_F_READ                        = 0x0002
	BLE_GATT_F_WRITE_NO_RSP                = 0x0004
	BLE_GATT_F_WRITE                       = 0x0008
	BLE_GATT_F_NOTIFY                      = 0x0010
	BLE_GATT_F_INDICATE                    = 0x0020
	BLE_GATT_F_AUTH_SIGN_WRITE             = 0x0040
	BLE_GATT_F_RELIABLE_WRITE              = 0x0080
)

// Read, write, notify and indicate; every attribute of this device uses
// this set.
const BLE_GATT_F_RWNI BleChrFlags = BLE_GATT_F_READ | BLE_GATT_F_WRITE |
	BLE_GATT_F_NOTIFY | BLE_GATT_F_INDICATE

func (f BleChrFlags) Pushes() bool {
	return f&(BLE_GATT_F_NOTIFY|BLE_GATT_F_INDICATE) != 0
}

// ATT error codes [Vol 3, Part F, 3.4.1.1].
type BleAttErrCode uint8

const (
	ERR_CODE_ATT_SUCCESS                BleAttErrCode = 0x00
	ERR_CODE_ATT_INVALID_HANDLE         BleAttErrCode = 0x01
	ERR_CODE_ATT_READ_NOT_PERMITTED     BleAttErrCode = 0x02
	ERR_CODE_ATT_WRITE_NOT_PERMITTED    BleAttErrCode = 0x03
	ERR_CODE_ATT_INVALID_PDU            BleAttErrCode = 0x04
	ERR_CODE_ATT_REQ_NOT_SUPPORTED      BleAttErrCode = 0x06
	ERR_CODE_ATT_INVALID_OFFSET         BleAttErrCode = 0x07
	ERR_CODE_ATT_INVALID_ATTR_VALUE_LEN BleAttErrCode = 0x0d
	ERR_CODE_ATT_UNLIKELY               BleAttErrCode = 0x0e
)

var BleAttErrCodeStringMap = map[BleAttErrCode]string{
	ERR_CODE_ATT_SUCCESS:                "success",
	ERR_CODE_ATT_INVALID_HANDLE:         "invalid handle",
	ERR_CODE_ATT_READ_NOT_PERMITTED:     "read not permitted",
	ERR_CODE_ATT_WRITE_NOT_PERMITTED:    "write not permitted",
	ERR_CODE_ATT_INVALID_PDU:            "invalid pdu",
	ERR_CODE_ATT_REQ_NOT_SUPPORTED:      "request not supported",
	ERR_CODE_ATT_INVALID_OFFSET:         "invalid offset",
	ERR_CODE_ATT_INVALID_ATTR_VALUE_LEN: "invalid attribute value length",
	ERR_CODE_ATT_UNLIKELY:               "unlikely error",
}

func (c BleAttErrCode) String() string {
	s := BleAttErrCodeStringMap[c]
	if s == "" {
		return fmt.Sprintf("att_err=0x%02x", uint8(c))
	}

	return s
}

// A client write waiting for (or having passed) authorization.  Length is
// len(Data).
type BleGattWrite struct {
	Peer      string
	AttHandle uint16
	Offset    int
	Data      []byte
}

func (w *BleGattWrite) String() string {
	return fmt.Sprintf("peer=%s att_handle=%d offset=%d len=%d data=%s",
		w.Peer, w.AttHandle, w.Offset, len(w.Data),
		hex.EncodeToString(w.Data))
}

type BleGattRead struct {
	Peer      string
	AttHandle uint16
}

// Reports a notification or indication delivered to a subscribed client.
type BleGattSent struct {
	Peer      string
	AttHandle uint16
	Indicate  bool
}

type BleGattEventHandler interface {
	OnDataSent(evt BleGattSent)
	OnDataWritten(evt BleGattWrite)
	OnDataRead(evt BleGattRead)
}

type BleWriteAuthFn func(w BleGattWrite) BleAttErrCode

type BleChr struct {
	Uuid BleUuid
	// Name used in diagnostics only.
	Name        string
	Flags       BleChrFlags
	Value       []byte
	WriteAuthCb BleWriteAuthFn
}

type BleSvc struct {
	Uuid    BleUuid
	SvcType BleSvcType
	Chrs    []BleChr
}
