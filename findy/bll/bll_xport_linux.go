// +build linux

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

package bll

import (
	"context"

	"github.com/JuulLabs-OSS/ble"
	"github.com/JuulLabs-OSS/ble/linux"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/newt/util"
)

type XportCfg struct {
	HciIdx    int
	LocalName string
}

func NewXportCfg() XportCfg {
	return XportCfg{
		HciIdx:    0,
		LocalName: "Findy",
	}
}

// BllXport owns the host's HCI device and the GATT server running on it.
type BllXport struct {
	cfg XportCfg
	srv *GattServer
	dev ble.Device

	// Opens the HCI device under the given GAP device name.
	newDev func(name string, opts ...ble.Option) (ble.Device, error)
}

func newHciDevice(name string, opts ...ble.Option) (ble.Device, error) {
	return linux.NewDeviceWithName(name, opts...)
}

func NewBllXport(cfg XportCfg) *BllXport {
	return &BllXport{
		cfg:    cfg,
		srv:    NewGattServer(),
		newDev: newHciDevice,
	}
}

func (bx *BllXport) Server() *GattServer {
	return bx.srv
}

func (bx *BllXport) Start() error {
	// The name also backs the GAP Device Name characteristic.
	d, err := bx.newDev(bx.cfg.LocalName, ble.OptDeviceID(bx.cfg.HciIdx),
		ble.OptPeripheralRole())
	if err != nil {
		return util.FmtNewtError("failed to open hci%d: %s",
			bx.cfg.HciIdx, err.Error())
	}

	ble.SetDefaultDevice(d)
	bx.dev = d

	log.Debugf("Opened hci%d", bx.cfg.HciIdx)
	return nil
}

// Advertise advertises the local name and the served services until ctx is
// done.  Start and Serve must have been called.
func (bx *BllXport) Advertise(ctx context.Context) error {
	log.Infof("Advertising as \"%s\"", bx.cfg.LocalName)
	return bx.srv.Advertise(ctx, bx.cfg.LocalName)
}

func (bx *BllXport) Stop() error {
	if bx.dev == nil {
		return nil
	}

	if err := ble.Stop(); err != nil {
		return err
	}
	bx.dev = nil

	return nil
}
