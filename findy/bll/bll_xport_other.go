// +build !linux

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
	"fmt"
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

type BllXport struct {
	cfg XportCfg
	srv *GattServer
}

func NewBllXport(cfg XportCfg) *BllXport {
	return &BllXport{
		cfg: cfg,
		srv: NewGattServer(),
	}
}

func (bx *BllXport) Server() *GattServer {
	return bx.srv
}

func (bx *BllXport) Start() error {
	return fmt.Errorf("HCI transport only supported on Linux")
}

func (bx *BllXport) Advertise(ctx context.Context) error {
	return fmt.Errorf("HCI transport only supported on Linux")
}

func (bx *BllXport) Stop() error {
	return nil
}
