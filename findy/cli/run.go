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

package cli

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"

	"github.com/findy-ble/findy/fdxact/findy"
	"github.com/findy-ble/findy/findy/bll"
	"github.com/findy-ble/findy/findy/config"
	"github.com/findy-ble/findy/findy/fdutil"
)

// Interval between power save passes while idle.
const idlePeriod = 2000 * time.Millisecond

func runRunCmd(cmd *cobra.Command, args []string) {
	dc, err := devConfig(cmd)
	if err != nil {
		fdUsage(nil, err)
	}

	saver := config.BuildSaver(dc)
	if err := saver.Save(); err != nil {
		log.Warnf("Power save failed: %s", err.Error())
	}

	pwm, err := config.BuildPwm(dc)
	if err != nil {
		fdUsage(nil, err)
	}
	adc, err := config.BuildAdc(dc)
	if err != nil {
		fdUsage(nil, err)
	}

	dev, err := findy.NewDevice(findy.NewDeviceCfg(), pwm, adc)
	if err != nil {
		fdUsage(nil, util.ChildNewtError(err))
	}

	if err := startTelem(dc, dev); err != nil {
		fdUsage(nil, err)
	}

	x := bll.NewBllXport(config.BuildXportCfg(dc))
	globalXport = x
	if err := x.Start(); err != nil {
		fdUsage(nil, util.ChildNewtError(err))
	}

	q, err := startQueue()
	if err != nil {
		fdUsage(nil, err)
	}

	if err := dev.Start(x.Server(), q); err != nil {
		fdUsage(nil, util.ChildNewtError(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	globalCancel = cancel
	go func() {
		if err := x.Advertise(ctx); err != nil {
			log.Errorf("Advertising failed: %s", err.Error())
		}
	}()

	ticker := time.NewTicker(idlePeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := saver.Save(); err != nil {
			log.Debugf("Power save failed: %s", err.Error())
		}
	}
}

func runCmd() *cobra.Command {
	runEx := "  " + fdutil.ToolInfo.ExeName + " run\n"
	runEx += "  " + fdutil.ToolInfo.ExeName +
		" run -i 1 -d buzzer_pin=GPIO13,mqtt_broker=localhost:1883"

	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the peripheral on the local BLE controller",
		Example: runEx,
		Run:     runRunCmd,
	}

	return runCmd
}
