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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/abiosoft/ishell.v2"

	"mynewt.apache.org/newt/util"

	. "github.com/findy-ble/findy/fdxact/bledefs"
	"github.com/findy-ble/findy/fdxact/findy"
	"github.com/findy-ble/findy/fdxact/fdxutil"
	"github.com/findy-ble/findy/fdxact/hw"
	"github.com/findy-ble/findy/fdxact/simble"
	"github.com/findy-ble/findy/findy/config"
)

type simEnv struct {
	dev *findy.Device
	srv *simble.SimServer
	adc *hw.SimAdc
}

// parseHandle accepts "batt", "buzz" or a numeric attribute handle.
func (e *simEnv) parseHandle(s string) (uint16, error) {
	switch s {
	case "batt":
		return e.dev.BatteryHandle(), nil
	case "buzz":
		return e.dev.BuzzerHandle(), nil
	}

	h, err := cast.ToUint16E(s)
	if err != nil {
		return 0, fmt.Errorf("Invalid attribute handle: %s", s)
	}
	return h, nil
}

func parseBytes(args []string) ([]byte, error) {
	var data []byte
	for _, a := range args {
		v, err := cast.ToIntE(a)
		if err != nil || v < 0 || v > 0xff {
			return nil, fmt.Errorf("Invalid byte: %s", a)
		}
		data = append(data, byte(v))
	}

	return data, nil
}

func (e *simEnv) writeCmd(c *ishell.Context) {
	if len(c.Args) < 2 {
		c.Println(c.HelpText())
		return
	}

	h, err := e.parseHandle(c.Args[0])
	if err != nil {
		c.Println("Error:", err)
		return
	}

	offset := 0
	var vals []string
	for _, a := range c.Args[1:] {
		if strings.HasPrefix(a, "off=") {
			offset, err = cast.ToIntE(strings.TrimPrefix(a, "off="))
			if err != nil {
				c.Println("Error: invalid offset:", a)
				return
			}
		} else {
			vals = append(vals, a)
		}
	}

	data, err := parseBytes(vals)
	if err != nil {
		c.Println("Error:", err)
		return
	}

	status, err := e.srv.Write(h, offset, data)
	if err != nil {
		c.Println("Error:", err)
		return
	}

	c.Printf("status: %s (0x%02x)\n", status.String(), uint8(status))
}

func (e *simEnv) readCmd(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println(c.HelpText())
		return
	}

	h, err := e.parseHandle(c.Args[0])
	if err != nil {
		c.Println("Error:", err)
		return
	}

	val, status, err := e.srv.Read(h)
	if err != nil {
		c.Println("Error:", err)
		return
	}
	if status != ERR_CODE_ATT_SUCCESS {
		c.Printf("status: %s (0x%02x)\n", status.String(), uint8(status))
		return
	}

	c.Printf("value: %s\n", fdxutil.HexString(val))
}

func (e *simEnv) subCmd(on bool) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) < 1 || len(c.Args) > 2 {
			c.Println(c.HelpText())
			return
		}

		h, err := e.parseHandle(c.Args[0])
		if err != nil {
			c.Println("Error:", err)
			return
		}

		indicate := len(c.Args) == 2 && c.Args[1] == "ind"
		if err := e.srv.Subscribe(h, on, indicate); err != nil {
			c.Println("Error:", err)
		}
	}
}

func (e *simEnv) adcCmd(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Println(c.HelpText())
		return
	}

	v, err := cast.ToFloat64E(c.Args[0])
	if err != nil {
		c.Println("Error: invalid sample:", c.Args[0])
		return
	}

	e.adc.Set(v)
}

func (e *simEnv) stateCmd(c *ishell.Context) {
	st, err := e.dev.MelodyState()
	if err != nil {
		c.Println("Error:", err.Error())
		return
	}
	c.Println("melody:", st.String())
}

func (e *simEnv) attrsCmd(c *ishell.Context) {
	e.dev.Exec(func() error {
		for _, a := range e.dev.Store().Attrs() {
			val, _ := e.dev.Store().Value(a.ValHandle)
			c.Printf("%-16s handle=%-3d cccd=%-3d uuid=%s value=%s\n",
				a.Name, a.ValHandle, a.CccdHandle, a.ChrUuid.String(),
				fdxutil.HexString(val))
		}
		return nil
	})
}

func runSimCmd(cmd *cobra.Command, args []string) {
	dc, err := devConfig(cmd)
	if err != nil {
		fdUsage(nil, err)
	}
	dc.Sim = true

	pwm, err := config.BuildPwm(dc)
	if err != nil {
		fdUsage(nil, err)
	}
	adc := hw.NewSimAdc(0.5)

	dev, err := findy.NewDevice(findy.NewDeviceCfg(), pwm, adc)
	if err != nil {
		fdUsage(nil, util.ChildNewtError(err))
	}

	if err := startTelem(dc, dev); err != nil {
		fdUsage(nil, err)
	}

	q, err := startQueue()
	if err != nil {
		fdUsage(nil, err)
	}

	srv := simble.NewSimServer(os.Stdout)
	if err := dev.Start(srv, q); err != nil {
		fdUsage(nil, util.ChildNewtError(err))
	}

	e := &simEnv{
		dev: dev,
		srv: srv,
		adc: adc,
	}

	shell := ishell.New()
	shell.SetPrompt("findy> ")

	shell.AddCmd(&ishell.Cmd{
		Name: "write",
		Help: "write <batt|buzz|handle> <byte>... [off=<offset>]",
		Func: e.writeCmd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "read",
		Help: "read <batt|buzz|handle>",
		Func: e.readCmd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "sub",
		Help: "sub <batt|buzz|handle> [ind]; subscribe to value updates",
		Func: e.subCmd(true),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "unsub",
		Help: "unsub <batt|buzz|handle>",
		Func: e.subCmd(false),
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "adc",
		Help: "adc <sample>; set the simulated battery sample (0.0 - 1.0)",
		Func: e.adcCmd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "state",
		Help: "show the melody state",
		Func: e.stateCmd,
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "attrs",
		Help: "list attributes",
		Func: e.attrsCmd,
	})

	shell.Println("Findy simulator; battery handle", dev.BatteryHandle(),
		"buzzer handle", dev.BuzzerHandle())
	shell.Run()
	shell.Close()
}

func simCmd() *cobra.Command {
	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the peripheral against simulated hardware in an interactive shell",
		Run:   runSimCmd,
	}

	return simCmd
}
