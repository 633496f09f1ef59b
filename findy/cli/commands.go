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
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mynewt.apache.org/newt/util"

	"github.com/findy-ble/findy/fdxact/fdxutil"
	"github.com/findy-ble/findy/findy/fdutil"
)

var FindyLogLevel log.Level

func Commands() *cobra.Command {
	logLevelStr := ""
	fdCmd := &cobra.Command{
		Use:   fdutil.ToolInfo.ExeName,
		Short: fdutil.ToolInfo.ShortName + " runs a battery and buzzer BLE peripheral",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var err error
			FindyLogLevel, err = log.ParseLevel(logLevelStr)
			if err != nil {
				fdUsage(nil, util.ChildNewtError(err))
			}

			logFile, err := fdutil.ExpandPath(fdutil.LogFile)
			if err != nil {
				fdUsage(nil, err)
			}

			err = util.Init(FindyLogLevel, logFile, util.VERBOSITY_DEFAULT)
			if err != nil {
				fdUsage(nil, err)
			}
			fdxutil.SetLogLevel(FindyLogLevel)

			if fdutil.ConsoleDev != "" {
				port, err := fdutil.OpenConsole(fdutil.ConsoleDev,
					fdutil.ConsoleBaud)
				if err != nil {
					fdUsage(nil, err)
				}
				globalConsole = port
				log.SetOutput(io.MultiWriter(log.StandardLogger().Out, port))
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	fdCmd.PersistentFlags().StringVarP(&logLevelStr, "loglevel", "l", "info",
		"log level to use")

	fdCmd.PersistentFlags().StringVar(&fdutil.LogFile, "logfile", "",
		"also write log output to this file")

	fdCmd.PersistentFlags().StringVarP(&fdutil.DevString, "devstring", "d",
		"", "device key-value pairs (e.g., \"buzzer_pin=GPIO13,sim=true\")")

	fdCmd.PersistentFlags().IntVarP(&fdutil.HciIdx, "hci", "i",
		0, "HCI index for the controller on Linux machine; overrides devstring")

	fdCmd.PersistentFlags().StringVar(&fdutil.DeviceName, "name",
		"", "advertised device name; overrides devstring")

	fdCmd.PersistentFlags().StringVar(&fdutil.ConsoleDev, "console", "",
		"serial port to mirror diagnostic output to")

	fdCmd.PersistentFlags().IntVar(&fdutil.ConsoleBaud, "console-baud",
		115200, "console baud rate")

	versCmd := &cobra.Command{
		Use:     "version",
		Short:   "Display the " + fdutil.ToolInfo.ShortName + " version number",
		Example: "  " + fdutil.ToolInfo.ExeName + " version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n",
				fdutil.ToolInfo.LongName,
				fdutil.ToolInfo.VersionString)
		},
	}
	fdCmd.AddCommand(versCmd)

	fdCmd.AddCommand(runCmd())
	fdCmd.AddCommand(simCmd())
	fdCmd.AddCommand(playCmd())
	fdCmd.AddCommand(sampleCmd())
	fdCmd.AddCommand(configCmd())

	return fdCmd
}
