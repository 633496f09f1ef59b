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

	"github.com/spf13/cobra"

	"github.com/findy-ble/findy/findy/fdutil"
)

func configRunCmd(cmd *cobra.Command, args []string) {
	dc, err := devConfig(cmd)
	if err != nil {
		fdUsage(nil, err)
	}

	for _, s := range dc.Settings() {
		fmt.Printf("%s=%v\n", s.Key, s.Value)
	}
}

func configCmd() *cobra.Command {
	configEx := "  " + fdutil.ToolInfo.ExeName +
		" config -d buzzer_pin=GPIO13,adc_addr=0x49"

	configCmd := &cobra.Command{
		Use:     "config",
		Short:   "Display the effective device configuration",
		Example: configEx,
		Run:     configRunCmd,
	}

	return configCmd
}
