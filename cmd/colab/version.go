/*
 * Copyright 2025 The Alepanel Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/alepanel/colab/internal/version"
)

type versionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	BuildDate string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of colab",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   version.Version,
				GoVersion: runtime.Version(),
				BuildDate: version.BuildDate,
			}

			switch output := viper.GetString("output"); output {
			case "":
				cmd.Printf("colab version %s, build date %s, go version %s\n",
					info.Version, info.BuildDate, info.GoVersion)
			case "json":
				encoded, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal JSON: %w", err)
				}
				cmd.Println(string(encoded))
			case "yaml":
				encoded, err := yaml.Marshal(info)
				if err != nil {
					return fmt.Errorf("marshal YAML: %w", err)
				}
				cmd.Println(string(encoded))
			default:
				return fmt.Errorf("unknown output format: %s", output)
			}

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
