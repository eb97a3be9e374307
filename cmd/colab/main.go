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

// Package main is the entry point of the colab CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alepanel/colab/cmd/colab/document"
	"github.com/alepanel/colab/server"
)

var rootCmd = &cobra.Command{
	Use:   "colab",
	Short: "Sync gateway for collaborative document editing based on CRDT",
}

// Run executes CLI.
func Run() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}

	return 0
}

func init() {
	rootCmd.AddCommand(document.SubCmd)

	rootCmd.PersistentFlags().String(
		"rpc-addr",
		fmt.Sprintf("localhost:%d", server.DefaultRPCPort),
		"Address of the sync gateway",
	)
	rootCmd.PersistentFlags().StringP(
		"output",
		"o",
		"",
		"One of 'yaml' or 'json'",
	)
	_ = viper.BindPFlag("rpcAddr", rootCmd.PersistentFlags().Lookup("rpc-addr"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
}

func main() {
	os.Exit(Run())
}
