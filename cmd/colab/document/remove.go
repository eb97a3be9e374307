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

package document

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alepanel/colab/client"
	"github.com/alepanel/colab/pkg/document"
)

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm [document key]",
		Short: "Remove a document and everything stored for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("document key is required")
			}
			docKey := document.Key(args[0])
			if err := docKey.Validate(); err != nil {
				return err
			}

			rpcAddr := viper.GetString("rpcAddr")
			channel := client.NewRPCChannel(rpcAddr)
			defer func() {
				_ = channel.Close()
			}()

			ctx := context.Background()
			if err := channel.RemoveDocument(ctx, docKey); err != nil {
				return err
			}

			cmd.Printf("Removed document %s\n", docKey)
			return nil
		},
	}
}

func init() {
	SubCmd.AddCommand(newRemoveCommand())
}
