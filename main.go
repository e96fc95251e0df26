// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/osext"
	"github.com/spf13/cobra"

	apicmd "github.com/sapcc/arcanum/cmd/api"

	// include all known driver implementations
	_ "github.com/sapcc/arcanum/internal/drivers/basic"
	_ "github.com/sapcc/arcanum/internal/drivers/builtin"
	_ "github.com/sapcc/arcanum/internal/drivers/postgres"
)

func main() {
	logg.ShowDebug = osext.GetenvBool("ARCANUM_DEBUG")

	rootCmd := &cobra.Command{
		Use:     "arcanum",
		Short:   "Authorization gateway for a multi-tenant secrets store",
		Long:    "Arcanum screens every request to a multi-tenant secrets store: request shape validation, credential resolution, and workspace-scoped authorization happen here before any secret is touched.",
		Version: bininfo.Version(),
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	apicmd.AddCommandTo(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logg.Fatal(err.Error())
	}
}
