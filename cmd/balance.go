package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/xl-idp/reference-inn/pkg/xmlriver"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the remaining search balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		xr := xmlriver.New(cfg.XMLRiver.User, cfg.XMLRiver.Key)
		balance, err := xr.Balance(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "fetch search balance")
		}
		fmt.Printf("%.2f\n", balance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
