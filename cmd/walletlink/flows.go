package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Start a connect and sign in flow",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.link.Connect(cmd.Context())
	},
}

var callbackCmd = &cobra.Command{
	Use:   "callback <url>",
	Short: "Process a wallet redirect URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, err := current.link.Handle(cmd.Context(), args[0])
		fmt.Fprintln(os.Stdout, "outcome:", outcome)
		return err
	},
}

var (
	packID      string
	mintAddress string
	price       string
	symbol      string
	withdrawID  string
	transaction string
)

var gatchaCmd = &cobra.Command{
	Use:   "gatcha",
	Short: "Sign a pack mint transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.link.StartGatcha(cmd.Context(), packID, mintAddress, transaction)
	},
}

var sellCmd = &cobra.Command{
	Use:   "sell",
	Short: "Sign a listing transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.link.StartSell(cmd.Context(), mintAddress, price, symbol, transaction)
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Sign a purchase transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.link.StartBuy(cmd.Context(), mintAddress, transaction)
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Sign a withdrawal transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.link.StartWithdraw(cmd.Context(), withdrawID, transaction)
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the SOL balance of the connected wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := current.link.Balance(cmd.Context())
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
		return nil
	},
}

var disconnect bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the wallet session and sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.link.Reset(cmd.Context(), disconnect)
	},
}

func init() {
	for _, c := range []*cobra.Command{gatchaCmd, sellCmd, buyCmd, withdrawCmd} {
		c.Flags().StringVar(&transaction, "tx", "", "base58 serialized transaction from the backend")
		_ = c.MarkFlagRequired("tx")
	}

	gatchaCmd.Flags().StringVar(&packID, "pack", "", "pack id")
	for _, c := range []*cobra.Command{gatchaCmd, sellCmd, buyCmd} {
		c.Flags().StringVar(&mintAddress, "mint", "", "NFT mint address")
		_ = c.MarkFlagRequired("mint")
	}
	sellCmd.Flags().StringVar(&price, "price", "", "listing price in SOL")
	sellCmd.Flags().StringVar(&symbol, "symbol", "SOL", "price currency symbol")
	withdrawCmd.Flags().StringVar(&withdrawID, "id", "", "withdrawal id")

	resetCmd.Flags().BoolVar(&disconnect, "disconnect", false, "ask the wallet to end its session too")

	rootCmd.AddCommand(connectCmd, callbackCmd, gatchaCmd, sellCmd, buyCmd, withdrawCmd, balanceCmd, resetCmd)
}
