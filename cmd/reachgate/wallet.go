package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/reachgate/internal/money"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Wallet balance and reboost credits",
}

var walletBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the wallet balance",
	RunE:  runWalletBalance,
}

var walletTopUpCmd = &cobra.Command{
	Use:   "topup <amount>",
	Short: "Add funds to the wallet, e.g. topup 25.00",
	Args:  cobra.ExactArgs(1),
	RunE:  runWalletTopUp,
}

var walletCreditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the remaining reboost credits",
	RunE:  runWalletCredits,
}

var walletLocal bool

func init() {
	walletCmd.PersistentFlags().BoolVar(&walletLocal, "local", false, "use the local store instead of the backend")

	walletCmd.AddCommand(walletBalanceCmd, walletTopUpCmd, walletCreditsCmd)
	rootCmd.AddCommand(walletCmd)
}

func runWalletBalance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	var balance money.Amount
	if walletLocal {
		st, openErr := openStore(cfg)
		if openErr != nil {
			return openErr
		}
		defer st.Close()
		balance, err = st.Balance(ctx)
	} else {
		balance, err = newClient(cfg).GetBalance(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Balance: %s\n", balance)
	return nil
}

func runWalletTopUp(cmd *cobra.Command, args []string) error {
	amount, err := money.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	if amount.Cmp(money.Zero) <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	var balance money.Amount
	if walletLocal {
		st, openErr := openStore(cfg)
		if openErr != nil {
			return openErr
		}
		defer st.Close()
		balance, err = st.TopUp(ctx, amount)
	} else {
		balance, err = newClient(cfg).TopUp(ctx, amount)
	}
	if err != nil {
		return fmt.Errorf("failed to top up: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s, balance: %s\n", amount, balance)
	return nil
}

func runWalletCredits(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	var credits int
	if walletLocal {
		st, openErr := openStore(cfg)
		if openErr != nil {
			return openErr
		}
		defer st.Close()
		credits, err = st.Credits(ctx)
	} else {
		credits, err = newClient(cfg).GetCredits(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to get credits: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Reboost credits: %d\n", credits)
	return nil
}
