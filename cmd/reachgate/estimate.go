package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/foxzi/reachgate/internal/admission"
	"github.com/foxzi/reachgate/internal/client"
	"github.com/foxzi/reachgate/internal/money"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Quote a campaign against the wallet balance",
	Long: `Quote a campaign: recipients x per-message cost + startup fee, compared
with the wallet balance. With --balance the quote is computed locally;
otherwise the backend is asked, optionally for a saved segment.`,
	RunE: runEstimate,
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Check additional recipients against a budget cap",
	RunE:  runBudget,
}

var reboostCmd = &cobra.Command{
	Use:   "reboost",
	Short: "Check a reboost against the remaining credits",
	RunE:  runReboost,
}

var (
	estRecipients int
	estBalance    string
	estSegmentID  string
	estCap        string
	estAdditional int
	estJSON       bool

	budgetCurrent    int
	budgetAdditional int
	budgetCap        string

	reboostRecipients int
	reboostCredits    int
)

func init() {
	estimateCmd.Flags().IntVarP(&estRecipients, "recipients", "n", 0, "number of recipients")
	estimateCmd.Flags().StringVar(&estBalance, "balance", "", "wallet balance for a local quote, e.g. 12.30")
	estimateCmd.Flags().StringVar(&estSegmentID, "segment", "", "saved segment id to size the audience (backend only)")
	estimateCmd.Flags().StringVar(&estCap, "cap", "", "budget cap to check as well")
	estimateCmd.Flags().IntVar(&estAdditional, "additional", 0, "additional recipients for the budget cap check")
	estimateCmd.Flags().BoolVar(&estJSON, "json", false, "print JSON")

	budgetCmd.Flags().IntVar(&budgetCurrent, "current", 0, "recipients already in the campaign")
	budgetCmd.Flags().IntVar(&budgetAdditional, "additional", 0, "recipients to add")
	budgetCmd.Flags().StringVar(&budgetCap, "cap", "", "budget cap, e.g. 10.00")
	budgetCmd.MarkFlagRequired("cap")

	reboostCmd.Flags().IntVarP(&reboostRecipients, "recipients", "n", 0, "recipients of the reboost")
	reboostCmd.Flags().IntVar(&reboostCredits, "credits", -1, "available credits (default: ask the backend)")

	rootCmd.AddCommand(estimateCmd, budgetCmd, reboostCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkRecipients(estRecipients, estAdditional); err != nil {
		return err
	}

	var capAmount *money.Amount
	if estCap != "" {
		v, err := money.Parse(estCap)
		if err != nil {
			return fmt.Errorf("invalid --cap: %w", err)
		}
		capAmount = &v
	}

	var resp *client.EstimateResponse
	if estBalance != "" {
		if estSegmentID != "" {
			return fmt.Errorf("--segment needs the backend and cannot be combined with --balance")
		}
		balance, err := money.Parse(estBalance)
		if err != nil {
			return fmt.Errorf("invalid --balance: %w", err)
		}
		resp = localEstimate(estRecipients, balance, cfg.Pricing, capAmount, estAdditional)
	} else {
		resp, err = newClient(cfg).Estimate(commandContext(cmd), &client.EstimateRequest{
			RecipientCount: estRecipients,
			SegmentID:      estSegmentID,
			BudgetCap:      capAmount,
			Additional:     estAdditional,
		})
		if err != nil {
			return fmt.Errorf("failed to get estimate: %w", err)
		}
	}

	if estJSON {
		return printJSON(cmd.OutOrStdout(), resp)
	}
	printEstimate(cmd.OutOrStdout(), resp)
	return nil
}

func localEstimate(recipients int, balance money.Amount, p admission.Pricing, capAmount *money.Amount, additional int) *client.EstimateResponse {
	resp := &client.EstimateResponse{
		Estimate: admission.Quote(recipients, balance, p),
	}
	if capAmount != nil {
		d := admission.CheckBudgetCap(recipients, additional, p, *capAmount)
		resp.Budget = &d
	}
	return resp
}

func printEstimate(w io.Writer, resp *client.EstimateResponse) {
	e := resp.Estimate
	fmt.Fprintf(w, "Recipients:        %d\n", e.RecipientCount)
	fmt.Fprintf(w, "Per message:       %s\n", e.PerMessageCost)
	fmt.Fprintf(w, "Startup fee:       %s\n", e.StartupFee)
	fmt.Fprintf(w, "Total cost:        %s\n", e.TotalCost)
	fmt.Fprintf(w, "Available balance: %s\n", e.AvailableBalance)
	if e.Admitted {
		fmt.Fprintln(w, "Status:            OK")
	} else {
		fmt.Fprintf(w, "Status:            insufficient balance, top up %s\n", e.Shortfall)
	}
	if resp.Budget != nil {
		printBudget(w, *resp.Budget)
	}
}

func runBudget(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkRecipients(budgetCurrent, budgetAdditional); err != nil {
		return err
	}
	capAmount, err := money.Parse(budgetCap)
	if err != nil {
		return fmt.Errorf("invalid --cap: %w", err)
	}

	printBudget(cmd.OutOrStdout(), admission.CheckBudgetCap(budgetCurrent, budgetAdditional, cfg.Pricing, capAmount))
	return nil
}

func printBudget(w io.Writer, d admission.BudgetDecision) {
	fmt.Fprintf(w, "Max additional:    %d\n", d.MaxAdditional)
	if d.Allowed {
		fmt.Fprintln(w, "Budget cap:        OK")
	} else {
		fmt.Fprintln(w, "Budget cap:        exceeded")
	}
}

func runReboost(cmd *cobra.Command, args []string) error {
	if err := checkRecipients(reboostRecipients); err != nil {
		return err
	}

	credits := reboostCredits
	if credits < 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		credits, err = newClient(cfg).GetCredits(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("failed to get credits: %w", err)
		}
	}

	d := admission.CheckReboostAdmission(reboostRecipients, credits)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Credits needed:    %d\n", d.CreditsNeeded)
	fmt.Fprintf(out, "Credits available: %d\n", credits)
	if d.Admitted {
		fmt.Fprintln(out, "Status:            OK")
	} else {
		fmt.Fprintf(out, "Status:            not enough credits, %d more needed\n", d.CreditsNeeded-credits)
	}
	return nil
}

func checkRecipients(counts ...int) error {
	for _, n := range counts {
		if n < 0 || n > admission.MaxRecipients {
			return fmt.Errorf("recipient counts must be between 0 and %d", admission.MaxRecipients)
		}
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
