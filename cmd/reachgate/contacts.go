package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foxzi/reachgate/internal/importer"
	"github.com/foxzi/reachgate/internal/segment"
	"github.com/foxzi/reachgate/internal/store"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage contacts",
}

var contactsImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import contacts from a CSV file",
	Long: `Import contacts from a CSV file with a header row. A phone column is
required; name, email, tags, engagement_status, last_active_date, created_at
and campaigns columns are optional. Tags and campaigns are separated by ';'.
Contacts are matched to existing ones by phone number.

By default contacts are written to the local store; --remote uploads them
to the backend instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runContactsImport,
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts",
	RunE:  runContactsList,
}

var (
	contactsRemote bool
	contactsLimit  int
	contactsOffset int
)

func init() {
	contactsCmd.PersistentFlags().BoolVar(&contactsRemote, "remote", false, "use the backend instead of the local store")
	contactsListCmd.Flags().IntVar(&contactsLimit, "limit", 50, "maximum number of contacts")
	contactsListCmd.Flags().IntVar(&contactsOffset, "offset", 0, "number of contacts to skip")

	contactsCmd.AddCommand(contactsImportCmd, contactsListCmd)
	rootCmd.AddCommand(contactsCmd)
}

func runContactsImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	parsed, err := importer.ParseCSV(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	for _, rowErr := range parsed.Skipped {
		fmt.Fprintf(out, "Skipped %v\n", rowErr)
	}
	if len(parsed.Contacts) == 0 {
		return fmt.Errorf("no valid contacts in %s", args[0])
	}

	ctx := commandContext(cmd)
	var created, updated int
	if contactsRemote {
		res, err := newClient(cfg).ImportContacts(ctx, parsed.Contacts)
		if err != nil {
			return fmt.Errorf("failed to upload contacts: %w", err)
		}
		created, updated = res.Created, res.Updated
	} else {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := st.UpsertContacts(ctx, parsed.Contacts)
		if err != nil {
			return fmt.Errorf("failed to store contacts: %w", err)
		}
		created, updated = res.Created, res.Updated
	}

	fmt.Fprintf(out, "Imported %d contacts: %d created, %d updated, %d skipped\n",
		created+updated, created, updated, len(parsed.Skipped))
	return nil
}

func runContactsList(cmd *cobra.Command, args []string) error {
	if contactsLimit <= 0 || contactsOffset < 0 {
		return fmt.Errorf("limit must be positive and offset non-negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	var contacts []*segment.Contact
	if contactsRemote {
		contacts, err = newClient(cfg).ListContacts(ctx, contactsLimit, contactsOffset)
	} else {
		st, openErr := openStore(cfg)
		if openErr != nil {
			return openErr
		}
		defer st.Close()
		contacts, err = st.ListContacts(ctx, store.ListFilter{Limit: contactsLimit, Offset: contactsOffset})
	}
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	if len(contacts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No contacts")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPHONE\tNAME\tSTATUS\tTAGS\tLAST ACTIVE")
	for _, c := range contacts {
		lastActive := "-"
		if !c.LastActiveDate.IsZero() {
			lastActive = c.LastActiveDate.Format(segment.DateLayout)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Phone, c.Name, c.EngagementStatus, strings.Join(c.Tags, ","), lastActive)
	}
	return w.Flush()
}
