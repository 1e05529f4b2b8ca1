package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/foxzi/reachgate/internal/config"
	"github.com/foxzi/reachgate/internal/segment"
)

// segmentBackend is implemented by both the REST client and the local store
type segmentBackend interface {
	segment.Store
	segment.Counter
	GetSegment(ctx context.Context, id string) (*segment.Segment, error)
	ListSegments(ctx context.Context) ([]*segment.Segment, error)
	DeleteSegment(ctx context.Context, id string) error
}

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Manage contact segments",
	Long: `Manage contact segments on the backend, or directly in the local
store with --local. Segment files are YAML or JSON:

  name: Active buyers
  type: dynamic
  rules:
    - field: tags
      operator: in
      value: [buyer]
    - field: last_active_date
      operator: gte
      value: "2024-01-01"`,
}

var segmentCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count contacts matching the rules of a segment file",
	RunE:  runSegmentCount,
}

var segmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a segment from a file",
	RunE:  runSegmentCreate,
}

var segmentUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace a segment with the contents of a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSegmentUpdate,
}

var segmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List segments",
	RunE:  runSegmentList,
}

var segmentGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a segment",
	Args:  cobra.ExactArgs(1),
	RunE:  runSegmentGet,
}

var segmentDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a segment",
	Args:  cobra.ExactArgs(1),
	RunE:  runSegmentDelete,
}

var segmentFieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List rule fields and their operators",
	Run:   runSegmentFields,
}

var (
	segmentFile  string
	segmentLocal bool
)

func init() {
	segmentCmd.PersistentFlags().BoolVar(&segmentLocal, "local", false, "use the local store instead of the backend")

	for _, c := range []*cobra.Command{segmentCountCmd, segmentCreateCmd, segmentUpdateCmd} {
		c.Flags().StringVarP(&segmentFile, "file", "f", "", "segment file (YAML or JSON)")
		c.MarkFlagRequired("file")
	}

	segmentCmd.AddCommand(segmentCountCmd, segmentCreateCmd, segmentUpdateCmd,
		segmentListCmd, segmentGetCmd, segmentDeleteCmd, segmentFieldsCmd)
	rootCmd.AddCommand(segmentCmd)
}

// openSegmentBackend returns the backend selected by --local and a function
// releasing it
func openSegmentBackend(cfg *config.Config) (segmentBackend, func(), error) {
	if !segmentLocal {
		return newClient(cfg), func() {}, nil
	}
	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil
}

// readSegmentFile decodes a segment definition. YAML is a superset of JSON,
// so both formats go through the YAML decoder.
func readSegmentFile(path string) (*segment.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment file: %w", err)
	}

	var seg segment.Segment
	if err := yaml.Unmarshal(data, &seg); err != nil {
		return nil, fmt.Errorf("failed to parse segment file: %w", err)
	}
	if seg.Type == "" {
		seg.Type = segment.TypeDynamic
	}
	for i, r := range seg.Rules {
		if err := r.CheckShape(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}
	return &seg, nil
}

func runSegmentCount(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	seg, err := readSegmentFile(segmentFile)
	if err != nil {
		return err
	}

	if seg.Type == segment.TypeStatic {
		fmt.Fprintf(cmd.OutOrStdout(), "Matching contacts: %d\n", len(seg.ContactIDs))
		return nil
	}

	backend, release, err := openSegmentBackend(cfg)
	if err != nil {
		return err
	}
	defer release()

	count, err := backend.CountSegment(commandContext(cmd), seg.Rules)
	if err != nil {
		return fmt.Errorf("failed to count segment: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Matching contacts: %d\n", count)
	return nil
}

func runSegmentCreate(cmd *cobra.Command, args []string) error {
	seg, err := readSegmentFile(segmentFile)
	if err != nil {
		return err
	}
	seg.ID = ""
	return submitSegment(cmd, seg)
}

func runSegmentUpdate(cmd *cobra.Command, args []string) error {
	seg, err := readSegmentFile(segmentFile)
	if err != nil {
		return err
	}
	seg.ID = args[0]
	return submitSegment(cmd, seg)
}

// submitSegment runs seg through a segment form so the same validation and
// create-or-update logic as the dashboard applies
func submitSegment(cmd *cobra.Command, seg *segment.Segment) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, release, err := openSegmentBackend(cfg)
	if err != nil {
		return err
	}
	defer release()

	form := segment.NewForm(backend, backend, segment.FormOptions{
		Debounce: cfg.Segments.Debounce,
		Timeout:  cfg.Segments.CountTimeout,
		Logger:   newLogger(cfg),
	})
	if err := form.Open(seg); err != nil {
		return err
	}
	defer form.Close()

	saved, err := form.Submit(commandContext(cmd))
	if err != nil {
		if segment.IsValidationError(err) {
			return fmt.Errorf("invalid segment: %w", err)
		}
		return fmt.Errorf("failed to save segment: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Segment saved: %s (%s)\n", saved.ID, saved.Name)
	return nil
}

func runSegmentList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, release, err := openSegmentBackend(cfg)
	if err != nil {
		return err
	}
	defer release()

	segments, err := backend.ListSegments(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list segments: %w", err)
	}

	if len(segments) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No segments")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tMEMBERS")
	for _, s := range segments {
		members := fmt.Sprintf("%d rules", len(s.Rules))
		if s.Type == segment.TypeStatic {
			members = fmt.Sprintf("%d contacts", len(s.ContactIDs))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Type, members)
	}
	return w.Flush()
}

func runSegmentGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, release, err := openSegmentBackend(cfg)
	if err != nil {
		return err
	}
	defer release()

	seg, err := backend.GetSegment(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to get segment: %w", err)
	}
	printSegment(cmd.OutOrStdout(), seg)
	return nil
}

func printSegment(w io.Writer, seg *segment.Segment) {
	fmt.Fprintf(w, "ID:          %s\n", seg.ID)
	fmt.Fprintf(w, "Name:        %s\n", seg.Name)
	if seg.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", seg.Description)
	}
	fmt.Fprintf(w, "Type:        %s\n", seg.Type)
	if seg.Type == segment.TypeStatic {
		fmt.Fprintf(w, "Contacts:    %s\n", strings.Join(seg.ContactIDs, ", "))
	} else {
		fmt.Fprintln(w, "Rules:")
		for i, r := range seg.Rules {
			fmt.Fprintf(w, "  %d. %s\n", i+1, r)
		}
	}
	if !seg.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:     %s\n", seg.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func runSegmentDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	backend, release, err := openSegmentBackend(cfg)
	if err != nil {
		return err
	}
	defer release()

	if err := backend.DeleteSegment(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Segment %s deleted\n", args[0])
	return nil
}

func runSegmentFields(cmd *cobra.Command, args []string) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tTYPE\tOPERATORS\tOPTIONS")
	for _, f := range segment.Fields() {
		ops := make([]string, 0, len(f.Operators()))
		for _, op := range f.Operators() {
			ops = append(ops, string(op))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f, f.Type(), strings.Join(ops, ","), strings.Join(f.Options(), ","))
	}
	w.Flush()
}
