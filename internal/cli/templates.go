package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ronappleton/flowdesk/internal/catalog"
	"github.com/ronappleton/flowdesk/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func newTemplatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Browse the built-in template catalog",
	}
	cmd.PersistentFlags().String("format", formatTable, "Output format: table, json or yaml")
	cmd.PersistentFlags().Int("per-tier", 0, "Generated templates per tier (default from config)")
	cmd.AddCommand(newTemplatesListCommand(), newTemplatesShowCommand())
	return cmd
}

func newTemplatesListCommand() *cobra.Command {
	var q catalog.Query
	var tier string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q.Tier = catalog.Tier(tier)
			if q.Tier != "" && !q.Tier.Valid() {
				return fmt.Errorf("unknown tier %q", tier)
			}
			c, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			items := c.Filter(q)
			format, _ := cmd.Flags().GetString("format")
			if format == formatTable {
				return writeTable(cmd.OutOrStdout(), items)
			}
			return writeFormatted(cmd.OutOrStdout(), format, items)
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "", "Only this tier (solopreneur, startup, sme, enterprise)")
	cmd.Flags().StringVar(&q.Tag, "tag", "", "Only templates carrying this tag")
	cmd.Flags().StringVar(&q.Text, "q", "", "Free text search over name, description and tags")
	return cmd
}

func newTemplatesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			tpl, ok := c.Lookup(args[0])
			if !ok {
				return fmt.Errorf("template %q not found", args[0])
			}
			format, _ := cmd.Flags().GetString("format")
			if format == formatTable {
				format = formatYAML
			}
			return writeFormatted(cmd.OutOrStdout(), format, tpl)
		},
	}
}

func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, err
	}
	perTier := cfg.Catalog.PerTier
	if n, _ := cmd.Flags().GetInt("per-tier"); n > 0 {
		perTier = n
	}
	return catalog.New(perTier, nil), nil
}

func writeTable(w io.Writer, items []catalog.Template) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIER\tSTEPS\tTRIGGER\tAPPROVAL\tNAME")
	for _, t := range items {
		approval := "-"
		if t.Approval.Required {
			approval = fmt.Sprintf("%d", t.Approval.Threshold)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", t.ID, t.Tier, len(t.Pipeline), t.Trigger.Type, approval, t.Name)
	}
	return tw.Flush()
}

// writeFormatted prints v as JSON or YAML. YAML goes through the JSON form so
// both outputs share field names.
func writeFormatted(w io.Writer, format string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	switch format {
	case formatJSON:
		_, err = fmt.Fprintln(w, string(raw))
		return err
	case formatYAML:
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
