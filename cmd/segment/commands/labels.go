package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nvr-ai/go-segmentation/labels"
	"github.com/nvr-ai/go-segmentation/models/postprocess"
)

func newLabelsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List the class vocabulary and palette colors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}

			catalog := labels.VOC()
			if cfg.LabelsPath != "" {
				if catalog, err = labels.Load(cfg.LabelsPath); err != nil {
					return err
				}
			}
			palette, err := cfg.Palette()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tLABEL\tCOLOR")
			for i, name := range catalog.Names() {
				c := palette.Color(postprocess.ClassIndex(i))
				fmt.Fprintf(w, "%d\t%s\t#%02x%02x%02x\n", i, name, c.R, c.G, c.B)
			}
			return w.Flush()
		},
	}
}
