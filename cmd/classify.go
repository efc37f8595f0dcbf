package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nypl/scsbxml/internal/scsb"
)

func newClassifyCmd(configPath *string) *cobra.Command {
	var (
		access       string
		restriction  string
		distribution string
		customerCode string
		committed    bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Explain how an item would be classified",
		Long: `Prints the use restriction and collection group designation for one
item, along with the rules that decided them.`,
		Example: `  scsbxml classify --access u --restriction 55 --customer-code NA
  scsbxml classify --restriction 43 --customer-code NN`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			policy, err := cfg.LoadPolicy()
			if err != nil {
				return err
			}

			item := scsb.ItemData{
				Location: map[string]string{},
				Circulation: map[string]string{
					"o": access,
					"y": restriction,
					"d": distribution,
				},
			}
			result := struct {
				Policy         string              `yaml:"policy"`
				Classification scsb.Classification `yaml:"classification"`
			}{
				Policy:         policy.Version,
				Classification: policy.Classify(item, customerCode, committed),
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&access, "access", "", "OPAC message code (876$o)")
	cmd.Flags().StringVar(&restriction, "restriction", "", "Item restriction code (876$y)")
	cmd.Flags().StringVar(&distribution, "distribution", "", "Distribution code (876$d)")
	cmd.Flags().StringVar(&customerCode, "customer-code", "NA", "Customer code")
	cmd.Flags().BoolVar(&committed, "committed", false, "Item carries the committed annotation")

	return cmd
}
