package cli

import (
	"github.com/spf13/cobra"

	"github.com/snarg/meeting-intel/internal/credentials"
	"github.com/snarg/meeting-intel/internal/present"
)

func NewCredentialsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "credentials",
		Short: "Show which API keys can be resolved",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := present.NewFormatter(deps.stdout)
			statuses, err := credentials.NewResolver(deps.Config.SecretsFile).Status()
			f.Credentials(statuses)
			if err != nil {
				f.Warning(err.Error())
			}
			return nil
		},
	}
}
