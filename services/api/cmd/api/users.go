package main

import (
	"github.com/spf13/cobra"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/app"
	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/clock"
)

func newUsersCommand(rt *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the user directory",
	}

	var in app.RegisterUserInput
	put := &cobra.Command{
		Use:     "put",
		Short:   "Create or replace a user",
		Example: "  api users put --id seller-1 --role seller --payout iban=DE00123,bank=Example",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStores(cmd.Context(), rt.cfg.Storage, rt.logger)
			if err != nil {
				return err
			}
			defer st.close()

			svc := app.NewAdminService(st.orders, st.users, st.audit, clock.NewSystem(), app.WithLogger(rt.logger))
			_, err = svc.RegisterUser(cmd.Context(), in)
			return err
		},
	}
	put.Flags().StringVar(&in.ID, "id", "", "user id as sent in X-Actor-ID")
	put.Flags().StringVar(&in.Role, "role", "", "buyer, seller or admin")
	put.Flags().StringToStringVar(&in.PayoutDetails, "payout", nil, "seller payout details as key=value pairs")
	_ = put.MarkFlagRequired("id")
	_ = put.MarkFlagRequired("role")

	cmd.AddCommand(put)
	return cmd
}
