package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"rolesync/internal/claims/token"
	"rolesync/internal/documents"
	"rolesync/internal/platform/config"
)

type inspectOutput struct {
	UserID  string           `json:"user_id"`
	Profile documents.Fields `json:"profile"`
	Claims  map[string]any   `json:"claims"`
	Drifted bool             `json:"drifted"`
	Token   string           `json:"token,omitempty"`
}

func newInspectCmd() *cobra.Command {
	var withToken bool

	cmd := &cobra.Command{
		Use:   "inspect <user-id>",
		Short: "Show a user's profile role, claim set, and drift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID := args[0]

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			profile, err := a.profiles.Get(ctx, a.service.Policy().ProfileRef(userID))
			if err != nil && !documents.IsNotFound(err) {
				return err
			}
			cs, err := a.claims.Get(ctx, userID)
			if err != nil {
				return err
			}
			drifted, err := a.service.Drifted(ctx, userID, profile)
			if err != nil {
				return err
			}

			out := inspectOutput{UserID: userID, Profile: profile, Claims: cs, Drifted: drifted}
			if withToken {
				issuer := token.NewIssuer(cfg.Token.SigningKey, cfg.Token.Issuer)
				if out.Token, err = issuer.Issue(userID, cs, cfg.Token.TTL); err != nil {
					return fmt.Errorf("issue preview token: %w", err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&withToken, "token", false, "also mint a token carrying the current claims")
	return cmd
}
