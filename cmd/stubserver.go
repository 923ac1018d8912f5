package cmd

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/finwell/internal/config"
	"github.com/abhisek/finwell/internal/logging"
	"github.com/abhisek/finwell/internal/stubserver"
)

var stubServerCmd = &cobra.Command{
	Use:   "stub-server",
	Short: "Run an in-memory survey service for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		tokens, _ := cmd.Flags().GetStringSlice("token")
		permissive := cfg.Stub.Permissive
		if cmd.Flags().Changed("permissive") {
			permissive, _ = cmd.Flags().GetBool("permissive")
		}

		logger := logging.New(logging.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cmd.ErrOrStderr(),
		})
		srv := stubserver.New(stubserver.Options{Permissive: permissive, Logger: logger})
		for _, t := range tokens {
			token, account, ok := strings.Cut(t, "=")
			if !ok || token == "" || account == "" {
				return fmt.Errorf("invalid --token %q (want token=account)", t)
			}
			srv.RegisterToken(token, account)
		}

		addr = cmp.Or(addr, cfg.Stub.Addr)
		fmt.Fprintf(cmd.OutOrStdout(), "Stub survey service on http://%s/api/v1\n", addr)
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	stubServerCmd.Flags().String("addr", "", "Listen address (default stub.addr)")
	stubServerCmd.Flags().Bool("permissive", true, "Accept any bearer token as its own account")
	stubServerCmd.Flags().StringSlice("token", nil, "Register token=account (repeatable)")
}
