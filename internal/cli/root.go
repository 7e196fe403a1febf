// Package cli implements the sessionctl command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivanoskov/wallet_sessions/internal/app"
	"github.com/ivanoskov/wallet_sessions/internal/model"
)

// Sessions is the session lifecycle the commands call.
type Sessions interface {
	CreateSession(ctx context.Context, session model.Session, participants []model.NewParticipant) (*model.Session, error)
	ListSessionsByWallet(ctx context.Context, wallet string) ([]model.SessionSummary, error)
	JoinSession(ctx context.Context, sessionID, wallet string) (*model.Participant, error)
	ActivateSession(ctx context.Context, sessionID, wallet string) (*model.Session, error)
	GetSessionDetails(ctx context.Context, sessionID string) (*model.SessionDetails, error)
}

var rootCmd = &cobra.Command{
	Use:   "sessionctl",
	Short: "Manage shared expense sessions",
	Long: `sessionctl creates, lists, joins, activates and inspects shared expense
sessions in the configured store. Store settings come from the environment
or a .env file (STORE_BACKEND, SUPABASE_URL, SUPABASE_KEY, DATABASE_URL).`,
	SilenceUsage: true,
}

// openService is replaced in tests.
var openService = func(ctx context.Context) (Sessions, func(), error) {
	_, svc, cleanup, err := app.Bootstrap(ctx)
	if err != nil {
		return nil, cleanup, err
	}
	return svc, cleanup, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// withService opens the service for the duration of one command.
func withService(cmd *cobra.Command, fn func(svc Sessions) (any, error)) error {
	svc, cleanup, err := openService(cmd.Context())
	defer cleanup()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	result, err := fn(svc)
	if err != nil {
		return err
	}
	return printJSON(cmd, result)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
