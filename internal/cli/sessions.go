package cli

import (
	"github.com/spf13/cobra"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

var createCmd = &cobra.Command{
	Use:   "create <name> <wallet>...",
	Short: "Create a session with the given participant wallets",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCreate,
}

var (
	createDescription string
	createJoined      []string // wallets that start out joined
	createState       string
)

var listCmd = &cobra.Command{
	Use:   "list <wallet>",
	Short: "List the sessions a wallet participates in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc Sessions) (any, error) {
			return svc.ListSessionsByWallet(cmd.Context(), args[0])
		})
	},
}

var joinCmd = &cobra.Command{
	Use:   "join <session-id> <wallet>",
	Short: "Join a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc Sessions) (any, error) {
			return svc.JoinSession(cmd.Context(), args[0], args[1])
		})
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <session-id> <wallet>",
	Short: "Activate a session once every participant has joined",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc Sessions) (any, error) {
			return svc.ActivateSession(cmd.Context(), args[0], args[1])
		})
	},
}

var detailsCmd = &cobra.Command{
	Use:   "details <session-id>",
	Short: "Show a session with its participants and expenses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(svc Sessions) (any, error) {
			return svc.GetSessionDetails(cmd.Context(), args[0])
		})
	},
}

func init() {
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Session description")
	createCmd.Flags().StringSliceVar(&createJoined, "joined", nil, "Wallets that have already joined")
	createCmd.Flags().StringVar(&createState, "state", string(model.SessionPending), "Initial session state")

	rootCmd.AddCommand(createCmd, listCmd, joinCmd, activateCmd, detailsCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	joined := make(map[string]bool, len(createJoined))
	for _, wallet := range createJoined {
		joined[wallet] = true
	}

	participants := make([]model.NewParticipant, 0, len(args)-1)
	for _, wallet := range args[1:] {
		participants = append(participants, model.NewParticipant{WalletAddress: wallet, Joined: joined[wallet]})
	}

	session := model.Session{
		Name:        args[0],
		Description: createDescription,
		State:       model.SessionState(createState),
	}

	return withService(cmd, func(svc Sessions) (any, error) {
		return svc.CreateSession(cmd.Context(), session, participants)
	})
}
