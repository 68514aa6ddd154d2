package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	leaveSession string
	leaveUser    string
)

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "File a leave application through a guided dialogue",
	Long: `Starts an interactive leave-application dialogue. The assistant asks
for any missing details (leave type, dates) and files the request once
everything is confirmed. Date conflicts surface suggested alternatives.

Type "quit" to abandon the dialogue.`,
	RunE: runLeave,
}

func init() {
	leaveCmd.Flags().StringVar(&leaveSession, "session", "", "session ID (default: new session)")
	leaveCmd.Flags().StringVar(&leaveUser, "user", "", "employee user ID (required)")
	leaveCmd.MarkFlagRequired("user") //nolint:errcheck
	rootCmd.AddCommand(leaveCmd)
}

func runLeave(cmd *cobra.Command, _ []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	sessionID := leaveSession
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	cmd.Printf("Leave application (session %s). What would you like to do?\n", sessionID)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		utterance := strings.TrimSpace(scanner.Text())
		if utterance == "" {
			continue
		}
		if utterance == "quit" || utterance == "exit" {
			cmd.Println("Dialogue abandoned.")
			return nil
		}

		result, err := a.assistant.SubmitLeaveTurn(cmd.Context(), sessionID, leaveUser, utterance)
		if err != nil {
			return fmt.Errorf("turn failed: %w", err)
		}

		cmd.Println(result.Reply)

		if result.Result != nil {
			// Filed; the dialogue is complete.
			return nil
		}
	}
}
