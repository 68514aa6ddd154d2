package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driving"
)

var (
	askLocale string
	askTopK   int
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a policy question",
	Long: `Answers an HR policy question from the ingested corpus, with citations.
Low-confidence answers carry an explicit caveat.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLocale, "locale", "", "restrict retrieval to one locale")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "passages to retrieve (0 = default)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := getApp()
	if err != nil {
		return err
	}

	answer, err := a.assistant.AnswerPolicyQuery(cmd.Context(), args[0], askLocale, askTopK)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	return outputAnswerText(cmd, answer)
}

func outputAnswerJSON(cmd *cobra.Command, answer driving.PolicyAnswer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer driving.PolicyAnswer) error {
	cmd.Println(answer.Answer)

	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, c := range answer.Citations {
			line := fmt.Sprintf("  [%d] %s", i+1, c.PolicyID)
			if c.SectionTitle != "" {
				line += ", " + c.SectionTitle
			}
			line += fmt.Sprintf(" (effective %s, score %.2f)",
				c.EffectiveDate.Format("2006-01-02"), c.Score)
			cmd.Println(line)
		}
	}

	if answer.LowConfidence {
		cmd.Println()
		cmd.Println("Note: retrieval confidence was low; verify with HR before relying on this.")
	}
	return nil
}
