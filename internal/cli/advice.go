package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/advisor"
	"fintrack/internal/config"
)

func newAdviceCommand() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "advice [prompt]",
		Short: "Send a prompt to the generative model and print its answer",
		Long: "Send a prompt to the generative model and print its answer.\n" +
			"The prompt is taken from the arguments, or from stdin when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			if strings.TrimSpace(prompt) == "" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading prompt from stdin: %w", err)
				}
				prompt = string(data)
			}
			if strings.TrimSpace(prompt) == "" {
				return fmt.Errorf("empty prompt")
			}

			if model == "" {
				model = config.Load().GenAIModel
			}

			adv, err := advisor.New(cmd.Context(), model)
			if err != nil {
				return fmt.Errorf("creating advisor: %w", err)
			}

			text, err := adv.Generate(cmd.Context(), prompt)
			if err != nil {
				return fmt.Errorf("generating advice: %w", err)
			}
			fmt.Println(text)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "generative model name (default from config)")

	return cmd
}
