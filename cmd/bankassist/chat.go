package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtb-digital/banking-assistant/internal/config"
	"github.com/mtb-digital/banking-assistant/internal/session"
)

func newChatCmd() *cobra.Command {
	var callerID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			application, err := buildApp(cfg)
			if err != nil {
				return err
			}

			sessionID := "terminal-" + session.NewSessionID()
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "=== Banking Assistant ===")
			fmt.Fprintln(out, "Type 'quit' to exit")
			fmt.Fprintln(out, "Special commands:")
			fmt.Fprintln(out, "  !inject <prompt> - Inject a system prompt")
			fmt.Fprintln(out, "  !caller <number> - Set your caller ID (mobile number)")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Assistant: How can I help you today?")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "You: ")
				if !scanner.Scan() {
					break
				}
				input := strings.TrimSpace(scanner.Text())
				if input == "" {
					continue
				}
				if strings.EqualFold(input, "quit") || strings.EqualFold(input, "exit") {
					break
				}
				if prompt, ok := strings.CutPrefix(input, "!inject "); ok {
					application.bot.InjectPrompt(sessionID, prompt)
					fmt.Fprintln(out, "Prompt injected successfully.")
					continue
				}
				if number, ok := strings.CutPrefix(input, "!caller "); ok {
					callerID = strings.TrimSpace(number)
					fmt.Fprintf(out, "Caller ID (mobile number) set to: %s\n", callerID)
					continue
				}

				reply := application.bot.ProcessMessage(cmd.Context(), sessionID, input, callerID, session.ChannelTerminal)
				fmt.Fprintf(out, "Assistant: %s\n", reply)
			}

			application.bot.EndSession(sessionID)
			fmt.Fprintln(out, "Goodbye!")
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&callerID, "caller", "", "Caller ID (mobile number)")
	return cmd
}
