package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morphlane/relaychat/engine"
	"github.com/morphlane/relaychat/internal/logutil"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			eng, _, store, err := engineFromViper(logger)
			if err != nil {
				return err
			}
			defer closeStore(store)

			chatID := strings.TrimSpace(flagOrViperString(cmd, "chat-id", ""))
			if chatID == "" {
				chatID = "local"
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Type a message; 'mem' prints history, 'undo' drops the last pair, 'reset' clears, 'exit' quits.")
			sc := bufio.NewScanner(os.Stdin)
			sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				_, _ = fmt.Fprint(out, "> ")
				if !sc.Scan() {
					return sc.Err()
				}
				line := strings.TrimSpace(sc.Text())
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "mem":
					text, err := eng.HistoryAsString(chatID)
					if err != nil {
						return err
					}
					if text == "" {
						text = "(empty)\n"
					}
					_, _ = fmt.Fprint(out, text)
					continue
				case "undo":
					if err := eng.Undo(chatID); err != nil {
						return err
					}
					continue
				case "reset":
					if err := eng.Reset(chatID); err != nil {
						return err
					}
					continue
				}

				answer, err := eng.Send(cmd.Context(), chatID, line, engine.TemperatureUnset)
				if err != nil {
					return err
				}
				if answer == "" {
					answer = "(no response from any server)"
				}
				_, _ = fmt.Fprintln(out, answer)
			}
		},
	}
	cmd.Flags().String("chat-id", "local", "Conversation identity to read and append history under.")
	return cmd
}

func closeStore(store any) {
	if closer, ok := store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
