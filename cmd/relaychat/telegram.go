package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/morphlane/relaychat/dispatch"
	"github.com/morphlane/relaychat/engine"
	"github.com/morphlane/relaychat/internal/logutil"
	"github.com/morphlane/relaychat/internal/telegramapi"
)

func newTelegramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Run a Telegram bot relaying chats to the server pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(flagOrViperString(cmd, "telegram-bot-token", "telegram.bot_token"))
			if token == "" {
				return fmt.Errorf("missing telegram.bot_token (set via --telegram-bot-token or %s_TELEGRAM_BOT_TOKEN)", envPrefix)
			}

			allowed := make(map[int64]bool)
			for _, s := range flagOrViperStringArray(cmd, "telegram-allowed-chat-id", "telegram.allowed_chat_ids") {
				s = strings.TrimSpace(s)
				if s == "" {
					continue
				}
				id, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid telegram.allowed_chat_ids entry %q: %w", s, err)
				}
				allowed[id] = true
			}

			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			eng, dispatcher, store, err := engineFromViper(logger)
			if err != nil {
				return err
			}
			defer closeStore(store)

			bot := &telegramBot{
				api:           telegramapi.New(nil, telegramapi.DefaultBaseURL, token, logger),
				engine:        eng,
				dispatcher:    dispatcher,
				logger:        logger,
				allowed:       allowed,
				pollTimeout:   viper.GetDuration("telegram.poll_timeout"),
				maxVoiceBytes: viper.GetInt64("telegram.max_voice_bytes"),
			}
			return bot.run(cmd.Context())
		},
	}
	cmd.Flags().String("telegram-bot-token", "", "Bot API token.")
	cmd.Flags().StringArray("telegram-allowed-chat-id", nil, "Chat ids allowed to use the bot (repeatable; empty allows all).")
	return cmd
}

type telegramBot struct {
	api           *telegramapi.Client
	engine        *engine.Engine
	dispatcher    *dispatch.Dispatcher
	logger        *slog.Logger
	allowed       map[int64]bool
	pollTimeout   time.Duration
	maxVoiceBytes int64
}

func (b *telegramBot) run(ctx context.Context) error {
	me, err := b.api.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	b.logger.Info("telegram_bot_started", "username", me.Username, "id", me.ID)

	pollBackoff := backoff.NewExponentialBackOff()
	pollBackoff.InitialInterval = time.Second
	pollBackoff.MaxInterval = time.Minute
	pollBackoff.MaxElapsedTime = 0

	var offset int64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		updates, next, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if telegramapi.IsPollTimeout(err) {
				continue
			}
			wait := pollBackoff.NextBackOff()
			b.logger.Warn("telegram_poll_failed", "error", err.Error(), "retry_in", wait.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}
		pollBackoff.Reset()
		offset = next

		for _, update := range updates {
			msg := update.Message
			if msg == nil {
				msg = update.EditedMessage
			}
			if msg == nil || msg.Chat == nil {
				continue
			}
			if len(b.allowed) > 0 && !b.allowed[msg.Chat.ID] {
				b.logger.Debug("telegram_chat_not_allowed", "chat_id", msg.Chat.ID)
				continue
			}
			// One goroutine per update; per-chat ordering comes from the
			// engine's chat locks, the global semaphore caps fan-out.
			go b.handleMessage(ctx, msg)
		}
	}
}

func (b *telegramBot) handleMessage(ctx context.Context, msg *telegramapi.Message) {
	chatID := msg.Chat.ID
	chatKey := strconv.FormatInt(chatID, 10)

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		text = strings.TrimSpace(msg.Caption)
	}

	if fileID := voiceFileID(msg); fileID != "" {
		transcript, err := b.transcribeVoice(ctx, fileID)
		if err != nil {
			b.logger.Warn("telegram_voice_failed", "chat_id", chatID, "error", err.Error())
			b.reply(ctx, chatID, msg.MessageID, "Could not transcribe the voice message.")
			return
		}
		if transcript == "" {
			b.reply(ctx, chatID, msg.MessageID, "No speech recognized in the voice message.")
			return
		}
		text = transcript
	}

	if text == "" {
		return
	}

	if cmd, ok := parseCommand(text); ok {
		b.handleCommand(ctx, chatKey, chatID, msg.MessageID, cmd)
		return
	}

	b.api.SendTyping(ctx, chatID)
	answer, err := b.engine.Send(ctx, chatKey, text, engine.TemperatureUnset)
	if err != nil {
		b.logger.Error("telegram_send_rejected", "chat_id", chatID, "error", err.Error())
		return
	}
	if answer == "" {
		answer = "No response from any server, please try again later."
	}
	b.reply(ctx, chatID, msg.MessageID, answer)
}

func (b *telegramBot) handleCommand(ctx context.Context, chatKey string, chatID, messageID int64, cmd string) {
	switch cmd {
	case "start", "help":
		b.reply(ctx, chatID, messageID, "Send me a message or a voice note. Commands: /reset clears history, /undo removes the last exchange, /mem shows it.")
	case "reset":
		if err := b.engine.Reset(chatKey); err != nil {
			b.logger.Error("telegram_reset_failed", "chat_id", chatID, "error", err.Error())
			return
		}
		b.reply(ctx, chatID, messageID, "History cleared.")
	case "undo":
		if err := b.engine.Undo(chatKey); err != nil {
			b.logger.Error("telegram_undo_failed", "chat_id", chatID, "error", err.Error())
			return
		}
		b.reply(ctx, chatID, messageID, "Last exchange removed.")
	case "mem":
		text, err := b.engine.HistoryAsString(chatKey)
		if err != nil {
			b.logger.Error("telegram_mem_failed", "chat_id", chatID, "error", err.Error())
			return
		}
		if text == "" {
			text = "(empty)"
		}
		b.reply(ctx, chatID, messageID, text)
	default:
		b.reply(ctx, chatID, messageID, "Unknown command.")
	}
}

func (b *telegramBot) transcribeVoice(ctx context.Context, fileID string) (string, error) {
	file, err := b.api.GetFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	audio, err := b.api.DownloadFile(ctx, file.FilePath, b.maxVoiceBytes)
	if err != nil {
		return "", err
	}
	out := b.dispatcher.ExecuteTranscription(ctx, audio, fileBaseName(file.FilePath), transcriptionTimeout())
	if !out.Succeeded {
		return "", nil
	}
	return out.Text, nil
}

func (b *telegramBot) reply(ctx context.Context, chatID, replyTo int64, text string) {
	if err := b.api.SendMessageChunked(ctx, chatID, text, replyTo); err != nil {
		b.logger.Error("telegram_reply_failed", "chat_id", chatID, "error", err.Error())
	}
}

// parseCommand extracts "/cmd" or "/cmd@botname" at the start of a message.
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := strings.Fields(text)[0]
	cmd = strings.TrimPrefix(cmd, "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	if cmd == "" {
		return "", false
	}
	return cmd, true
}

func voiceFileID(msg *telegramapi.Message) string {
	if msg.Voice != nil {
		return msg.Voice.FileID
	}
	if msg.Audio != nil {
		return msg.Audio.FileID
	}
	return ""
}

func fileBaseName(filePath string) string {
	if i := strings.LastIndex(filePath, "/"); i >= 0 {
		filePath = filePath[i+1:]
	}
	if filePath == "" {
		return "voice.oga"
	}
	return filePath
}
