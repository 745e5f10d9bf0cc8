package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Chat behavior.
	viper.SetDefault("chat.system_prompt", "")
	viper.SetDefault("chat.temperature", 0.1)
	viper.SetDefault("chat.max_tokens", 2000)
	viper.SetDefault("chat.request_timeout", 60*time.Second)
	viper.SetDefault("chat.max_history_chars", 25000)
	viper.SetDefault("chat.max_history_pairs", 20)
	viper.SetDefault("chat.dictionary_path", "")

	// Dispatch.
	viper.SetDefault("dispatch.max_concurrent", 24)
	viper.SetDefault("dispatch.transcription_timeout", 120*time.Second)
	viper.SetDefault("dispatch.image_timeout", 180*time.Second)

	// History storage.
	viper.SetDefault("store.driver", "file")
	viper.SetDefault("store.dir", "~/.relaychat/history")
	viper.SetDefault("store.sqlite_path", "~/.relaychat/history.db")

	// Telegram transport.
	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.poll_timeout", 30*time.Second)
	viper.SetDefault("telegram.max_voice_bytes", int64(20*1024*1024))

	// Servers come from the config file or environment; no usable default.
	viper.SetDefault("servers", []map[string]any{})

	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("trace", false)
}
