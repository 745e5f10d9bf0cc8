package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/morphlane/relaychat/convstore"
	"github.com/morphlane/relaychat/dispatch"
	"github.com/morphlane/relaychat/engine"
	"github.com/morphlane/relaychat/serverpool"
	"github.com/morphlane/relaychat/textfix"
)

func storeFromViper() (convstore.Store, error) {
	ceilings := convstore.Ceilings{
		MaxChars: viper.GetInt("chat.max_history_chars"),
		MaxPairs: viper.GetInt("chat.max_history_pairs"),
	}
	switch driver := strings.TrimSpace(viper.GetString("store.driver")); driver {
	case "", "file":
		dir, err := expandHome(viper.GetString("store.dir"))
		if err != nil {
			return nil, err
		}
		return convstore.NewFileStore(dir, ceilings)
	case "sqlite":
		path, err := expandHome(viper.GetString("store.sqlite_path"))
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, err
		}
		return convstore.NewSQLiteStore(path, ceilings)
	default:
		return nil, fmt.Errorf("unknown store.driver: %s", driver)
	}
}

func dispatcherFromViper(logger *slog.Logger) (*dispatch.Dispatcher, error) {
	pool, err := serverpool.FromViper()
	if err != nil {
		return nil, err
	}
	if pool.Len() == 0 {
		return nil, fmt.Errorf("no servers configured (set servers in the config file)")
	}

	fixer, err := fixerFromViper()
	if err != nil {
		return nil, err
	}

	return dispatch.New(dispatch.Config{
		Pool:   pool,
		Logger: logger,
		Fixer:  fixer,
	}), nil
}

func engineFromViper(logger *slog.Logger) (*engine.Engine, *dispatch.Dispatcher, convstore.Store, error) {
	dispatcher, err := dispatcherFromViper(logger)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := storeFromViper()
	if err != nil {
		return nil, nil, nil, err
	}
	eng := engine.New(dispatcher, store, engine.Config{
		SystemPrompt:  viper.GetString("chat.system_prompt"),
		Temperature:   viper.GetFloat64("chat.temperature"),
		MaxTokens:     viper.GetInt("chat.max_tokens"),
		Timeout:       viper.GetDuration("chat.request_timeout"),
		MaxConcurrent: viper.GetInt64("dispatch.max_concurrent"),
	}, logger)
	return eng, dispatcher, store, nil
}

// fixerFromViper loads the correction dictionary, one word per line. An
// unset path disables response fixing.
func fixerFromViper() (*textfix.Fixer, error) {
	path := strings.TrimSpace(viper.GetString("chat.dictionary_path"))
	if path == "" {
		return nil, nil
	}
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words = append(words, w)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read dictionary: %w", err)
	}
	return textfix.NewFixer(words), nil
}

func expandHome(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

func transcriptionTimeout() time.Duration {
	return viper.GetDuration("dispatch.transcription_timeout")
}
