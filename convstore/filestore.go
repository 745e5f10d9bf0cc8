package convstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/morphlane/relaychat/internal/fsstore"
)

// FileStore keeps one JSON document per chat under a state directory.
// Flushes are atomic (temp file + rename) and serialized by a single save
// lock; that lock is strictly narrower than the per-chat lock held by the
// engine, it only covers the flush itself.
type FileStore struct {
	dir      string
	ceilings Ceilings

	saveMu sync.Mutex
}

func NewFileStore(dir string, ceilings Ceilings) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("convstore: empty store dir")
	}
	if err := fsstore.EnsureDir(dir); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, ceilings: ceilings}, nil
}

func (s *FileStore) Read(chatID string) ([]Turn, error) {
	path, err := s.chatPath(chatID)
	if err != nil {
		return nil, err
	}
	var turns []Turn
	if _, err := fsstore.ReadJSON(path, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (s *FileStore) Write(chatID string, turns []Turn) error {
	path, err := s.chatPath(chatID)
	if err != nil {
		return err
	}
	pruned := Prune(turns, s.ceilings)
	if pruned == nil {
		pruned = []Turn{}
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return fsstore.WriteJSONAtomic(path, pruned)
}

func (s *FileStore) Clear(chatID string) error {
	return s.Write(chatID, nil)
}

// chatPath maps a chat identity to a stable filename. Identities that are
// already safe filenames are kept readable; anything else is hashed so
// Telegram-style ids like "[-100123] [456]" cannot escape the directory.
func (s *FileStore) chatPath(chatID string) (string, error) {
	if strings.TrimSpace(chatID) == "" {
		return "", ErrEmptyChatID
	}
	return filepath.Join(s.dir, safeChatFilename(chatID)+".json"), nil
}

func safeChatFilename(chatID string) string {
	safe := true
	for _, r := range chatID {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		safe = false
		break
	}
	if safe && len(chatID) <= 120 && !strings.HasPrefix(chatID, ".") {
		return chatID
	}
	sum := sha256.Sum256([]byte(chatID))
	return hex.EncodeToString(sum[:16])
}
