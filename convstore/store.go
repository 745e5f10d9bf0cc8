package convstore

import "errors"

var (
	ErrEmptyChatID = errors.New("convstore: empty chat id")
	ErrClosed      = errors.New("convstore: store closed")
)

// Store is the durable per-chat history. Write and Clear flush synchronously
// before returning, so a crash right after a successful dispatch cannot lose
// the just-completed pair. Callers serialize per-chat mutation through the
// chat lock registry; a store only has to keep concurrent flushes for
// different chats from corrupting its backing medium.
type Store interface {
	// Read returns the current history, empty if chat_id is unseen.
	Read(chatID string) ([]Turn, error)
	// Write replaces the stored history, prunes it to the configured
	// ceilings and persists.
	Write(chatID string, turns []Turn) error
	// Clear replaces the history with an empty sequence and persists.
	Clear(chatID string) error
}
