package convstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "chats"), Ceilings{MaxChars: 25000, MaxPairs: 20})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chats.sqlite"), Ceilings{MaxChars: 25000, MaxPairs: 20})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })
	return map[string]Store{"file": fileStore, "sqlite": sqliteStore}
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			turns := append(pair(1), pair(2)...)
			if err := store.Write("chat-1", turns); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			got, err := store.Read("chat-1")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if len(got) != 4 || got[0] != turns[0] || got[3] != turns[3] {
				t.Fatalf("Read() = %v, want %v", got, turns)
			}
		})
	}
}

func TestStoreReadUnseenChat(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Read("never-seen")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("Read() = %v, want empty", got)
			}
		})
	}
}

func TestStoreClear(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Write("chat-1", pair(1)); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := store.Clear("chat-1"); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			got, err := store.Read("chat-1")
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if len(got) != 0 {
				t.Fatalf("Read() after Clear = %v, want empty", got)
			}
		})
	}
}

func TestStoreWriteEnforcesCeilings(t *testing.T) {
	t.Parallel()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "chats"), Ceilings{MaxPairs: 2})
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	var turns []Turn
	for i := range 6 {
		turns = append(turns, pair(i)...)
	}
	if err := fileStore.Write("chat-1", turns); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := fileStore.Read("chat-1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Read() kept %d turns, want 4", len(got))
	}
	if got[0].Content != "question 4" {
		t.Fatalf("Read() oldest surviving turn = %v, want pair 4", got[0])
	}
}

func TestStoreEmptyChatIDRejected(t *testing.T) {
	t.Parallel()

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Read(""); !errors.Is(err, ErrEmptyChatID) {
				t.Fatalf("Read(\"\") error = %v, want ErrEmptyChatID", err)
			}
			if err := store.Write(" ", pair(1)); !errors.Is(err, ErrEmptyChatID) {
				t.Fatalf("Write(\" \") error = %v, want ErrEmptyChatID", err)
			}
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "chats")
	store, err := NewFileStore(dir, DefaultCeilings())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if err := store.Write("tg:42", pair(7)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	reopened, err := NewFileStore(dir, DefaultCeilings())
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}
	got, err := reopened.Read("tg:42")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 2 || got[1].Content != "answer 7" {
		t.Fatalf("Read() after reopen = %v", got)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chats.sqlite")
	store, err := NewSQLiteStore(path, DefaultCeilings())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := store.Write("tg:42", pair(7)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(path, DefaultCeilings())
	if err != nil {
		t.Fatalf("NewSQLiteStore() reopen error = %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Read("tg:42")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 2 || got[1].Content != "answer 7" {
		t.Fatalf("Read() after reopen = %v", got)
	}
}

func TestFileStoreConcurrentDistinctChats(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(filepath.Join(t.TempDir(), "chats"), DefaultCeilings())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chatID := fmt.Sprintf("chat-%d", i%10)
			if err := store.Write(chatID, pair(i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Write() error = %v", err)
	}
}

func TestSafeChatFilename(t *testing.T) {
	t.Parallel()

	if got := safeChatFilename("tg-42_chat.main"); got != "tg-42_chat.main" {
		t.Fatalf("safeChatFilename() = %q, want identity", got)
	}
	hashed := safeChatFilename("[-1001234] [567]")
	if hashed == "[-1001234] [567]" {
		t.Fatal("safeChatFilename() must hash unsafe identities")
	}
	if len(hashed) != 32 {
		t.Fatalf("safeChatFilename() hash length = %d, want 32", len(hashed))
	}
	if hashed != safeChatFilename("[-1001234] [567]") {
		t.Fatal("safeChatFilename() must be stable")
	}
}
