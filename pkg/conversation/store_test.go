package conversation_test

import (
	"sync"
	"testing"
	"time"

	"github.com/mainhushivam/go-jarvis/pkg/conversation"
)

func TestStoreAppendAndClear(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := conversation.NewStoreWithClock(func() time.Time { return fixed })

	store.Append(conversation.KindSystem, "JARVIS online.")
	store.Append(conversation.KindUser, "hello")
	store.Append(conversation.KindAssistant, "Hi there.")

	turns := store.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[1].Kind != conversation.KindUser || turns[1].Text != "hello" {
		t.Errorf("unexpected turn: %+v", turns[1])
	}
	if !turns[0].CreatedAt.Equal(fixed) {
		t.Errorf("expected injected clock timestamp, got %v", turns[0].CreatedAt)
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("expected empty log after clear, got %d", store.Len())
	}
}

func TestSubmissionsAreSerialized(t *testing.T) {
	store := conversation.NewStore()

	if !store.BeginSubmission() {
		t.Fatal("first submission should be accepted")
	}
	if store.BeginSubmission() {
		t.Fatal("second submission must be rejected while loading")
	}
	if !store.Flags().Loading {
		t.Error("loading flag should be set")
	}

	store.EndSubmission()
	if store.Flags().Loading {
		t.Error("loading flag should be cleared")
	}
	if !store.BeginSubmission() {
		t.Error("submission should be accepted after the previous one ended")
	}
}

func TestLoadingNeverReentersTrueConcurrently(t *testing.T) {
	store := conversation.NewStore()

	var wg sync.WaitGroup
	accepted := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.BeginSubmission() {
				accepted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(accepted)

	count := 0
	for range accepted {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 accepted submission, got %d", count)
	}
}

func TestFlagsAreSeparateFromLog(t *testing.T) {
	store := conversation.NewStore()

	store.SetListening(true)
	store.SetSpeaking(true)
	if store.Len() != 0 {
		t.Error("flag changes must not create turns")
	}

	flags := store.Flags()
	if !flags.Listening || !flags.Speaking {
		t.Errorf("unexpected flags: %+v", flags)
	}
}

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	store := conversation.NewStore()

	var mu sync.Mutex
	calls := 0
	store.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	store.Append(conversation.KindUser, "hi")
	store.SetSpeaking(true)
	store.Clear()

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("expected 3 notifications, got %d", calls)
	}
}
