package ws

import (
	"encoding/json"
	"testing"
	"wave/internal/chatstate"
)

func seedHub(t *testing.T) (*Hub, *chatstate.Store, *chatstate.Store) {
	t.Helper()

	hub := NewHub()
	t.Cleanup(hub.Shutdown)

	alice := hub.Session(chatstate.User{ID: "alice", Name: "Alice"})
	bob := hub.Session(chatstate.User{ID: "bob", Name: "Bob"})

	// Both sides hold the same direct chat and know each other.
	alice.AddUser(chatstate.User{ID: "bob", Name: "Bob"})
	bob.AddUser(chatstate.User{ID: "alice", Name: "Alice"})
	chat := chatstate.Chat{
		ID:           "chat-ab",
		Kind:         chatstate.KindDirect,
		Participants: []string{"alice", "bob"},
	}
	alice.PutChat(chat)
	bob.PutChat(chat)

	return hub, alice, bob
}

func TestSessionReuse(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	first := hub.Session(chatstate.User{ID: "alice"})
	second := hub.Session(chatstate.User{ID: "alice"})
	if first != second {
		t.Error("expected the same store for repeated session lookups")
	}
}

func TestApply_SendFanOut(t *testing.T) {
	hub, alice, bob := seedHub(t)

	hub.apply(action{userID: "alice", event: InEvent{
		Type:    ActionSend,
		ChatID:  "chat-ab",
		Content: "hi",
	}})

	got, _ := alice.Chat("chat-ab")
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message in sender store, got %d", len(got.Messages))
	}
	if got.Unread != 0 {
		t.Error("sender unread must not change")
	}

	got, _ = bob.Chat("chat-ab")
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message in recipient store, got %d", len(got.Messages))
	}
	if got.Messages[0].SenderID != "alice" {
		t.Errorf("expected sender alice, got %s", got.Messages[0].SenderID)
	}
	if got.Unread != 1 {
		t.Errorf("expected recipient unread 1, got %d", got.Unread)
	}
}

func TestApply_BlockedSend(t *testing.T) {
	hub, alice, bob := seedHub(t)

	hub.apply(action{userID: "alice", event: InEvent{Type: ActionBlock, UserID: "bob"}})
	hub.apply(action{userID: "alice", event: InEvent{
		Type:    ActionSend,
		ChatID:  "chat-ab",
		Content: "hi",
	}})

	got, _ := alice.Chat("chat-ab")
	if len(got.Messages) != 0 {
		t.Error("blocked send must not append to the sender store")
	}
	got, _ = bob.Chat("chat-ab")
	if len(got.Messages) != 0 {
		t.Error("blocked send must not reach the recipient store")
	}
}

func TestApply_DeleteMirrorsAndUnpins(t *testing.T) {
	hub, alice, bob := seedHub(t)

	hub.apply(action{userID: "alice", event: InEvent{Type: ActionSend, ChatID: "chat-ab", Content: "hi"}})

	got, _ := bob.Chat("chat-ab")
	msgID := got.Messages[0].ID

	hub.apply(action{userID: "bob", event: InEvent{Type: ActionPin, ChatID: "chat-ab", MessageID: msgID}})
	got, _ = bob.Chat("chat-ab")
	if !got.Pinned[msgID] {
		t.Fatal("expected message pinned in bob's store")
	}

	hub.apply(action{userID: "alice", event: InEvent{Type: ActionDelete, ChatID: "chat-ab", MessageID: msgID}})

	got, _ = alice.Chat("chat-ab")
	if len(got.Messages) != 0 {
		t.Error("delete must remove the message from the sender store")
	}
	got, _ = bob.Chat("chat-ab")
	if len(got.Messages) != 0 {
		t.Error("delete must mirror into the recipient store")
	}
	if got.Pinned[msgID] {
		t.Error("delete must drop the pin in the recipient store")
	}
}

func TestApply_ReactionMirrors(t *testing.T) {
	hub, alice, bob := seedHub(t)

	hub.apply(action{userID: "alice", event: InEvent{Type: ActionSend, ChatID: "chat-ab", Content: "hi"}})
	got, _ := bob.Chat("chat-ab")
	msgID := got.Messages[0].ID

	hub.apply(action{userID: "bob", event: InEvent{Type: ActionReact, ChatID: "chat-ab", MessageID: msgID, Emoji: "👍"}})

	got, _ = alice.Chat("chat-ab")
	if users := got.Messages[0].Reactions["👍"]; len(users) != 1 || users[0] != "bob" {
		t.Errorf("expected bob's reaction mirrored to alice, got %v", users)
	}

	// Second toggle clears it everywhere.
	hub.apply(action{userID: "bob", event: InEvent{Type: ActionReact, ChatID: "chat-ab", MessageID: msgID, Emoji: "👍"}})
	got, _ = alice.Chat("chat-ab")
	if len(got.Messages[0].Reactions) != 0 {
		t.Error("expected reaction entry removed after second toggle")
	}
}

func TestApply_AddContactSharesChat(t *testing.T) {
	hub := NewHub()
	t.Cleanup(hub.Shutdown)

	hub.Session(chatstate.User{ID: "alice", Name: "Alice"})
	bob := hub.Session(chatstate.User{ID: "bob", Name: "Bob"})

	// No hand-seeding: the contact's store must be populated by the hub.
	hub.apply(action{userID: "alice", event: InEvent{
		Type:    ActionAddContact,
		Contact: &chatstate.User{ID: "bob", Name: "Bob"},
	}})

	chats := bob.Chats()
	if len(chats) != 1 {
		t.Fatalf("expected the new chat in the contact's store, got %d chats", len(chats))
	}
	if chats[0].Name != "Alice" {
		t.Errorf("contact's copy must be named after the sender, got %q", chats[0].Name)
	}
	if chats[0].Unread != 0 {
		t.Errorf("freshly shared chat must start with unread 0, got %d", chats[0].Unread)
	}

	hub.apply(action{userID: "alice", event: InEvent{
		Type:    ActionSend,
		ChatID:  chats[0].ID,
		Content: "hi",
	}})

	got, ok := bob.Chat(chats[0].ID)
	if !ok || len(got.Messages) != 1 {
		t.Fatal("send must reach the contact's store through the shared chat")
	}
	if got.Messages[0].SenderID != "alice" {
		t.Errorf("expected sender alice, got %s", got.Messages[0].SenderID)
	}
	if got.Unread != 1 {
		t.Errorf("expected recipient unread 1, got %d", got.Unread)
	}
}

func TestApply_SendSharesWithLateSession(t *testing.T) {
	hub := NewHub()
	t.Cleanup(hub.Shutdown)

	alice := hub.Session(chatstate.User{ID: "alice", Name: "Alice"})

	// Bob has no session yet when the chat is created.
	hub.apply(action{userID: "alice", event: InEvent{
		Type:    ActionAddContact,
		Contact: &chatstate.User{ID: "bob", Name: "Bob"},
	}})
	chatID := alice.Chats()[0].ID

	hub.apply(action{userID: "alice", event: InEvent{Type: ActionSend, ChatID: chatID, Content: "first"}})

	bob := hub.Session(chatstate.User{ID: "bob", Name: "Bob"})
	hub.apply(action{userID: "alice", event: InEvent{Type: ActionSend, ChatID: chatID, Content: "second"}})

	got, ok := bob.Chat(chatID)
	if !ok {
		t.Fatal("expected the chat shared on the first send after bob connected")
	}
	// The pre-send snapshot carries the history, the fan-out the new message.
	if len(got.Messages) != 2 {
		t.Fatalf("expected 2 messages in bob's store, got %d", len(got.Messages))
	}
	if got.Messages[0].Content != "first" || got.Messages[1].Content != "second" {
		t.Errorf("unexpected message contents: %q, %q", got.Messages[0].Content, got.Messages[1].Content)
	}
	if got.Unread != 1 {
		t.Errorf("only the fanned-out message counts as unread, got %d", got.Unread)
	}
}

func TestApply_EditEventCarriesContent(t *testing.T) {
	hub, _, bob := seedHub(t)

	hub.apply(action{userID: "alice", event: InEvent{Type: ActionSend, ChatID: "chat-ab", Content: "hi"}})
	got, _ := bob.Chat("chat-ab")
	msgID := got.Messages[0].ID

	client := &Client{UserID: "bob", hub: hub, send: make(chan []byte, maxSendChannelSize)}
	hub.attach("bob", client)
	t.Cleanup(func() { hub.detach("bob", client) })

	hub.apply(action{userID: "alice", event: InEvent{
		Type:      ActionEdit,
		ChatID:    "chat-ab",
		MessageID: msgID,
		Content:   "hi there",
	}})

	select {
	case data := <-client.send:
		var ev OutEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("failed to decode pushed event: %v", err)
		}
		if ev.Type != EventTypeMessageEdited {
			t.Errorf("expected %s event, got %s", EventTypeMessageEdited, ev.Type)
		}
		if ev.Content != "hi there" {
			t.Errorf("edit event must carry the new content, got %q", ev.Content)
		}
	default:
		t.Fatal("expected an event pushed to the recipient connection")
	}

	got, _ = bob.Chat("chat-ab")
	if got.Messages[0].Content != "hi there" {
		t.Errorf("edit must mirror into the recipient store, got %q", got.Messages[0].Content)
	}
}

func TestApply_UnknownAction(t *testing.T) {
	hub, _, _ := seedHub(t)

	// Must not panic or mutate anything.
	hub.apply(action{userID: "alice", event: InEvent{Type: "bogus"}})
	hub.apply(action{userID: "ghost", event: InEvent{Type: ActionSend, ChatID: "chat-ab", Content: "x"}})
}
