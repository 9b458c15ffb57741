package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"
	"wave/internal/chatstate"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 64 * 1024 // 64KB
	maxSendChannelSize = 256
	actionQueueSize    = 1024
)

// Incoming action types. These mirror the chat store operations.
const (
	ActionSelect     = "select"
	ActionSend       = "send"
	ActionEdit       = "edit"
	ActionDelete     = "delete"
	ActionReact      = "react"
	ActionPin        = "pin"
	ActionAddContact = "add_contact"
	ActionAddGroup   = "add_group"
	ActionSetAvatar  = "set_avatar"
	ActionBlock      = "block"
)

// Outgoing event types.
const (
	EventTypeState          = "state"
	EventTypeMessage        = "message"
	EventTypeMessageSent    = "message_sent"
	EventTypeMessageEdited  = "message_edited"
	EventTypeMessageDeleted = "message_deleted"
	EventTypeReaction       = "reaction"
	EventTypePin            = "pin"
	EventTypeChatCreated    = "chat_created"
	EventTypeAvatar         = "avatar"
	EventTypeBlocked        = "blocked"
	EventTypeError          = "error"
)

type InEvent struct {
	Type      string          `json:"type"`
	ChatID    string          `json:"chat_id,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	Emoji     string          `json:"emoji,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Avatar    string          `json:"avatar,omitempty"`
	Contact   *chatstate.User `json:"contact,omitempty"`
}

type OutEvent struct {
	Type      string             `json:"type"`
	ChatID    string             `json:"chat_id,omitempty"`
	MessageID string             `json:"message_id,omitempty"`
	Content   string             `json:"content,omitempty"`
	Message   *chatstate.Message `json:"message,omitempty"`
	Chat      *chatstate.Chat    `json:"chat,omitempty"`
	Chats     []chatstate.Chat   `json:"chats,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

type action struct {
	userID string
	event  InEvent
}

// session pairs a user's chat state with their current connection. The
// store outlives the connection so state survives a reconnect.
type session struct {
	store  *chatstate.Store
	client *Client
}

// Hub owns every session store. All mutation happens on the run
// goroutine, so each action is applied atomically with respect to the
// next — one writer, no per-store coordination needed.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	actions  chan action
	shutdown chan struct{}
}

func NewHub() *Hub {
	hub := &Hub{
		sessions: make(map[string]*session),
		actions:  make(chan action, actionQueueSize),
		shutdown: make(chan struct{}),
	}

	go hub.run()

	return hub
}

func (h *Hub) run() {
	for {
		select {
		case <-h.shutdown:
			return
		case act := <-h.actions:
			h.apply(act)
		}
	}
}

// Session returns the user's state container, creating it on first use.
func (h *Hub) Session(user chatstate.User) *chatstate.Store {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[user.ID]
	if !ok {
		sess = &session{store: chatstate.New(user)}
		h.sessions[user.ID] = sess
	}
	return sess.store
}

func (h *Hub) attach(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sess, ok := h.sessions[userID]
	if !ok {
		return
	}

	// A second connection replaces the first.
	if sess.client != nil {
		sess.client.Close()
	}
	sess.client = client
}

func (h *Hub) detach(userID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sess, ok := h.sessions[userID]; ok && sess.client == client {
		sess.client = nil
	}
}

func (h *Hub) Shutdown() {
	close(h.shutdown)

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sess := range h.sessions {
		if sess.client != nil {
			sess.client.Close()
		}
	}
	h.sessions = make(map[string]*session)
}

// apply executes one reducer action. Content mutations (send, edit,
// delete, react, pin, avatar) are mirrored into every session that
// holds the same chat; selection, blocking and unread stay per-session.
func (h *Hub) apply(act action) {
	h.mu.RLock()
	sess, ok := h.sessions[act.userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	store := sess.store
	ev := act.event

	switch ev.Type {
	case ActionSelect:
		store.SelectChat(ev.ChatID)

	case ActionSend:
		prior, _ := store.Chat(ev.ChatID)
		msg, err := store.SendMessage(ev.ChatID, ev.Content)
		if err == chatstate.ErrBlockedUser {
			h.notify(act.userID, OutEvent{Type: EventTypeBlocked, ChatID: ev.ChatID, Error: "recipient is blocked"})
			return
		}
		if msg == nil {
			return
		}
		// A participant who connected after the chat was created has no
		// copy yet; hand them the pre-send snapshot so the fan-out below
		// has somewhere to land.
		if prior.Kind == chatstate.KindDirect {
			h.shareChat(store.Self(), prior)
		}
		h.notify(act.userID, OutEvent{Type: EventTypeMessageSent, ChatID: ev.ChatID, Message: msg})
		h.fanOut(act.userID, ev.ChatID, func(other *chatstate.Store) {
			other.Ingest(ev.ChatID, *msg)
		}, OutEvent{Type: EventTypeMessage, ChatID: ev.ChatID, Message: msg})

	case ActionEdit:
		store.EditMessage(ev.ChatID, ev.MessageID, ev.Content)
		h.fanOut(act.userID, ev.ChatID, func(other *chatstate.Store) {
			other.EditMessage(ev.ChatID, ev.MessageID, ev.Content)
		}, OutEvent{Type: EventTypeMessageEdited, ChatID: ev.ChatID, MessageID: ev.MessageID, Content: ev.Content})

	case ActionDelete:
		store.DeleteMessage(ev.ChatID, ev.MessageID)
		h.fanOut(act.userID, ev.ChatID, func(other *chatstate.Store) {
			other.DeleteMessage(ev.ChatID, ev.MessageID)
		}, OutEvent{Type: EventTypeMessageDeleted, ChatID: ev.ChatID, MessageID: ev.MessageID})

	case ActionReact:
		store.ToggleReaction(ev.ChatID, ev.MessageID, ev.Emoji, act.userID)
		h.fanOut(act.userID, ev.ChatID, func(other *chatstate.Store) {
			other.ToggleReaction(ev.ChatID, ev.MessageID, ev.Emoji, act.userID)
		}, OutEvent{Type: EventTypeReaction, ChatID: ev.ChatID, MessageID: ev.MessageID})

	case ActionPin:
		store.TogglePin(ev.ChatID, ev.MessageID)
		h.notify(act.userID, OutEvent{Type: EventTypePin, ChatID: ev.ChatID, MessageID: ev.MessageID})

	case ActionAddContact:
		if ev.Contact == nil {
			h.notify(act.userID, OutEvent{Type: EventTypeError, Error: "contact is required"})
			return
		}
		chat := store.AddContact(*ev.Contact)
		h.notify(act.userID, OutEvent{Type: EventTypeChatCreated, ChatID: chat.ID, Chat: &chat})
		h.shareChat(store.Self(), chat)

	case ActionAddGroup:
		chat := store.AddGroup(ev.Name)
		h.notify(act.userID, OutEvent{Type: EventTypeChatCreated, ChatID: chat.ID, Chat: &chat})

	case ActionSetAvatar:
		store.SetChatAvatar(ev.ChatID, ev.Avatar)
		h.fanOut(act.userID, ev.ChatID, func(other *chatstate.Store) {
			other.SetChatAvatar(ev.ChatID, ev.Avatar)
		}, OutEvent{Type: EventTypeAvatar, ChatID: ev.ChatID})

	case ActionBlock:
		store.BlockUser(ev.UserID)

	default:
		h.notify(act.userID, OutEvent{Type: EventTypeError, Error: "unknown action: " + ev.Type})
	}
}

// shareChat mirrors a direct chat into each participant's session so
// messages have somewhere to fan out. The peer's copy is named after the
// sender and starts unread-clean; participants without a session yet
// pick the chat up on the next send.
func (h *Hub) shareChat(sender chatstate.User, chat chatstate.Chat) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, participant := range chat.Participants {
		if participant == sender.ID {
			continue
		}
		sess, ok := h.sessions[participant]
		if !ok {
			continue
		}
		if _, exists := sess.store.Chat(chat.ID); exists {
			continue
		}

		sess.store.AddUser(sender)

		mirror := chat
		mirror.Name = sender.Name
		mirror.Avatar = sender.Avatar
		mirror.Unread = 0
		sess.store.PutChat(mirror)

		if sess.client != nil {
			data, err := json.Marshal(OutEvent{
				Type:      EventTypeChatCreated,
				ChatID:    chat.ID,
				Chat:      &mirror,
				Timestamp: time.Now(),
			})
			if err != nil {
				log.Printf("hub: failed to marshal event: %v", err)
				continue
			}
			sess.client.SendRaw(data)
		}
	}
}

// fanOut applies a mutation to every other session holding the chat and
// pushes the event to its connection.
func (h *Hub) fanOut(senderID, chatID string, mutate func(*chatstate.Store), ev OutEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ev.Timestamp = time.Now()
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("hub: failed to marshal event: %v", err)
		return
	}

	for userID, sess := range h.sessions {
		if userID == senderID {
			continue
		}
		if _, ok := sess.store.Chat(chatID); !ok {
			continue
		}
		mutate(sess.store)
		if sess.client != nil {
			sess.client.SendRaw(data)
		}
	}
}

// notify pushes an event to a single user's connection.
func (h *Hub) notify(userID string, ev OutEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sess, ok := h.sessions[userID]
	if !ok || sess.client == nil {
		return
	}

	ev.Timestamp = time.Now()
	sess.client.SendJSON(ev)
}

// Dispatch queues an action for the run loop. Dropping on overflow is
// deliberate: a stuck consumer must not block readers.
func (h *Hub) Dispatch(userID string, ev InEvent) bool {
	select {
	case h.actions <- action{userID: userID, event: ev}:
		return true
	default:
		return false
	}
}
