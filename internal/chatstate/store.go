// Package chatstate holds the in-memory chat tree for one user session.
// Every mutation goes through the Store; there are no ambient globals.
// All operations are synchronous and total: unknown IDs are no-ops so
// the caller stays resilient to stale references.
package chatstate

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type ChatKind string

const (
	KindDirect ChatKind = "direct"
	KindGroup  ChatKind = "group"
)

// ErrBlockedUser rejects a send into a chat whose participant is blocked.
// The rejection is explicit so the UI can show a blocked state instead of
// a silent send failure.
var ErrBlockedUser = errors.New("user is blocked")

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Online bool   `json:"online"`
}

// Message reactions are a mapping from emoji to the IDs of the users who
// applied it. An emoji with no users has no entry — the map shape makes
// the "no empty reaction entries" invariant structural.
type Message struct {
	ID        string              `json:"id"`
	SenderID  string              `json:"senderId"`
	Content   string              `json:"content"`
	Timestamp string              `json:"timestamp"`
	Reactions map[string][]string `json:"reactions"`
}

type Chat struct {
	ID           string          `json:"id"`
	Kind         ChatKind        `json:"type"`
	Name         string          `json:"name"`
	Avatar       string          `json:"avatar,omitempty"`
	Participants []string        `json:"participants,omitempty"` // direct chats only
	Messages     []Message       `json:"messages"`
	Unread       int             `json:"unread"`
	Pinned       map[string]bool `json:"pinned"`
}

// Store is the state container for a single session. The acting user is
// fixed at construction; actions never assume a well-known position in a
// user list. The owner (the ws hub) is the only writer, but reads may
// come from request handlers, hence the mutex.
type Store struct {
	mu       sync.RWMutex
	self     User
	users    map[string]User
	chats    map[string]*Chat
	order    []string
	selected string
	blocked  map[string]bool

	now   func() time.Time
	newID func() string
}

func New(self User) *Store {
	s := &Store{
		self:    self,
		users:   map[string]User{self.ID: self},
		chats:   make(map[string]*Chat),
		blocked: make(map[string]bool),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	return s
}

func (s *Store) Self() User {
	return s.self
}

// AddUser registers a user so they can appear as a message sender.
func (s *Store) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutChat seeds an existing chat into the store. Unread defaults to 0
// at construction, so downstream logic never needs a nil check.
func (s *Store) PutChat(c Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Pinned == nil {
		c.Pinned = make(map[string]bool)
	}
	for i := range c.Messages {
		if c.Messages[i].Reactions == nil {
			c.Messages[i].Reactions = make(map[string][]string)
		}
	}

	s.putChatLocked(&c)
}

func (s *Store) putChatLocked(c *Chat) {
	if _, exists := s.chats[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.chats[c.ID] = c
}

// SelectChat makes the chat current and zeroes its unread counter
// (selection is the read-receipt proxy). Unknown ID is a no-op.
func (s *Store) SelectChat(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return false
	}

	s.selected = chatID
	chat.Unread = 0
	return true
}

func (s *Store) SelectedChat() (Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[s.selected]
	if !ok {
		return Chat{}, false
	}
	return copyChat(chat), true
}

// SendMessage appends a message from the session user. Sending into a
// chat with a blocked participant is rejected with ErrBlockedUser.
// Unknown chat ID is a no-op and returns no message.
func (s *Store) SendMessage(chatID, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return nil, nil
	}

	for _, participant := range chat.Participants {
		if participant != s.self.ID && s.blocked[participant] {
			return nil, ErrBlockedUser
		}
	}

	msg := Message{
		ID:        s.newID(),
		SenderID:  s.self.ID,
		Content:   content,
		Timestamp: s.now().Format("3:04 PM"),
		Reactions: make(map[string][]string),
	}
	chat.Messages = append(chat.Messages, msg)

	out := copyMessage(&msg)
	return &out, nil
}

// Ingest applies a message sent by another participant. The unread
// counter grows unless the chat is currently selected. Messages from
// unknown senders are dropped.
func (s *Store) Ingest(chatID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return
	}
	if _, known := s.users[msg.SenderID]; !known {
		return
	}

	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	chat.Messages = append(chat.Messages, msg)

	if s.selected != chatID {
		chat.Unread++
	}
}

// EditMessage replaces the content of an existing message.
func (s *Store) EditMessage(chatID, messageID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg := s.findMessage(chatID, messageID); msg != nil {
		msg.Content = content
	}
}

// DeleteMessage removes a message from the chat and from the pinned set
// if it was pinned there.
func (s *Store) DeleteMessage(chatID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return
	}

	for i := range chat.Messages {
		if chat.Messages[i].ID == messageID {
			chat.Messages = append(chat.Messages[:i], chat.Messages[i+1:]...)
			delete(chat.Pinned, messageID)
			return
		}
	}
}

// ToggleReaction adds the user to the emoji's reaction entry, or removes
// them if already present. An entry left with no users is dropped.
func (s *Store) ToggleReaction(chatID, messageID, emoji, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.findMessage(chatID, messageID)
	if msg == nil {
		return
	}

	users := msg.Reactions[emoji]
	for i, id := range users {
		if id == userID {
			users = append(users[:i], users[i+1:]...)
			if len(users) == 0 {
				delete(msg.Reactions, emoji)
			} else {
				msg.Reactions[emoji] = users
			}
			return
		}
	}

	msg.Reactions[emoji] = append(users, userID)
}

// TogglePin adds the message to the chat's pinned set, or removes it if
// already pinned. Only messages present in the chat can be pinned.
func (s *Store) TogglePin(chatID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return
	}

	if chat.Pinned[messageID] {
		delete(chat.Pinned, messageID)
		return
	}

	for i := range chat.Messages {
		if chat.Messages[i].ID == messageID {
			chat.Pinned[messageID] = true
			return
		}
	}
}

// AddContact creates a direct chat with the contact and selects it.
func (s *Store) AddContact(contact User) Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[contact.ID] = contact

	chat := &Chat{
		ID:           s.newID(),
		Kind:         KindDirect,
		Name:         contact.Name,
		Avatar:       contact.Avatar,
		Participants: []string{s.self.ID, contact.ID},
		Messages:     []Message{},
		Pinned:       make(map[string]bool),
	}
	s.putChatLocked(chat)
	s.selected = chat.ID

	return copyChat(chat)
}

// AddGroup creates an empty group chat and selects it. Group names are
// prefixed with "#" when the caller leaves it off.
func (s *Store) AddGroup(name string) Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.HasPrefix(name, "#") {
		name = "#" + name
	}

	chat := &Chat{
		ID:       s.newID(),
		Kind:     KindGroup,
		Name:     name,
		Messages: []Message{},
		Pinned:   make(map[string]bool),
	}
	s.putChatLocked(chat)
	s.selected = chat.ID

	return copyChat(chat)
}

// SetChatAvatar replaces a chat's avatar reference.
func (s *Store) SetChatAvatar(chatID, avatar string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chat, ok := s.chats[chatID]; ok {
		chat.Avatar = avatar
	}
}

// BlockUser adds the user to the session block set. Subsequent sends
// into chats with that participant are rejected.
func (s *Store) BlockUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[userID] = true
}

func (s *Store) IsBlocked(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocked[userID]
}

// Chat returns a snapshot of a single chat.
func (s *Store) Chat(chatID string) (Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return Chat{}, false
	}
	return copyChat(chat), true
}

// Chats returns a snapshot of all chats in insertion order.
func (s *Store) Chats() []Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Chat, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyChat(s.chats[id]))
	}
	return out
}

func (s *Store) findMessage(chatID, messageID string) *Message {
	chat, ok := s.chats[chatID]
	if !ok {
		return nil
	}

	for i := range chat.Messages {
		if chat.Messages[i].ID == messageID {
			return &chat.Messages[i]
		}
	}
	return nil
}

func copyChat(c *Chat) Chat {
	out := *c

	out.Participants = append([]string(nil), c.Participants...)

	out.Messages = make([]Message, len(c.Messages))
	for i := range c.Messages {
		out.Messages[i] = copyMessage(&c.Messages[i])
	}

	out.Pinned = make(map[string]bool, len(c.Pinned))
	for id := range c.Pinned {
		out.Pinned[id] = true
	}

	return out
}

func copyMessage(m *Message) Message {
	out := *m
	out.Reactions = make(map[string][]string, len(m.Reactions))
	for emoji, users := range m.Reactions {
		out.Reactions[emoji] = append([]string(nil), users...)
	}
	return out
}
