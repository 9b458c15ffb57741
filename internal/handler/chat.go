package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"wave/internal/chatstate"
	"wave/internal/pkg/auth"
	"wave/internal/pkg/httputils"
	"wave/internal/service"
	"wave/internal/ws"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	hub            *ws.Hub
	userService    service.UserService
	suggestService service.SuggestService
}

func NewChatHandler(hub *ws.Hub, userService service.UserService, suggestService service.SuggestService) *ChatHandler {
	return &ChatHandler{
		hub:            hub,
		userService:    userService,
		suggestService: suggestService,
	}
}

func (h *ChatHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/chats", h.getChats).Methods("GET", "OPTIONS")
	router.HandleFunc("/ws", h.serveWS).Methods("GET")
	router.HandleFunc("/suggest/emojis", h.suggestEmojis).Methods("POST", "OPTIONS")
	router.HandleFunc("/suggest/replies", h.smartReplies).Methods("POST", "OPTIONS")
	router.HandleFunc("/suggest/summary", h.summarizeChat).Methods("POST", "OPTIONS")
}

type ChatsResponse struct {
	Chats []chatstate.Chat `json:"chats"`
}

type SuggestRequest struct {
	Message     string `json:"message,omitempty"`
	ChatHistory string `json:"chatHistory,omitempty"`
}

type EmojiSuggestionsResponse struct {
	Emojis []string `json:"emojis"`
}

type SmartRepliesResponse struct {
	Replies []string `json:"replies"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

// sessionUser resolves the acting user from the token and materializes
// the chatstate identity for the hub.
func (h *ChatHandler) sessionUser(r *http.Request) (chatstate.User, error) {
	claims, err := auth.CurrentUser(r)
	if err != nil {
		return chatstate.User{}, err
	}

	user, err := h.userService.GetProfile(claims.UserID)
	if err != nil {
		return chatstate.User{}, err
	}

	return chatstate.User{
		ID:     strconv.FormatUint(uint64(user.ID), 10),
		Name:   user.Name,
		Avatar: user.Avatar,
		Online: user.Online,
	}, nil
}

// @Summary Get chats
// @Description Snapshot of the session's chat tree
// @ID get-chats
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} ChatsResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /chats [get]
func (h *ChatHandler) getChats(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	store := h.hub.Session(user)
	httputils.ResponseJSON(w, http.StatusOK, ChatsResponse{Chats: store.Chats()})
}

func (h *ChatHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	user, err := h.sessionUser(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	h.hub.ServeWS(w, r, user)
}

// @Summary Suggest emojis
// @Description Advisory emoji suggestions for a message; failures yield an empty list
// @ID suggest-emojis
// @Accept json
// @Produce json
// @Param suggestData body SuggestRequest true "Message"
// @Success 200 {object} EmojiSuggestionsResponse
// @Router /suggest/emojis [post]
func (h *ChatHandler) suggestEmojis(w http.ResponseWriter, r *http.Request) {
	var request SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	emojis := h.suggestService.SuggestEmojis(r.Context(), request.Message)
	httputils.ResponseJSON(w, http.StatusOK, EmojiSuggestionsResponse{Emojis: emojis})
}

// @Summary Smart replies
// @Description Advisory reply suggestions for a conversation; failures yield an empty list
// @ID smart-replies
// @Accept json
// @Produce json
// @Param suggestData body SuggestRequest true "Chat history"
// @Success 200 {object} SmartRepliesResponse
// @Router /suggest/replies [post]
func (h *ChatHandler) smartReplies(w http.ResponseWriter, r *http.Request) {
	var request SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	replies := h.suggestService.SmartReplies(r.Context(), request.ChatHistory)
	if replies == nil {
		replies = []string{}
	}
	httputils.ResponseJSON(w, http.StatusOK, SmartRepliesResponse{Replies: replies})
}

// @Summary Summarize chat
// @Description Advisory chat summary; failures yield a placeholder string
// @ID summarize-chat
// @Accept json
// @Produce json
// @Param suggestData body SuggestRequest true "Chat history"
// @Success 200 {object} SummaryResponse
// @Router /suggest/summary [post]
func (h *ChatHandler) summarizeChat(w http.ResponseWriter, r *http.Request) {
	var request SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	summary := h.suggestService.SummarizeChat(r.Context(), request.ChatHistory)
	httputils.ResponseJSON(w, http.StatusOK, SummaryResponse{Summary: summary})
}
