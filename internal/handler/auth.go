package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"wave/internal/pkg/httputils"
	"wave/internal/service"

	"github.com/gorilla/mux"
)

type AuthHandler struct {
	authService service.AuthService
	development bool
}

func NewAuthHandler(authService service.AuthService, development bool) *AuthHandler {
	return &AuthHandler{authService: authService, development: development}
}

func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.register).Methods("POST", "OPTIONS")
	router.HandleFunc("/auth/login", h.login).Methods("POST", "OPTIONS")
	router.HandleFunc("/auth/verify", h.verify).Methods("POST", "OPTIONS")
}

type RegisterRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type VerifyRequest struct {
	UserID           uint   `json:"userId"`
	VerificationCode string `json:"verificationCode"`
}

type CodeSentResponse struct {
	Message string `json:"message"`
	UserID  uint   `json:"userId"`
	// Echoed only in development mode
	VerificationCode string `json:"verificationCode,omitempty"`
}

type VerifyResponse struct {
	Message      string         `json:"message"`
	Token        string         `json:"token"`
	RefreshToken string         `json:"refreshToken"`
	User         VerifyUserView `json:"user"`
}

type VerifyUserView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Avatar      string `json:"avatar"`
	Online      bool   `json:"online"`
}

// @Summary Register
// @Description Start phone registration: create the user and send a verification code
// @ID auth-register
// @Accept json
// @Produce json
// @Success 200 {object} CodeSentResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param registerData body RegisterRequest true "Register data"
// @Router /auth/register [post]
func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var request RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	if request.PhoneNumber == "" || request.Name == "" {
		httputils.ResponseError(w, http.StatusBadRequest, "Phone number and name are required")
		return
	}

	issued, err := h.authService.Register(request.PhoneNumber, request.Name)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, h.codeSentResponse(issued))
}

// @Summary Login
// @Description Start login for a verified phone number: send a fresh verification code
// @ID auth-login
// @Accept json
// @Produce json
// @Success 200 {object} CodeSentResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param loginData body LoginRequest true "Login data"
// @Router /auth/login [post]
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var request LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	if request.PhoneNumber == "" {
		httputils.ResponseError(w, http.StatusBadRequest, "Phone number is required")
		return
	}

	issued, err := h.authService.Login(request.PhoneNumber)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, h.codeSentResponse(issued))
}

// @Summary Verify
// @Description Verify a phone number with the one-time code and receive a session token
// @ID auth-verify
// @Accept json
// @Produce json
// @Success 200 {object} VerifyResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Param verifyData body VerifyRequest true "Verify data"
// @Router /auth/verify [post]
func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request) {
	var request VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	if request.UserID == 0 || request.VerificationCode == "" {
		httputils.ResponseError(w, http.StatusBadRequest, "User ID and verification code are required")
		return
	}

	result, err := h.authService.Verify(request.UserID, request.VerificationCode)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	public := result.User.Public()
	httputils.ResponseJSON(w, http.StatusOK, VerifyResponse{
		Message:      "Phone number verified successfully",
		Token:        result.Token,
		RefreshToken: result.RefreshToken,
		User: VerifyUserView{
			ID:          public.ID,
			Name:        public.Name,
			PhoneNumber: public.PhoneNumber,
			Avatar:      public.Avatar,
			Online:      public.Online,
		},
	})
}

func (h *AuthHandler) codeSentResponse(issued *service.CodeIssued) CodeSentResponse {
	resp := CodeSentResponse{
		Message: "Verification code sent successfully",
		UserID:  issued.UserID,
	}
	if h.development {
		resp.VerificationCode = issued.Code
	}
	return resp
}

func (h *AuthHandler) respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPhone):
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid phone number format. Please enter a valid 10-digit phone number.")
	case errors.Is(err, service.ErrAlreadyRegistered):
		httputils.ResponseError(w, http.StatusConflict, "Phone number already registered. Please use the login option instead.")
	case errors.Is(err, service.ErrNotRegistered):
		httputils.ResponseError(w, http.StatusNotFound, "Phone number not registered. Please sign up first.")
	case errors.Is(err, service.ErrNotVerified):
		httputils.ResponseError(w, http.StatusNotFound, "Phone number not verified. Please complete registration first.")
	case errors.Is(err, service.ErrUserNotFound):
		httputils.ResponseError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrAlreadyVerified):
		httputils.ResponseError(w, http.StatusConflict, "Phone number already verified")
	case errors.Is(err, service.ErrCodeInvalid):
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid verification code")
	case errors.Is(err, service.ErrCodeExpired):
		httputils.ResponseError(w, http.StatusBadRequest, "Verification code has expired")
	case errors.Is(err, service.ErrSMSDelivery):
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to send verification code")
	default:
		log.Printf("auth handler: %v", err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Internal server error")
	}
}
