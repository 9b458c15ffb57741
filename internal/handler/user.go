package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"
	"wave/internal/model"
	"wave/internal/pkg/auth"
	"wave/internal/pkg/httputils"
	"wave/internal/service"

	"github.com/gorilla/mux"
)

const avatarURLLifetime = 24 * time.Hour

type UserHandler struct {
	userService service.UserService
	s3Service   *service.S3Service
}

func NewUserHandler(userService service.UserService, s3Service *service.S3Service) *UserHandler {
	return &UserHandler{userService: userService, s3Service: s3Service}
}

func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/user/profile", h.getProfile).Methods("GET", "OPTIONS")
	router.HandleFunc("/user/profile", h.updateProfile).Methods("PUT", "OPTIONS")
	router.HandleFunc("/user/avatar", h.uploadAvatar).Methods("POST", "OPTIONS")
}

type ProfileResponse struct {
	Message string           `json:"message,omitempty"`
	User    model.PublicUser `json:"user"`
}

type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

type AvatarUploadResponse struct {
	Message string `json:"message"`
	Key     string `json:"key"`
	URL     string `json:"url"`
}

// @Summary Get profile
// @Description Get the authenticated user's profile
// @ID get-profile
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /user/profile [get]
func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.CurrentUser(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	user, err := h.userService.GetProfile(claims.UserID)
	if err != nil {
		h.respondUserError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, ProfileResponse{User: user.Public()})
}

// @Summary Update profile
// @Description Update the authenticated user's name and/or avatar
// @ID update-profile
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param profileData body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /user/profile [put]
func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.CurrentUser(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var request UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	r.Body.Close()

	user, err := h.userService.UpdateProfile(claims.UserID, request.Name, request.Avatar)
	if err != nil {
		h.respondUserError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, ProfileResponse{
		Message: "Profile updated successfully",
		User:    user.Public(),
	})
}

// @Summary Upload avatar
// @Description Upload an avatar image to object storage
// @ID upload-avatar
// @Accept mpfd
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} AvatarUploadResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /user/avatar [post]
func (h *UserHandler) uploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.CurrentUser(r)
	if err != nil {
		httputils.ResponseError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	if h.s3Service == nil {
		httputils.ResponseError(w, http.StatusInternalServerError, "Avatar storage is not configured")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		httputils.ResponseError(w, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	meta, err := h.s3Service.UploadAvatar(r.Context(), file, header.Filename, contentType, claims.UserID)
	if err != nil {
		log.Printf("avatar upload: %v", err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to upload avatar")
		return
	}

	url, err := h.s3Service.GeneratePresignedURL(r.Context(), meta.S3Key, avatarURLLifetime)
	if err != nil {
		log.Printf("avatar presign: %v", err)
		httputils.ResponseError(w, http.StatusInternalServerError, "Failed to generate avatar URL")
		return
	}

	// Persist the new avatar reference on the profile.
	if _, err := h.userService.UpdateProfile(claims.UserID, nil, &meta.S3Key); err != nil {
		h.respondUserError(w, err)
		return
	}

	httputils.ResponseJSON(w, http.StatusOK, AvatarUploadResponse{
		Message: "Avatar uploaded successfully",
		Key:     meta.S3Key,
		URL:     url,
	})
}

func (h *UserHandler) respondUserError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUserNotFound) {
		httputils.ResponseError(w, http.StatusNotFound, "User not found")
		return
	}
	log.Printf("user handler: %v", err)
	httputils.ResponseError(w, http.StatusInternalServerError, "Internal server error")
}
