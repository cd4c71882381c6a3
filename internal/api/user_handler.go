package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/phrazzld/taskd/internal/api/shared"
	"github.com/phrazzld/taskd/internal/platform/avatar"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/service"
)

// AvatarFormField is the multipart field carrying an avatar upload.
const AvatarFormField = "avatar"

// multipartOverhead is the allowance for multipart framing on top of the
// avatar size limit.
const multipartOverhead = 64 << 10

// UserHandler handles account, session and avatar requests.
type UserHandler struct {
	users          service.UserService
	maxAvatarBytes int64
}

// NewUserHandler creates a new UserHandler. maxAvatarBytes bounds an avatar
// upload; a non-positive value uses avatar.MaxUploadBytes.
func NewUserHandler(users service.UserService, maxAvatarBytes int64) *UserHandler {
	if maxAvatarBytes <= 0 {
		maxAvatarBytes = avatar.MaxUploadBytes
	}
	return &UserHandler{users: users, maxAvatarBytes: maxAvatarBytes}
}

// Register handles POST /users.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	user, token, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password, req.Age)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, AuthResponse{
		User:  userToResponse(user),
		Token: token,
	})
}

// Login handles POST /users/login. A body that cannot be read as
// credentials is an ordinary login failure.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req); err != nil {
		loginFailed(w, r, err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		loginFailed(w, r, err)
		return
	}

	user, token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, service.ErrInvalidLogin) {
		loginFailed(w, r, err)
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, AuthResponse{
		User:  userToResponse(user),
		Token: token,
	})
}

// loginFailed answers every rejected login with the same body. Failures are
// logged at WARN so repeated guessing shows up without debug logging.
func loginFailed(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, service.ErrInvalidLogin) {
		err = fmt.Errorf("%w: %v", service.ErrInvalidLogin, err)
	}
	HandleAPIError(w, r, err, "", shared.WithElevatedLogLevel())
}

// Logout handles POST /users/logout, revoking only the presented token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}
	token, _ := shared.TokenFromContext(r.Context())

	if err := h.users.Logout(r.Context(), user.ID, token); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithStatus(w, r, http.StatusOK)
}

// LogoutAll handles POST /users/logoutAll.
func (h *UserHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.users.LogoutAll(r.Context(), user.ID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithStatus(w, r, http.StatusOK)
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

// UpdateMe handles PATCH /users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}

	updates, err := decodeUpdates(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	updated, err := h.users.UpdateProfile(r.Context(), user, updates)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(updated))
}

// DeleteMe handles DELETE /users/me and responds with the closed account.
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.users.CloseAccount(r.Context(), user); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, userToResponse(user))
}

// UploadAvatar handles POST /users/me/avatar with a multipart body whose
// "avatar" part holds the image.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarBytes+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		HandleAPIError(w, r, avatar.ErrUnsupportedType, "")
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			HandleAPIError(w, r, uploadError(err), "")
			return
		}
		if part.FormName() != AvatarFormField {
			_ = part.Close()
			continue
		}

		err = h.users.SetAvatar(r.Context(), user.ID, part.FileName(), part)
		_ = part.Close()
		if err != nil {
			HandleAPIError(w, r, uploadError(err), "")
			return
		}

		shared.RespondWithStatus(w, r, http.StatusOK)
		return
	}

	HandleAPIError(w, r, avatar.ErrUnsupportedType, "")
}

// uploadError reports a body over the size limit as avatar.ErrTooLarge.
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return avatar.ErrTooLarge
	}
	return err
}

// DeleteAvatar handles DELETE /users/me/avatar.
func (h *UserHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.users.ClearAvatar(r.Context(), user.ID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithStatus(w, r, http.StatusOK)
}

// GetAvatar handles GET /users/{id}/avatar. It is public.
func (h *UserHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	data, err := h.users.GetAvatar(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", avatar.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.FromContext(r.Context()).Debug("failed to write avatar", "error", err)
	}
}
