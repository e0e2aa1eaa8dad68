package handlers

import (
	"net/http"

	"github.com/diagnosis/accounts-api/internal/domain"
	"github.com/diagnosis/accounts-api/internal/http/response"
	"github.com/go-chi/chi/v5"
)

// Register handles user registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) error {
	var req domain.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		return err
	}

	user, err := h.users.Register(r.Context(), &req)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusCreated, map[string]any{
		"user": user.ToUserInfo(),
	})
	return nil
}

// Login handles user authentication
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) error {
	var req domain.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		return err
	}

	resp, err := h.users.Login(r.Context(), &req)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusOK, resp)
	return nil
}

func (h *Handlers) GetMe(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusOK, map[string]any{
		"user": user.ToUserInfo(),
	})
	return nil
}

func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req domain.UpdateUserRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		return err
	}

	updated, err := h.users.UpdateUser(r.Context(), user.ID, &req)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusOK, map[string]any{
		"user": updated.ToUserInfo(),
	})
	return nil
}

func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	deleted, err := h.users.DeleteUser(r.Context(), user.ID)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "User deleted successfully",
		"user":    deleted.ToUserInfo(),
	})
	return nil
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	var req domain.ChangePasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		return err
	}

	id, err := h.users.ChangePassword(r.Context(), user, &req)
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password updated successfully",
		"user":    map[string]string{"id": id},
	})
	return nil
}

// GetUserByID lets admins read any user and everyone else read themselves.
func (h *Handlers) GetUserByID(w http.ResponseWriter, r *http.Request) error {
	actor, err := currentUser(r)
	if err != nil {
		return err
	}

	user, err := h.users.GetUserFor(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	response.WriteJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"user":    user.ToUserInfo(),
	})
	return nil
}
