package httpapi

import (
	"errors"
	"net/http"

	"eraiiz/internal/server/service"
	"eraiiz/internal/shared/models"
)

type registerRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Code string `json:"code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body registerRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	resp, err := r.services.Auth.Register(req.Context(), body.Email, body.Password, body.Name, body.Role)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body loginRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	resp, err := r.services.Auth.Login(req.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) handleGoogleExchange(w http.ResponseWriter, req *http.Request) {
	var body googleRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	resp, err := r.services.Auth.ExchangeGoogleCode(req.Context(), body.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	var body refreshRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	pair, err := r.services.Auth.Refresh(req.Context(), body.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	user, err := r.services.Auth.GetUser(req.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (r *Router) handleDeleteAccount(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	if err := r.services.Auth.DeleteAccount(req.Context(), claims.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	user, err := r.services.Auth.GetUser(req.Context(), claims.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateMeRequest struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

func (r *Router) handleUpdateMe(w http.ResponseWriter, req *http.Request) {
	claims := getClaims(req.Context())
	var body updateMeRequest
	if !r.decodeBody(w, req, &body) {
		return
	}
	user, err := r.services.Auth.UpdateProfile(req.Context(), claims.UserID, body.Name, body.Role)
	if err != nil {
		if errors.Is(err, service.ErrRoleLocked) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}
