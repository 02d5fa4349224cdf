package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/utils"
)

// LoginRequest represents a login request. Login accepts email or username.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := decodeJSON(req, &loginReq); err != nil {
		r.fail(w, req, err)
		return
	}

	var user models.UserAuth
	err := r.db.WithContext(req.Context()).
		Where("email = ? OR username = ?", loginReq.Login, loginReq.Login).
		First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		r.fail(w, req, err)
		return
	}
	if err != nil || !user.IsActive || !utils.CheckPasswordHash(loginReq.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials", nil)
		return
	}

	now := time.Now().UTC()
	if err := r.db.WithContext(req.Context()).Model(&user).Update("last_login", now).Error; err != nil {
		r.fail(w, req, err)
		return
	}
	user.LastLogin = &now

	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg.JWTSecret, now)
	if err != nil {
		r.fail(w, req, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}

// register handles user registration. The first account becomes admin,
// later ones start as operator.
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterRequest
	if err := decodeJSON(req, &regReq); err != nil {
		r.fail(w, req, err)
		return
	}
	regReq.Username = strings.TrimSpace(regReq.Username)
	regReq.Email = strings.TrimSpace(regReq.Email)
	if regReq.Username == "" || regReq.Email == "" || len(regReq.Password) < 8 {
		r.fail(w, req, apperr.New(apperr.CodeValidation, "username, email and a password of at least 8 characters are required"))
		return
	}

	role := models.RoleOperator
	var users int64
	if err := r.db.WithContext(req.Context()).Model(&models.UserAuth{}).Count(&users).Error; err != nil {
		r.fail(w, req, err)
		return
	}
	if users == 0 {
		role = models.RoleAdmin
	}

	hashedPassword, err := utils.HashPassword(regReq.Password)
	if err != nil {
		r.fail(w, req, err)
		return
	}

	user := models.UserAuth{
		Username: regReq.Username,
		Email:    regReq.Email,
		Password: hashedPassword,
		Name:     regReq.Name,
		Role:     role,
		IsActive: true,
	}
	var taken int64
	if err := r.db.WithContext(req.Context()).Model(&models.UserAuth{}).
		Where("email = ? OR username = ?", user.Email, user.Username).
		Count(&taken).Error; err != nil {
		r.fail(w, req, err)
		return
	}
	if taken > 0 {
		r.fail(w, req, apperr.New(apperr.CodeAlreadyExists, "email or username already registered"))
		return
	}
	if err := r.db.WithContext(req.Context()).Create(&user).Error; err != nil {
		r.fail(w, req, err)
		return
	}

	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg.JWTSecret, time.Now())
	if err != nil {
		r.fail(w, req, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}
