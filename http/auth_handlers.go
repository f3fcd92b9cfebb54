package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		respondError(c, http.StatusBadRequest, "username, password required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	user, err := s.store.GetUser(ctx, req.Username)
	if err != nil {
		s.logger.Error("user lookup failed", "username", req.Username, "error", err)
		respondError(c, http.StatusInternalServerError, "authentication unavailable")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		s.logger.Error("token signing failed", "error", err)
		respondError(c, http.StatusInternalServerError, "authentication unavailable")
		return
	}

	respondData(c, http.StatusOK, "login successful", gin.H{
		"token":     signed,
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

type createKeyRequest struct {
	Label string `json:"label"`
}

func (s *Server) handleCreateKey(c *gin.Context) {
	var req createKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Label == "" {
		respondError(c, http.StatusBadRequest, "label required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	key, secret, err := s.store.CreateAPIKey(ctx, req.Label)
	if err != nil {
		s.logger.Error("create api key failed", "error", err)
		respondError(c, http.StatusInternalServerError, "key creation failed")
		return
	}

	// the secret is shown exactly once
	respondData(c, http.StatusCreated, "api key created", gin.H{
		"id":        key.ID,
		"label":     key.Label,
		"key":       secret,
		"createdAt": key.CreatedAt,
	})
}

func (s *Server) handleListKeys(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	keys, err := s.store.ListAPIKeys(ctx)
	if err != nil {
		s.logger.Error("list api keys failed", "error", err)
		respondError(c, http.StatusInternalServerError, "data retrieval failed")
		return
	}

	respondList(c, "api keys retrieved", keys, len(keys), len(keys))
}

func (s *Server) handleRevokeKey(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	found, err := s.store.RevokeAPIKey(ctx, id)
	if err != nil {
		s.logger.Error("revoke api key failed", "id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "key revocation failed")
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "api key not found")
		return
	}

	respondData(c, http.StatusOK, "api key revoked", nil)
}
