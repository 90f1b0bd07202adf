package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskpad/internal/logger"
)

// Handler wires the auth and table surfaces onto a gin router.
type Handler struct {
	auth   *AuthStore
	tables *TableStore
	tokens *TokenIssuer
}

// NewHandler creates a request handler.
func NewHandler(auth *AuthStore, tables *TableStore, tokens *TokenIssuer) *Handler {
	return &Handler{auth: auth, tables: tables, tokens: tokens}
}

// RegisterRoutes mounts the /auth/v1 and /rest/v1 route groups.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/auth/v1")
	authGroup.POST("/signup", h.signup)
	authGroup.POST("/token", h.token)
	authGroup.POST("/logout", h.requireAuth, h.logout)

	restGroup := router.Group("/rest/v1")
	restGroup.Use(h.requireAuth)
	restGroup.GET("/:table", h.restSelect)
	restGroup.POST("/:table", h.restInsert)
	restGroup.PATCH("/:table", h.restUpdate)
	restGroup.DELETE("/:table", h.restDelete)
}

type credentialsRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

// sessionResponse mirrors the hosted provider's token bundle.
type sessionResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "email and password are required"})
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.internalError(c, "hash password", err)
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), req.Email, hash)
	if errors.Is(err, ErrEmailTaken) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"msg": ErrEmailTaken.Error()})
		return
	}
	if err != nil {
		h.internalError(c, "create user", err)
		return
	}

	h.respondWithSession(c, user)
}

func (h *Handler) token(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request body"})
		return
	}

	switch c.Query("grant_type") {
	case "password":
		user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
		if errors.Is(err, ErrBadCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": ErrBadCredentials.Error()})
			return
		}
		if err != nil {
			h.internalError(c, "authenticate", err)
			return
		}
		h.respondWithSession(c, user)

	case "refresh_token":
		userID, err := h.tokens.Redeem(c.Request.Context(), req.RefreshToken)
		if errors.Is(err, ErrRefreshNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"msg": ErrRefreshNotFound.Error()})
			return
		}
		if err != nil {
			h.internalError(c, "redeem refresh token", err)
			return
		}
		user, err := h.auth.GetUser(c.Request.Context(), userID)
		if err != nil {
			h.internalError(c, "load user", err)
			return
		}
		h.respondWithSession(c, user)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"msg": "unsupported grant_type"})
	}
}

func (h *Handler) logout(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.tokens.RevokeAll(c.Request.Context(), userID); err != nil {
		h.internalError(c, "revoke tokens", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondWithSession(c *gin.Context, user User) {
	pair, err := h.tokens.Issue(c.Request.Context(), user.ID, user.Email)
	if err != nil {
		h.internalError(c, "issue tokens", err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    "bearer",
		ExpiresIn:    pair.ExpiresIn,
		ExpiresAt:    pair.ExpiresAt,
		RefreshToken: pair.RefreshToken,
		User:         userResponse{ID: user.ID, Email: user.Email},
	})
}

// requireAuth validates the bearer token and stores the caller's
// identity on the context.
func (h *Handler) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing bearer token"})
		return
	}

	userID, email, err := h.tokens.Validate(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid or expired token"})
		return
	}
	c.Set("userID", userID)
	c.Set("email", email)
	c.Next()
}

func (h *Handler) parseQuery(c *gin.Context) (restQuery, bool) {
	q, err := parseRestQuery(c.Param("table"), c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "PGRST100", "message": err.Error()})
		return restQuery{}, false
	}
	q.forceOwner(c.GetString("userID"))
	return q, true
}

func (h *Handler) restSelect(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}
	rows, err := h.tables.Select(c.Request.Context(), q)
	if err != nil {
		h.internalError(c, "select", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) restInsert(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}

	var records []map[string]any
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "expected a JSON array of records"})
		return
	}

	userID := c.GetString("userID")
	inserted := make([]map[string]any, 0, len(records))
	for _, record := range records {
		record["user_id"] = userID
		row, err := h.tables.Insert(c.Request.Context(), q, record)
		if errors.Is(err, ErrBadQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		if err != nil {
			h.internalError(c, "insert", err)
			return
		}
		inserted = append(inserted, row)
	}

	if strings.Contains(c.GetHeader("Prefer"), "return=representation") {
		c.JSON(http.StatusCreated, inserted)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) restUpdate(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}

	var patch map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "expected a JSON object"})
		return
	}
	// Ownership is enforced by the forced user_id filter; never let a
	// patch move a row to another user.
	delete(patch, "user_id")

	if err := h.tables.Update(c.Request.Context(), q, patch); err != nil {
		if errors.Is(err, ErrBadQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.internalError(c, "update", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) restDelete(c *gin.Context) {
	q, ok := h.parseQuery(c)
	if !ok {
		return
	}
	if err := h.tables.Delete(c.Request.Context(), q); err != nil {
		h.internalError(c, "delete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	logger.Error(op+" failed", map[string]any{"error": err.Error()})
	c.JSON(http.StatusInternalServerError, gin.H{"msg": "internal error"})
}
