package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/comunitree/internal/auth"
	"github.com/charlesng35/comunitree/internal/models"
	"github.com/charlesng35/comunitree/internal/services"
	"github.com/charlesng35/comunitree/pkg/response"
)

type AuthHandler struct {
	accounts *services.AccountService
	jwt      *iauth.JWTService
}

type registerRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"display_name" validate:"omitempty,max=120"`
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type authResponse struct {
	*iauth.AccessToken
	User *models.User `json:"user"`
}

func NewAuthHandler(accounts *services.AccountService, jwt *iauth.JWTService) (*AuthHandler, error) {
	if accounts == nil || jwt == nil {
		return nil, fmt.Errorf("auth handler: accounts and jwt services are required")
	}
	return &AuthHandler{accounts: accounts, jwt: jwt}, nil
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.accounts.Register(requestContext(c), services.RegisterInput{
		Username:    strings.TrimSpace(body.Username),
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issue(c, http.StatusCreated, user)
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.accounts.Authenticate(requestContext(c), body.Identifier, body.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.issue(c, http.StatusOK, user)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.accounts.GetUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

func (h *AuthHandler) issue(c *gin.Context, status int, user *models.User) {
	token, err := h.jwt.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, status, authResponse{AccessToken: token, User: user})
}
