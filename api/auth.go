package api

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend_crb/config"
	"backend_crb/middleware"
	"backend_crb/models"
	"backend_crb/services"
)

// AuthAPI concentra as rotas de autenticação e recuperação de senha
type AuthAPI struct {
	DB            *gorm.DB
	Notifications *services.NotificationService
}

// NewAuthAPI cria uma nova instância de AuthAPI
func NewAuthAPI(db *gorm.DB, notifications *services.NotificationService) *AuthAPI {
	return &AuthAPI{DB: db, Notifications: notifications}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// generateToken emite um JWT com o id do usuário
func generateToken(userID uint) (string, error) {
	cfg := config.GetConfig()
	claims := jwt.MapClaims{
		"id":  userID,
		"exp": time.Now().Add(cfg.JWT.ExpiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.Secret))
}

// Login autentica por e-mail e senha e devolve o token de acesso
func (api *AuthAPI) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Por favor, informe e-mail e senha."})
		return
	}

	var user models.User
	if err := api.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Credenciais inválidas."})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Credenciais inválidas."})
		return
	}

	token, err := generateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno no login."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"user": gin.H{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Me retorna o usuário autenticado
func (api *AuthAPI) Me(c *gin.Context) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Não autorizado."})
		return
	}
	c.JSON(http.StatusOK, user)
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword gera o token de redefinição e envia o e-mail. A resposta
// é sempre genérica para não revelar se o e-mail existe.
func (api *AuthAPI) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Informe um e-mail válido."})
		return
	}

	genericResponse := gin.H{"message": "Se o e-mail existir, enviaremos instruções."}

	var user models.User
	if err := api.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, genericResponse)
		return
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao processar solicitação."})
		return
	}
	token := hex.EncodeToString(raw)
	expires := time.Now().Add(30 * time.Minute)

	updates := map[string]interface{}{
		"reset_token":         token,
		"reset_token_expires": expires,
	}
	if err := api.DB.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao processar solicitação."})
		return
	}

	if err := api.Notifications.SendPasswordResetEmail(user.Email, token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao processar solicitação."})
		return
	}

	c.JSON(http.StatusOK, genericResponse)
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

// ResetPassword valida o token e grava a nova senha
func (api *AuthAPI) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Token e nova senha são obrigatórios."})
		return
	}

	var user models.User
	err := api.DB.Where("reset_token = ? AND reset_token_expires > ?", req.Token, time.Now()).
		First(&user).Error
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Token inválido ou expirado."})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno ao redefinir senha."})
		return
	}

	updates := map[string]interface{}{
		"password":            string(hashed),
		"reset_token":         nil,
		"reset_token_expires": nil,
	}
	if err := api.DB.Model(&user).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro interno ao redefinir senha."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Senha redefinida com sucesso."})
}
