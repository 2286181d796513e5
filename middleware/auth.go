package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"backend_crb/config"
	"backend_crb/models"
)

// AuthMiddleware valida o token JWT emitido no login e carrega o usuário
type AuthMiddleware struct {
	DB *gorm.DB
}

// NewAuthMiddleware cria um novo AuthMiddleware
func NewAuthMiddleware(db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{DB: db}
}

// Protect exige um token válido e um usuário existente
func (am *AuthMiddleware) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Não autorizado, token ausente."})
			c.Abort()
			return
		}

		tokenString := authHeader
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		userID, err := am.parseToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Não autorizado, token inválido."})
			c.Abort()
			return
		}

		var user models.User
		if err := am.DB.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Não autorizado, usuário não encontrado."})
			c.Abort()
			return
		}

		c.Set("user", &user)
		c.Next()
	}
}

// AdminOnly exige o papel ADMIN; deve vir depois de Protect
func (am *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetCurrentUser(c)
		if user == nil || !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"message": "Acesso restrito a administradores."})
			c.Abort()
			return
		}
		c.Next()
	}
}

// parseToken valida a assinatura e extrai o id do usuário
func (am *AuthMiddleware) parseToken(tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de assinatura inesperado: %v", token.Header["alg"])
		}
		return []byte(config.GetConfig().JWT.Secret), nil
	})
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return 0, fmt.Errorf("token inválido")
	}

	id, ok := claims["id"].(float64)
	if !ok {
		return 0, fmt.Errorf("token sem identificação de usuário")
	}
	return uint(id), nil
}

// GetCurrentUser retorna o usuário autenticado do contexto da requisição
func GetCurrentUser(c *gin.Context) *models.User {
	if value, exists := c.Get("user"); exists {
		if user, ok := value.(*models.User); ok {
			return user
		}
	}
	return nil
}
