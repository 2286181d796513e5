package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend_crb/middleware"
	"backend_crb/models"
	"backend_crb/testutils"
)

func setupAuthTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	testutils.SetupTestConfig()

	router := gin.New()
	authAPI := NewAuthAPI(db, nil)
	auth := middleware.NewAuthMiddleware(db)

	router.POST("/api/auth/login", authAPI.Login)
	router.POST("/api/auth/reset-password", authAPI.ResetPassword)
	router.GET("/api/auth/me", auth.Protect(), authAPI.Me)

	return router
}

func postJSON(router *gin.Engine, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLoginSuccess(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)
	router := setupAuthTestRouter(db)

	_, err = testutils.CreateTestUser(db, "João", "joao@teste.com", "senha123", models.RoleOperator, nil)
	require.NoError(t, err)

	w := postJSON(router, "/api/auth/login", gin.H{"email": "joao@teste.com", "password": "senha123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["access_token"])

	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "joao@teste.com", user["email"])
	assert.Equal(t, models.RoleOperator, user["role"])
}

func TestLoginWrongPassword(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)
	router := setupAuthTestRouter(db)

	_, err = testutils.CreateTestUser(db, "João", "joao@teste.com", "senha123", models.RoleOperator, nil)
	require.NoError(t, err)

	w := postJSON(router, "/api/auth/login", gin.H{"email": "joao@teste.com", "password": "errada"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Credenciais inválidas.")
}

func TestMeRequiresValidToken(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)
	router := setupAuthTestRouter(db)

	// Sem token
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Token emitido no login
	user, err := testutils.CreateTestUser(db, "João", "joao@teste.com", "senha123", models.RoleOperator, nil)
	require.NoError(t, err)

	login := postJSON(router, "/api/auth/login", gin.H{"email": "joao@teste.com", "password": "senha123"}, nil)
	require.Equal(t, http.StatusOK, login.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(login.Body.Bytes(), &resp))
	token := resp["access_token"].(string)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var me models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, user.ID, me.ID)
}

func TestResetPasswordWithValidToken(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)
	router := setupAuthTestRouter(db)

	user, err := testutils.CreateTestUser(db, "João", "joao@teste.com", "antiga123", models.RoleOperator, nil)
	require.NoError(t, err)

	token := "token-de-redefinicao"
	expires := time.Now().Add(30 * time.Minute)
	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"reset_token":         token,
		"reset_token_expires": expires,
	}).Error)

	w := postJSON(router, "/api/auth/reset-password", gin.H{"token": token, "password": "nova456"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("nova456")))
	assert.Nil(t, updated.ResetToken)
	assert.Nil(t, updated.ResetTokenExpires)

	// O mesmo token não vale duas vezes
	w = postJSON(router, "/api/auth/reset-password", gin.H{"token": token, "password": "outra789"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	defer testutils.CleanupTestDB(db)
	router := setupAuthTestRouter(db)

	user, err := testutils.CreateTestUser(db, "João", "joao@teste.com", "antiga123", models.RoleOperator, nil)
	require.NoError(t, err)

	require.NoError(t, db.Model(user).Updates(map[string]interface{}{
		"reset_token":         "token-vencido",
		"reset_token_expires": time.Now().Add(-time.Minute),
	}).Error)

	w := postJSON(router, "/api/auth/reset-password", gin.H{"token": "token-vencido", "password": "nova456"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Token inválido ou expirado.")
}
