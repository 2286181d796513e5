package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend_crb/models"
)

// UserAPI concentra as rotas de gestão de usuários (administradores e
// operadores de campo)
type UserAPI struct {
	DB *gorm.DB
}

// NewUserAPI cria uma nova instância de UserAPI
func NewUserAPI(db *gorm.DB) *UserAPI {
	return &UserAPI{DB: db}
}

// CreateUserRequest representa a requisição de criação de usuário
type CreateUserRequest struct {
	Name        string                `json:"name" binding:"required"`
	Email       string                `json:"email" binding:"required,email"`
	Password    string                `json:"password" binding:"required,min=6"`
	Role        string                `json:"role" binding:"omitempty,oneof=ADMIN OPERATOR"`
	Assignments models.AssignmentList `json:"assignments"`
}

// UpdateUserRequest representa a requisição de atualização de usuário
type UpdateUserRequest struct {
	Name        string                 `json:"name"`
	Email       string                 `json:"email" binding:"omitempty,email"`
	Password    string                 `json:"password" binding:"omitempty,min=6"`
	Role        string                 `json:"role" binding:"omitempty,oneof=ADMIN OPERATOR"`
	Assignments *models.AssignmentList `json:"assignments"`
}

// GetUsers retorna todos os usuários
func (api *UserAPI) GetUsers(c *gin.Context) {
	var users []models.User
	if err := api.DB.Order("name ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar usuários."})
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser retorna um usuário específico
func (api *UserAPI) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de usuário inválido."})
		return
	}

	var user models.User
	if err := api.DB.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Usuário não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar usuário."})
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUser cria um novo usuário
func (api *UserAPI) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos: " + err.Error()})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao criar usuário."})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleOperator
	}
	assignments := req.Assignments
	if assignments == nil {
		assignments = models.AssignmentList{}
	}

	user := models.User{
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hashed),
		Role:        role,
		Assignments: assignments,
	}

	if err := api.DB.Create(&user).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Já existe um usuário com este e-mail."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao criar usuário: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// UpdateUser atualiza os dados de um usuário
func (api *UserAPI) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de usuário inválido."})
		return
	}

	var user models.User
	if err := api.DB.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Usuário não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar usuário."})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Dados inválidos: " + err.Error()})
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if req.Role != "" {
		updates["role"] = req.Role
	}
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar usuário."})
			return
		}
		updates["password"] = string(hashed)
	}
	if req.Assignments != nil {
		// Reescrita da sequência embutida bumpa a versão (lock otimista)
		updates["assignments"] = *req.Assignments
		updates["version"] = user.Version + 1
	}

	if err := api.DB.Model(&user).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Já existe um usuário com este e-mail."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao atualizar usuário."})
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeleteUser remove um usuário. Os registros de serviço do operador são
// mantidos com o nome desnormalizado.
func (api *UserAPI) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID de usuário inválido."})
		return
	}

	var user models.User
	if err := api.DB.First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Usuário não encontrado."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao buscar usuário."})
		return
	}

	if err := api.DB.Delete(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erro ao excluir usuário."})
		return
	}

	c.Status(http.StatusNoContent)
}

// isUniqueViolation identifica erros de violação de unicidade do banco
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique") ||
		strings.Contains(msg, "constraint")
}
