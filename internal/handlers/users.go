package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bevops-backend/internal/database"
	"bevops-backend/internal/models"
	"bevops-backend/pkg/utils"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // "admin", "operator", "driver" or "cleaner"
}

type CreateUserResponse struct {
	Success bool                 `json:"success"`
	User    *models.UserResponse `json:"user,omitempty"`
	Message string               `json:"message,omitempty"`
}

var validRoles = map[string]bool{
	models.RoleAdmin:    true,
	models.RoleOperator: true,
	models.RoleDriver:   true,
	models.RoleCleaner:  true,
}

// ListUsers returns every account without password hashes
func ListUsers(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := database.ListUsers(r.Context(), env.DB)
		if err != nil {
			writeError(w, "USERS", err)
			return
		}
		out := make([]models.UserResponse, len(users))
		for i := range users {
			out[i] = users[i].ToUserResponse()
		}
		utils.Success(w, out)
	}
}

// CreateUser creates an admin, operator, driver or cleaner account
func CreateUser(env *Env) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Println("📥 [USERS] POST /api/users - Create new user")

		var req CreateUserRequest
		if err := utils.Decode(r, &req); err != nil {
			log.Printf("❌ Invalid request body: %v", err)
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
			log.Println("❌ Missing required fields")
			utils.Error(w, http.StatusBadRequest, "Email, password, name, and role are required")
			return
		}
		if !validRoles[req.Role] {
			log.Printf("❌ Invalid role: %s", req.Role)
			utils.Error(w, http.StatusBadRequest, "Role must be 'admin', 'operator', 'driver' or 'cleaner'")
			return
		}

		ctx := r.Context()
		_, err := database.GetUserByEmail(ctx, env.DB, req.Email)
		if err == nil {
			log.Printf("❌ User already exists: %s", req.Email)
			utils.Error(w, http.StatusConflict, "User with this email already exists")
			return
		}
		if !errors.Is(err, database.ErrNotFound) {
			writeError(w, "USERS", err)
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("❌ Failed to hash password: %v", err)
			utils.Error(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		now := time.Now().Unix()
		user := models.User{
			ID:        uuid.New().String(),
			Email:     req.Email,
			Password:  string(hashedPassword),
			Name:      req.Name,
			Role:      req.Role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := database.InsertUser(ctx, env.DB, user); err != nil {
			writeError(w, "USERS", err)
			return
		}

		log.Printf("✅ [USERS] Created %s (%s) %s", user.Email, user.Role, user.ID)

		userResponse := user.ToUserResponse()
		utils.Created(w, CreateUserResponse{
			Success: true,
			User:    &userResponse,
			Message: "User created successfully",
		})
	}
}
