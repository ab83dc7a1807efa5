package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soulbahprojet/solutions224-backend/internal/config"
	"github.com/soulbahprojet/solutions224-backend/internal/db"
	"github.com/soulbahprojet/solutions224-backend/internal/models"
	"github.com/soulbahprojet/solutions224-backend/internal/repository"
	"github.com/soulbahprojet/solutions224-backend/internal/validation"
)

// Служебная утилита для выдачи роли admin. Через публичную регистрацию
// эту роль получить нельзя, администраторы заводятся только отсюда.
func main() {
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "email администратора")
	username := flag.String("username", "admin", "отображаемое имя")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "пароль администратора")
	flag.Parse()

	if err := validation.ValidateEmail(*email); err != nil {
		log.Fatalf("createadmin: %v", err)
	}
	if err := validation.ValidatePassword(*password); err != nil {
		log.Fatalf("createadmin: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("createadmin: ошибка загрузки конфигурации: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("createadmin: ошибка подключения к базе: %v", err)
	}
	defer dbConn.Close()

	userRepo := repository.NewUserRepository(dbConn)

	normalized := strings.ToLower(*email)
	if _, err := userRepo.GetByEmail(ctx, normalized); err == nil {
		log.Fatalf("createadmin: пользователь %s уже существует", normalized)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("createadmin: не удалось захешировать пароль: %v", err)
	}

	admin := &models.User{
		Email:        normalized,
		Username:     *username,
		PasswordHash: string(passHash),
		Role:         models.RoleAdmin,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		log.Fatalf("createadmin: ошибка создания пользователя: %v", err)
	}

	log.Printf("createadmin: администратор %s создан (id=%s)", admin.Email, admin.ID)
}
