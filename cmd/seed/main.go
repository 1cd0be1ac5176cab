package main

import (
	"context"
	"log"

	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/model"
	"taskhub/internal/repository"
)

const (
	demoEmail    = "demo@taskhub.local"
	demoPassword = "Demo1234!"
)

var demoTasks = []model.Task{
	{Title: "Write project proposal", Description: "Draft and circulate the Q3 proposal", Status: model.StatusInProgress, Priority: model.PriorityHigh},
	{Title: "Review pull requests", Status: model.StatusPending, Priority: model.PriorityMedium},
	{Title: "Update dependencies", Description: "Bump minor versions and run the test suite", Status: model.StatusPending, Priority: model.PriorityLow},
	{Title: "Plan sprint retro", Status: model.StatusCompleted, Priority: model.PriorityMedium},
}

func main() {
	log.Println("Starting seed script...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gormDB, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	users := repository.NewUserRepository(gormDB)
	tasks := repository.NewTaskRepository(gormDB)

	if existing, err := users.FindByEmail(ctx, demoEmail); err == nil && existing != nil {
		log.Printf("Demo user %s already exists, nothing to do", demoEmail)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &model.User{
		Name:         "Demo User",
		Email:        demoEmail,
		PasswordHash: string(hashed),
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create demo user: %v", err)
	}
	log.Printf("Created demo user %s (password: %s)", demoEmail, demoPassword)

	for _, task := range demoTasks {
		task.UserID = user.ID
		if err := tasks.Create(ctx, &task); err != nil {
			log.Fatalf("Failed to create task %q: %v", task.Title, err)
		}
	}
	log.Printf("Seeded %d tasks", len(demoTasks))
}
