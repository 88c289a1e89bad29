package main

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/minhngodev/campus-api/internal/config"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/minhngodev/campus-api/pkg/auth"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Seeder creates development users and device tokens, then prints a JWT
// for each user so the API can be exercised without an auth flow.
func main() {
	cfg := config.Load()

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.DeviceToken{},
		&model.Notification{},
		&model.DeliveryStatus{},
	); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	users := []model.User{
		{Email: "admin@campus.local", Name: "Campus Admin", Role: model.RoleAdmin},
		{Email: "staff@campus.local", Name: "Front Office", Role: model.RoleStaff},
		{Email: "alice@campus.local", Name: "Alice Nguyen", Role: model.RoleStudent},
		{Email: "bob@campus.local", Name: "Bob Tran", Role: model.RoleStudent},
		{Email: "carol@campus.local", Name: "Carol Pham", Role: model.RoleStudent},
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	for i := range users {
		users[i].Password = string(hash)

		var existing model.User
		err := db.Where("email = ?", users[i].Email).First(&existing).Error
		if err == nil {
			users[i] = existing
			log.Printf("⏭️  User %s already exists, skipping", existing.Email)
			continue
		}
		if err != gorm.ErrRecordNotFound {
			log.Fatalf("❌ Failed to query user: %v", err)
		}

		if err := db.Create(&users[i]).Error; err != nil {
			log.Fatalf("❌ Failed to create user %s: %v", users[i].Email, err)
		}
		log.Printf("✅ Created user %s [%s]", users[i].Email, users[i].Role)
	}

	// Register a fake device per student so dispatches have somewhere to go.
	// The tokens are not valid FCM tokens; the gateway will report them as
	// unregistered, which exercises the hygiene path end to end.
	for _, u := range users {
		if u.Role != model.RoleStudent {
			continue
		}
		device := model.DeviceToken{
			UserID:     u.ID,
			DeviceID:   "seed-device-" + u.Email,
			DeviceType: model.DeviceTypeAndroid,
			Token:      "seed-token-" + uuid.NewString(),
		}
		if err := db.Where("user_id = ? AND device_id = ?", u.ID, device.DeviceID).
			FirstOrCreate(&device).Error; err != nil {
			log.Fatalf("❌ Failed to seed device for %s: %v", u.Email, err)
		}
	}
	log.Println("✅ Seeded device tokens for students")

	fmt.Println("\n=== Development JWTs ===")
	for _, u := range users {
		token, err := jwtManager.GenerateToken(u.ID, u.Email, u.Role)
		if err != nil {
			log.Fatalf("❌ Failed to generate token for %s: %v", u.Email, err)
		}
		fmt.Printf("%-22s %s\n", u.Email+":", token)
	}
}
