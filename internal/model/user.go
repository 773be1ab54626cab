package model

import "time"

// Role names form a closed set.  Authorization decisions are made by
// middleware.RequireRole against these values; handlers never compare
// role strings directly.
const (
	RoleAdmin   = "ADMIN"
	RoleTrainer = "TRAINER"
	RoleUser    = "USER"
)

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column.  Handlers
// define separate response types with JSON tags; these structs are
// used by the repository layer.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address, stored lower-cased.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of RoleAdmin, RoleTrainer, RoleUser.
//  FirstName    – given name.
//  LastName     – family name.
//  MiddleName   – optional patronymic / middle name.
//  IsActive     – whether the account is active.
//  IsNewClient  – true until the user attends their first session.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	MiddleName   string    // users.middle_name
	IsActive     bool      // users.is_active
	IsNewClient  bool      // users.is_new_client
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Profile holds the training-related attributes of a user.  The level
// and gender fields participate in eligibility checks; the rest is
// informational.
//
// Fields:
//  ID                – primary key identifier.
//  UserID            – owning user (unique).
//  Phone             – contact phone number.
//  Level             – training level, starts at 1.
//  Gender            – "male", "female" or empty when undisclosed.
//  City              – home city.
//  Occupation        – free-form occupation text.
//  PreferredArea     – preferred part of town for sessions.
//  TotalTrainings    – lifetime count of attended sessions.
//  FirstTrainingDate – date of the first attended session (nullable).
//  MakeupLessons     – number of make-up lessons the client may claim.
type Profile struct {
	ID                uint64     // profiles.id
	UserID            uint64     // profiles.user_id
	Phone             string     // profiles.phone
	Level             int        // profiles.level
	Gender            string     // profiles.gender
	City              string     // profiles.city
	Occupation        string     // profiles.occupation
	PreferredArea     string     // profiles.preferred_area
	TotalTrainings    int        // profiles.total_trainings
	FirstTrainingDate *time.Time // profiles.first_training_date (nullable)
	MakeupLessons     int        // profiles.makeup_lessons
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// MakeupLesson grants a client one replacement session after a missed
// attendance.  It expires if unused by ExpirationDate.
type MakeupLesson struct {
	ID             uint64    // makeup_lessons.id
	ClientID       uint64    // makeup_lessons.client_id
	ExpirationDate time.Time // makeup_lessons.expiration_date
	CreatedAt      time.Time // makeup_lessons.created_at
}
