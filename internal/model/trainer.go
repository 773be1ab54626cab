package model

// Trainer is the coaching profile attached to a user with the TRAINER
// role.  PayoutAccountID identifies the trainer's account at the
// payment gateway; subscription purchases split revenue to it.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owning user (unique).
//  ExperienceYears – years of coaching experience.
//  Bio             – free-form biography.
//  PayoutAccountID – gateway account receiving the trainer share.
type Trainer struct {
	ID              uint64 // trainers.id
	UserID          uint64 // trainers.user_id
	ExperienceYears int    // trainers.experience_years
	Bio             string // trainers.bio
	PayoutAccountID string // trainers.payout_account_id
}
