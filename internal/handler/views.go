package handler

import (
	"time"

	"trainbook/internal/model"
)

// views.go maps repository models onto the JSON shapes the API
// returns. Models stay free of JSON tags; every endpoint answers with
// one of these structs.

type venueView struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	MetroStation string `json:"metro_station,omitempty"`
	District     string `json:"district,omitempty"`
	Description  string `json:"description,omitempty"`
	Level        int    `json:"level"`
}

func toVenueView(v *model.Venue) venueView {
	return venueView{
		ID:           v.ID,
		Name:         v.Name,
		Address:      v.Address,
		MetroStation: v.MetroStation,
		District:     v.District,
		Description:  v.Description,
		Level:        v.Level,
	}
}

type trainerView struct {
	ID              uint64 `json:"id"`
	UserID          uint64 `json:"user_id"`
	ExperienceYears int    `json:"experience_years"`
	Bio             string `json:"bio,omitempty"`
}

func toTrainerView(t *model.Trainer) trainerView {
	// The payout account is internal billing detail and never leaves
	// the API.
	return trainerView{
		ID:              t.ID,
		UserID:          t.UserID,
		ExperienceYears: t.ExperienceYears,
		Bio:             t.Bio,
	}
}

type sessionView struct {
	ID                  uint64     `json:"id"`
	VenueID             uint64     `json:"venue_id"`
	TrainerID           uint64     `json:"trainer_id"`
	StartsAt            time.Time  `json:"starts_at"`
	Level               int        `json:"level"`
	Gender              string     `json:"gender"`
	Intensity           *int       `json:"intensity,omitempty"`
	MaxParticipants     int        `json:"max_participants"`
	CurrentParticipants int        `json:"current_participants"`
	UnenrollDeadline    *time.Time `json:"unenroll_deadline,omitempty"`
	IsRecurring         bool       `json:"is_recurring"`
	RecurrenceEndDate   *time.Time `json:"recurrence_end_date,omitempty"`
}

func toSessionView(s *model.TrainingSession) sessionView {
	return sessionView{
		ID:                  s.ID,
		VenueID:             s.VenueID,
		TrainerID:           s.TrainerID,
		StartsAt:            s.StartsAt,
		Level:               s.Level,
		Gender:              s.Gender,
		Intensity:           s.Intensity,
		MaxParticipants:     s.MaxParticipants,
		CurrentParticipants: s.CurrentParticipants,
		UnenrollDeadline:    s.UnenrollDeadline,
		IsRecurring:         s.IsRecurring,
		RecurrenceEndDate:   s.RecurrenceEndDate,
	}
}

func toSessionViews(list []model.TrainingSession) []sessionView {
	out := make([]sessionView, 0, len(list))
	for i := range list {
		out = append(out, toSessionView(&list[i]))
	}
	return out
}

type subscriptionView struct {
	ID            uint64    `json:"id"`
	Type          string    `json:"type"`
	VenueID       *uint64   `json:"venue_id,omitempty"`
	TrainerID     *uint64   `json:"trainer_id,omitempty"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	TrainingsLeft int       `json:"trainings_left"`
	PriceCents    uint32    `json:"price_cents"`
	IsPaid        bool      `json:"is_paid"`
	Confirmed     bool      `json:"confirmed"`
	DaysOfWeek    []string  `json:"days_of_week,omitempty"`
	Months        []string  `json:"months,omitempty"`
	ClientType    string    `json:"client_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toSubscriptionView(s *model.Subscription) subscriptionView {
	return subscriptionView{
		ID:            s.ID,
		Type:          s.Type,
		VenueID:       s.VenueID,
		TrainerID:     s.TrainerID,
		StartDate:     s.StartDate.Format("2006-01-02"),
		EndDate:       s.EndDate.Format("2006-01-02"),
		TrainingsLeft: s.TrainingsLeft,
		PriceCents:    s.PriceCents,
		IsPaid:        s.IsPaid,
		Confirmed:     s.Confirmed,
		DaysOfWeek:    s.DaysOfWeek,
		Months:        s.Months,
		ClientType:    s.ClientType,
		CreatedAt:     s.CreatedAt,
	}
}

type notificationView struct {
	ID        uint64    `json:"id"`
	SessionID *uint64   `json:"session_id,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationViews(list []model.Notification) []notificationView {
	out := make([]notificationView, 0, len(list))
	for _, n := range list {
		out = append(out, notificationView{
			ID:        n.ID,
			SessionID: n.SessionID,
			Type:      n.Type,
			Message:   n.Message,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

type feedbackView struct {
	ID        uint64    `json:"id"`
	SessionID uint64    `json:"session_id"`
	UserID    uint64    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toFeedbackView(f *model.SessionFeedback) feedbackView {
	return feedbackView{
		ID:        f.ID,
		SessionID: f.SessionID,
		UserID:    f.UserID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		CreatedAt: f.CreatedAt,
	}
}

func toFeedbackViews(list []model.SessionFeedback) []feedbackView {
	out := make([]feedbackView, 0, len(list))
	for i := range list {
		out = append(out, toFeedbackView(&list[i]))
	}
	return out
}
