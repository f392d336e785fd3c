package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekdays Frequency = "weekdays"
	FrequencyCustom   Frequency = "custom"
)

const (
	ProviderPassword  = "password"
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
	ProviderFirebase  = "firebase"
)

const DefaultAvatar = "/uploads/default.png"

type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string    `json:"name"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar"`
	IsPaid       bool      `gorm:"default:false" json:"is_paid"`
	Provider     string    `json:"provider"`
	FirebaseUID  *string   `gorm:"uniqueIndex" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Habit struct {
	ID                string                   `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID            string                   `gorm:"type:varchar(36);index:idx_habits_user_created" json:"user_id"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description"`
	Time              string                   `json:"time"`
	Icon              string                   `json:"icon"`
	Color             string                   `json:"color"`
	Frequency         Frequency                `json:"frequency"`
	CustomDays        datatypes.JSONSlice[int] `json:"custom_days"`
	CurrentStreak     int                      `gorm:"not null;default:0" json:"current_streak"`
	LastCompletedDate string                   `gorm:"not null;default:''" json:"last_completed_date"`
	Deleted           bool                     `gorm:"not null;default:false" json:"deleted"`
	Version           int                      `gorm:"not null;default:0" json:"-"`
	CreatedAt         time.Time                `gorm:"index:idx_habits_user_created" json:"created_at"`
}

// HabitCompletion marks a habit as done on one calendar date.
type HabitCompletion struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	HabitID     string    `gorm:"type:varchar(36);uniqueIndex:idx_completion_habit_date" json:"habit_id"`
	UserID      string    `gorm:"type:varchar(36);index" json:"user_id"`
	Date        string    `gorm:"type:varchar(10);uniqueIndex:idx_completion_habit_date" json:"date"`
	CompletedAt time.Time `json:"completed_at"`
}

type VoiceNote struct {
	URL        string  `json:"url" binding:"required"`
	Duration   float64 `json:"duration"`
	Transcript string  `json:"transcript,omitempty"`
}

type Reflection struct {
	ID                  string    `gorm:"type:varchar(36);primaryKey"`
	UserID              string    `gorm:"type:varchar(36);index:idx_reflections_user_date"`
	Date                string    `gorm:"type:varchar(10);index:idx_reflections_user_date"`
	Text                string
	VoiceNoteURL        string
	VoiceNoteDuration   float64
	VoiceNoteTranscript string
	AIResponse          string
	CreatedAt           time.Time `gorm:"index"`
}

// VoiceNote returns nil when the reflection was text only.
func (r *Reflection) VoiceNote() *VoiceNote {
	if r.VoiceNoteURL == "" {
		return nil
	}
	return &VoiceNote{
		URL:        r.VoiceNoteURL,
		Duration:   r.VoiceNoteDuration,
		Transcript: r.VoiceNoteTranscript,
	}
}

func (r *Reflection) SetVoiceNote(v *VoiceNote) {
	if v == nil {
		r.VoiceNoteURL, r.VoiceNoteDuration, r.VoiceNoteTranscript = "", 0, ""
		return
	}
	r.VoiceNoteURL = v.URL
	r.VoiceNoteDuration = v.Duration
	r.VoiceNoteTranscript = v.Transcript
}

func (r Reflection) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string     `json:"id"`
		UserID     string     `json:"user_id"`
		Date       string     `json:"date"`
		Text       string     `json:"text"`
		VoiceNote  *VoiceNote `json:"voice_note,omitempty"`
		AIResponse string     `json:"ai_response"`
		CreatedAt  time.Time  `json:"created_at"`
	}{
		ID:         r.ID,
		UserID:     r.UserID,
		Date:       r.Date,
		Text:       r.Text,
		VoiceNote:  r.VoiceNote(),
		AIResponse: r.AIResponse,
		CreatedAt:  r.CreatedAt,
	})
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

func (c *HabitCompletion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (r *Reflection) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
