package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User is the read-mostly directory replica this core consumes. The profile
// service owns the canonical record; the matching engine only reads it for
// scoring, hard filters and notification policy (timezone, premium).
type User struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayName      string         `gorm:"column:display_name;type:text;not null"`
	Email            string         `gorm:"type:text;not null;uniqueIndex"`
	Gender           string         `gorm:"type:text;not null"`
	GenderPreference string         `gorm:"column:gender_preference;type:text;not null"`
	BirthDate        time.Time      `gorm:"column:birth_date;type:date;not null"`
	Latitude         float64        `gorm:"column:latitude;not null"`
	Longitude        float64        `gorm:"column:longitude;not null"`
	Interests        pq.StringArray `gorm:"type:text[];column:interests;not null;default:ARRAY[]::text[]"`
	PreferredAgeMin  int            `gorm:"column:preferred_age_min;not null;default:18"`
	PreferredAgeMax  int            `gorm:"column:preferred_age_max;not null;default:99"`
	MaxDistanceKM    float64        `gorm:"column:max_distance_km;not null;default:50"`
	Premium          bool           `gorm:"column:premium;not null;default:false"`
	IsActive         bool           `gorm:"column:is_active;not null;default:true"`
	Timezone         string         `gorm:"column:timezone;type:text;not null;default:'UTC'"`
	LastActiveAt     time.Time      `gorm:"column:last_active_at"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Age returns the user's age in whole years at the given instant.
func (u User) Age(now time.Time) int {
	years := now.Year() - u.BirthDate.Year()
	anniversary := u.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// Location returns the user's zone, falling back to UTC for unknown names.
func (u User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
