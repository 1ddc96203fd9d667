package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
)

// ProfileDTO is the transport shape exposed to discovery responses.
type ProfileDTO struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Age         int       `json:"age"`
	Gender      string    `json:"gender"`
	Interests   []string  `json:"interests"`
	DistanceKM  float64   `json:"distance_km"`
	Premium     bool      `json:"premium"`
}

// FromModel converts a directory row into the transport shape. DistanceKM is
// filled in by the caller since it depends on the viewer.
func FromModel(u *models.User, now time.Time) *ProfileDTO {
	if u == nil {
		return nil
	}

	return &ProfileDTO{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Age:         u.Age(now),
		Gender:      u.Gender,
		Interests:   append([]string(nil), u.Interests...),
		Premium:     u.Premium,
	}
}
