package models

import (
	"time"

	"github.com/google/uuid"
)

// Match is the mutual-like record for a pair of users. UserA/UserB are
// canonicalized (UserA < UserB by uuid string) and guarded by a unique index,
// which is what makes match creation exactly-once under concurrent
// reciprocal swipes.
type Match struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserA     uuid.UUID `gorm:"column:user_a;type:uuid;not null;uniqueIndex:ux_matches_pair,priority:1"`
	UserB     uuid.UUID `gorm:"column:user_b;type:uuid;not null;uniqueIndex:ux_matches_pair,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// CanonicalPair orders two user ids so that (a, b) and (b, a) map to the same
// match row.
func CanonicalPair(x, y uuid.UUID) (uuid.UUID, uuid.UUID) {
	if x.String() < y.String() {
		return x, y
	}
	return y, x
}

// Other returns the counterpart of the given user in the match.
func (m Match) Other(userID uuid.UUID) uuid.UUID {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}
