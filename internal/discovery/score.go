package discovery

import (
	"math"
	"time"

	"github.com/sparkmeet/sparkmeet-backend/pkg/db/models"
)

const (
	weightInterests = 0.40
	weightAge       = 0.30
	weightDistance  = 0.30

	earthRadiusKM = 6371.0
)

// Score computes the compatibility of a candidate for the viewer on a 0-100
// scale. It is deterministic: same inputs, same output.
func Score(viewer, candidate *models.User, now time.Time, ageToleranceYears int) float64 {
	j := jaccard(viewer.Interests, candidate.Interests)
	a := ageFit(viewer, candidate, now, ageToleranceYears)
	d := distanceFit(viewer, candidate)
	return (weightInterests*j + weightAge*a + weightDistance*d) * 100
}

// jaccard returns |A∩B| / |A∪B| over the two interest sets. Two empty sets
// share nothing to compare, which counts as zero similarity.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	intersection := 0
	seen := make(map[string]struct{}, len(b))
	for _, item := range b {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		if _, ok := set[item]; ok {
			intersection++
		}
	}
	union := len(set) + len(seen) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// ageFit is 1.0 when the candidate's age falls inside the viewer's preferred
// range and decays linearly to 0 over the tolerance band outside it.
func ageFit(viewer, candidate *models.User, now time.Time, toleranceYears int) float64 {
	age := candidate.Age(now)
	if age >= viewer.PreferredAgeMin && age <= viewer.PreferredAgeMax {
		return 1
	}
	if toleranceYears <= 0 {
		return 0
	}
	var overshoot int
	if age < viewer.PreferredAgeMin {
		overshoot = viewer.PreferredAgeMin - age
	} else {
		overshoot = age - viewer.PreferredAgeMax
	}
	if overshoot >= toleranceYears {
		return 0
	}
	return 1 - float64(overshoot)/float64(toleranceYears)
}

// distanceFit is 1.0 within the viewer's max distance and decays linearly to
// 0 at twice that distance.
func distanceFit(viewer, candidate *models.User) float64 {
	maxKM := viewer.MaxDistanceKM
	if maxKM <= 0 {
		return 0
	}
	d := haversineKM(viewer.Latitude, viewer.Longitude, candidate.Latitude, candidate.Longitude)
	if d <= maxKM {
		return 1
	}
	if d >= 2*maxKM {
		return 0
	}
	return 1 - (d-maxKM)/maxKM
}

// haversineKM returns the great-circle distance between two coordinates.
func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// genderAccepts reports whether the preference admits the given gender.
func genderAccepts(preference, gender string) bool {
	return preference == "" || preference == "any" || preference == gender
}

// mutualGenderFit requires both sides' preferences to accept each other.
func mutualGenderFit(viewer, candidate *models.User) bool {
	return genderAccepts(viewer.GenderPreference, candidate.Gender) &&
		genderAccepts(candidate.GenderPreference, viewer.Gender)
}
