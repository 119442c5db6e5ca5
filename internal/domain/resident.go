package domain

// ResidentStatus tags every registrant and registration with where the
// person lives relative to the housing complex. It is a closed set.
type ResidentStatus string

const (
	ResidentInComplex          ResidentStatus = "in_complex"
	ResidentNearbyDistrict     ResidentStatus = "nearby_district"
	ResidentOtherSocialHousing ResidentStatus = "other_social_housing"
	ResidentGeneralPublic      ResidentStatus = "general_public"
)

// residentAnswers maps the literal survey answers to their category.
// Any answer not listed here is general public.
var residentAnswers = map[string]ResidentStatus{
	"是":              ResidentInComplex,
	"否，我是文山區鄰近居民":    ResidentNearbyDistrict,
	"否，我是其他臺北市社會住宅住戶": ResidentOtherSocialHousing,
}

// ParseResidentStatus maps a raw survey answer to a ResidentStatus.
// Matching is exact; unrecognized text (including "" and whitespace)
// yields ResidentGeneralPublic.
func ParseResidentStatus(raw string) ResidentStatus {
	if s, ok := residentAnswers[raw]; ok {
		return s
	}
	return ResidentGeneralPublic
}

// Valid reports whether s is one of the four known categories.
func (s ResidentStatus) Valid() bool {
	switch s {
	case ResidentInComplex, ResidentNearbyDistrict, ResidentOtherSocialHousing, ResidentGeneralPublic:
		return true
	}
	return false
}

// Label returns the display text used by the dashboard and CSV export.
func (s ResidentStatus) Label() string {
	switch s {
	case ResidentInComplex:
		return "社宅住戶"
	case ResidentNearbyDistrict:
		return "鄰近居民"
	case ResidentOtherSocialHousing:
		return "其他社宅住戶"
	default:
		return "一般民眾"
	}
}
