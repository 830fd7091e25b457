package dto

type ProfileUpdateRequest struct {
	Name      *string  `json:"name,omitempty"`
	Bio       *string  `json:"bio,omitempty"`
	Expertise []string `json:"expertise,omitempty"`
	Rate      *float64 `json:"rate,omitempty"`
}

type AvailabilityRequest struct {
	Times []TimeWindow `json:"times"`
}

type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type RateMentorRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

type TopUpRequest struct {
	Amount float64 `json:"amount"`
}
