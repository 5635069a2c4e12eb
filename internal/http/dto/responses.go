package dto

type AuthResponse struct {
	Token string `json:"token"`
	Actor any    `json:"actor"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type BlockActorResponse struct {
	ActorID        int64    `json:"actor_id"`
	CancelledDeals []string `json:"cancelled_deals"`
}

type PaymentMethodsResponse struct {
	Methods []string `json:"methods"`
}
