package dto

type AuthTelegramRequest struct {
	InitData string `json:"init_data"`
}

type CreateDealRequest struct {
	Amount    string `json:"amount"`
	Condition string `json:"condition"`
	Secret    string `json:"secret"`
}

type JoinDealRequest struct {
	Secret string `json:"secret"`
}

type SelectPaymentRequest struct {
	Method string `json:"method"` // USDT_TRC20 / TON
}

type BroadcastRequest struct {
	Text string `json:"text"`
}
