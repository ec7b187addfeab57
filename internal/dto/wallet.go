package dto

// WalletResp — баланс кошелька для админского API.
type WalletResp struct {
	WaID    string `json:"wa_id"`
	Credits int    `json:"credits"`
}

// CreditReq — ручное пополнение кошелька через админское API.
type CreditReq struct {
	Credits int `json:"credits" binding:"required,gt=0"`
}
