package model

// Session keys mirror the browser storage keys of the web client.
const (
	KeyWalletAddress = "wallet_address"
	KeySelectedPool  = "selected_pool"
	KeySelectedToken = "selected_token"
	KeyPools         = "pools"
)

// Session is the locally persisted account selection.
type Session struct {
	WalletAddress string `json:"wallet_address"`
	SelectedPool  string `json:"selected_pool"`
	SelectedToken string `json:"selected_token"`
}
