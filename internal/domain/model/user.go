package model

// User is the account the configured credential belongs to.
type User struct {
	Username    string `json:"username" yaml:"username"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	AccountID   string `json:"account_id" yaml:"account_id"`
}
