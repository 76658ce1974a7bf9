package models

// Profile is the public surface of a seller account. Only the tier label and
// account type are read here; the rest of the profile belongs to the
// marketplace backend.
type Profile struct {
	BaseModel

	AccountID   string `json:"account_id" gorm:"uniqueIndex;not null;size:100"`
	AccountType string `json:"account_type" gorm:"not null;size:20;default:'personal'"`
	Tier        string `json:"tier" gorm:"not null;size:50;default:'free'"`
}

// PrivateProfile carries the actual billing economics for an account. Written
// only by this service, upserted keyed by account id, and kept in sync with
// whichever plan is currently active for the account.
type PrivateProfile struct {
	BaseModel

	AccountID      string  `json:"account_id" gorm:"uniqueIndex;not null;size:100"`
	CommissionRate float64 `json:"commission_rate"`
	FinalValueFee  float64 `json:"final_value_fee"`
	InsertionFee   float64 `json:"insertion_fee"`
	PerOrderFee    float64 `json:"per_order_fee"`
}
