package database

import (
	"billing-api/internal/models"
	"billing-api/pkg/logging"

	"gorm.io/gorm"
)

// GetProfile loads the public profile row for an account.
func GetProfile(accountID string) (*models.Profile, error) {
	var profile models.Profile
	err := DB.Where("account_id = ?", accountID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FeeSchedule is the fee projection written onto an account when a plan
// activates or the account downgrades.
type FeeSchedule struct {
	CommissionRate float64
	FinalValueFee  float64
	InsertionFee   float64
	PerOrderFee    float64
}

// ApplyAccountPlan sets the account's public tier label and upserts the
// private fee projection in a single transaction. The two surfaces are
// denormalized views of one fact and must never diverge, so they move
// together or not at all.
func ApplyAccountPlan(accountID, tier string, fees FeeSchedule) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		// Public tier label. The profile row is owned by the marketplace
		// backend; create a minimal one if the account has none yet.
		var profile models.Profile
		err := tx.Where("account_id = ?", accountID).First(&profile).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			profile = models.Profile{
				AccountID:   accountID,
				AccountType: models.AccountTypePersonal,
				Tier:        tier,
			}
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Model(&profile).Update("tier", tier).Error; err != nil {
				return err
			}
		}

		// Private fee projection, upsert keyed by account id.
		var private models.PrivateProfile
		err = tx.Where("account_id = ?", accountID).First(&private).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			private = models.PrivateProfile{
				AccountID:      accountID,
				CommissionRate: fees.CommissionRate,
				FinalValueFee:  fees.FinalValueFee,
				InsertionFee:   fees.InsertionFee,
				PerOrderFee:    fees.PerOrderFee,
			}
			if err := tx.Create(&private).Error; err != nil {
				return err
			}
		} else {
			updates := map[string]interface{}{
				"commission_rate": fees.CommissionRate,
				"final_value_fee": fees.FinalValueFee,
				"insertion_fee":   fees.InsertionFee,
				"per_order_fee":   fees.PerOrderFee,
			}
			if err := tx.Model(&private).Updates(updates).Error; err != nil {
				return err
			}
		}

		logging.Infof("Applied plan to account - account_id: %s, tier: %s, final_value_fee: %.2f",
			accountID, tier, fees.FinalValueFee)
		return nil
	})
}

// GetPrivateProfile loads the private fee projection for an account.
func GetPrivateProfile(accountID string) (*models.PrivateProfile, error) {
	var private models.PrivateProfile
	err := DB.Where("account_id = ?", accountID).First(&private).Error
	if err != nil {
		return nil, err
	}
	return &private, nil
}
