package repo

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

// ConsumeReset marks a reset token id as used. It reports false when the id
// was already consumed.
func (r *GormRepo) ConsumeReset(ctx context.Context, jti, email string, at time.Time) (bool, error) {
	rec := models.PasswordReset{JTI: jti, Email: email, UsedAt: at}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "jti"}}, DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
