package models

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Directory resolves user contact details for notifications. An unknown user
// resolves to empty values rather than an error: notification is best-effort
// and a missing profile is not a failure.
type Directory struct {
	DB *gorm.DB
}

func (d Directory) GetUserEmail(ctx context.Context, userID string) (string, error) {
	u, err := d.get(ctx, userID)
	if err != nil || u == nil {
		return "", err
	}
	return u.Email, nil
}

func (d Directory) GetUserName(ctx context.Context, userID string) (string, error) {
	u, err := d.get(ctx, userID)
	if err != nil || u == nil {
		return "", err
	}
	return u.Username, nil
}

func (d Directory) get(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, nil
	}
	var u User
	err := d.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	return &u, nil
}
