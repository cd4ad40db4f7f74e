package model

import "time"

// Driver is a contact record that conversations are placed against.
type Driver struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// DriverCreate is the create form payload.
type DriverCreate struct {
	Name        string `json:"name" validate:"notblank,max=255"`
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
}

// DriverUpdate is the partial update payload; nil fields are left unchanged.
type DriverUpdate struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,phone"`
}

// Empty reports whether the update carries no field at all.
func (u DriverUpdate) Empty() bool {
	return u.Name == nil && u.PhoneNumber == nil
}
