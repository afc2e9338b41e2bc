package entity

import "time"

// User cuenta de usuario autenticada. Cada entidad de la aplicación
// pertenece exactamente a un usuario (UID).
type User struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
