package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Usuario stores the local user directory.
// Rol: "cajero" | "supervisor" | "administrador"
// Credentials for login live in the identity service; only supervisor
// authorization codes are kept here, bcrypt-hashed.
type Usuario struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Username  string    `gorm:"uniqueIndex;not null"`
	Nombre    string    `gorm:"not null"`
	Email     *string
	Rol       string `gorm:"type:varchar(20);not null"`
	// CodigoSupervisorHash is only set for rol supervisor
	CodigoSupervisorHash *string
	// PuntoDeVenta restricts a cashier to a specific register; nil = all registers
	PuntoDeVenta *int
	Activo       bool `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *Usuario) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

const (
	RolCajero        = "cajero"
	RolSupervisor    = "supervisor"
	RolAdministrador = "administrador"
)

// Supervisor is the identity a supervisor directory resolves a code to.
type Supervisor struct {
	ID     uuid.UUID
	Nombre string
}
