package model

import "time"

// JWT の role クレームにそのまま入る
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// TokenVersion を上げるとそれ以前の access token は全部無効
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"type:varchar(254);not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion int        `gorm:"not null;default:0" json:"token_version"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AutoMigrate の順番。FK の親を先に
func All() []any {
	return []any{
		&User{}, &RefreshToken{},
		&Category{}, &Product{},
		&CartItem{},
		&Order{}, &OrderItem{}, &PaymentEvent{},
		&AuditLog{}, &RecentlyViewed{},
	}
}
