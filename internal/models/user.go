package models

import "time"

const (
	RoleCustomer = "customer"
	RolePro      = "pro"
)

type User struct {
	ID         int64     `json:"id"`
	TelegramID string    `json:"telegram_id"` // Идентификатор вызывающей стороны, непрозрачный для ядра
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone"`
	Role       string    `json:"role"` // customer, pro
	JoinedAt   time.Time `json:"joined_at"`
}

// DisplayName возвращает имя для уведомлений и отчетов
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.Username != "" {
		return u.Username
	}
	return u.TelegramID
}
