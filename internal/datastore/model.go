package datastore

import "time"

// SettingsRecord holds one team's application settings as a JSON document.
type SettingsRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	TeamID    string    `gorm:"uniqueIndex;size:255;not null"`
	Data      string    `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the table name stable across struct renames.
func (SettingsRecord) TableName() string { return "settings" }

// TransactionStatus is the lifecycle state of a purchase.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is one in-game purchase.
type Transaction struct {
	ID            string            `gorm:"primaryKey;size:36" json:"id"`
	UserID        string            `gorm:"index;size:255;not null" json:"user_id"`
	Email         string            `gorm:"size:255" json:"email,omitempty"`
	ProductID     string            `gorm:"index;size:255;not null" json:"product_id"`
	ProductName   string            `gorm:"size:255" json:"product_name,omitempty"`
	Amount        int64             `gorm:"not null" json:"amount"` // minor currency units
	Currency      string            `gorm:"size:3;not null" json:"currency"`
	Status        TransactionStatus `gorm:"index;size:16;not null" json:"status"`
	FailureReason string            `gorm:"size:512" json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
