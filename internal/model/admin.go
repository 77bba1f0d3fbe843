package model

// swagger:model Admin
type Admin struct {
	UUIDBase
	Name     string `gorm:"size:50;not null" json:"name"`
	Email    string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`
}

func (Admin) TableName() string {
	return "admins"
}
