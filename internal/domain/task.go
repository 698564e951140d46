package domain

// Task is the single persisted unit of work. IDs are assigned by the
// store on creation and never reused; CreatedAt is epoch milliseconds.
// There is no soft delete: a deleted Task is gone.
type Task struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Title     string `gorm:"not null"`
	Done      bool   `gorm:"not null;default:false"`
	CreatedAt int64  `gorm:"not null"`
}

// TableName keeps the table name identical to the original schema.
func (Task) TableName() string {
	return "todos"
}
