package models

import "gorm.io/gorm"

// All lists every model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Category{},
		&Genre{},
		&Title{},
		&Review{},
		&Comment{},
	}
}

// SetupJoinTables registers GenreTitle as the title/genre join model.
// Must run before migration.
func SetupJoinTables(gdb *gorm.DB) error {
	return gdb.SetupJoinTable(&Title{}, "Genres", &GenreTitle{})
}
