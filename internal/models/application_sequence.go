package models

// ApplicationSequence holds the last issued sequence for one number prefix and year.
type ApplicationSequence struct {
	Prefix    string `gorm:"primaryKey;size:16" json:"prefix"`
	Year      int    `gorm:"primaryKey;autoIncrement:false" json:"year"`
	LastValue int    `gorm:"not null" json:"last_value"`
}

// AllModels lists every table owned by the lifecycle service, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Program{},
		&CertificateType{},
		&CertificateRequirement{},
		&Application{},
		&StatusHistoryEntry{},
		&DocumentRecord{},
		&ApplicationSequence{},
	}
}
