package models

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&Team{},
		&User{},
		&Pick{},
		&PhoneVerificationCode{},
	}
}
