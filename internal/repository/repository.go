package repository

import (
	"github.com/prperemyshlev/donation-service/pkg/database"
)

// Repositories holds all repository interfaces
type Repositories struct {
	Account       AccountRepository
	Donation      DonationRepository
	DonationEvent DonationEventRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *database.Postgres) *Repositories {
	return &Repositories{
		Account:       NewAccountRepository(db),
		Donation:      NewDonationRepository(db),
		DonationEvent: NewDonationEventRepository(db),
	}
}
