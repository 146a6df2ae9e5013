package repository

import "context"

// TransactionManager defines the interface for managing database transactions.
// This allows the use case layer to handle transactions without depending on a
// specific DB driver like GORM.
type TransactionManager interface {
	// Execute runs a function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, it's committed. All repository operations within the function
	// use the same database transaction.
	Execute(ctx context.Context, fn func(repoFactory RepositoryFactory) error) error
}

// RepositoryFactory provides repository instances bound to a specific
// transaction, so all operations inside one Execute call share a connection.
type RepositoryFactory interface {
	// UserRepo returns a UserRepository bound to the current transaction.
	UserRepo() UserRepository

	// CredentialRepo returns a CredentialRepository bound to the current transaction.
	CredentialRepo() CredentialRepository

	// SessionRepo returns a SessionRepository bound to the current transaction.
	SessionRepo() SessionRepository

	// VerificationRepo returns a VerificationRepository bound to the current transaction.
	VerificationRepo() VerificationRepository

	// TwoFactorRepo returns a TwoFactorRepository bound to the current transaction.
	TwoFactorRepo() TwoFactorRepository

	// PasskeyRepo returns a PasskeyRepository bound to the current transaction.
	PasskeyRepo() PasskeyRepository

	// OrganizationRepo returns an OrganizationRepository bound to the current transaction.
	OrganizationRepo() OrganizationRepository

	// SubscriptionRepo returns a SubscriptionRepository bound to the current transaction.
	SubscriptionRepo() SubscriptionRepository
}
