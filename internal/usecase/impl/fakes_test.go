package impl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"passport/config"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Hand-written in-memory fakes. The repository fakes back the services with
// real map-based state so tests exercise the full read-modify-write flow
// instead of scripting every call.

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Session: &config.SessionConfig{
			Secret:     "test-secret",
			CookieName: "passport_session",
			ExpiresIn:  7 * 24 * time.Hour,
			UpdateAge:  24 * time.Hour,
			CacheTTL:   5 * time.Minute,
		},
		Auth: &config.AuthConfig{
			BcryptCost:          10,
			ChallengeTTL:        5 * time.Minute,
			VerificationTTL:     time.Hour,
			InvitationTTL:       48 * time.Hour,
			VerificationSendGap: time.Minute,
			BackupCodeCount:     10,
		},
	}
	cfg.App.Name = "Passport"
	cfg.App.BaseURL = "https://passport.test"

	return cfg
}

// --- Transaction manager ---

type fakeTxManager struct {
	factory repository.RepositoryFactory
}

func (m *fakeTxManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(m.factory)
}

type fakeRepoFactory struct {
	users         *fakeUserRepo
	credentials   *fakeCredentialRepo
	sessions      *fakeSessionRepo
	verifications *fakeVerificationRepo
	twoFactors    *fakeTwoFactorRepo
	passkeys      *fakePasskeyRepo
	organizations *fakeOrganizationRepo
	subscriptions *fakeSubscriptionRepo
}

func newFakeRepoFactory() *fakeRepoFactory {
	return &fakeRepoFactory{
		users:         &fakeUserRepo{users: map[uuid.UUID]*entity.User{}},
		credentials:   &fakeCredentialRepo{},
		sessions:      &fakeSessionRepo{sessions: map[uuid.UUID]*entity.Session{}},
		verifications: &fakeVerificationRepo{tokens: map[string]*entity.VerificationToken{}},
		twoFactors:    &fakeTwoFactorRepo{records: map[uuid.UUID]*entity.TwoFactor{}},
		passkeys:      &fakePasskeyRepo{},
		organizations: newFakeOrganizationRepo(),
		subscriptions: &fakeSubscriptionRepo{},
	}
}

func (f *fakeRepoFactory) UserRepo() repository.UserRepository                 { return f.users }
func (f *fakeRepoFactory) CredentialRepo() repository.CredentialRepository     { return f.credentials }
func (f *fakeRepoFactory) SessionRepo() repository.SessionRepository           { return f.sessions }
func (f *fakeRepoFactory) VerificationRepo() repository.VerificationRepository { return f.verifications }
func (f *fakeRepoFactory) TwoFactorRepo() repository.TwoFactorRepository       { return f.twoFactors }
func (f *fakeRepoFactory) PasskeyRepo() repository.PasskeyRepository           { return f.passkeys }
func (f *fakeRepoFactory) OrganizationRepo() repository.OrganizationRepository {
	return f.organizations
}
func (f *fakeRepoFactory) SubscriptionRepo() repository.SubscriptionRepository {
	return f.subscriptions
}

// --- User repository ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	clone := *user

	return &clone, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user

			return &clone, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone

	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}

	clone := *user
	clone.UpdatedAt = time.Now()
	r.users[user.ID] = &clone

	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return repository.ErrUserNotFound
	}

	delete(r.users, id)

	return nil
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int) ([]*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]*entity.User, 0, len(r.users))
	for _, user := range r.users {
		clone := *user
		users = append(users, &clone)
	}

	if offset >= len(users) {
		return nil, nil
	}
	users = users[offset:]
	if limit < len(users) {
		users = users[:limit]
	}

	return users, nil
}

// --- Credential repository ---

type fakeCredentialRepo struct {
	mu          sync.Mutex
	credentials []*entity.Credential
}

func (r *fakeCredentialRepo) Create(_ context.Context, credential *entity.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	credential.ID = uuid.New()
	credential.CreatedAt = time.Now()
	clone := *credential
	r.credentials = append(r.credentials, &clone)

	return nil
}

func (r *fakeCredentialRepo) FindByProvider(_ context.Context, provider, providerUserID string) (*entity.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, credential := range r.credentials {
		if credential.Provider == provider && credential.ProviderUserID == providerUserID {
			clone := *credential

			return &clone, nil
		}
	}

	return nil, repository.ErrCredentialNotFound
}

func (r *fakeCredentialRepo) FindByUser(_ context.Context, userID uuid.UUID) ([]*entity.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Credential
	for _, credential := range r.credentials {
		if credential.UserID == userID {
			clone := *credential
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakeCredentialRepo) FindPasswordByUser(_ context.Context, userID uuid.UUID) (*entity.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, credential := range r.credentials {
		if credential.UserID == userID && credential.Provider == entity.ProviderPassword {
			clone := *credential

			return &clone, nil
		}
	}

	return nil, repository.ErrCredentialNotFound
}

func (r *fakeCredentialRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, credential := range r.credentials {
		if credential.ID == id {
			credential.PasswordHash = passwordHash

			return nil
		}
	}

	return repository.ErrCredentialNotFound
}

func (r *fakeCredentialRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, credential := range r.credentials {
		if credential.ID == id {
			r.credentials = append(r.credentials[:i], r.credentials[i+1:]...)

			return nil
		}
	}

	return repository.ErrCredentialNotFound
}

// --- Session repository ---

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.Session
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	clone := *session
	r.sessions[session.ID] = &clone

	return nil
}

func (r *fakeSessionRepo) FindByTokenHash(_ context.Context, tokenHash string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		if session.TokenHash == tokenHash {
			if !session.ExpiresAt.After(time.Now()) {
				return nil, repository.ErrSessionExpired
			}

			clone := *session

			return &clone, nil
		}
	}

	return nil, repository.ErrSessionNotFound
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}

	clone := *session

	return &clone, nil
}

func (r *fakeSessionRepo) FindByUser(_ context.Context, userID uuid.UUID) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Session
	for _, session := range r.sessions {
		if session.UserID == userID && session.ExpiresAt.After(time.Now()) {
			clone := *session
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.ID]; !ok {
		return repository.ErrSessionNotFound
	}

	clone := *session
	r.sessions[session.ID] = &clone

	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)

	return nil
}

func (r *fakeSessionRepo) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.sessions {
		if session.TokenHash == tokenHash {
			delete(r.sessions, id)

			return nil
		}
	}

	return nil
}

func (r *fakeSessionRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.sessions {
		if session.UserID == userID {
			delete(r.sessions, id)
		}
	}

	return nil
}

func (r *fakeSessionRepo) DeleteByUserExcept(_ context.Context, userID uuid.UUID, tokenHash string) ([]*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted []*entity.Session
	for id, session := range r.sessions {
		if session.UserID == userID && session.TokenHash != tokenHash {
			clone := *session
			deleted = append(deleted, &clone)
			delete(r.sessions, id)
		}
	}

	return deleted, nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.sessions {
		if !session.ExpiresAt.After(time.Now()) {
			delete(r.sessions, id)
		}
	}

	return nil
}

// --- Verification repository ---

type fakeVerificationRepo struct {
	mu     sync.Mutex
	tokens map[string]*entity.VerificationToken
}

func (r *fakeVerificationRepo) Create(_ context.Context, token *entity.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	clone := *token
	r.tokens[token.TokenHash] = &clone

	return nil
}

func (r *fakeVerificationRepo) Consume(_ context.Context, tokenHash string, purpose entity.VerificationPurpose) (*entity.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenHash]
	if !ok || token.Purpose != purpose || !token.ExpiresAt.After(time.Now()) {
		return nil, repository.ErrVerificationNotFound
	}

	delete(r.tokens, tokenHash)

	return token, nil
}

func (r *fakeVerificationRepo) DeleteByUser(_ context.Context, userID uuid.UUID, purpose entity.VerificationPurpose) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, token := range r.tokens {
		if token.UserID == userID && token.Purpose == purpose {
			delete(r.tokens, hash)
		}
	}

	return nil
}

func (r *fakeVerificationRepo) DeleteExpired(_ context.Context) error {
	return nil
}

// --- Two-factor repository ---

type fakeTwoFactorRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*entity.TwoFactor
}

func (r *fakeTwoFactorRepo) Upsert(_ context.Context, record *entity.TwoFactor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.ID = uuid.New()
	clone := *record
	clone.BackupCodes = append([]entity.BackupCode(nil), record.BackupCodes...)
	r.records[record.UserID] = &clone

	return nil
}

func (r *fakeTwoFactorRepo) FindByUser(_ context.Context, userID uuid.UUID) (*entity.TwoFactor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[userID]
	if !ok {
		return nil, repository.ErrTwoFactorNotFound
	}

	clone := *record
	clone.BackupCodes = append([]entity.BackupCode(nil), record.BackupCodes...)

	return &clone, nil
}

func (r *fakeTwoFactorRepo) MarkVerified(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[userID]
	if !ok {
		return repository.ErrTwoFactorNotFound
	}

	record.Verified = true

	return nil
}

func (r *fakeTwoFactorRepo) ConsumeBackupCode(_ context.Context, userID uuid.UUID, codeHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[userID]
	if !ok {
		return repository.ErrTwoFactorNotFound
	}

	for i := range record.BackupCodes {
		if record.BackupCodes[i].CodeHash == codeHash && !record.BackupCodes[i].Used {
			record.BackupCodes[i].Used = true

			return nil
		}
	}

	return repository.ErrTwoFactorNotFound
}

func (r *fakeTwoFactorRepo) DeleteByUser(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, userID)

	return nil
}

// --- Passkey repository ---

type fakePasskeyRepo struct {
	mu       sync.Mutex
	passkeys []*entity.Passkey
}

func (r *fakePasskeyRepo) Create(_ context.Context, passkey *entity.Passkey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	passkey.ID = uuid.New()
	passkey.CreatedAt = time.Now()
	clone := *passkey
	r.passkeys = append(r.passkeys, &clone)

	return nil
}

func (r *fakePasskeyRepo) FindByUser(_ context.Context, userID uuid.UUID) ([]*entity.Passkey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Passkey
	for _, passkey := range r.passkeys {
		if passkey.UserID == userID {
			clone := *passkey
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakePasskeyRepo) FindByCredentialID(_ context.Context, credentialID []byte) (*entity.Passkey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, passkey := range r.passkeys {
		if string(passkey.CredentialID) == string(credentialID) {
			clone := *passkey

			return &clone, nil
		}
	}

	return nil, repository.ErrPasskeyNotFound
}

func (r *fakePasskeyRepo) UpdateSignCount(_ context.Context, id uuid.UUID, signCount uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, passkey := range r.passkeys {
		if passkey.ID == id {
			passkey.SignCount = signCount

			return nil
		}
	}

	return repository.ErrPasskeyNotFound
}

func (r *fakePasskeyRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, passkey := range r.passkeys {
		if passkey.ID == id {
			r.passkeys = append(r.passkeys[:i], r.passkeys[i+1:]...)

			return nil
		}
	}

	return repository.ErrPasskeyNotFound
}

// --- Organization repository ---

type fakeOrganizationRepo struct {
	mu          sync.Mutex
	orgs        map[uuid.UUID]*entity.Organization
	members     map[uuid.UUID]*entity.Member
	invitations map[uuid.UUID]*entity.Invitation
}

func newFakeOrganizationRepo() *fakeOrganizationRepo {
	return &fakeOrganizationRepo{
		orgs:        map[uuid.UUID]*entity.Organization{},
		members:     map[uuid.UUID]*entity.Member{},
		invitations: map[uuid.UUID]*entity.Invitation{},
	}
}

func (r *fakeOrganizationRepo) CreateOrganization(_ context.Context, org *entity.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.orgs {
		if existing.Slug == org.Slug {
			return repository.ErrSlugTaken
		}
	}

	org.ID = uuid.New()
	org.CreatedAt = time.Now()
	org.UpdatedAt = org.CreatedAt
	clone := *org
	r.orgs[org.ID] = &clone

	return nil
}

func (r *fakeOrganizationRepo) FindOrganizationByID(_ context.Context, id uuid.UUID) (*entity.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	org, ok := r.orgs[id]
	if !ok {
		return nil, repository.ErrOrganizationNotFound
	}

	clone := *org

	return &clone, nil
}

func (r *fakeOrganizationRepo) FindOrganizationBySlug(_ context.Context, slug string) (*entity.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, org := range r.orgs {
		if org.Slug == slug {
			clone := *org

			return &clone, nil
		}
	}

	return nil, repository.ErrOrganizationNotFound
}

func (r *fakeOrganizationRepo) UpdateOrganization(_ context.Context, org *entity.Organization) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.orgs[org.ID]
	if !ok {
		return repository.ErrOrganizationNotFound
	}

	for id, other := range r.orgs {
		if id != org.ID && other.Slug == org.Slug {
			return repository.ErrSlugTaken
		}
	}

	existing.Name = org.Name
	existing.Slug = org.Slug
	existing.UpdatedAt = time.Now()

	return nil
}

func (r *fakeOrganizationRepo) DeleteOrganization(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orgs[id]; !ok {
		return repository.ErrOrganizationNotFound
	}

	delete(r.orgs, id)
	for memberID, member := range r.members {
		if member.OrganizationID == id {
			delete(r.members, memberID)
		}
	}
	for invitationID, invitation := range r.invitations {
		if invitation.OrganizationID == id {
			delete(r.invitations, invitationID)
		}
	}

	return nil
}

func (r *fakeOrganizationRepo) CreateMember(_ context.Context, member *entity.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.members {
		if existing.OrganizationID == member.OrganizationID && existing.UserID == member.UserID {
			return domainerrors.ErrAlreadyMember
		}
	}

	member.ID = uuid.New()
	member.CreatedAt = time.Now()
	clone := *member
	r.members[member.ID] = &clone

	return nil
}

func (r *fakeOrganizationRepo) FindMember(_ context.Context, orgID, userID uuid.UUID) (*entity.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, member := range r.members {
		if member.OrganizationID == orgID && member.UserID == userID {
			clone := *member

			return &clone, nil
		}
	}

	return nil, repository.ErrMemberNotFound
}

func (r *fakeOrganizationRepo) FindMemberByID(_ context.Context, id uuid.UUID) (*entity.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[id]
	if !ok {
		return nil, repository.ErrMemberNotFound
	}

	clone := *member

	return &clone, nil
}

func (r *fakeOrganizationRepo) FindMembersByOrganization(_ context.Context, orgID uuid.UUID) ([]*entity.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Member
	for _, member := range r.members {
		if member.OrganizationID == orgID {
			clone := *member
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakeOrganizationRepo) FindMembershipsByUser(_ context.Context, userID uuid.UUID) ([]*entity.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Member
	for _, member := range r.members {
		if member.UserID == userID {
			clone := *member
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakeOrganizationRepo) CountOwners(_ context.Context, orgID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, member := range r.members {
		if member.OrganizationID == orgID && member.Role == entity.OrgRoleOwner {
			count++
		}
	}

	return count, nil
}

func (r *fakeOrganizationRepo) UpdateMemberRole(_ context.Context, id uuid.UUID, role entity.OrgRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	member, ok := r.members[id]
	if !ok {
		return repository.ErrMemberNotFound
	}

	member.Role = role

	return nil
}

func (r *fakeOrganizationRepo) DeleteMember(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return repository.ErrMemberNotFound
	}

	delete(r.members, id)

	return nil
}

func (r *fakeOrganizationRepo) CreateInvitation(_ context.Context, invitation *entity.Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	invitation.ID = uuid.New()
	invitation.CreatedAt = time.Now()
	clone := *invitation
	r.invitations[invitation.ID] = &clone

	return nil
}

func (r *fakeOrganizationRepo) FindInvitationByID(_ context.Context, id uuid.UUID) (*entity.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	invitation, ok := r.invitations[id]
	if !ok {
		return nil, repository.ErrInvitationNotFound
	}

	clone := *invitation

	return &clone, nil
}

func (r *fakeOrganizationRepo) FindPendingInvitation(_ context.Context, orgID uuid.UUID, email string) (*entity.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, invitation := range r.invitations {
		if invitation.OrganizationID == orgID && strings.EqualFold(invitation.Email, email) && invitation.Status == entity.InvitationPending {
			clone := *invitation

			return &clone, nil
		}
	}

	return nil, repository.ErrInvitationNotFound
}

func (r *fakeOrganizationRepo) FindInvitationsByOrganization(_ context.Context, orgID uuid.UUID) ([]*entity.Invitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Invitation
	for _, invitation := range r.invitations {
		if invitation.OrganizationID == orgID {
			clone := *invitation
			out = append(out, &clone)
		}
	}

	return out, nil
}

func (r *fakeOrganizationRepo) UpdateInvitationStatus(_ context.Context, id uuid.UUID, status entity.InvitationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	invitation, ok := r.invitations[id]
	if !ok {
		return repository.ErrInvitationNotFound
	}

	invitation.Status = status

	return nil
}

// --- Subscription repository ---

type fakeSubscriptionRepo struct {
	mu            sync.Mutex
	subscriptions []*entity.Subscription
}

func (r *fakeSubscriptionRepo) Upsert(_ context.Context, subscription *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.subscriptions {
		if existing.ProviderID == subscription.ProviderID {
			*existing = *subscription

			return nil
		}
	}

	subscription.ID = uuid.New()
	clone := *subscription
	r.subscriptions = append(r.subscriptions, &clone)

	return nil
}

func (r *fakeSubscriptionRepo) FindByReference(_ context.Context, referenceID uuid.UUID) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Subscription
	for _, subscription := range r.subscriptions {
		if subscription.ReferenceID == referenceID {
			clone := *subscription
			out = append(out, &clone)
		}
	}

	return out, nil
}

// --- Domain service fakes ---

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Check(password, hash string) bool { return hash == "hashed:"+password }

func (fakeHasher) ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return errors.New("password too short")
	}

	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
	setErr   error
	getErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, counters: map[string]int64{}}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return "", s.getErr
	}

	value, ok := s.values[key]
	if !ok {
		return "", service.ErrKeyNotFound
	}

	return value, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.setErr != nil {
		return s.setErr
	}

	s.values[key] = value

	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)

	return nil
}

func (s *fakeStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[key]++

	return s.counters[key], nil
}

func (s *fakeStore) Ping(_ context.Context) error { return nil }

func (s *fakeStore) Close() error { return nil }

type fakeMailer struct {
	mu   sync.Mutex
	sent []service.Mail
	err  error
}

func (m *fakeMailer) Send(_ context.Context, mail service.Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.sent = append(m.sent, mail)

	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []service.Event
}

func (p *fakePublisher) Publish(_ context.Context, event service.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
}

type fakeChallengeTokens struct{}

func (fakeChallengeTokens) Issue(userID uuid.UUID, kind service.ChallengeKind) (string, error) {
	return fmt.Sprintf("challenge:%s:%s", kind, userID), nil
}

func (fakeChallengeTokens) Verify(token string, kind service.ChallengeKind) (uuid.UUID, error) {
	prefix := fmt.Sprintf("challenge:%s:", kind)
	if !strings.HasPrefix(token, prefix) {
		return uuid.Nil, errors.New("invalid challenge token")
	}

	return uuid.Parse(strings.TrimPrefix(token, prefix))
}

type fakeTOTP struct{}

func (fakeTOTP) GenerateSecret(accountEmail string) (string, string, error) {
	return "JBSWY3DPEHPK3PXP", "otpauth://totp/Passport:" + accountEmail, nil
}

func (fakeTOTP) Validate(code, _ string) bool { return code == "123456" }

type fakeQRCodes struct{}

func (fakeQRCodes) GenerateTOTPEnrollmentQR(_ string) ([]byte, error) {
	return []byte("png"), nil
}

type fakeOAuth struct {
	user *service.OAuthUser
	err  error
}

func (f *fakeOAuth) VerifyIDToken(_ context.Context, _ string) (*service.OAuthUser, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.user, nil
}

func (f *fakeOAuth) Provider() string { return entity.ProviderGoogle }

type fakeBilling struct {
	subscriptions []*entity.Subscription
	listErr       error
	checkoutURL   string
	cancelURL     string
	portalURL     string
	restoreErr    error
}

func (f *fakeBilling) EnsureCustomer(_ context.Context, _ uuid.UUID, _ string) (string, error) {
	return "cus_test", nil
}

func (f *fakeBilling) ListSubscriptions(_ context.Context, _ uuid.UUID) ([]*entity.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}

	return f.subscriptions, nil
}

func (f *fakeBilling) Checkout(_ context.Context, _ uuid.UUID, _ string) (string, error) {
	return f.checkoutURL, nil
}

func (f *fakeBilling) Cancel(_ context.Context, _ uuid.UUID, _ string) (string, error) {
	return f.cancelURL, nil
}

func (f *fakeBilling) Restore(_ context.Context, _ uuid.UUID, _ string) error {
	return f.restoreErr
}

func (f *fakeBilling) BillingPortal(_ context.Context, _ uuid.UUID) (string, error) {
	return f.portalURL, nil
}

type fakeCeremonies struct {
	passkey *entity.Passkey
	err     error
}

func (f *fakeCeremonies) BeginRegistration(_ *entity.User, _ []*entity.Passkey) ([]byte, []byte, error) {
	return []byte(`{"publicKey":{}}`), []byte(`{"challenge":"abc"}`), nil
}

func (f *fakeCeremonies) FinishRegistration(_ *entity.User, _ []*entity.Passkey, _, _ []byte) (*entity.Passkey, error) {
	if f.err != nil {
		return nil, f.err
	}

	clone := *f.passkey

	return &clone, nil
}

func (f *fakeCeremonies) BeginLogin() ([]byte, []byte, error) {
	return []byte(`{"publicKey":{}}`), []byte(`{"challenge":"xyz"}`), nil
}

func (f *fakeCeremonies) FinishLogin(_, _ []byte, lookup service.PasskeyLookup) (*entity.Passkey, error) {
	if f.err != nil {
		return nil, f.err
	}

	matched, err := lookup(f.passkey.CredentialID)
	if err != nil {
		return nil, err
	}

	matched.SignCount++

	return matched, nil
}
