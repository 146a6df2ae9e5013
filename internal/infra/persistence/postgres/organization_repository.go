package postgres

import (
	"context"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// organizationRepository implements the repository.OrganizationRepository interface.
// Organizations, members and invitations live in one repository because the
// rows are always mutated in the same transactions.
type organizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository is the constructor for organizationRepository.
func NewOrganizationRepository(db *gorm.DB) repository.OrganizationRepository {
	return &organizationRepository{
		db: db,
	}
}

// CreateOrganization persists the organization row.
func (repo *organizationRepository) CreateOrganization(ctx context.Context, org *entity.Organization) error {
	orgM := fromOrganizationDomain(org)

	if err := repo.db.WithContext(ctx).Create(orgM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrSlugTaken
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create organization")
	}

	org.ID = orgM.ID
	org.CreatedAt = orgM.CreatedAt
	org.UpdatedAt = orgM.UpdatedAt

	return nil
}

// FindOrganizationByID retrieves an organization by ID.
func (repo *organizationRepository) FindOrganizationByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	var orgM model.OrganizationModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&orgM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOrganizationNotFound
		}

		return nil, errors.Wrap(err, "failed to find organization by ID")
	}

	return toOrganizationDomain(&orgM), nil
}

// FindOrganizationBySlug retrieves an organization by slug.
func (repo *organizationRepository) FindOrganizationBySlug(ctx context.Context, slug string) (*entity.Organization, error) {
	var orgM model.OrganizationModel

	if err := repo.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&orgM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrOrganizationNotFound
		}

		return nil, errors.Wrap(err, "failed to find organization by slug")
	}

	return toOrganizationDomain(&orgM), nil
}

// UpdateOrganization persists name and slug changes.
func (repo *organizationRepository) UpdateOrganization(ctx context.Context, org *entity.Organization) error {
	result := repo.db.WithContext(ctx).
		Model(&model.OrganizationModel{}).
		Where("id = ?", org.ID).
		Updates(map[string]any{
			"name": org.Name,
			"slug": org.Slug,
		})

	if result.Error != nil {
		if isUniqueConstraintViolation(result.Error) {
			return repository.ErrSlugTaken
		}

		return errors.Wrap(result.Error, "failed to update organization")
	}

	if result.RowsAffected == 0 {
		return repository.ErrOrganizationNotFound
	}

	return nil
}

// DeleteOrganization removes the organization; dependent rows cascade.
func (repo *organizationRepository) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.OrganizationModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete organization")
	}

	if result.RowsAffected == 0 {
		return repository.ErrOrganizationNotFound
	}

	return nil
}

// CreateMember persists a membership row.
func (repo *organizationRepository) CreateMember(ctx context.Context, member *entity.Member) error {
	memberM := fromMemberDomain(member)

	if err := repo.db.WithContext(ctx).Create(memberM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrAlreadyMember
		}
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrOrganizationNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create member")
	}

	member.ID = memberM.ID
	member.CreatedAt = memberM.CreatedAt

	return nil
}

// FindMember retrieves the membership of a user in an organization.
func (repo *organizationRepository) FindMember(ctx context.Context, orgID, userID uuid.UUID) (*entity.Member, error) {
	var memberM model.MemberModel

	if err := repo.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&memberM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMemberNotFound
		}

		return nil, errors.Wrap(err, "failed to find member")
	}

	return toMemberDomain(&memberM), nil
}

// FindMemberByID retrieves a membership row by its own ID.
func (repo *organizationRepository) FindMemberByID(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	var memberM model.MemberModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&memberM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMemberNotFound
		}

		return nil, errors.Wrap(err, "failed to find member by ID")
	}

	return toMemberDomain(&memberM), nil
}

// FindMembersByOrganization lists all members of an organization.
func (repo *organizationRepository) FindMembersByOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.Member, error) {
	var memberModels []*model.MemberModel

	if err := repo.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&memberModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find members by organization")
	}

	members := make([]*entity.Member, 0, len(memberModels))
	for _, memberM := range memberModels {
		members = append(members, toMemberDomain(memberM))
	}

	return members, nil
}

// FindMembershipsByUser lists a user's memberships, most recently created first.
func (repo *organizationRepository) FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Member, error) {
	var memberModels []*model.MemberModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&memberModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find memberships by user")
	}

	members := make([]*entity.Member, 0, len(memberModels))
	for _, memberM := range memberModels {
		members = append(members, toMemberDomain(memberM))
	}

	return members, nil
}

// CountOwners returns the number of owner members in an organization.
func (repo *organizationRepository) CountOwners(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int64

	if err := repo.db.WithContext(ctx).
		Model(&model.MemberModel{}).
		Where("organization_id = ? AND role = ?", orgID, string(entity.OrgRoleOwner)).
		Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count owners")
	}

	return int(count), nil
}

// UpdateMemberRole changes the role on a membership row.
func (repo *organizationRepository) UpdateMemberRole(ctx context.Context, id uuid.UUID, role entity.OrgRole) error {
	result := repo.db.WithContext(ctx).
		Model(&model.MemberModel{}).
		Where("id = ?", id).
		Update("role", string(role))

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update member role")
	}

	if result.RowsAffected == 0 {
		return repository.ErrMemberNotFound
	}

	return nil
}

// DeleteMember removes a membership row.
func (repo *organizationRepository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.MemberModel{})

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete member")
	}

	if result.RowsAffected == 0 {
		return repository.ErrMemberNotFound
	}

	return nil
}

// CreateInvitation persists a new invitation.
func (repo *organizationRepository) CreateInvitation(ctx context.Context, invitation *entity.Invitation) error {
	invitationM := fromInvitationDomain(invitation)

	if err := repo.db.WithContext(ctx).Create(invitationM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return repository.ErrOrganizationNotFound
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create invitation")
	}

	invitation.ID = invitationM.ID
	invitation.CreatedAt = invitationM.CreatedAt

	return nil
}

// FindInvitationByID retrieves an invitation by ID.
func (repo *organizationRepository) FindInvitationByID(ctx context.Context, id uuid.UUID) (*entity.Invitation, error) {
	var invitationM model.InvitationModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&invitationM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrInvitationNotFound
		}

		return nil, errors.Wrap(err, "failed to find invitation by ID")
	}

	return toInvitationDomain(&invitationM), nil
}

// FindPendingInvitation retrieves a pending invitation for an email in an organization.
func (repo *organizationRepository) FindPendingInvitation(ctx context.Context, orgID uuid.UUID, email string) (*entity.Invitation, error) {
	var invitationM model.InvitationModel

	if err := repo.db.WithContext(ctx).
		Where("organization_id = ? AND LOWER(email) = LOWER(?) AND status = ?",
			orgID, email, string(entity.InvitationPending)).
		First(&invitationM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrInvitationNotFound
		}

		return nil, errors.Wrap(err, "failed to find pending invitation")
	}

	return toInvitationDomain(&invitationM), nil
}

// FindInvitationsByOrganization lists all invitations of an organization.
func (repo *organizationRepository) FindInvitationsByOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.Invitation, error) {
	var invitationModels []*model.InvitationModel

	if err := repo.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&invitationModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find invitations by organization")
	}

	invitations := make([]*entity.Invitation, 0, len(invitationModels))
	for _, invitationM := range invitationModels {
		invitations = append(invitations, toInvitationDomain(invitationM))
	}

	return invitations, nil
}

// UpdateInvitationStatus transitions an invitation's status.
func (repo *organizationRepository) UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status entity.InvitationStatus) error {
	result := repo.db.WithContext(ctx).
		Model(&model.InvitationModel{}).
		Where("id = ?", id).
		Update("status", string(status))

	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to update invitation status")
	}

	if result.RowsAffected == 0 {
		return repository.ErrInvitationNotFound
	}

	return nil
}

// --- Mapper Functions ---

func toOrganizationDomain(data *model.OrganizationModel) *entity.Organization {
	if data == nil {
		return nil
	}

	return &entity.Organization{
		ID:        data.ID,
		Name:      data.Name,
		Slug:      data.Slug,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

func fromOrganizationDomain(data *entity.Organization) *model.OrganizationModel {
	if data == nil {
		return nil
	}

	return &model.OrganizationModel{
		ID:        data.ID,
		Name:      data.Name,
		Slug:      data.Slug,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

func toMemberDomain(data *model.MemberModel) *entity.Member {
	if data == nil {
		return nil
	}

	return &entity.Member{
		ID:             data.ID,
		OrganizationID: data.OrganizationID,
		UserID:         data.UserID,
		Role:           entity.OrgRole(data.Role),
		CreatedAt:      data.CreatedAt,
	}
}

func fromMemberDomain(data *entity.Member) *model.MemberModel {
	if data == nil {
		return nil
	}

	return &model.MemberModel{
		ID:             data.ID,
		OrganizationID: data.OrganizationID,
		UserID:         data.UserID,
		Role:           string(data.Role),
		CreatedAt:      data.CreatedAt,
	}
}

func toInvitationDomain(data *model.InvitationModel) *entity.Invitation {
	if data == nil {
		return nil
	}

	return &entity.Invitation{
		ID:             data.ID,
		OrganizationID: data.OrganizationID,
		Email:          data.Email,
		Role:           entity.OrgRole(data.Role),
		InviterID:      data.InviterID,
		Status:         entity.InvitationStatus(data.Status),
		ExpiresAt:      data.ExpiresAt,
		CreatedAt:      data.CreatedAt,
	}
}

func fromInvitationDomain(data *entity.Invitation) *model.InvitationModel {
	if data == nil {
		return nil
	}

	return &model.InvitationModel{
		ID:             data.ID,
		OrganizationID: data.OrganizationID,
		Email:          data.Email,
		Role:           string(data.Role),
		InviterID:      data.InviterID,
		Status:         string(data.Status),
		ExpiresAt:      data.ExpiresAt,
		CreatedAt:      data.CreatedAt,
	}
}
