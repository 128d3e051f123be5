package repository

import (
	"errors"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"gorm.io/gorm"
)

// MemberRepository is read-only access to campus users. The identity
// system owns the table; the core resolves mentions and display data.
type MemberRepository interface {
	FindByUserID(userID string) (*domain.Member, error)
	FindByUsername(username string) (*domain.Member, error)
	FindByStudentNumber(studentNumber string) (*domain.Member, error)
	ListUserIDs() ([]string, error)
}

type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new MemberRepository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) FindByUserID(userID string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.Where("user_id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) FindByUsername(username string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.Where("username = ?", username).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *memberRepository) FindByStudentNumber(studentNumber string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.Where("student_number = ?", studentNumber).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListUserIDs returns every campus user id (bulk public-channel backfill)
func (r *memberRepository) ListUserIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&domain.Member{}).Pluck("user_id", &ids).Error
	return ids, err
}
