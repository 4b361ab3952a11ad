package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/scope"
	"github.com/sekola/sekola-api/pkg/database"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

// Readers used by the placement validator. Each lookup is already tenant
// scoped, so a reference owned by another tenant is indistinguishable from
// one that does not exist.
type academicYearReader interface {
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.AcademicYear, error)
}

type classReader interface {
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.SchoolClass, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.Section, error)
}

type studentReader interface {
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.Student, error)
}

type userReader interface {
	FindByID(ctx context.Context, sc scope.Scope, id string) (*models.User, error)
}

// placementRefs is the (academicYear, class, section) triple under validation.
type placementRefs struct {
	AcademicYearID string
	ClassID        string
	SectionID      *string
}

// placementValidator checks placement references against the tenant scope
// and the required hierarchy before any enrollment write. It performs reads
// only and has no side effects.
type placementValidator struct {
	years    academicYearReader
	classes  classReader
	sections sectionReader
}

// validate enforces: the academic year belongs to the tenant; the class
// belongs to that academic year; the section, when given, belongs to that
// class. Hierarchy violations are client errors; missing references under
// the tenant scope are not-found, naming the offending field.
func (v placementValidator) validate(ctx context.Context, sc scope.Scope, refs placementRefs) error {
	if refs.ClassID != "" && refs.AcademicYearID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "classId requires academicYearId")
	}
	if refs.SectionID != nil && *refs.SectionID != "" && refs.ClassID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "sectionId requires classId")
	}

	if refs.AcademicYearID != "" {
		if _, err := v.years.FindByID(ctx, sc, refs.AcademicYearID); err != nil {
			return refError(err, "academicYearId", "academic year not found")
		}
	}

	if refs.ClassID != "" {
		class, err := v.classes.FindByID(ctx, sc, refs.ClassID)
		if err != nil {
			return refError(err, "classId", "class not found")
		}
		if class.AcademicYearID != refs.AcademicYearID {
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation, "class does not belong to the given academic year"),
				map[string]string{"field": "classId"})
		}
	}

	if refs.SectionID != nil && *refs.SectionID != "" {
		section, err := v.sections.FindByID(ctx, sc, *refs.SectionID)
		if err != nil {
			return refError(err, "sectionId", "section not found")
		}
		if section.ClassID != refs.ClassID {
			return appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation, "section does not belong to the given class"),
				map[string]string{"field": "sectionId"})
		}
	}

	return nil
}

// refError maps a scoped read failure for a specific reference field.
func refError(err error, field, notFoundMsg string) error {
	if err == sql.ErrNoRows {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrNotFound, notFoundMsg), map[string]string{"field": field})
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to load %s", field))
}

// isUniqueViolation reports any storage-level duplicate key error.
func isUniqueViolation(err error) bool {
	return database.IsUniqueViolation(err, "")
}
