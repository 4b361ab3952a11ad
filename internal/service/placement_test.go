package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekola/sekola-api/internal/scope"
	appErrors "github.com/sekola/sekola-api/pkg/errors"
)

func newPlacementValidator() placementValidator {
	f := newEnrollmentFixture()
	return placementValidator{years: f.years, classes: f.classes, sections: f.sections}
}

func TestPlacementSectionOutsideClass(t *testing.T) {
	v := newPlacementValidator()

	sec := "sec-2"
	err := v.validate(context.Background(), scope.New("tenant-1"), placementRefs{
		AcademicYearID: "year-1", ClassID: "class-1", SectionID: &sec,
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "section does not belong to the given class", appErr.Message)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "sectionId", details["field"])
}

func TestPlacementSectionRequiresClass(t *testing.T) {
	v := newPlacementValidator()

	sec := "sec-1"
	err := v.validate(context.Background(), scope.New("tenant-1"), placementRefs{
		AcademicYearID: "year-1", SectionID: &sec,
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "sectionId requires classId", appErr.Message)
}

func TestPlacementUnknownSectionNamesField(t *testing.T) {
	v := newPlacementValidator()

	sec := "sec-404"
	err := v.validate(context.Background(), scope.New("tenant-1"), placementRefs{
		AcademicYearID: "year-1", ClassID: "class-1", SectionID: &sec,
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "section not found", appErr.Message)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "sectionId", details["field"])
}

func TestPlacementUnknownYearNamesField(t *testing.T) {
	v := newPlacementValidator()

	err := v.validate(context.Background(), scope.New("tenant-1"), placementRefs{
		AcademicYearID: "year-404", ClassID: "class-1",
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 404, appErr.Status)
	assert.Equal(t, "academic year not found", appErr.Message)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "academicYearId", details["field"])
}
