package core

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_DATABASE_ENGINE", "memory")
	t.Setenv("TEST_SCHEDULING_TIMEZONE", "UTC")
	t.Setenv("TEST_SCHEDULING_FREEFINDERDAYS", "0, 6,9")
	t.Setenv("TEST_SCHEDULING_CLASHCATEGORIES", "Lesson, Exam,")
	t.Setenv("TEST_REDIS_PENDINGTTL", "30s")

	conf := NewConfig()
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, "memory", conf.Database.Engine)
	assert.Equal(t, "localhost:5432", conf.Database.Address())
	assert.Equal(t, time.UTC, conf.Scheduling.Location)
	assert.Equal(t, []bool{true, false, false, false, false, false, true}, conf.Scheduling.FreeFinderDays)
	assert.Equal(t, []string{"Lesson", "Exam"}, conf.Scheduling.ClashCategories)
	assert.Equal(t, 30*time.Second, conf.Redis.PendingTTL)
	assert.Equal(t, "noreply@localhost", conf.DefaultFromEmail.Address)
	assert.Equal(t, 14, conf.Scheduling.FreeFinderNumDays)
}

func TestValidators(t *testing.T) {
	validate, translator := NewValidator()

	type form struct {
		Name     string `json:"name" validate:"notblank"`
		Username string `json:"username" validate:"required,alphanum_"`
		StartsAt string `json:"starts_at" validate:"omitempty,timeofday"`
	}

	tests := []struct {
		name string
		in   form
		want map[string]string
	}{
		{"valid", form{Name: "Lab 1", Username: "lab_1", StartsAt: "08:30"}, map[string]string{}},
		{"end of day", form{Name: "Lab 1", Username: "lab_1", StartsAt: "24:00"}, map[string]string{}},
		{"blank", form{Name: "  ", Username: "lab_1"}, map[string]string{"name": notBlankText}},
		{"missing", form{Name: "Lab 1"}, map[string]string{"username": requiredText}},
		{"bad username", form{Name: "Lab 1", Username: "lab-1"}, map[string]string{"username": alphaNumUnderText}},
		{"bad time", form{Name: "Lab 1", Username: "lab_1", StartsAt: "8:30"}, map[string]string{"starts_at": timeOfDayText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := map[string]string{}
			if err := validate.Struct(tt.in); err != nil {
				var verrs validator.ValidationErrors
				require.True(t, errors.As(err, &verrs), "err = %v", err)
				for _, fe := range verrs {
					got[fe.Field()] = fe.Translate(translator)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError(nil, FieldError{Field: "ends_on", Error: "cannot be before starts_on"})
	assert.EqualError(t, err, "ends_on: cannot be before starts_on")

	sentinel := errors.New("invalid day of week")
	wrapped := errors.Wrap(NewValidationError(sentinel), "building collection")
	verr, ok := errors.Cause(wrapped).(*ValidationError)
	require.True(t, ok)
	assert.Equal(t, sentinel, verr.Err)
	assert.EqualError(t, NewValidationError(nil), "")
}

func TestShutdownError(t *testing.T) {
	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("integrity issue"), "serving")))
	assert.False(t, IsShutdown(errors.New("integrity issue")))
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Jane Doe", CleanString("  Jane Doe\n"))
	assert.Equal(t, "jdoe@example.com", CleanString(" JDoe@Example.com ", true))
	assert.Equal(t, time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC), Date(time.Date(2030, 3, 4, 17, 45, 0, 0, time.UTC)))
}
