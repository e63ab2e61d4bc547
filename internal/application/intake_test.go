package application_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"admissions-service/internal/application"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntake_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("NoAttachments", func(t *testing.T) {
		f := newIntakeFixture(t)

		app, err := f.intake.Submit(ctx, application.SubmitRequest{Fields: validFields()})
		require.NoError(t, err)

		assert.NotZero(t, app.ID)
		assert.Equal(t, application.StatusPending, app.Status)
		assert.False(t, app.CreatedAt.IsZero())
		assert.Nil(t, app.CvPath)
		assert.Nil(t, app.TranscriptPath)
		assert.Nil(t, app.UserID)
		assert.Equal(t, []string{application.EventSubmitted}, f.events.types())
	})

	t.Run("TrimsFields", func(t *testing.T) {
		f := newIntakeFixture(t)
		fields := validFields()
		fields.FullName = "  Chikondi Banda \n"

		app, err := f.intake.Submit(ctx, application.SubmitRequest{Fields: fields})
		require.NoError(t, err)
		assert.Equal(t, "Chikondi Banda", app.FullName)
	})

	t.Run("RecordsUserID", func(t *testing.T) {
		f := newIntakeFixture(t)
		userID := 9

		app, err := f.intake.Submit(ctx, application.SubmitRequest{Fields: validFields(), UserID: &userID})
		require.NoError(t, err)
		require.NotNil(t, app.UserID)
		assert.Equal(t, 9, *app.UserID)
	})

	t.Run("TranscriptOnly", func(t *testing.T) {
		f := newIntakeFixture(t)

		app, err := f.intake.Submit(ctx, application.SubmitRequest{
			Fields:     validFields(),
			Transcript: attachment("grades.pdf", pdfBytes),
		})
		require.NoError(t, err)

		assert.Nil(t, app.CvPath)
		require.NotNil(t, app.TranscriptPath)
		assert.Contains(t, f.store.files, *app.TranscriptPath)
		assert.Equal(t, pdfBytes, f.store.files[*app.TranscriptPath])
	})

	t.Run("BothAttachments", func(t *testing.T) {
		f := newIntakeFixture(t)

		app, err := f.intake.Submit(ctx, application.SubmitRequest{
			Fields:     validFields(),
			CV:         attachment("photo.PNG", pngBytes),
			Transcript: attachment("grades.pdf", pdfBytes),
		})
		require.NoError(t, err)
		require.NotNil(t, app.CvPath)
		require.NotNil(t, app.TranscriptPath)
		assert.Equal(t, 2, f.store.count())
	})
}

func TestIntake_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("BlankField", func(t *testing.T) {
		f := newIntakeFixture(t)
		fields := validFields()
		fields.Hobbies = "   "

		_, err := f.intake.Submit(ctx, application.SubmitRequest{Fields: fields})
		require.ErrorIs(t, err, application.ErrValidation)
		assert.Contains(t, err.Error(), "hobbies")

		all, err := f.repo.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, all)
		assert.Empty(t, f.events.types())
	})

	t.Run("NamesEveryMissingField", func(t *testing.T) {
		f := newIntakeFixture(t)

		_, err := f.intake.Submit(ctx, application.SubmitRequest{})
		require.ErrorIs(t, err, application.ErrValidation)
		for _, name := range []string{"university", "program", "intakeMonth", "fullName", "email", "passportNumber",
			"dateOfBirth", "academicQualification", "programReason", "learningStyle", "personalityTraits",
			"logicAnswer", "hobbies"} {
			assert.Contains(t, err.Error(), name)
		}
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		f := newIntakeFixture(t)
		fields := validFields()
		fields.Email = "not-an-email"

		_, err := f.intake.Submit(ctx, application.SubmitRequest{Fields: fields})
		require.ErrorIs(t, err, application.ErrValidation)
		assert.Contains(t, err.Error(), "invalid fields: email")
	})
}

func TestIntake_Attachments(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		cv         *application.Attachment
		transcript *application.Attachment
	}{
		{
			name: "TooLarge",
			cv: &application.Attachment{
				Filename: "cv.pdf",
				Size:     10<<20 + 1,
				Content:  bytes.NewReader(pdfBytes),
			},
		},
		{
			name: "UnderstatedSize",
			cv: &application.Attachment{
				Filename: "cv.pdf",
				Size:     int64(len(pdfBytes)),
				Content:  bytes.NewReader(append(append([]byte{}, pdfBytes...), make([]byte, 10<<20)...)),
			},
		},
		// empty content sniffs as text/plain, whatever the extension says
		{name: "EmptyFile", cv: attachment("cv.pdf", nil)},
		{name: "UnsupportedExtension", cv: attachment("cv.exe", pdfBytes)},
		{name: "NoExtension", cv: attachment("cv", pdfBytes)},
		{name: "ContentMismatch", transcript: attachment("grades.pdf", []byte("just some text"))},
		{name: "ImageClaimingPDF", transcript: attachment("grades.pdf", pngBytes)},
		{
			// the valid cv must not be written when the transcript is rejected
			name:       "SecondInvalid",
			cv:         attachment("cv.pdf", pdfBytes),
			transcript: attachment("grades.gif", pdfBytes),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIntakeFixture(t)

			_, err := f.intake.Submit(ctx, application.SubmitRequest{
				Fields:     validFields(),
				CV:         tt.cv,
				Transcript: tt.transcript,
			})
			require.ErrorIs(t, err, application.ErrInvalidAttachment)

			assert.Zero(t, f.store.saves, "no file may be written")
			all, err := f.repo.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestIntake_Atomicity(t *testing.T) {
	ctx := context.Background()

	t.Run("SecondSaveFails", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.store.failOn = 2

		_, err := f.intake.Submit(ctx, application.SubmitRequest{
			Fields:     validFields(),
			CV:         attachment("cv.pdf", pdfBytes),
			Transcript: attachment("grades.pdf", pdfBytes),
		})
		require.ErrorIs(t, err, application.ErrStorage)

		assert.Zero(t, f.store.count())
		assert.Len(t, f.store.removed, 1)
		all, err := f.repo.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("RecordCreateFails", func(t *testing.T) {
		f := newIntakeFixtureWithRepo(t, failingCreateRepo{application.NewMemoryRepository()})

		_, err := f.intake.Submit(ctx, application.SubmitRequest{
			Fields:     validFields(),
			CV:         attachment("cv.pdf", pdfBytes),
			Transcript: attachment("grades.pdf", pdfBytes),
		})
		require.ErrorIs(t, err, application.ErrStorage)

		assert.Zero(t, f.store.count())
		assert.Len(t, f.store.removed, 2)
		assert.Empty(t, f.events.types())
	})

	t.Run("PublishFailureIsIgnored", func(t *testing.T) {
		f := newIntakeFixture(t)
		f.events.err = errors.New("broker down")

		app, err := f.intake.Submit(ctx, application.SubmitRequest{Fields: validFields()})
		require.NoError(t, err)
		assert.NotZero(t, app.ID)
	})
}
