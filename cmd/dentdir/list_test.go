package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fwojciec/dentdir"
	main "github.com/fwojciec/dentdir/cmd/dentdir"
	"github.com/fwojciec/dentdir/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClinics() []*dentdir.Clinic {
	return []*dentdir.Clinic{
		{ID: "a1b2c3d4e5f6", Name: "Moda Dental", Phone: "0216 555 10 10, 0532 000 00 00", City: "İstanbul", District: "Kadıköy", Status: dentdir.StatusContacted},
		{ID: "f6e5d4c3b2a1", Name: "Çankaya Ağız ve Diş", Phone: "0312 444 44 44", City: "Ankara", Status: dentdir.StatusNone},
	}
}

func TestListCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("lists clinics with short ID, status, name, phones and location", func(t *testing.T) {
		t.Parallel()

		clinics := &mock.ClinicService{
			FindClinicsFn: func(context.Context, dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
				return testClinics(), nil
			},
		}
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Clinics: clinics}

		err := (&main.ListCmd{}).Run(deps)

		require.NoError(t, err)
		out := stdout.String()
		assert.Contains(t, out, "a1b2c3d4")
		assert.NotContains(t, out, "a1b2c3d4e5f6")
		assert.Contains(t, out, "contacted")
		assert.Contains(t, out, "0216 555 10 10, 0532 000 00 00")
		assert.Contains(t, out, "Kadıköy, İstanbul")
		assert.Contains(t, out, "2 clinics")
	})

	t.Run("passes filters to the store", func(t *testing.T) {
		t.Parallel()

		var got dentdir.ClinicFilter
		clinics := &mock.ClinicService{
			FindClinicsFn: func(_ context.Context, filter dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
				got = filter
				return nil, nil
			},
		}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}, Clinics: clinics}

		err := (&main.ListCmd{FilterFlags: main.FilterFlags{Status: "positive", City: "İzmir", Query: "dent"}}).Run(deps)

		require.NoError(t, err)
		require.NotNil(t, got.Status)
		assert.Equal(t, dentdir.StatusPositive, *got.Status)
		require.NotNil(t, got.City)
		assert.Equal(t, "İzmir", *got.City)
		assert.Nil(t, got.District)
		assert.Equal(t, "dent", got.Query)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, Clinics: &mock.ClinicService{}}

		err := (&main.ListCmd{FilterFlags: main.FilterFlags{Status: "maybe"}}).Run(deps)

		require.Error(t, err)
		assert.Equal(t, dentdir.EINVALID, dentdir.ErrorCode(err))
		assert.Contains(t, stderr.String(), "error:")
	})

	t.Run("prints JSON", func(t *testing.T) {
		t.Parallel()

		clinics := &mock.ClinicService{
			FindClinicsFn: func(context.Context, dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
				return testClinics(), nil
			},
		}
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Clinics: clinics}

		err := (&main.ListCmd{JSON: true}).Run(deps)

		require.NoError(t, err)
		var got []*dentdir.Clinic
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
		assert.Equal(t, testClinics(), got)
	})

	t.Run("prints an empty JSON list", func(t *testing.T) {
		t.Parallel()

		clinics := &mock.ClinicService{
			FindClinicsFn: func(context.Context, dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
				return nil, nil
			},
		}
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Clinics: clinics}

		err := (&main.ListCmd{JSON: true}).Run(deps)

		require.NoError(t, err)
		assert.JSONEq(t, "[]", stdout.String())
	})

	t.Run("shows a hint when empty", func(t *testing.T) {
		t.Parallel()

		clinics := &mock.ClinicService{
			FindClinicsFn: func(context.Context, dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
				return nil, nil
			},
		}
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Clinics: clinics}

		err := (&main.ListCmd{}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), "No clinics found")
	})

	t.Run("returns store errors", func(t *testing.T) {
		t.Parallel()

		clinics := &mock.ClinicService{
			FindClinicsFn: func(context.Context, dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
				return nil, errors.New("disk gone")
			},
		}
		stderr := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: &bytes.Buffer{}, Stderr: stderr, Clinics: clinics}

		err := (&main.ListCmd{}).Run(deps)

		require.Error(t, err)
		assert.Contains(t, stderr.String(), "error: Internal error.")
	})
}

func TestStatsCmd_Run(t *testing.T) {
	t.Parallel()

	clinics := &mock.ClinicService{
		FindClinicsFn: func(context.Context, dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
			return append(testClinics(), &dentdir.Clinic{ID: "x", Name: "Kordon Diş", City: "Ankara", Status: dentdir.StatusPositive}), nil
		},
	}
	stdout := &bytes.Buffer{}
	deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Clinics: clinics}

	err := (&main.StatsCmd{}).Run(deps)

	require.NoError(t, err)
	out := stdout.String()
	assert.Contains(t, out, "Total: 3")
	assert.Regexp(t, `positive\s+1`, out)
	assert.Regexp(t, `negative\s+0`, out)
	assert.Regexp(t, `(?s)Ankara\s+2.*İstanbul\s+1`, out)
}
