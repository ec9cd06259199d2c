package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/dentdir"
	main "github.com/fwojciec/dentdir/cmd/dentdir"
	"github.com/fwojciec/dentdir/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCmd_Run(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }
	listed := &mock.ClinicService{
		FindClinicsFn: func(context.Context, dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
			return testClinics(), nil
		},
	}

	t.Run("writes the CSV to the given file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "out", "clinics.csv")
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Clinics: listed, Now: now}

		err := (&main.ExportCmd{Output: path}).Run(deps)

		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "\ufeff"))
		assert.Contains(t, string(data), `"Moda Dental"`)
		assert.Contains(t, stdout.String(), "Exported 2 clinics to "+path)
	})

	t.Run("writes to stdout with a dash", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Clinics: listed, Now: now}

		err := (&main.ExportCmd{Output: "-"}).Run(deps)

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), `"Çankaya Ağız ve Diş"`)
		assert.Equal(t, 3, strings.Count(stdout.String(), "\n"))
	})

	t.Run("writes nothing when no clinics match", func(t *testing.T) {
		t.Parallel()

		clinics := &mock.ClinicService{
			FindClinicsFn: func(context.Context, dentdir.ClinicFilter) ([]*dentdir.Clinic, error) {
				return nil, nil
			},
		}
		path := filepath.Join(t.TempDir(), "clinics.csv")
		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{Ctx: context.Background(), Stdout: stdout, Stderr: &bytes.Buffer{}, Clinics: clinics, Now: now}

		err := (&main.ExportCmd{Output: path}).Run(deps)

		require.NoError(t, err)
		assert.NoFileExists(t, path)
		assert.Contains(t, stdout.String(), "No clinics to export.")
	})
}
