package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type noopJob struct {
	name string
}

func (j noopJob) Name() string                  { return j.name }
func (j noopJob) Run(ctx context.Context) error { return nil }

func TestAddJob_RejectsDuplicateNames(t *testing.T) {
	scheduler := NewCronScheduler()

	require.NoError(t, scheduler.AddJob(noopJob{name: "sweep"}, "* * * * *"))
	err := scheduler.AddJob(noopJob{name: "sweep"}, "*/5 * * * *")
	require.ErrorContains(t, err, "already scheduled")
	require.Equal(t, []string{"sweep"}, scheduler.Names())
}

func TestAddJob_RejectsInvalidSpec(t *testing.T) {
	scheduler := NewCronScheduler()

	require.Error(t, scheduler.AddJob(noopJob{name: "sweep"}, "not a cron spec"))
	require.Empty(t, scheduler.Names())
}
