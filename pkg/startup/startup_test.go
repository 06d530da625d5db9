package startup

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func recordingDependency(name string, needs []string, log *[]string) *Dependency {
	return &Dependency{
		Name:  name,
		Needs: needs,
		StartFunc: func(ctx context.Context) error {
			*log = append(*log, "start "+name)
			return nil
		},
		StopFunc: func(ctx context.Context) error {
			*log = append(*log, "stop "+name)
			return nil
		},
	}
}

func TestStartRespectsDependencyOrder(t *testing.T) {
	var log []string
	s := NewStartup(testLogger(), 1)

	// Registered out of order on purpose; Needs drives the sequence.
	s.AddDependency(recordingDependency("http-server", []string{"migrations"}, &log))
	s.AddDependency(recordingDependency("database", nil, &log))
	s.AddDependency(recordingDependency("migrations", []string{"database"}, &log))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start database", "start migrations", "start http-server"}, log)
}

func TestStopReversesRegistrationOrder(t *testing.T) {
	var log []string
	s := NewStartup(testLogger(), 1)

	s.AddDependency(recordingDependency("database", nil, &log))
	s.AddDependency(recordingDependency("migrations", []string{"database"}, &log))
	s.AddDependency(recordingDependency("http-server", []string{"migrations"}, &log))

	require.NoError(t, s.Start(context.Background()))
	log = nil

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop http-server", "stop migrations", "stop database"}, log)
}

func TestStartRetriesFailedAttempts(t *testing.T) {
	attempts := 0
	s := NewStartup(testLogger(), 2)
	s.AddDependency(&Dependency{
		Name: "flaky",
		StartFunc: func(ctx context.Context) error {
			attempts++
			if attempts == 1 {
				return errors.New("not ready yet")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 2, attempts)
}

func TestStartGivesUpAfterMaxAttempts(t *testing.T) {
	s := NewStartup(testLogger(), 2)
	s.AddDependency(&Dependency{
		Name: "broken",
		StartFunc: func(ctx context.Context) error {
			return errors.New("permanently broken")
		},
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestStopSkipsNeverStartedDependencies(t *testing.T) {
	var log []string
	s := NewStartup(testLogger(), 1)

	s.AddDependency(recordingDependency("database", nil, &log))
	s.AddDependency(&Dependency{
		Name:  "broken",
		Needs: []string{"database"},
		StartFunc: func(ctx context.Context) error {
			return errors.New("boom")
		},
		StopFunc: func(ctx context.Context) error {
			log = append(log, "stop broken")
			return nil
		},
	})

	require.Error(t, s.Start(context.Background()))
	log = nil

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop database"}, log)
}
