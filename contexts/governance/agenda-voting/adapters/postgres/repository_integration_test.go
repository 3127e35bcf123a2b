package postgresadapter_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	postgresadapter "assembly/contexts/governance/agenda-voting/adapters/postgres"
	"assembly/contexts/governance/agenda-voting/application/commands"
	"assembly/contexts/governance/agenda-voting/application/sessions"
	"assembly/contexts/governance/agenda-voting/domain/entities"
	domainerrors "assembly/contexts/governance/agenda-voting/domain/errors"
	"assembly/internal/platform/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// AGENDA_TEST_PG_DSN points the suite at an existing database instead of a
// throwaway container.
func openRepository(t *testing.T) *postgresadapter.Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	ctx := context.Background()

	dsn := os.Getenv("AGENDA_TEST_PG_DSN")
	if dsn == "" {
		container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("assembly"),
			tcpostgres.WithUsername("assembly"),
			tcpostgres.WithPassword("assembly"),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Skipf("postgres container unavailable: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })
		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pg, err := db.Connect(ctx, dsn, db.Options{MaxOpenConns: 32})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Close() })

	repo := postgresadapter.NewRepository(pg.DB, nil)
	require.NoError(t, repo.Migrate(ctx))
	postgresadapter.RegisterErrorRules(domainerrors.DefaultClassifier)
	return repo
}

func useCases(repo *postgresadapter.Repository) (commands.AgendaUseCase, commands.VoteUseCase) {
	clock := postgresadapter.SystemClock{}
	ids := postgresadapter.UUIDGenerator{}
	agendas := commands.AgendaUseCase{
		Agendas:    repo,
		UnitOfWork: repo,
		Sessions:   sessions.Tracker{Sessions: repo, IDGen: ids},
		Clock:      clock,
		IDGen:      ids,
	}
	votes := commands.VoteUseCase{
		UnitOfWork: repo,
		Users:      repo,
		Clock:      clock,
		IDGen:      ids,
	}
	return agendas, votes
}

func TestRepositoryVotingRoundTrip(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	agendas, votes := useCases(repo)
	suffix := time.Now().UTC().Format("150405.000000")
	require.NoError(t, repo.UpsertUser(ctx, entities.Voter{UserID: "pg-voter-" + suffix, Name: "Pat"}))

	created, err := agendas.CreateAgenda(ctx, commands.CreateAgendaCommand{Title: "Round trip " + suffix})
	require.NoError(t, err)
	_, err = agendas.CreateAgenda(ctx, commands.CreateAgendaCommand{Title: "Round trip " + suffix, Description: "dup"})
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateTitle)

	agendaID := created.Agenda.AgendaID
	_, err = agendas.OpenAgenda(ctx, agendaID)
	require.NoError(t, err)
	started, err := agendas.StartAgendaTimer(ctx, commands.StartAgendaTimerCommand{AgendaID: agendaID, DurationMinutes: 5})
	require.NoError(t, err)

	active, err := repo.HasActiveSession(ctx, agendaID, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, active)

	cast, err := votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agendaID, UserID: "pg-voter-" + suffix, VoteType: entities.VoteTypeNo})
	require.NoError(t, err)
	_, err = votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agendaID, UserID: "pg-voter-" + suffix, VoteType: entities.VoteTypeYes})
	assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyVoted)

	stored, err := repo.GetVote(ctx, cast.Vote.VoteID)
	require.NoError(t, err)
	assert.Equal(t, entities.VoteTypeNo, stored.VoteType)

	finished, err := agendas.FinalizeAgenda(ctx, agendaID)
	require.NoError(t, err)
	assert.Equal(t, entities.AgendaResultRejected, finished.Agenda.Result)

	history, err := repo.ListSessionsByAgenda(ctx, agendaID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, started.Session.SessionID, history[0].SessionID)
	assert.True(t, history[0].Reconciled)

	pending, err := repo.ListPendingOutbox(ctx, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, pending)
}

func TestRepositorySerializesConcurrentVotes(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	agendas, votes := useCases(repo)
	suffix := time.Now().UTC().Format("150405.000000")

	const voters = 20
	for i := 0; i < voters; i++ {
		require.NoError(t, repo.UpsertUser(ctx, entities.Voter{UserID: fmt.Sprintf("pg-%s-%02d", suffix, i)}))
	}
	created, err := agendas.CreateAgenda(ctx, commands.CreateAgendaCommand{Title: "Concurrent " + suffix})
	require.NoError(t, err)
	agendaID := created.Agenda.AgendaID
	_, err = agendas.OpenAgenda(ctx, agendaID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, voters*2)
	for i := 0; i < voters; i++ {
		userID := fmt.Sprintf("pg-%s-%02d", suffix, i)
		// Each voter tries twice; exactly one ballot per voter must land.
		for attempt := 0; attempt < 2; attempt++ {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, err := votes.CastVote(ctx, commands.CastVoteCommand{AgendaID: agendaID, UserID: userID, VoteType: entities.VoteTypeYes})
				errs <- err
			}(userID)
		}
	}
	wg.Wait()
	close(errs)

	duplicates := 0
	for err := range errs {
		if err == nil {
			continue
		}
		require.ErrorIs(t, err, domainerrors.ErrUserAlreadyVoted)
		duplicates++
	}
	assert.Equal(t, voters, duplicates)

	agenda, err := repo.GetAgenda(ctx, agendaID)
	require.NoError(t, err)
	assert.Equal(t, voters, agenda.TotalVotes)
	assert.Equal(t, voters, agenda.YesVotes)
	recorded, err := repo.ListVotesByAgenda(ctx, agendaID)
	require.NoError(t, err)
	assert.Len(t, recorded, voters)
}

func TestRepositoryWithinUnknownAgenda(t *testing.T) {
	repo := openRepository(t)
	_, err := repo.GetAgenda(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domainerrors.ErrAgendaNotFound)
}
