package matching

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreplane/unify/pkg/models"
)

type fakeCandidateFinder struct {
	candidates []models.UnifiedCustomer
	lastQuery  *models.CandidateQuery
	calls      int
}

func (f *fakeCandidateFinder) FindCandidates(ctx context.Context, query models.CandidateQuery) ([]models.UnifiedCustomer, error) {
	f.calls++
	f.lastQuery = &query
	return f.candidates, nil
}

func newTestEngine(t *testing.T, finder CandidateFinder) *Engine {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	engine, err := NewEngine(logger, finder, DefaultConfig())
	require.NoError(t, err)
	return engine
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(Weights) Weights
		wantErr bool
	}{
		{"defaults are valid", func(w Weights) Weights { return w }, false},
		{"missing field", func(w Weights) Weights { delete(w, FieldPhone); return w }, true},
		{"sum not one", func(w Weights) Weights { w[FieldEmail] = 0.5; return w }, true},
		{"unknown field", func(w Weights) Weights { w["nickname"] = 0.0; return w }, true},
		{"negative weight", func(w Weights) Weights { w[FieldName] = -0.05; w[FieldEmail] = 0.35; return w }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(DefaultWeights()).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEngineRejectsInvalidWeights(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	config := DefaultConfig()
	config.Weights = Weights{FieldDocument: 1.0}

	_, err := NewEngine(logger, &fakeCandidateFinder{}, config)
	assert.Error(t, err)
}

func TestCalculateMatchScoreSameDocument(t *testing.T) {
	engine := newTestEngine(t, &fakeCandidateFinder{})

	a := &models.CustomerData{Document: "123.456.789-01"}
	b := &models.CustomerData{Document: "12345678901"}

	score, conflicts := engine.CalculateMatchScore(a, b)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Empty(t, conflicts)
}

func TestCalculateMatchScoreDocumentConflictIsEliminatory(t *testing.T) {
	engine := newTestEngine(t, &fakeCandidateFinder{})

	// Everything else agrees, but different documents mean different people.
	a := &models.CustomerData{
		Document: "12345678901",
		Email:    "maria@example.com",
		Name:     "Maria Silva",
		Phone:    "11987654321",
	}
	b := &models.CustomerData{
		Document: "98765432100",
		Email:    "maria@example.com",
		Name:     "Maria Silva",
		Phone:    "11987654321",
	}

	score, conflicts := engine.CalculateMatchScore(a, b)
	assert.Equal(t, 0.0, score)
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts, FieldDocument)
}

func TestCalculateMatchScoreEmailOnly(t *testing.T) {
	engine := newTestEngine(t, &fakeCandidateFinder{})

	a := &models.CustomerData{Email: "Maria@Example.com"}
	b := &models.CustomerData{Email: "maria@example.com"}

	// Scoring compares emails case insensitively.
	score, conflicts := engine.CalculateMatchScore(a, b)
	assert.InDelta(t, 1.0, score, 1e-9)
	assert.Empty(t, conflicts)
}

func TestCalculateMatchScoreOnlySharedFieldsWeigh(t *testing.T) {
	engine := newTestEngine(t, &fakeCandidateFinder{})

	// Email matches; the incoming birth date disagrees with the stored one.
	// Score is 0.25 over a denominator of 0.25 + 0.05, with a single conflict
	// and no halving.
	a := &models.CustomerData{Email: "maria@example.com", BirthDate: "1990-05-15"}
	b := &models.CustomerData{Email: "maria@example.com", BirthDate: "1991-06-16"}

	score, conflicts := engine.CalculateMatchScore(a, b)
	assert.InDelta(t, 0.25/0.30, score, 1e-9)
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts, FieldBirthDate)
}

func TestCalculateMatchScoreMultipleConflictsHalveScore(t *testing.T) {
	engine := newTestEngine(t, &fakeCandidateFinder{})

	// Email agrees, name and phone both conflict. Base score is
	// 0.25 / (0.25 + 0.05 + 0.20) = 0.5, halved to 0.25.
	a := &models.CustomerData{
		Email: "maria@example.com",
		Name:  "abc xyz",
		Phone: "1111111111",
	}
	b := &models.CustomerData{
		Email: "maria@example.com",
		Name:  "qqq www",
		Phone: "2222222222",
	}

	score, conflicts := engine.CalculateMatchScore(a, b)
	assert.InDelta(t, 0.25, score, 1e-9)
	assert.Len(t, conflicts, 2)
	assert.Contains(t, conflicts, FieldName)
	assert.Contains(t, conflicts, FieldPhone)
}

func TestCalculateMatchScoreNoSharedFields(t *testing.T) {
	engine := newTestEngine(t, &fakeCandidateFinder{})

	a := &models.CustomerData{Email: "maria@example.com"}
	b := &models.CustomerData{Phone: "11987654321"}

	score, conflicts := engine.CalculateMatchScore(a, b)
	assert.Equal(t, 0.0, score)
	assert.Empty(t, conflicts)
}

func TestFindMatchesFiltersByThreshold(t *testing.T) {
	finder := &fakeCandidateFinder{
		candidates: []models.UnifiedCustomer{
			{ID: "strong", Data: models.CustomerData{Document: "12345678901", Email: "maria@example.com"}},
			{ID: "weak", Data: models.CustomerData{Email: "other@example.com", Phone: "11987654321"}},
		},
	}
	engine := newTestEngine(t, finder)

	matches, err := engine.FindMatches(context.Background(), &models.CustomerData{
		Document: "123.456.789-01",
		Email:    "maria@example.com",
	})
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "strong", matches[0].CandidateID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.True(t, matches[0].IsSafeMatch)
}

func TestFindMatchesFlagsConflicts(t *testing.T) {
	finder := &fakeCandidateFinder{
		candidates: []models.UnifiedCustomer{
			{ID: "conflicted", Data: models.CustomerData{Document: "12345678901", BirthDate: "1991-06-16"}},
		},
	}
	engine := newTestEngine(t, finder)

	matches, err := engine.FindMatches(context.Background(), &models.CustomerData{
		Document:  "12345678901",
		BirthDate: "1990-05-15",
	})
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.False(t, matches[0].IsSafeMatch)
	assert.Contains(t, matches[0].Conflicts, FieldBirthDate)
	assert.Contains(t, matches[0].Reason, "birth_date")
}

func TestFindMatchesSkipsLookupWithoutKeys(t *testing.T) {
	finder := &fakeCandidateFinder{}
	engine := newTestEngine(t, finder)

	// City alone yields no candidate keys, so the store is never queried.
	matches, err := engine.FindMatches(context.Background(), &models.CustomerData{City: "Sao Paulo"})
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 0, finder.calls)
}

func TestSetThreshold(t *testing.T) {
	engine := newTestEngine(t, &fakeCandidateFinder{})

	require.NoError(t, engine.SetThreshold(0.9))
	assert.Equal(t, 0.9, engine.Threshold())

	assert.Error(t, engine.SetThreshold(1.5))
	assert.Error(t, engine.SetThreshold(-0.1))
	assert.Equal(t, 0.9, engine.Threshold())
}

func TestCandidateQueryFor(t *testing.T) {
	query := CandidateQueryFor(&models.CustomerData{
		Document: "123.456.789-01",
		Email:    "Maria@Example.com",
		Name:     "Maria de Souza",
		Phone:    "(11) 98765-4321",
	})

	assert.Equal(t, "12345678901", query.Document)
	// Email keeps its original casing for the lookup.
	assert.Equal(t, "Maria@Example.com", query.Email)
	assert.Equal(t, []string{"maria", "souza"}, query.NameTokens)
	assert.Equal(t, "11987654321", query.Phone)
}
