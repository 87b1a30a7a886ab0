package engine

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/win-probability/internal/features"
	"github.com/yourusername/win-probability/internal/ml"
	"github.com/yourusername/win-probability/internal/models"
	"github.com/yourusername/win-probability/internal/testutil"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Params.Trees = 40
	cfg.Params.BoostingRounds = 80
	return cfg
}

var (
	sharedOnce   sync.Once
	sharedEngine *Engine
	sharedWorld  *testutil.World
	sharedErr    error
)

// trainedEngine returns an engine trained once on the synthetic world
func trainedEngine(t *testing.T) (*Engine, *testutil.World) {
	t.Helper()
	sharedOnce.Do(func() {
		sharedWorld = testutil.NewWorld(7)
		sharedEngine = NewEngine(testConfig(), testLogger())
		ds, err := sharedEngine.PrepareTrainingData(sharedWorld.Opportunities, sharedWorld.Histories, sharedWorld.Market, sharedWorld.Outcomes)
		if err != nil {
			sharedErr = err
			return
		}
		_, sharedErr = sharedEngine.TrainModels(context.Background(), ds)
	})
	require.NoError(t, sharedErr)
	return sharedEngine, sharedWorld
}

func scenarioInput(s testutil.Scenario, w *testutil.World) PairInput {
	return PairInput{
		BidderID:    s.BidderID,
		Opportunity: s.Opportunity,
		History:     s.History,
		Market:      w.Market,
		Outcomes:    w.Outcomes,
	}
}

func factorCodes(fs []models.Factor) []string {
	codes := make([]string, len(fs))
	for i, f := range fs {
		codes[i] = f.Code
	}
	return codes
}

// TestPrepareTrainingDataShape tests one row per referenced (bidder, opportunity) pair
func TestPrepareTrainingDataShape(t *testing.T) {
	w := testutil.NewWorld(1)
	e := NewEngine(testConfig(), testLogger())

	ds, err := e.PrepareTrainingData(w.Opportunities, w.Histories, w.Market, w.Outcomes)
	require.NoError(t, err)

	var records int
	for _, h := range w.Histories {
		records += len(h)
	}
	assert.Len(t, ds.Y, records)
	assert.Len(t, ds.X, records)
	assert.Len(t, ds.Rows, records)
	assert.Equal(t, features.Schema(), ds.Schema)
	for _, row := range ds.X {
		require.Len(t, row, len(ds.Schema))
	}
	assert.Greater(t, ds.Positives(), 0)
	assert.Less(t, ds.Positives(), records)
}

// TestPrepareTrainingDataDedupesRebids tests that a repeated record for the same pair
// yields one row labeled by the latest award
func TestPrepareTrainingDataDedupesRebids(t *testing.T) {
	w := testutil.NewWorld(1)
	e := NewEngine(testConfig(), testLogger())

	var records int
	histories := make(map[string][]models.CompanyHistoryRecord, len(w.Histories))
	for b, h := range w.Histories {
		histories[b] = append([]models.CompanyHistoryRecord(nil), h...)
		records += len(h)
	}

	base, err := e.PrepareTrainingData(w.Opportunities, w.Histories, w.Market, w.Outcomes)
	require.NoError(t, err)
	target := base.Rows[0]

	var original models.CompanyHistoryRecord
	for _, rec := range histories[target.BidderID] {
		if rec.OpportunityID == target.OpportunityID {
			original = rec
		}
	}
	rebid := original
	rebid.ID = original.ID + "-rebid"
	rebid.Won = !original.Won
	rebid.AwardedAt = original.AwardedAt.Add(48 * time.Hour)
	stale := original
	stale.ID = original.ID + "-stale"
	stale.AwardedAt = original.AwardedAt.Add(-48 * time.Hour)
	histories[target.BidderID] = append(histories[target.BidderID], rebid, stale)

	ds, err := e.PrepareTrainingData(w.Opportunities, histories, w.Market, w.Outcomes)
	require.NoError(t, err)
	assert.Len(t, ds.Y, records)

	var matches int
	for i, row := range ds.Rows {
		if row == target {
			matches++
			want := 0.0
			if rebid.Won {
				want = 1
			}
			assert.Equal(t, want, ds.Y[i])
		}
	}
	assert.Equal(t, 1, matches)
}

// TestPrepareTrainingDataNoLeakage tests that a row's own label never reaches its features
func TestPrepareTrainingDataNoLeakage(t *testing.T) {
	w := testutil.NewWorld(2)
	e := NewEngine(testConfig(), testLogger())

	before, err := e.PrepareTrainingData(w.Opportunities, w.Histories, w.Market, w.Outcomes)
	require.NoError(t, err)

	bidderID := before.Rows[0].BidderID
	oppID := before.Rows[0].OpportunityID

	flipped := make(map[string][]models.CompanyHistoryRecord, len(w.Histories))
	for b, h := range w.Histories {
		flipped[b] = append([]models.CompanyHistoryRecord(nil), h...)
	}
	for i, rec := range flipped[bidderID] {
		if rec.OpportunityID == oppID {
			flipped[bidderID][i].Won = !rec.Won
		}
	}
	outcomes := append([]models.HistoricalOutcome(nil), w.Outcomes...)
	for i, o := range outcomes {
		if o.OpportunityID == oppID {
			outcomes[i].Won = !o.Won
		}
	}

	after, err := e.PrepareTrainingData(w.Opportunities, flipped, w.Market, outcomes)
	require.NoError(t, err)

	assert.Equal(t, before.X[0], after.X[0])
	assert.NotEqual(t, before.Y[0], after.Y[0])
}

// TestPrepareTrainingDataGuardrails tests the minimum rows and two-class checks
func TestPrepareTrainingDataGuardrails(t *testing.T) {
	w := testutil.NewWorld(3)
	e := NewEngine(testConfig(), testLogger())

	_, err := e.PrepareTrainingData(w.Opportunities[:2], w.Histories, w.Market, w.Outcomes)
	assert.ErrorIs(t, err, ErrInsufficientData)

	allLost := make(map[string][]models.CompanyHistoryRecord)
	for b, h := range w.Histories {
		for _, rec := range h {
			rec.Won = false
			allLost[b] = append(allLost[b], rec)
		}
	}
	_, err = e.PrepareTrainingData(w.Opportunities, allLost, w.Market, w.Outcomes)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

// TestPrepareTrainingDataSkipsMissingID tests that invalid opportunities are skipped
func TestPrepareTrainingDataSkipsMissingID(t *testing.T) {
	w := testutil.NewWorld(4)
	e := NewEngine(testConfig(), testLogger())

	opps := append([]models.Opportunity{{Title: "no id"}}, w.Opportunities...)
	ds, err := e.PrepareTrainingData(opps, w.Histories, w.Market, w.Outcomes)
	require.NoError(t, err)
	for _, r := range ds.Rows {
		assert.NotEmpty(t, r.OpportunityID)
	}
}

// TestTrainModelsGuardrails tests that small or single-class datasets are refused
func TestTrainModelsGuardrails(t *testing.T) {
	e := NewEngine(testConfig(), testLogger())
	schema := features.Schema()

	small := &Dataset{Schema: schema}
	for i := 0; i < DefaultMinTrainingRows-1; i++ {
		small.X = append(small.X, make([]float64, len(schema)))
		small.Y = append(small.Y, float64(i%2))
	}
	_, err := e.TrainModels(context.Background(), small)
	assert.ErrorIs(t, err, ErrInsufficientData)

	oneClass := &Dataset{Schema: schema}
	for i := 0; i < 50; i++ {
		oneClass.X = append(oneClass.X, make([]float64, len(schema)))
		oneClass.Y = append(oneClass.Y, 1)
	}
	_, err = e.TrainModels(context.Background(), oneClass)
	assert.ErrorIs(t, err, ErrInsufficientData)

	assert.False(t, e.ModelLoaded())
}

// TestTrainModelsKeepsPreviousModel tests that failed training leaves the live model
func TestTrainModelsKeepsPreviousModel(t *testing.T) {
	trained, w := trainedEngine(t)

	e := NewEngine(testConfig(), testLogger())
	require.NoError(t, e.LoadEnsemble(trained.Current()))
	version := e.ModelVersion()

	_, err := e.TrainModels(context.Background(), &Dataset{Schema: features.Schema()})
	assert.ErrorIs(t, err, ErrInsufficientData)
	assert.Equal(t, version, e.ModelVersion())

	pred, err := e.PredictWinProbability(scenarioInput(testutil.StrongScenario(), w))
	require.NoError(t, err)
	assert.Equal(t, version, pred.ModelVersion)
}

// TestTrainModelsAllBackendsFail tests that total backend failure is surfaced
func TestTrainModelsAllBackendsFail(t *testing.T) {
	w := testutil.NewWorld(5)
	cfg := testConfig()
	cfg.Backends = []string{"unknown"}
	e := NewEngine(cfg, testLogger())

	ds, err := e.PrepareTrainingData(w.Opportunities, w.Histories, w.Market, w.Outcomes)
	require.NoError(t, err)

	perf, err := e.TrainModels(context.Background(), ds)
	assert.ErrorIs(t, err, ml.ErrAllBackendsFailed)
	assert.False(t, perf["unknown"].Accepted())
	assert.False(t, e.ModelLoaded())
}

// TestTrainModelsPerformance tests that every backend reports holdout metrics
func TestTrainModelsPerformance(t *testing.T) {
	e, _ := trainedEngine(t)

	perf := e.Current().Performance()
	require.Len(t, perf, 3)
	for name, p := range perf {
		assert.True(t, p.Accepted(), name)
		assert.Greater(t, p.AUCROC, 0.6, name)
		assert.Greater(t, p.HoldoutRows, 0, name)
		assert.NotEmpty(t, p.FeatureImportance, name)
	}
	assert.False(t, e.LastTrainedAt().IsZero())
}

// TestPredictRequiresModel tests inference before training
func TestPredictRequiresModel(t *testing.T) {
	e := NewEngine(testConfig(), testLogger())
	s := testutil.StrongScenario()

	_, err := e.PredictWinProbability(PairInput{BidderID: s.BidderID, Opportunity: s.Opportunity})
	assert.ErrorIs(t, err, ErrModelNotLoaded)
}

// TestPredictInvalidInput tests structural input validation
func TestPredictInvalidInput(t *testing.T) {
	e, w := trainedEngine(t)

	in := scenarioInput(testutil.StrongScenario(), w)
	in.Opportunity.ID = ""
	_, err := e.PredictWinProbability(in)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	in = scenarioInput(testutil.StrongScenario(), w)
	in.BidderID = " "
	_, err = e.PredictWinProbability(in)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

// TestPredictBounds tests probability and confidence ranges across varied inputs
func TestPredictBounds(t *testing.T) {
	e, w := trainedEngine(t)

	inputs := []PairInput{
		scenarioInput(testutil.StrongScenario(), w),
		scenarioInput(testutil.MediumScenario(), w),
		scenarioInput(testutil.WeakScenario(), w),
		{BidderID: "nobody", Opportunity: models.Opportunity{ID: "bare"}},
	}
	for _, opp := range w.Opportunities[:20] {
		inputs = append(inputs, PairInput{BidderID: "bidder-00", Opportunity: opp, History: w.Histories["bidder-00"], Market: w.Market})
	}

	for _, in := range inputs {
		pred, err := e.PredictWinProbability(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pred.WinProbability, 0.0)
		assert.LessOrEqual(t, pred.WinProbability, 1.0)
		assert.GreaterOrEqual(t, pred.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, pred.ConfidenceScore, 1.0)
	}
}

// TestPredictDeterministic tests repeated predictions on identical input
func TestPredictDeterministic(t *testing.T) {
	e, w := trainedEngine(t)
	in := scenarioInput(testutil.MediumScenario(), w)

	first, err := e.PredictWinProbability(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.PredictWinProbability(in)
		require.NoError(t, err)
		assert.Equal(t, first.WinProbability, again.WinProbability)
		assert.Equal(t, first.ConfidenceScore, again.ConfidenceScore)
		assert.Equal(t, first.RiskFactors, again.RiskFactors)
	}
}

// TestPredictMonotonicAgencyWinRate tests that a higher agency win rate at equal
// sample size never lowers the probability
func TestPredictMonotonicAgencyWinRate(t *testing.T) {
	e, w := trainedEngine(t)
	s := testutil.StrongScenario()

	prev := -1.0
	for wins := 0; wins <= 10; wins++ {
		in := scenarioInput(s, w)
		in.History = testutil.History(s.BidderID, s.Opportunity.Agency, wins, 10-wins, 600_000, s.Opportunity.Keywords)

		pred, err := e.PredictWinProbability(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, pred.WinProbability, prev-1e-12, "wins=%d", wins)
		prev = pred.WinProbability
	}
}

// TestPredictEmptyHistory tests the neutral default for a bidder with no history
func TestPredictEmptyHistory(t *testing.T) {
	e, w := trainedEngine(t)
	s := testutil.StrongScenario()

	withHistory, err := e.PredictWinProbability(scenarioInput(s, w))
	require.NoError(t, err)

	in := scenarioInput(s, w)
	in.History = nil
	empty, err := e.PredictWinProbability(in)
	require.NoError(t, err)

	for _, name := range []string{
		features.CompanyTotalWins, features.CompanyTotalLosses, features.CompanyWinRate,
		features.CompanyAgencyWinRate, features.CompanyAgencyExperience,
	} {
		assert.Equal(t, 0.0, empty.Features[name], name)
	}
	assert.Less(t, empty.ConfidenceScore, withHistory.ConfidenceScore)
	assert.Contains(t, factorCodes(empty.RiskFactors), NoteLimitedHistory)
	assert.NotContains(t, factorCodes(withHistory.RiskFactors), NoteLimitedHistory)
}

// TestPredictMissingMarketData tests that absent market data degrades rather than fails
func TestPredictMissingMarketData(t *testing.T) {
	e, w := trainedEngine(t)

	in := scenarioInput(testutil.StrongScenario(), w)
	full, err := e.PredictWinProbability(in)
	require.NoError(t, err)

	in.Market = nil
	in.Outcomes = nil
	degraded, err := e.PredictWinProbability(in)
	require.NoError(t, err)

	assert.Less(t, degraded.ConfidenceScore, full.ConfidenceScore)
	codes := factorCodes(degraded.RiskFactors)
	assert.Contains(t, codes, NoteNoMarketData)
	assert.Contains(t, codes, NoteNoSimilarOutcomes)
}

// TestStrongBidderScenario tests a bidder with a strong record at the agency
func TestStrongBidderScenario(t *testing.T) {
	e, w := trainedEngine(t)

	pred, err := e.PredictWinProbability(scenarioInput(testutil.StrongScenario(), w))
	require.NoError(t, err)

	assert.Greater(t, pred.WinProbability, (1+testutil.MaterialMargin)*w.BaseRate)
	assert.Contains(t, factorCodes(pred.SuccessFactors), "strong_agency_win_rate")
	assert.NotContains(t, factorCodes(pred.RiskFactors), "no_agency_experience")
}

// TestWeakBidderScenario tests a bidder with no record at the agency on an urgent,
// high value opportunity
func TestWeakBidderScenario(t *testing.T) {
	e, w := trainedEngine(t)

	pred, err := e.PredictWinProbability(scenarioInput(testutil.WeakScenario(), w))
	require.NoError(t, err)

	assert.Less(t, pred.WinProbability, (1-testutil.MaterialMargin)*w.BaseRate)

	var agencyRisk bool
	for _, f := range pred.RiskFactors {
		if strings.Contains(strings.ToLower(f.Text), "no relevant agency experience") {
			agencyRisk = true
		}
	}
	assert.True(t, agencyRisk)

	codes := factorCodes(pred.RiskFactors)
	assert.Contains(t, codes, "urgent_timeline")
	assert.Contains(t, codes, "high_contract_value")
}

// TestBatchRanking tests that strong, medium and weak bidders are ordered by probability
func TestBatchRanking(t *testing.T) {
	e, w := trainedEngine(t)

	inputs := []PairInput{
		scenarioInput(testutil.WeakScenario(), w),
		scenarioInput(testutil.StrongScenario(), w),
		scenarioInput(testutil.MediumScenario(), w),
	}
	results := e.BatchPredict(context.Background(), inputs, 2, time.Second)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	weak, strong, medium := results[0].Prediction, results[1].Prediction, results[2].Prediction
	assert.Equal(t, "weak-bidder", weak.BidderID)
	assert.Greater(t, strong.WinProbability, medium.WinProbability)
	assert.Greater(t, medium.WinProbability, weak.WinProbability)
}

// TestBatchPartialFailure tests that one bad pair does not fail the batch
func TestBatchPartialFailure(t *testing.T) {
	e, w := trainedEngine(t)

	bad := scenarioInput(testutil.MediumScenario(), w)
	bad.Opportunity.ID = ""
	inputs := []PairInput{scenarioInput(testutil.StrongScenario(), w), bad, scenarioInput(testutil.WeakScenario(), w)}

	results := e.BatchPredict(context.Background(), inputs, 4, time.Second)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, models.ErrInvalidInput)
	assert.Nil(t, results[1].Prediction)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "strong-bidder", results[0].Pair.BidderID)
}

// TestBatchCancelled tests that a cancelled batch reports per-item errors
func TestBatchCancelled(t *testing.T) {
	e, w := trainedEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := e.BatchPredict(ctx, []PairInput{scenarioInput(testutil.StrongScenario(), w)}, 1, time.Second)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

// TestAnalyzeFactors tests that attribution names come from the feature schema
func TestAnalyzeFactors(t *testing.T) {
	e, w := trainedEngine(t)

	contributions, err := e.AnalyzeFactors(scenarioInput(testutil.StrongScenario(), w))
	require.NoError(t, err)
	require.Len(t, contributions, len(features.Schema()))

	for i, c := range contributions {
		assert.True(t, features.InSchema(c.Feature), c.Feature)
		if i > 0 {
			prev := contributions[i-1].Contribution
			assert.GreaterOrEqual(t, abs(prev), abs(c.Contribution))
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// TestLoadEnsembleRejectsForeignSchema tests the train/inference parity check
func TestLoadEnsembleRejectsForeignSchema(t *testing.T) {
	X := [][]float64{{0, 1}, {1, 0}, {0, 0}, {1, 1}, {0, 1}, {1, 0}}
	y := []float64{0, 1, 0, 1, 0, 1}
	ens, _, err := ml.Train(context.Background(), X, y, []string{"a", "b"}, ml.TrainConfig{
		Backends: []string{ml.BackendLogisticRegression},
		Params:   ml.DefaultParams(),
	}, nil)
	require.NoError(t, err)

	e := NewEngine(testConfig(), testLogger())
	assert.ErrorIs(t, e.LoadEnsemble(ens), features.ErrSchemaMismatch)
	assert.False(t, e.ModelLoaded())
}

// TestConcurrentPredictDuringSwap tests that inference keeps working across model swaps
func TestConcurrentPredictDuringSwap(t *testing.T) {
	trained, w := trainedEngine(t)
	e := NewEngine(testConfig(), testLogger())
	require.NoError(t, e.LoadEnsemble(trained.Current()))

	in := scenarioInput(testutil.StrongScenario(), w)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := e.PredictWinProbability(in)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, e.LoadEnsemble(trained.Current()))
	}
	wg.Wait()
}
