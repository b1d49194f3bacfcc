package versions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestPerformance_Metrics(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id, _ := svc.Create(ctx, CreateInput{Name: "a", Content: sampleRecord("Ada")})

	m, err := svc.Performance(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, m.ApplicationsSent)
	assert.Empty(t, m.Feedback)

	require.NoError(t, svc.RecordApplication(ctx, id, intPtr(80)))
	require.NoError(t, svc.RecordApplication(ctx, id, intPtr(60)))
	require.NoError(t, svc.RecordApplication(ctx, id, nil))
	require.NoError(t, svc.RecordApplication(ctx, id, nil))
	require.NoError(t, svc.RecordInterview(ctx, id))
	require.NoError(t, svc.AddFeedback(ctx, id, "great portfolio"))

	m, err = svc.Performance(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, m.ApplicationsSent)
	assert.Equal(t, 1, m.Interviews)
	assert.Equal(t, 0.25, m.ResponseRate)
	assert.Equal(t, 70.0, m.AvgATSScore)
	assert.Equal(t, []string{"great portfolio"}, m.Feedback)
	assert.InDelta(t, 0.25*0.7+0.7*0.3, m.RankScore(), 1e-9)
}

func TestPerformance_Errors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id, _ := svc.Create(ctx, CreateInput{Name: "a", Content: sampleRecord("Ada")})

	assert.ErrorIs(t, svc.RecordInterview(ctx, "v_missing"), ErrVersionNotFound)
	_, err := svc.Performance(ctx, "v_missing")
	assert.ErrorIs(t, err, ErrVersionNotFound)

	var inputErr *InputError
	assert.ErrorAs(t, svc.RecordApplication(ctx, id, intPtr(101)), &inputErr)
	assert.ErrorAs(t, svc.AddFeedback(ctx, id, ""), &inputErr)
}

func TestBestPerforming(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	best, err := svc.BestPerforming(ctx, &owner)
	require.NoError(t, err)
	assert.Equal(t, "", best)

	a, _ := svc.Create(ctx, CreateInput{Owner: &owner, Name: "a", Content: sampleRecord("Ada")})
	b, _ := svc.Create(ctx, CreateInput{Owner: &owner, Name: "b", Content: sampleRecord("Ada")})
	c, _ := svc.Create(ctx, CreateInput{Owner: &owner, Name: "c", Content: sampleRecord("Ada")})

	// a: response 0, ats 90 → 0.27
	require.NoError(t, svc.RecordApplication(ctx, a, intPtr(90)))
	// b: response 0.5, no ats → 0.35
	require.NoError(t, svc.RecordApplication(ctx, b, nil))
	require.NoError(t, svc.RecordApplication(ctx, b, nil))
	require.NoError(t, svc.RecordInterview(ctx, b))
	// c: interviews without applications are not ranked
	require.NoError(t, svc.RecordInterview(ctx, c))

	best, err = svc.BestPerforming(ctx, &owner)
	require.NoError(t, err)
	assert.Equal(t, b, best)

	best, err = svc.BestPerforming(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "", best, "guests do not see owned versions")
}

func TestRecommendations(t *testing.T) {
	assert.Empty(t, Recommendations(Metrics{}))
	assert.Empty(t, Recommendations(Metrics{ApplicationsSent: 4, Interviews: 1, ResponseRate: 0.25, ATSScoreCount: 1, AvgATSScore: 85}))

	recs := Recommendations(Metrics{ApplicationsSent: 12, ResponseRate: 0, ATSScoreCount: 3, AvgATSScore: 55})
	require.Len(t, recs, 3)
	assert.Contains(t, recs[0], "response rate")
	assert.Contains(t, recs[1], "ATS")
	assert.Contains(t, recs[2], "without an interview")
}

func TestReport(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	quiet, _ := svc.Create(ctx, CreateInput{Owner: &owner, Name: "quiet", Content: sampleRecord("Ada")})
	clock.Advance(1)
	busy, _ := svc.Create(ctx, CreateInput{
		Owner:   &owner,
		Name:    "busy",
		Content: sampleRecord("Ada"),
		Score:   &types.ScoreReport{OverallScore: 64},
	})
	for i := 0; i < 11; i++ {
		require.NoError(t, svc.RecordApplication(ctx, busy, intPtr(50)))
	}

	report, err := svc.Report(ctx, &owner)
	require.NoError(t, err)
	require.Len(t, report.Versions, 2)
	assert.Equal(t, busy, report.BestVersionID)

	assert.Equal(t, busy, report.Versions[0].ID)
	require.NotNil(t, report.Versions[0].ATSScore)
	assert.Equal(t, 64, *report.Versions[0].ATSScore)
	require.NotNil(t, report.Versions[0].Performance)
	assert.Len(t, report.Versions[0].Recommendations, 3)

	assert.Equal(t, quiet, report.Versions[1].ID)
	assert.Nil(t, report.Versions[1].Performance)
	assert.Empty(t, report.Versions[1].Recommendations)
	assert.Nil(t, report.Versions[1].ATSScore)
}
