package versions

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/resume-analyzer/internal/types"
	"github.com/jonathan/resume-analyzer/internal/versions/versionstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService() (*Service, *versionstest.Store, *fakeClock) {
	store := versionstest.New()
	clock := &fakeClock{t: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)}
	return NewService(store, WithClock(clock.Now)), store, clock
}

func sampleRecord(name string) *types.ResumeRecord {
	r := types.NewEmptyRecord()
	r.PersonalInfo.FullName = name
	r.PersonalInfo.Email = "ada@example.com"
	r.WorkExperience = []types.WorkExperience{{JobTitle: "Engineer", Company: "Acme"}}
	r.TechnicalSkills.ProgrammingLanguages = []string{"Go", "Python"}
	r.Normalize()
	return r
}

func TestCreate_IDFormatAndDefaults(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	id, err := svc.Create(ctx, CreateInput{
		Content:        sampleRecord("Ada"),
		TargetCompany:  "Acme",
		TargetPosition: "Backend Engineer",
		JobDescription: "Go and Postgres",
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^v_20240305_140709_[0-9a-f]{8}$`), id)

	v := store.Versions[id]
	require.NotNil(t, v)
	assert.Equal(t, "Acme_Backend Engineer", v.Name)
	assert.Equal(t, HashJobDescription("Go and Postgres"), v.JDHash)
	assert.Len(t, v.JDHash, 64)
	assert.False(t, v.IsActive)
	assert.Nil(t, v.Score)
	assert.Nil(t, v.ParentID)
}

func TestCreate_DeterministicRandom(t *testing.T) {
	store := versionstest.New()
	clock := &fakeClock{t: time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)}
	svc := NewService(store, WithClock(clock.Now), WithRandom(bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef})))

	id, err := svc.Create(context.Background(), CreateInput{Name: "mine", Content: sampleRecord("Ada")})
	require.NoError(t, err)
	assert.Equal(t, "v_20240305_140709_deadbeef", id)
	assert.Equal(t, "", store.Versions[id].JDHash)
}

func TestCreate_IDsAreDistinctWithinOneSecond(t *testing.T) {
	svc, _, _ := newTestService()
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		id, err := svc.Create(context.Background(), CreateInput{Name: "n", Content: sampleRecord("Ada")})
		require.NoError(t, err)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "x"})
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "content", inputErr.Field)

	missing := "v_missing"
	_, err = svc.Create(ctx, CreateInput{Content: sampleRecord("Ada"), ParentID: &missing})
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestCreate_ContentIsCopied(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	record := sampleRecord("Ada")

	id, err := svc.Create(ctx, CreateInput{Name: "x", Content: record})
	require.NoError(t, err)
	record.PersonalInfo.FullName = "Changed"

	v, err := svc.Get(ctx, id)
	require.NoError(t, err)
	stored, err := DecodeContent(v)
	require.NoError(t, err)
	assert.Equal(t, "Ada", stored.PersonalInfo.FullName)
}

func TestUpdateArchiveDelete_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	name := "renamed"

	assert.ErrorIs(t, svc.Update(ctx, "v_missing", UpdateInput{Name: &name}), ErrVersionNotFound)
	assert.ErrorIs(t, svc.Archive(ctx, "v_missing"), ErrVersionNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "v_missing"), ErrVersionNotFound)

	v, err := svc.Get(ctx, "v_missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestUpdate_ChangesFields(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	id, err := svc.Create(ctx, CreateInput{Name: "x", Content: sampleRecord("Ada")})
	require.NoError(t, err)

	empty := ""
	var inputErr *InputError
	assert.ErrorAs(t, svc.Update(ctx, id, UpdateInput{Name: &empty}), &inputErr)

	name, notes := "tailored", "for Acme"
	require.NoError(t, svc.Update(ctx, id, UpdateInput{
		Name:    &name,
		Notes:   &notes,
		Content: sampleRecord("Ada Lovelace"),
		Score:   &types.ScoreReport{OverallScore: 81},
	}))

	v := store.Versions[id]
	assert.Equal(t, "tailored", v.Name)
	assert.Equal(t, "for Acme", v.Notes)
	assert.JSONEq(t, `81`, string(mustField(t, v.Score, "overall_score")))
	record, err := DecodeContent(v)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", record.PersonalInfo.FullName)
}

func TestSetActive_OnePerScope(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	a, _ := svc.Create(ctx, CreateInput{Owner: &owner, Name: "a", Content: sampleRecord("Ada")})
	b, _ := svc.Create(ctx, CreateInput{Owner: &owner, Name: "b", Content: sampleRecord("Ada")})
	guest, _ := svc.Create(ctx, CreateInput{Name: "guest", Content: sampleRecord("Ada")})

	require.NoError(t, svc.SetActive(ctx, nil, guest))
	require.NoError(t, svc.SetActive(ctx, &owner, a))
	require.NoError(t, svc.SetActive(ctx, &owner, b))

	active, err := svc.Active(ctx, &owner)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, b, active.ID)

	guestActive, err := svc.Active(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, guestActive)
	assert.Equal(t, guest, guestActive.ID)

	assert.ErrorIs(t, svc.SetActive(ctx, &other, a), ErrForbidden)
	assert.ErrorIs(t, svc.SetActive(ctx, nil, a), ErrForbidden)
	assert.ErrorIs(t, svc.SetActive(ctx, &owner, "v_missing"), ErrVersionNotFound)

	require.NoError(t, svc.Archive(ctx, b))
	assert.ErrorIs(t, svc.SetActive(ctx, &owner, b), ErrVersionNotFound)
	active, err = svc.Active(ctx, &owner)
	require.NoError(t, err)
	assert.Nil(t, active, "archiving clears the active flag")
}

func TestList_ScopesAndOrder(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	first, _ := svc.Create(ctx, CreateInput{Owner: &owner, Name: "first", Content: sampleRecord("Ada")})
	clock.Advance(time.Minute)
	guest, _ := svc.Create(ctx, CreateInput{Name: "guest", Content: sampleRecord("Ada")})
	clock.Advance(time.Minute)
	other := uuid.New()
	_, _ = svc.Create(ctx, CreateInput{Owner: &other, Name: "other", Content: sampleRecord("Ada")})
	clock.Advance(time.Minute)
	archived, _ := svc.Create(ctx, CreateInput{Owner: &owner, Name: "archived", Content: sampleRecord("Ada")})
	require.NoError(t, svc.Archive(ctx, archived))

	list, err := svc.List(ctx, &owner, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{guest, first}, ids(list))

	list, err = svc.List(ctx, &owner, ListOptions{IncludeArchived: true})
	require.NoError(t, err)
	assert.Equal(t, []string{archived, guest, first}, ids(list))

	list, err = svc.List(ctx, nil, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{guest}, ids(list))
}

func TestDelete_RemovesComparisons(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, CreateInput{Name: "a", Content: sampleRecord("Ada")})
	b, _ := svc.Create(ctx, CreateInput{Name: "b", Content: sampleRecord("Grace")})

	_, err := svc.Compare(ctx, a, b)
	require.NoError(t, err)
	require.Len(t, store.Comparisons, 1)

	require.NoError(t, svc.Delete(ctx, a))
	assert.Empty(t, store.Comparisons)
	v, err := svc.Get(ctx, a)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClaimGuestVersions(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()
	guest, _ := svc.Create(ctx, CreateInput{Name: "guest", Content: sampleRecord("Ada")})

	n, err := svc.ClaimGuestVersions(ctx, owner, []string{guest, "v_missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := svc.Get(ctx, guest)
	require.NoError(t, err)
	assert.True(t, Visible(v, &owner))
	assert.False(t, Visible(v, nil))
}

func TestCleanupComparisons(t *testing.T) {
	svc, store, clock := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, CreateInput{Name: "a", Content: sampleRecord("Ada")})
	b, _ := svc.Create(ctx, CreateInput{Name: "b", Content: sampleRecord("Grace")})

	_, err := svc.Compare(ctx, a, b)
	require.NoError(t, err)

	clock.Advance(6 * 24 * time.Hour)
	n, err := svc.CleanupComparisons(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(2 * 24 * time.Hour)
	n, err = svc.CleanupComparisons(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, store.Comparisons)
}

func TestNotFoundMapping(t *testing.T) {
	assert.Nil(t, notFound(nil))
	boom := errors.New("boom")
	assert.Equal(t, boom, notFound(boom))
}
