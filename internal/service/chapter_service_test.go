package service_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"chapter_tracker_backend/internal/model"
	"chapter_tracker_backend/internal/repository"
	"chapter_tracker_backend/internal/service"
	"chapter_tracker_backend/internal/testutil"
	"chapter_tracker_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type recordingInvalidator struct {
	prefixes []string
}

func (r *recordingInvalidator) InvalidatePrefix(_ context.Context, prefix string) int {
	r.prefixes = append(r.prefixes, prefix)
	return 0
}

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func input(subject, name string) service.ChapterInput {
	return service.ChapterInput{Subject: subject, ChapterName: name, Class: "Class 11", Unit: "Unit 1"}
}

type ChapterServiceSuite struct {
	suite.Suite
	svc   *service.ChapterService
	cache *recordingInvalidator
	ctx   context.Context
}

func (s *ChapterServiceSuite) SetupTest() {
	s.cache = &recordingInvalidator{}
	s.svc = service.NewChapterService(repository.NewChapterRepository(testutil.NewTestDB(s.T())), s.cache)
	s.ctx = context.Background()
}

func (s *ChapterServiceSuite) create(inputs ...service.ChapterInput) []model.Chapter {
	created, err := s.svc.CreateBatch(s.ctx, inputs)
	s.Require().NoError(err)
	return created
}

func (s *ChapterServiceSuite) TestCreateBatchAppliesDefaultsAndInvalidates() {
	created := s.create(input("Physics", "Kinematics"))
	s.Require().Len(created, 1)

	c := created[0]
	s.Assert().True(model.IsValidID(c.ID))
	s.Assert().Equal(0, c.QuestionSolved)
	s.Assert().Equal(model.StatusNotStarted, c.Status)
	s.Assert().False(c.IsWeakChapter)
	s.Assert().Equal(model.YearCounts{}, c.YearWiseQuestionCount)
	s.Assert().Equal([]string{util.ChapterCachePrefix}, s.cache.prefixes)
}

func (s *ChapterServiceSuite) TestCreateBatchEnforcesInvariant() {
	in := input("Physics", "Optics")
	in.YearWiseQuestionCount = map[string]int{"2022": 4, "2023": 6}
	in.QuestionSolved = intPtr(25)
	in.IsWeakChapter = boolPtr(true)

	c := s.create(in)[0]
	s.Assert().Equal(model.StatusCompleted, c.Status)
	s.Assert().Equal(10, c.QuestionSolved)
	s.Assert().Equal(100, c.ProgressPercentage)
	s.Assert().True(c.IsWeakChapter)

	stored, err := s.svc.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Assert().Equal(model.StatusCompleted, stored.Status)
	s.Assert().Equal(10, stored.QuestionSolved)
}

func (s *ChapterServiceSuite) TestCreateBatchIsAllOrNothing() {
	bad := input("Physics", "")
	_, err := s.svc.CreateBatch(s.ctx, []service.ChapterInput{input("Physics", "Waves"), bad})

	var appErr *util.AppError
	s.Require().True(errors.As(err, &appErr))
	s.Assert().Equal(util.ErrCodeValidation, appErr.Code)
	s.Assert().Contains(appErr.Message, "chapter")

	page, err := s.svc.List(s.ctx, repository.ChapterFilter{}, 1, 10)
	s.Require().NoError(err)
	s.Assert().Equal(int64(0), page.Pagination.TotalChapters)
	s.Assert().Empty(s.cache.prefixes)
}

func (s *ChapterServiceSuite) TestCreateBatchRejectsNegativeCounts() {
	in := input("Physics", "Waves")
	in.YearWiseQuestionCount = map[string]int{"2020": -1}
	_, err := s.svc.CreateBatch(s.ctx, []service.ChapterInput{in})
	s.Assert().Error(err)

	in = input("Physics", "Waves")
	in.QuestionSolved = intPtr(-3)
	_, err = s.svc.CreateBatch(s.ctx, []service.ChapterInput{in})
	s.Assert().Error(err)

	_, err = s.svc.CreateBatch(s.ctx, nil)
	s.Assert().Error(err)
}

func (s *ChapterServiceSuite) TestListPagination() {
	var inputs []service.ChapterInput
	for i := 0; i < 25; i++ {
		inputs = append(inputs, input("Maths", fmt.Sprintf("Chapter %d", i)))
	}
	s.create(inputs...)

	page, err := s.svc.List(s.ctx, repository.ChapterFilter{}, 1, 10)
	s.Require().NoError(err)
	s.Assert().Len(page.Chapters, 10)
	s.Assert().Equal(service.Pagination{
		CurrentPage:   1,
		TotalPages:    3,
		TotalChapters: 25,
		HasNextPage:   true,
		HasPrevPage:   false,
		Limit:         10,
	}, page.Pagination)

	last, err := s.svc.List(s.ctx, repository.ChapterFilter{}, 3, 10)
	s.Require().NoError(err)
	s.Assert().Len(last.Chapters, 5)
	s.Assert().False(last.Pagination.HasNextPage)
	s.Assert().True(last.Pagination.HasPrevPage)

	capped, err := s.svc.List(s.ctx, repository.ChapterFilter{}, 1, 5000)
	s.Require().NoError(err)
	s.Assert().Equal(util.MaxLimit, capped.Pagination.Limit)
	s.Assert().Len(capped.Chapters, 25)

	huge, err := s.svc.List(s.ctx, repository.ChapterFilter{}, math.MaxInt, math.MaxInt)
	s.Require().NoError(err)
	s.Assert().Empty(huge.Chapters)
	s.Assert().Equal(util.MaxLimit, huge.Pagination.Limit)
	s.Assert().Equal(math.MaxInt32/util.MaxLimit+1, huge.Pagination.CurrentPage)
	s.Assert().False(huge.Pagination.HasNextPage)

	defaults, err := s.svc.List(s.ctx, repository.ChapterFilter{}, 0, -5)
	s.Require().NoError(err)
	s.Assert().Equal(1, defaults.Pagination.CurrentPage)
	s.Assert().Equal(10, defaults.Pagination.Limit)
}

func (s *ChapterServiceSuite) TestGetByIDErrors() {
	_, err := s.svc.GetByID(s.ctx, "12345")
	s.Assert().ErrorIs(err, util.ErrInvalidChapterID)

	_, err = s.svc.GetByID(s.ctx, "5b0f3c9e-8f4e-4a8e-9a55-0e6c2c1d7f10")
	s.Assert().ErrorIs(err, util.ErrChapterNotFound)
}

func (s *ChapterServiceSuite) TestUpdateProgressTransitions() {
	in := input("Chemistry", "Atoms")
	in.YearWiseQuestionCount = map[string]int{"2023": 10}
	c := s.create(in)[0]
	s.cache.prefixes = nil

	steps := []struct {
		solved     int
		wantStatus model.ChapterStatus
		wantSolved int
	}{
		{4, model.StatusInProgress, 4},
		{10, model.StatusCompleted, 10},
		{13, model.StatusCompleted, 10},
		{0, model.StatusNotStarted, 0},
	}
	for _, step := range steps {
		updated, err := s.svc.UpdateProgress(s.ctx, c.ID, step.solved)
		s.Require().NoError(err)
		s.Assert().Equal(step.wantStatus, updated.Status)
		s.Assert().Equal(step.wantSolved, updated.QuestionSolved)

		stored, err := s.svc.GetByID(s.ctx, c.ID)
		s.Require().NoError(err)
		status, _ := model.DeriveStatus(stored.QuestionSolved, stored.TotalQuestions)
		s.Assert().Equal(status, stored.Status)
	}
	s.Assert().Len(s.cache.prefixes, len(steps))

	_, err := s.svc.UpdateProgress(s.ctx, c.ID, -1)
	s.Assert().Error(err)
	_, err = s.svc.UpdateProgress(s.ctx, "5b0f3c9e-8f4e-4a8e-9a55-0e6c2c1d7f10", 1)
	s.Assert().ErrorIs(err, util.ErrChapterNotFound)
}

func (s *ChapterServiceSuite) TestSetYearQuestionCountRecomputes() {
	in := input("Chemistry", "Bonding")
	in.YearWiseQuestionCount = map[string]int{"2022": 2}
	in.QuestionSolved = intPtr(2)
	c := s.create(in)[0]
	s.Require().Equal(model.StatusCompleted, c.Status)

	updated, err := s.svc.SetYearQuestionCount(s.ctx, c.ID, "2023", 6)
	s.Require().NoError(err)
	s.Assert().Equal(model.StatusInProgress, updated.Status)
	s.Assert().Equal(8, updated.TotalQuestions)
	s.Assert().Equal(25, updated.ProgressPercentage)

	updated, err = s.svc.SetYearQuestionCount(s.ctx, c.ID, "2022", 0)
	s.Require().NoError(err)
	s.Assert().Equal(model.StatusInProgress, updated.Status)
	s.Assert().Equal(6, updated.TotalQuestions)

	_, err = s.svc.SetYearQuestionCount(s.ctx, c.ID, " ", 3)
	s.Assert().Error(err)
	_, err = s.svc.SetYearQuestionCount(s.ctx, c.ID, "2024", -2)
	s.Assert().Error(err)
}

func (s *ChapterServiceSuite) TestSetStatusManualOverride() {
	c := s.create(input("Biology", "Cells"))[0]

	updated, err := s.svc.SetStatus(s.ctx, c.ID, model.StatusUnderReview)
	s.Require().NoError(err)
	s.Assert().Equal(model.StatusUnderReview, updated.Status)

	stored, err := s.svc.GetByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Assert().Equal(model.StatusUnderReview, stored.Status)

	_, err = s.svc.SetStatus(s.ctx, c.ID, "Finished")
	s.Assert().Error(err)
	_, err = s.svc.SetStatus(s.ctx, "bad-id", model.StatusCompleted)
	s.Assert().ErrorIs(err, util.ErrInvalidChapterID)
}

func (s *ChapterServiceSuite) TestWeakChaptersAndSummary() {
	weak := input("Physics", "Waves")
	weak.IsWeakChapter = boolPtr(true)
	s.create(weak, input("Physics", "Heat"))

	chapters, err := s.svc.WeakChapters(s.ctx, "Physics", "")
	s.Require().NoError(err)
	s.Require().Len(chapters, 1)
	s.Assert().Equal("Waves", chapters[0].ChapterName)

	summary, err := s.svc.ProgressSummary(s.ctx, "Physics", "")
	s.Require().NoError(err)
	s.Require().Len(summary, 1)
	s.Assert().Equal(model.StatusNotStarted, summary[0].Status)
	s.Assert().Equal(2, summary[0].Count)
}

func TestChapterServiceSuite(t *testing.T) {
	suite.Run(t, new(ChapterServiceSuite))
}

func TestNewPagination(t *testing.T) {
	p := service.NewPagination(1, 10, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNextPage)

	p = service.NewPagination(2, 10, 20)
	require.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)
}
