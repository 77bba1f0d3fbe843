package service

import (
	"chapter_tracker_backend/internal/model"
	"chapter_tracker_backend/internal/repository"
	"chapter_tracker_backend/internal/util"
	"chapter_tracker_backend/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// CacheInvalidator 章节写入成功后清理列表缓存
type CacheInvalidator interface {
	InvalidatePrefix(ctx context.Context, prefix string) int
}

// ChapterInput 创建章节的请求体，单个对象或数组均可
type ChapterInput struct {
	Subject               string         `json:"subject"`
	ChapterName           string         `json:"chapter"`
	Class                 string         `json:"class"`
	Unit                  string         `json:"unit"`
	YearWiseQuestionCount map[string]int `json:"yearWiseQuestionCount"`
	QuestionSolved        *int           `json:"questionSolved"`
	IsWeakChapter         *bool          `json:"isWeakChapter"`
}

// Validate 返回第一个不合法字段的错误
func (in *ChapterInput) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"subject", in.Subject},
		{"chapter", in.ChapterName},
		{"class", in.Class},
		{"unit", in.Unit},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return util.NewValidationError(r.field, "is required")
		}
	}
	for year, count := range in.YearWiseQuestionCount {
		if strings.TrimSpace(year) == "" {
			return util.NewValidationError("yearWiseQuestionCount", "year label cannot be empty")
		}
		if count < 0 {
			return util.NewValidationError("yearWiseQuestionCount."+year, "must be non-negative")
		}
	}
	if in.QuestionSolved != nil && *in.QuestionSolved < 0 {
		return util.NewValidationError("questionSolved", "must be non-negative")
	}
	return nil
}

func (in *ChapterInput) toModel() model.Chapter {
	c := model.Chapter{
		Subject:               strings.TrimSpace(in.Subject),
		ChapterName:           strings.TrimSpace(in.ChapterName),
		Class:                 strings.TrimSpace(in.Class),
		Unit:                  strings.TrimSpace(in.Unit),
		YearWiseQuestionCount: model.YearCounts{},
	}
	for year, count := range in.YearWiseQuestionCount {
		c.YearWiseQuestionCount[strings.TrimSpace(year)] = count
	}
	if in.QuestionSolved != nil {
		c.QuestionSolved = *in.QuestionSolved
	}
	if in.IsWeakChapter != nil {
		c.IsWeakChapter = *in.IsWeakChapter
	}
	c.ApplyProgressInvariant()
	return c
}

type Pagination struct {
	CurrentPage   int   `json:"currentPage"`
	TotalPages    int   `json:"totalPages"`
	TotalChapters int64 `json:"totalChapters"`
	HasNextPage   bool  `json:"hasNextPage"`
	HasPrevPage   bool  `json:"hasPrevPage"`
	Limit         int   `json:"limit"`
}

type ChapterPage struct {
	Chapters   []model.Chapter `json:"chapters"`
	Pagination Pagination      `json:"pagination"`
}

func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{
		CurrentPage:   page,
		TotalPages:    totalPages,
		TotalChapters: total,
		HasNextPage:   page < totalPages,
		HasPrevPage:   page > 1,
		Limit:         limit,
	}
}

type ChapterService struct {
	Repo  *repository.ChapterRepository
	Cache CacheInvalidator
}

func NewChapterService(repo *repository.ChapterRepository, cache CacheInvalidator) *ChapterService {
	return &ChapterService{Repo: repo, Cache: cache}
}

func (s *ChapterService) List(ctx context.Context, filter repository.ChapterFilter, page, limit int) (*ChapterPage, error) {
	if page <= 0 {
		page = util.DefaultPage
	}
	if limit <= 0 {
		limit = util.DefaultLimit
	}
	if limit > util.MaxLimit {
		limit = util.MaxLimit
	}
	// 保证 offset 不溢出
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}

	chapters, total, err := s.Repo.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	return &ChapterPage{
		Chapters:   chapters,
		Pagination: NewPagination(page, limit, total),
	}, nil
}

func (s *ChapterService) GetByID(ctx context.Context, id string) (*model.Chapter, error) {
	if !model.IsValidID(id) {
		return nil, util.ErrInvalidChapterID
	}
	chapter, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapChapterErr(err)
	}
	return chapter, nil
}

// CreateBatch 全部校验通过后才写入，任一失败整批拒绝
func (s *ChapterService) CreateBatch(ctx context.Context, inputs []ChapterInput) ([]model.Chapter, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ChapterService.CreateBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("chapters.count", len(inputs)))

	if len(inputs) == 0 {
		return nil, util.NewBadRequestError("At least one chapter is required")
	}
	chapters := make([]model.Chapter, 0, len(inputs))
	for i := range inputs {
		if err := inputs[i].Validate(); err != nil {
			return nil, err
		}
		chapters = append(chapters, inputs[i].toModel())
	}

	if err := s.Repo.CreateBatch(ctx, chapters); err != nil {
		return nil, fmt.Errorf("create chapters: %w", err)
	}
	s.Cache.InvalidatePrefix(ctx, util.ChapterCachePrefix)
	return chapters, nil
}

// UpdateProgress 更新已做题数并重新推导状态
func (s *ChapterService) UpdateProgress(ctx context.Context, id string, solved int) (*model.Chapter, error) {
	if solved < 0 {
		return nil, util.NewValidationError("questionSolved", "must be non-negative")
	}
	return s.update(ctx, "ChapterService.UpdateProgress", id, func(c *model.Chapter) error {
		c.QuestionSolved = solved
		c.ApplyProgressInvariant()
		return nil
	})
}

// SetYearQuestionCount 设置某一年的题目数量并重新推导状态
func (s *ChapterService) SetYearQuestionCount(ctx context.Context, id, year string, count int) (*model.Chapter, error) {
	year = strings.TrimSpace(year)
	if year == "" {
		return nil, util.NewValidationError("year", "is required")
	}
	if count < 0 {
		return nil, util.NewValidationError("count", "must be non-negative")
	}
	return s.update(ctx, "ChapterService.SetYearQuestionCount", id, func(c *model.Chapter) error {
		if c.YearWiseQuestionCount == nil {
			c.YearWiseQuestionCount = model.YearCounts{}
		}
		c.YearWiseQuestionCount[year] = count
		c.ApplyProgressInvariant()
		return nil
	})
}

// SetStatus 人工设置状态（如 Under Review），不经过进度推导
func (s *ChapterService) SetStatus(ctx context.Context, id string, status model.ChapterStatus) (*model.Chapter, error) {
	if !status.Valid() {
		return nil, util.NewValidationError("status", "must be one of Not Started, In Progress, Completed, Under Review")
	}
	return s.update(ctx, "ChapterService.SetStatus", id, func(c *model.Chapter) error {
		c.Status = status
		return nil
	})
}

func (s *ChapterService) update(ctx context.Context, spanName, id string, mutate func(*model.Chapter) error) (*model.Chapter, error) {
	ctx, span := tracing.Tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("chapter.id", id))

	if !model.IsValidID(id) {
		return nil, util.ErrInvalidChapterID
	}
	chapter, err := s.Repo.UpdateWith(ctx, id, mutate)
	if err != nil {
		return nil, mapChapterErr(err)
	}
	s.Cache.InvalidatePrefix(ctx, util.ChapterCachePrefix)
	return chapter, nil
}

func (s *ChapterService) WeakChapters(ctx context.Context, subject, class string) ([]model.Chapter, error) {
	chapters, err := s.Repo.FindWeak(ctx, subject, class)
	if err != nil {
		return nil, fmt.Errorf("find weak chapters: %w", err)
	}
	return chapters, nil
}

func (s *ChapterService) ProgressSummary(ctx context.Context, subject, class string) ([]repository.StatusSummary, error) {
	summary, err := s.Repo.SummaryByStatus(ctx, subject, class)
	if err != nil {
		return nil, fmt.Errorf("summarize chapters: %w", err)
	}
	return summary, nil
}

func mapChapterErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrChapterNotFound
	}
	var appErr *util.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("chapter store: %w", err)
}
