package repository

import (
	"chapter_tracker_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

// ChapterFilter 为空的字段不参与查询
type ChapterFilter struct {
	Subject string
	Class   string
	Unit    string
	Status  model.ChapterStatus
	Weak    *bool
}

type StatusSummary struct {
	Status   model.ChapterStatus `json:"status"`
	Count    int                 `json:"count"`
	Chapters []string            `json:"chapters"`
}

type ChapterRepository struct {
	DB *gorm.DB
}

func NewChapterRepository(db *gorm.DB) *ChapterRepository {
	return &ChapterRepository{DB: db}
}

func (r *ChapterRepository) applyFilter(query *gorm.DB, f ChapterFilter) *gorm.DB {
	if f.Subject != "" {
		query = query.Where("subject = ?", f.Subject)
	}
	if f.Class != "" {
		query = query.Where("class = ?", f.Class)
	}
	if f.Unit != "" {
		query = query.Where("unit = ?", f.Unit)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Weak != nil {
		query = query.Where("is_weak_chapter = ?", *f.Weak)
	}
	return query
}

// List 按创建时间倒序分页，返回当前页数据和匹配总数
func (r *ChapterRepository) List(ctx context.Context, f ChapterFilter, offset, limit int) ([]model.Chapter, int64, error) {
	var chapters []model.Chapter
	var total int64

	query := r.applyFilter(r.DB.WithContext(ctx).Model(&model.Chapter{}), f).Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Chapter{}, 0, nil
	}

	err := query.Order("created_at desc").Order("id desc").Offset(offset).Limit(limit).Find(&chapters).Error
	return chapters, total, err
}

func (r *ChapterRepository) FindByID(ctx context.Context, id string) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&chapter).Error
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// CreateBatch 单事务插入，任一失败全部回滚
func (r *ChapterRepository) CreateBatch(ctx context.Context, chapters []model.Chapter) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&chapters, 100).Error
	})
}

// UpdateWith 在事务中读取-修改-保存
func (r *ChapterRepository) UpdateWith(ctx context.Context, id string, mutate func(*model.Chapter) error) (*model.Chapter, error) {
	var chapter model.Chapter
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&chapter).Error; err != nil {
			return err
		}
		if err := mutate(&chapter); err != nil {
			return err
		}
		return tx.Save(&chapter).Error
	})
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

func (r *ChapterRepository) FindWeak(ctx context.Context, subject, class string) ([]model.Chapter, error) {
	weak := true
	var chapters []model.Chapter
	query := r.applyFilter(r.DB.WithContext(ctx).Model(&model.Chapter{}), ChapterFilter{Subject: subject, Class: class, Weak: &weak})
	err := query.Order("created_at desc").Find(&chapters).Error
	return chapters, err
}

// SummaryByStatus 按状态分组统计章节
func (r *ChapterRepository) SummaryByStatus(ctx context.Context, subject, class string) ([]StatusSummary, error) {
	var rows []struct {
		Status  model.ChapterStatus
		Chapter string
	}
	query := r.applyFilter(r.DB.WithContext(ctx).Model(&model.Chapter{}), ChapterFilter{Subject: subject, Class: class})
	if err := query.Select("status", "chapter").Order("created_at asc").Scan(&rows).Error; err != nil {
		return nil, err
	}

	summaries := []StatusSummary{}
	index := make(map[model.ChapterStatus]int)
	for _, row := range rows {
		i, ok := index[row.Status]
		if !ok {
			i = len(summaries)
			index[row.Status] = i
			summaries = append(summaries, StatusSummary{Status: row.Status, Chapters: []string{}})
		}
		summaries[i].Count++
		summaries[i].Chapters = append(summaries[i].Chapters, row.Chapter)
	}
	return summaries, nil
}
