package model

import (
	"math"

	"gorm.io/gorm"
)

type ChapterStatus string

const (
	StatusNotStarted  ChapterStatus = "Not Started"
	StatusInProgress  ChapterStatus = "In Progress"
	StatusCompleted   ChapterStatus = "Completed"
	StatusUnderReview ChapterStatus = "Under Review" // 仅能人工设置
)

func (s ChapterStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusUnderReview:
		return true
	}
	return false
}

// YearCounts 年份 -> 题目数量
type YearCounts map[string]int

func (y YearCounts) Total() int {
	total := 0
	for _, n := range y {
		total += n
	}
	return total
}

// swagger:model Chapter
type Chapter struct {
	UUIDBase
	Subject               string        `gorm:"size:100;not null;index;index:idx_subject_class,priority:1" json:"subject"`
	ChapterName           string        `gorm:"column:chapter;size:255;not null" json:"chapter"`
	Class                 string        `gorm:"size:50;not null;index;index:idx_subject_class,priority:2" json:"class"`
	Unit                  string        `gorm:"size:100;not null" json:"unit"`
	YearWiseQuestionCount YearCounts    `gorm:"type:json;serializer:json" json:"yearWiseQuestionCount"`
	QuestionSolved        int           `gorm:"not null;default:0" json:"questionSolved"`
	Status                ChapterStatus `gorm:"size:20;not null;default:'Not Started';index" json:"status"`
	IsWeakChapter         bool          `gorm:"not null;default:false;index" json:"isWeakChapter"`

	// 派生字段，不落库
	TotalQuestions     int `gorm:"-" json:"totalQuestions"`
	ProgressPercentage int `gorm:"-" json:"progressPercentage"`
}

func (Chapter) TableName() string {
	return "chapters"
}

// DeriveStatus 根据已做题数与总题数推导状态，返回状态和截断后的已做题数
func DeriveStatus(solved, total int) (ChapterStatus, int) {
	switch {
	case solved <= 0 || total <= 0:
		return StatusNotStarted, solved
	case solved >= total:
		return StatusCompleted, total
	default:
		return StatusInProgress, solved
	}
}

// ApplyProgressInvariant 每次修改 questionSolved 或 yearWiseQuestionCount 后必须调用
func (c *Chapter) ApplyProgressInvariant() {
	if c.YearWiseQuestionCount == nil {
		c.YearWiseQuestionCount = YearCounts{}
	}
	c.Status, c.QuestionSolved = DeriveStatus(c.QuestionSolved, c.YearWiseQuestionCount.Total())
	c.FillDerived()
}

func (c *Chapter) FillDerived() {
	c.TotalQuestions = c.YearWiseQuestionCount.Total()
	c.ProgressPercentage = ProgressPercentage(c.QuestionSolved, c.TotalQuestions)
}

func ProgressPercentage(solved, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(solved) / float64(total) * 100))
}

func (c *Chapter) AfterFind(tx *gorm.DB) error {
	if c.YearWiseQuestionCount == nil {
		c.YearWiseQuestionCount = YearCounts{}
	}
	c.FillDerived()
	return nil
}
