package controller

import (
	"bytes"
	"chapter_tracker_backend/internal/model"
	"chapter_tracker_backend/internal/repository"
	"chapter_tracker_backend/internal/service"
	"chapter_tracker_backend/internal/util"
	"encoding/json"

	"github.com/gin-gonic/gin"
)

type ChapterController struct {
	ChapterService *service.ChapterService
}

func NewChapterController(chapterService *service.ChapterService) *ChapterController {
	return &ChapterController{ChapterService: chapterService}
}

// 读接口返回数据，由缓存中间件负责写响应

// List godoc
// @Summary 章节列表
// @Description 支持按 class/unit/status/subject/weakChapters 过滤并分页，结果会被缓存
// @Tags 章节
// @Produce json
// @Param class query string false "班级"
// @Param unit query string false "单元"
// @Param status query string false "状态"
// @Param subject query string false "科目"
// @Param weakChapters query string false "true/false"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(10)
// @Success 200 {object} util.Response{data=service.ChapterPage}
// @Failure 429 {object} util.Response "请求过于频繁"
// @Router /api/chapters [get]
func (c *ChapterController) List(ctx *gin.Context) (interface{}, error) {
	filter := repository.ChapterFilter{
		Subject: ctx.Query("subject"),
		Class:   ctx.Query("class"),
		Unit:    ctx.Query("unit"),
		Status:  model.ChapterStatus(ctx.Query("status")),
		Weak:    util.ParseOptionalBool(ctx.Query("weakChapters")),
	}
	page := util.PositiveIntOr(ctx.Query("page"), util.DefaultPage)
	limit := util.PositiveIntOr(ctx.Query("limit"), util.DefaultLimit)

	return c.ChapterService.List(ctx.Request.Context(), filter, page, limit)
}

// GetByID godoc
// @Summary 章节详情
// @Tags 章节
// @Produce json
// @Param id path string true "章节ID"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Failure 400 {object} util.Response "ID 格式错误"
// @Failure 404 {object} util.Response "章节不存在"
// @Router /api/chapters/{id} [get]
func (c *ChapterController) GetByID(ctx *gin.Context) (interface{}, error) {
	return c.ChapterService.GetByID(ctx.Request.Context(), ctx.Param("id"))
}

// Weak godoc
// @Summary 薄弱章节
// @Tags 章节
// @Produce json
// @Param subject query string false "科目"
// @Param class query string false "班级"
// @Success 200 {object} util.Response{data=[]model.Chapter}
// @Router /api/chapters/weak [get]
func (c *ChapterController) Weak(ctx *gin.Context) (interface{}, error) {
	chapters, err := c.ChapterService.WeakChapters(ctx.Request.Context(), ctx.Query("subject"), ctx.Query("class"))
	if err != nil {
		return nil, err
	}
	return gin.H{"chapters": chapters, "count": len(chapters)}, nil
}

// Summary godoc
// @Summary 按状态统计进度
// @Tags 章节
// @Produce json
// @Param subject query string false "科目"
// @Param class query string false "班级"
// @Success 200 {object} util.Response{data=[]repository.StatusSummary}
// @Router /api/chapters/summary [get]
func (c *ChapterController) Summary(ctx *gin.Context) (interface{}, error) {
	return c.ChapterService.ProgressSummary(ctx.Request.Context(), ctx.Query("subject"), ctx.Query("class"))
}

// Create godoc
// @Summary 批量创建章节
// @Description 请求体可以是单个章节对象或数组，任一章节校验失败整批拒绝
// @Tags 章节
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body []service.ChapterInput true "章节数据"
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未登录"
// @Router /api/chapters [post]
func (c *ChapterController) Create(ctx *gin.Context) {
	inputs, err := decodeChapterInputs(ctx)
	if err != nil {
		util.BadRequest(ctx, "Invalid request body: "+err.Error())
		return
	}

	chapters, err := c.ChapterService.CreateBatch(ctx.Request.Context(), inputs)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, "Chapters created successfully", gin.H{
		"chapters": chapters,
		"count":    len(chapters),
	})
}

// decodeChapterInputs 根据首个非空白字符判断是数组还是单个对象
func decodeChapterInputs(ctx *gin.Context) ([]service.ChapterInput, error) {
	raw, err := ctx.GetRawData()
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)

	if len(raw) > 0 && raw[0] == '[' {
		var inputs []service.ChapterInput
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, err
		}
		return inputs, nil
	}

	var input service.ChapterInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, err
	}
	return []service.ChapterInput{input}, nil
}

type progressRequest struct {
	QuestionSolved *int `json:"questionSolved"`
}

// UpdateProgress godoc
// @Summary 更新已做题数
// @Tags 章节
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "章节ID"
// @Param body body progressRequest true "已做题数"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Router /api/chapters/{id}/progress [patch]
func (c *ChapterController) UpdateProgress(ctx *gin.Context) {
	var req progressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.QuestionSolved == nil {
		util.BadRequest(ctx, "questionSolved is required")
		return
	}

	chapter, err := c.ChapterService.UpdateProgress(ctx.Request.Context(), ctx.Param("id"), *req.QuestionSolved)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, chapter)
}

type yearCountRequest struct {
	Count *int `json:"count"`
}

// SetYearCount godoc
// @Summary 设置某一年的题目数量
// @Tags 章节
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "章节ID"
// @Param year path string true "年份"
// @Param body body yearCountRequest true "题目数量"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Router /api/chapters/{id}/years/{year} [put]
func (c *ChapterController) SetYearCount(ctx *gin.Context) {
	var req yearCountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Count == nil {
		util.BadRequest(ctx, "count is required")
		return
	}

	chapter, err := c.ChapterService.SetYearQuestionCount(ctx.Request.Context(), ctx.Param("id"), ctx.Param("year"), *req.Count)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, chapter)
}

type statusRequest struct {
	Status model.ChapterStatus `json:"status" binding:"required"`
}

// SetStatus godoc
// @Summary 手动设置章节状态
// @Tags 章节
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "章节ID"
// @Param body body statusRequest true "状态"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Router /api/chapters/{id}/status [patch]
func (c *ChapterController) SetStatus(ctx *gin.Context) {
	var req statusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "status is required")
		return
	}

	chapter, err := c.ChapterService.SetStatus(ctx.Request.Context(), ctx.Param("id"), req.Status)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, chapter)
}
