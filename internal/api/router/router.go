package router

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"cv-parser-go/internal/api/handler"
	"cv-parser-go/internal/llm"
	"cv-parser-go/internal/parser"
	"cv-parser-go/internal/processor"
	"cv-parser-go/internal/storage"
)

// parseTextRequest 文本解析请求体
type parseTextRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

// parseFreeTextRequest 自由文本解析请求体
type parseFreeTextRequest struct {
	FreeText string `json:"free_text"`
	Mode     string `json:"mode"`
}

// statusForError 把业务错误映射到HTTP状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, parser.ErrFileTooLarge):
		return consts.StatusRequestEntityTooLarge
	case errors.Is(err, parser.ErrUnsupportedFileType):
		return consts.StatusBadRequest
	case errors.Is(err, processor.ErrTextTooShort):
		return consts.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrRecordNotFound):
		return consts.StatusNotFound
	case errors.Is(err, llm.ErrRateLimited):
		return consts.StatusTooManyRequests
	case errors.Is(err, handler.ErrInvalidMode):
		return consts.StatusBadRequest
	default:
		return consts.StatusInternalServerError
	}
}

func writeError(ctx *app.RequestContext, err error) {
	ctx.JSON(statusForError(err), utils.H{"error": err.Error()})
}

// RegisterRoutes 注册API路由
func RegisterRoutes(h *server.Hertz, parseHandler *handler.ParseHandler) {
	api := h.Group("/api/v1")

	api.POST("/parse-text", func(c context.Context, ctx *app.RequestContext) {
		var req parseTextRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是有效的JSON"})
			return
		}

		resp, err := parseHandler.HandleParseText(c, req.Text, req.Mode)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusAccepted, resp)
	})

	api.POST("/parse-free-text", func(c context.Context, ctx *app.RequestContext) {
		var req parseFreeTextRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是有效的JSON"})
			return
		}

		resp, err := parseHandler.HandleParseFreeText(c, req.FreeText, req.Mode)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusAccepted, resp)
	})

	api.POST("/parse-file", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}
		mode := ctx.PostForm("mode")

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
			return
		}
		defer file.Close()

		resp, err := parseHandler.HandleParseFile(c, file, fileHeader.Filename, mode)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusAccepted, resp)
	})

	api.GET("/result/:job_id", func(c context.Context, ctx *app.RequestContext) {
		jobID := ctx.Param("job_id")
		if jobID == "" {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "缺少job_id"})
			return
		}

		resp, err := parseHandler.HandleGetResult(c, jobID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/supported-formats", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, parseHandler.HandleSupportedFormats())
	})

	api.GET("/cache-stats", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, parseHandler.HandleCacheStats(c))
	})

	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})
}
