package handlers

import (
	"context"
	"embed"
	stderrors "errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"babelbeam/lang"
	"babelbeam/middleware"
	"babelbeam/models"
	"babelbeam/pipeline"
	apperrors "babelbeam/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultRequestTimeout = 90 * time.Second

// Handler serves the translator page and its JSON API.
type Handler struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
	timeout  time.Duration
}

// NewHandler creates the handler. timeout bounds one translate or audio request.
func NewHandler(p *pipeline.Pipeline, logger *zap.Logger, timeout time.Duration) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Handler{pipeline: p, logger: logger, timeout: timeout}
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"audioURL": func(s string) template.URL { return template.URL(s) },
	}).ParseFS(templateFS, "templates/*.html")
}

// Register installs the templates and every route on r. The session
// middleware must already be in r's chain.
func (h *Handler) Register(r *gin.Engine) error {
	tmpl, err := Templates()
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/", h.IndexHandler)
	r.POST("/translate", h.TranslateFormHandler)
	r.POST("/swap", h.SwapFormHandler)
	r.POST("/clear", h.ClearFormHandler)

	api := r.Group("/api")
	{
		api.POST("/translate", h.TranslateHandler)
		api.POST("/swap", h.SwapHandler)
		api.POST("/clear", h.ClearHandler)
		api.DELETE("/session", h.EndSessionHandler)
		api.GET("/result", h.ResultHandler)
		api.GET("/audio", h.AudioHandler)
		api.GET("/languages", h.LanguagesHandler)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return nil
}

// TranslateHandler handles POST /api/translate
func (h *Handler) TranslateHandler(c *gin.Context) {
	var req models.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	next, res, err := h.pipeline.Run(ctx, middleware.GetState(c), req.ToPipeline())
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := middleware.SaveState(c, next); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewTranslateResponse(res))
}

// SwapHandler handles POST /api/swap. An empty body swaps the stored selection.
func (h *Handler) SwapHandler(c *gin.Context) {
	var req models.SwapRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	next, err := h.pipeline.Swap(middleware.GetState(c), req.Source, req.Target)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := middleware.SaveState(c, next); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SelectionResponse{Source: next.Source, Target: next.Target})
}

// ClearHandler handles POST /api/clear
func (h *Handler) ClearHandler(c *gin.Context) {
	if err := middleware.SaveState(c, h.pipeline.Clear(middleware.GetState(c))); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// EndSessionHandler handles DELETE /api/session: forgets the selection, the
// input and the last result.
func (h *Handler) EndSessionHandler(c *gin.Context) {
	if err := middleware.EndSession(c); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

// ResultHandler handles GET /api/result
func (h *Handler) ResultHandler(c *gin.Context) {
	st := middleware.GetState(c)
	resp := models.SessionResponse{
		Source: st.Source,
		Target: st.Target,
		Input:  st.Input,
		Result: h.pipeline.Last(st),
	}
	if !st.UpdatedAt.IsZero() {
		resp.UpdatedAt = st.UpdatedAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// AudioHandler handles GET /api/audio: speech for the last translation.
func (h *Handler) AudioHandler(c *gin.Context) {
	st := middleware.GetState(c)
	if !st.HasResult() {
		c.JSON(http.StatusNotFound, gin.H{"error": pipeline.MsgNothingToSpeak})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	audio, err := h.pipeline.Audio(ctx, st)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "audio/mpeg", audio)
}

// LanguagesHandler handles GET /api/languages
func (h *Handler) LanguagesHandler(c *gin.Context) {
	languages := make([]models.LanguageInfo, 0, len(lang.Languages))
	for _, l := range lang.Languages {
		languages = append(languages, models.LanguageInfo{
			Name:      l.Name,
			Code:      l.Code,
			Direction: lang.Direction(l.Code),
			Source:    true,
			Target:    l.Code != lang.Auto,
		})
	}
	c.JSON(http.StatusOK, gin.H{"languages": languages})
}

// fail writes err as a JSON error response.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

// errorStatus maps an error to the HTTP status and the message shown to the user.
func errorStatus(err error) (int, string) {
	var (
		vErr   *apperrors.ValidationError
		tErr   *apperrors.TranslationError
		sErr   *apperrors.SynthesisError
		sesErr *apperrors.SessionError
	)
	switch {
	case stderrors.As(err, &vErr):
		return vErr.StatusCode, vErr.Message
	case stderrors.As(err, &tErr):
		if stderrors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "Translation timed out. Please try again."
		}
		return tErr.StatusCode, tErr.Message
	case stderrors.As(err, &sErr):
		if sErr.Unsupported {
			return sErr.StatusCode, sErr.Message
		}
		return sErr.StatusCode, pipeline.MsgAudioFailed + causeMessage(sErr.AppError)
	case stderrors.As(err, &sesErr):
		return sesErr.StatusCode, "Session storage is unavailable. Please try again."
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func causeMessage(err *apperrors.AppError) string {
	if err.Cause != nil {
		return err.Cause.Error()
	}
	return err.Message
}
