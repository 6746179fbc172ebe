package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"babelbeam/lang"
	"babelbeam/middleware"
	"babelbeam/models"
	"babelbeam/pipeline"
)

// pageData is the view model of index.html
type pageData struct {
	Sources       []lang.Language
	Targets       []lang.Language
	Source        string
	Target        string
	Input         string
	Words         int
	Chars         int
	AllowFallback bool
	EnableAudio   bool
	Result        *pipeline.Result
	Notices       []pipeline.Notice
	Audio         string // data URI, or a URL served by AudioHandler
	Error         string
}

func newPage(st pipeline.State) pageData {
	page := pageData{
		Sources:     lang.Sources(),
		Targets:     lang.Targets(),
		Source:      st.Source,
		Target:      st.Target,
		EnableAudio: true,
	}
	page.setInput(st.Input)
	return page
}

func (p *pageData) setInput(text string) {
	p.Input = text
	p.Words, p.Chars = pipeline.Count(text)
}

// selected resolves a submitted language, keeping current when nothing was sent.
func selected(submitted, current string) string {
	if submitted == "" {
		return current
	}
	return lang.Resolve(submitted)
}

func (h *Handler) render(c *gin.Context, status int, page pageData) {
	c.HTML(status, "index.html", page)
}

// IndexHandler handles GET /: the page with the session's last result.
func (h *Handler) IndexHandler(c *gin.Context) {
	st := middleware.GetState(c)
	page := newPage(st)
	if res := h.pipeline.Last(st); res != nil {
		page.Result = res
		if h.pipeline.AudioAvailable(res.Lang) {
			page.Audio = "/api/audio"
		} else {
			page.Notices = append(page.Notices, pipeline.Notice{Level: pipeline.LevelInfo, Message: pipeline.MsgAudioUnavailable})
		}
	}
	h.render(c, http.StatusOK, page)
}

// TranslateFormHandler handles POST /translate
func (h *Handler) TranslateFormHandler(c *gin.Context) {
	st := middleware.GetState(c)

	var req models.TranslateRequest
	if err := c.ShouldBind(&req); err != nil {
		page := newPage(st)
		page.Error = "Invalid form submission."
		h.render(c, http.StatusBadRequest, page)
		return
	}

	page := newPage(st)
	page.Source = selected(req.Source, st.Source)
	page.Target = selected(req.Target, st.Target)
	page.AllowFallback = req.AllowFallback
	page.EnableAudio = req.Audio
	page.setInput(req.Text)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	next, res, err := h.pipeline.Run(ctx, st, req.ToPipeline())
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("Translate form failed", zap.Error(err))
		}
		page.Error = msg
		h.render(c, status, page)
		return
	}

	if err := middleware.SaveState(c, next); err != nil {
		status, msg := errorStatus(err)
		h.logger.Error("Failed to save session", zap.Error(err))
		page.Error = msg
		h.render(c, status, page)
		return
	}

	page.Result = res
	page.Notices = res.Notices
	page.Audio = models.AudioDataURI(res.Audio)
	h.render(c, http.StatusOK, page)
}

// SwapFormHandler handles POST /swap. The typed text is kept.
func (h *Handler) SwapFormHandler(c *gin.Context) {
	st := middleware.GetState(c)

	var req models.SwapRequest
	_ = c.ShouldBind(&req)

	next, err := h.pipeline.Swap(st, req.Source, req.Target)
	page := newPage(st)
	if err != nil {
		_, msg := errorStatus(err)
		page.Source = selected(req.Source, st.Source)
		page.Target = selected(req.Target, st.Target)
		page.setInput(req.Text)
		page.Notices = []pipeline.Notice{{Level: pipeline.LevelInfo, Message: msg}}
		h.render(c, http.StatusOK, page)
		return
	}

	next.Input = req.Text
	if err := middleware.SaveState(c, next); err != nil {
		status, msg := errorStatus(err)
		page.Error = msg
		h.render(c, status, page)
		return
	}

	h.render(c, http.StatusOK, newPage(next))
}

// ClearFormHandler handles POST /clear
func (h *Handler) ClearFormHandler(c *gin.Context) {
	if err := middleware.SaveState(c, h.pipeline.Clear(middleware.GetState(c))); err != nil {
		h.logger.Error("Failed to clear session", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/")
}
