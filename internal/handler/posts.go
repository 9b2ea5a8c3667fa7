package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/posts"
)

// CreatePost accepts either a JSON body or a multipart form with an optional
// image file. Every post needs a title, a description and at least one image
// source (uploaded file or external URL).
func (h *Handler) CreatePost(c *gin.Context) {
	var in posts.Input

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		in.Title = strings.TrimSpace(c.PostForm("title"))
		in.SubTitle = strings.TrimSpace(c.PostForm("subTitle"))
		in.Description = strings.TrimSpace(c.PostForm("description"))
		if in.Description == "" {
			in.Description = strings.TrimSpace(c.PostForm("content"))
		}
		in.ImageURL = strings.TrimSpace(c.PostForm("imageUrl"))

		if fh, err := c.FormFile("image"); err == nil && fh != nil {
			rel, err := h.uploads.SaveImage(fh)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			in.ImagePath = rel
		}
	} else {
		var body struct {
			Title       string `json:"title"`
			SubTitle    string `json:"subTitle"`
			Description string `json:"description"`
			Content     string `json:"content"`
			ImageURL    string `json:"imageUrl"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		in.Title = strings.TrimSpace(body.Title)
		in.SubTitle = strings.TrimSpace(body.SubTitle)
		in.Description = strings.TrimSpace(body.Description)
		if in.Description == "" {
			in.Description = strings.TrimSpace(body.Content)
		}
		in.ImageURL = strings.TrimSpace(body.ImageURL)
	}

	if in.Title == "" || in.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and description are required"})
		return
	}
	if in.ImagePath == "" && in.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "an image file or imageUrl is required"})
		return
	}

	rec, err := h.posts.Create(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("create post failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "post": rec})
}

// EditPost applies a partial update. Fields absent from the request are left
// untouched, which is why form values are read with presence checks.
func (h *Handler) EditPost(c *gin.Context) {
	var id string
	var upd posts.Update

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		id = strings.TrimSpace(c.PostForm("id"))
		if v, ok := c.GetPostForm("title"); ok {
			t := strings.TrimSpace(v)
			upd.Title = &t
		}
		if v, ok := c.GetPostForm("subTitle"); ok {
			s := strings.TrimSpace(v)
			upd.SubTitle = &s
		}
		if v, ok := c.GetPostForm("description"); ok {
			d := strings.TrimSpace(v)
			upd.Description = &d
		}
		if v, ok := c.GetPostForm("imageUrl"); ok {
			u := strings.TrimSpace(v)
			upd.ImageURL = &u
		}
		if fh, err := c.FormFile("image"); err == nil && fh != nil {
			rel, err := h.uploads.SaveImage(fh)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			upd.ImagePath = &rel
		}
	} else {
		var body struct {
			ID          string  `json:"id"`
			Title       *string `json:"title"`
			SubTitle    *string `json:"subTitle"`
			Description *string `json:"description"`
			ImageURL    *string `json:"imageUrl"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		id = strings.TrimSpace(body.ID)
		upd.Title = body.Title
		upd.SubTitle = body.SubTitle
		upd.Description = body.Description
		upd.ImageURL = body.ImageURL
	}

	if id == "" {
		id = strings.TrimSpace(c.Query("id"))
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	rec, err := h.posts.Update(c.Request.Context(), id, upd)
	if err != nil {
		h.logger.Error("edit post failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "post": rec})
}

// DeletePost removes the record and, best effort, its uploaded image file.
func (h *Handler) DeletePost(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		var body struct {
			ID string `json:"id"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			id = strings.TrimSpace(body.ID)
		}
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	rec, err := h.posts.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete post failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if rec.ImagePath != "" {
		if err := h.uploads.Remove(rec.ImagePath); err != nil {
			h.logger.Warn("orphaned upload left behind", zap.String("path", rec.ImagePath), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": rec})
}

// ListPosts returns lightweight summaries, newest first, with image links
// rewritten to absolute URLs.
func (h *Handler) ListPosts(c *gin.Context) {
	summaries, err := h.posts.ListSummary(c.Request.Context())
	if err != nil {
		h.logger.Error("list posts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	base := requestBase(c)
	for i := range summaries {
		if summaries[i].Image != "" && !isAbsoluteURL(summaries[i].Image) {
			summaries[i].Image = base + summaries[i].Image
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "posts": summaries})
}

// GetPost returns the full record for a single post.
func (h *Handler) GetPost(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	rec, err := h.posts.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get post failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "post": rec})
}
