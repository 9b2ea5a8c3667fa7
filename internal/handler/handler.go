package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/auth"
	"github.com/nnlgsakib/npo-web/internal/members"
	"github.com/nnlgsakib/npo-web/internal/posts"
	"github.com/nnlgsakib/npo-web/internal/txns"
	"github.com/nnlgsakib/npo-web/internal/upload"
)

// Options carries the admin credential configuration the handler needs for
// the login endpoint.
type Options struct {
	AdminKey      string
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration
}

// Handler exposes the service layer over HTTP.
type Handler struct {
	posts   posts.Store
	txns    *txns.Service
	members *members.Service
	uploads *upload.Manager
	opts    Options
	logger  *zap.Logger
}

// New wires the services into a handler.
func New(p posts.Store, t *txns.Service, m *members.Service, u *upload.Manager, opts Options, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{posts: p, txns: t, members: m, uploads: u, opts: opts, logger: logger}
}

// Register mounts all routes. adminGate guards the admin-only group.
func (h *Handler) Register(r *gin.Engine, adminGate gin.HandlerFunc) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.POST("/admin/login", h.AdminLogin)

	api.GET("/get_all_posts", h.ListPosts)
	api.GET("/get_post_full_by_id", h.GetPost)

	api.POST("/rec_txn", h.RecordTxn)
	api.GET("/get_full_txn_record", h.FullTxnRecord)

	api.POST("/submit_member_req", h.SubmitMemberRequest)
	api.GET("/get_all_official_members", h.ListOfficialMembers)
	api.GET("/get_all_pinned_members", h.ListPinnedMembers)
	api.GET("/get_member_info_by_id", h.GetMemberInfo)

	admin := api.Group("", adminGate)
	admin.POST("/create-post", h.CreatePost)
	admin.PATCH("/edit-post_by_id", h.EditPost)
	admin.DELETE("/delete-post_by_id", h.DeletePost)
	admin.GET("/filter_txns", h.FilterTxns)
	admin.GET("/get_all_member_reqs", h.ListMemberRequests)
	admin.PATCH("/manage_member_req_by_id", h.ManageMemberRequest)
	admin.PATCH("/pin_member_as_vip_by_id", h.PinMember)
	admin.PATCH("/unpin_member_as_vip_by_id", h.UnpinMember)
	admin.GET("/get_pending_request_info_by_id", h.GetPendingRequest)
	admin.DELETE("/delete_member", h.DeleteMember)
}

// Health is a basic liveness check.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": "npo-api"})
}

// AdminLogin exchanges the shared admin key for a bearer token so browser
// sessions do not have to hold the raw key.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing key"})
		return
	}
	if h.opts.AdminKey == "" {
		h.logger.Error("admin login with ADMIN_KEY unset")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server misconfigured: ADMIN_KEY not set"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Key), []byte(h.opts.AdminKey)) != 1 {
		h.logger.Warn("admin login rejected")
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	token, exp, err := auth.Issue("admin", auth.RoleAdmin, h.opts.JWTIssuer, h.opts.JWTSigningKey, h.opts.TokenTTL)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": token, "expiresAt": exp.Unix()})
}

// ---------- shared helpers ----------

func pagination(c *gin.Context) (page, pageSize int) {
	page, pageSize = 1, 20
	if v := c.Query("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if v := c.Query("pageSize"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	return page, pageSize
}

func paginate[T any](list []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(list) {
		return []T{}
	}
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

// requestBase reconstructs the externally visible origin so relative upload
// paths can be served as absolute URLs.
func requestBase(c *gin.Context) string {
	scheme := "http"
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

func isAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
