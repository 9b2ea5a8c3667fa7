package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nnlgsakib/npo-web/internal/members"
	"github.com/nnlgsakib/npo-web/internal/posts"
)

// SubmitMemberRequest files a membership application from a multipart form.
// The photo is optional; when present it is validated and stored by the
// upload layer and only its metadata is persisted.
func (h *Handler) SubmitMemberRequest(c *gin.Context) {
	form := func(name string) string { return strings.TrimSpace(c.PostForm(name)) }

	in := members.Input{
		Name:                      form("name"),
		FathersName:               form("fathersName"),
		MothersName:               form("mothersName"),
		Region:                    form("region"),
		Institution:               form("institution"),
		Address:                   form("address"),
		Email:                     form("email"),
		WhyJoining:                form("whyJoining"),
		HowDidYouFindUs:           form("howDidYouFindUs"),
		Hobbies:                   form("hobbies"),
		ParticularSkill:           form("particularSkill"),
		ExtraCurricularActivities: form("extraCurricularActivities"),
		PhoneNumber:               form("phoneNumber"),
	}

	required := map[string]string{
		"name":            in.Name,
		"fathersName":     in.FathersName,
		"mothersName":     in.MothersName,
		"region":          in.Region,
		"institution":     in.Institution,
		"address":         in.Address,
		"email":           in.Email,
		"whyJoining":      in.WhyJoining,
		"howDidYouFindUs": in.HowDidYouFindUs,
		"hobbies":         in.Hobbies,
		"phoneNumber":     in.PhoneNumber,
	}
	var missing []string
	for field, v := range required {
		if v == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "fields": missing})
		return
	}

	if fh, err := c.FormFile("photo"); err == nil && fh != nil {
		rel, err := h.uploads.SaveImage(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.Photo = &members.Photo{
			PublicURL:    posts.UploadRoute + rel,
			Mimetype:     fh.Header.Get("Content-Type"),
			Size:         fh.Size,
			OriginalName: fh.Filename,
		}
	}

	req, err := h.members.CreateRequest(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("submit member request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "request": req})
}

// ListMemberRequests returns applications, optionally filtered by status.
func (h *Handler) ListMemberRequests(c *gin.Context) {
	status := members.Status(strings.TrimSpace(c.Query("status")))
	if status != "" && !members.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	list, err := h.members.ListRequests(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("list member requests failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	page, pageSize := pagination(c)
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"total":    len(list),
		"page":     page,
		"pageSize": pageSize,
		"requests": paginate(list, page, pageSize),
	})
}

// ManageMemberRequest approves or rejects a pending application.
func (h *Handler) ManageMemberRequest(c *gin.Context) {
	var body struct {
		ID          string `json:"id"`
		Action      string `json:"action"`
		Designation string `json:"designation"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	id := strings.TrimSpace(body.ID)
	action := members.Action(strings.TrimSpace(body.Action))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	if action != members.ActionApprove && action != members.ActionReject {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be approve or reject"})
		return
	}

	found, err := h.members.Manage(c.Request.Context(), id, action, strings.TrimSpace(body.Designation))
	if err != nil {
		if errors.Is(err, members.ErrAlreadyDecided) {
			c.JSON(http.StatusConflict, gin.H{"error": "Request already decided"})
			return
		}
		h.logger.Error("manage member request failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id, "action": action})
}

// ListOfficialMembers returns the approved member roster.
func (h *Handler) ListOfficialMembers(c *gin.Context) {
	list, err := h.members.ListOfficial(c.Request.Context())
	if err != nil {
		h.logger.Error("list official members failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	page, pageSize := pagination(c)
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"total":    len(list),
		"page":     page,
		"pageSize": pageSize,
		"members":  paginate(list, page, pageSize),
	})
}

// ListPinnedMembers returns only the members highlighted on the front page.
func (h *Handler) ListPinnedMembers(c *gin.Context) {
	list, err := h.members.ListPinned(c.Request.Context())
	if err != nil {
		h.logger.Error("list pinned members failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "total": len(list), "members": list})
}

func (h *Handler) setPinned(c *gin.Context, pinned bool) {
	var body struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}
	id := strings.TrimSpace(body.ID)

	member, err := h.members.SetPinned(c.Request.Context(), id, pinned)
	if err != nil {
		h.logger.Error("pin update failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "member": member})
}

// PinMember marks an official member as highlighted.
func (h *Handler) PinMember(c *gin.Context) { h.setPinned(c, true) }

// UnpinMember clears the highlight flag.
func (h *Handler) UnpinMember(c *gin.Context) { h.setPinned(c, false) }

// GetMemberInfo returns a single official member, optionally projected to a
// comma-separated list of fields. The id is always included.
func (h *Handler) GetMemberInfo(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	member, err := h.members.GetOfficial(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get member failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	fields := strings.TrimSpace(c.Query("fields"))
	if fields == "" {
		c.JSON(http.StatusOK, gin.H{"ok": true, "member": member})
		return
	}

	projected, err := projectFields(member, fields)
	if err != nil {
		h.logger.Error("member projection failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "member": projected})
}

// projectFields narrows a record to the requested JSON fields via a
// marshal round trip, so projection names always match the wire names.
func projectFields(v any, fields string) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var full map[string]any
	if err := json.Unmarshal(raw, &full); err != nil {
		return nil, err
	}

	out := map[string]any{"id": full["id"]}
	for _, f := range strings.Split(fields, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if val, ok := full[f]; ok {
			out[f] = val
		}
	}
	return out, nil
}

// GetPendingRequest returns an application only while it is still pending.
func (h *Handler) GetPendingRequest(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	req, err := h.members.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get pending request failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if req == nil || req.Status != members.StatusPending {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pending request not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "request": req})
}

// DeleteMember removes an official member. The underlying application is
// kept for the audit trail.
func (h *Handler) DeleteMember(c *gin.Context) {
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

	member, err := h.members.DeleteOfficial(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete member failed", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": member})
}
