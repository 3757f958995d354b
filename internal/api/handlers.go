package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ambitious/internal/analytics"
	"ambitious/internal/behavior"
	"ambitious/internal/content"
	"ambitious/internal/images"
	"ambitious/internal/logging"
	"ambitious/internal/model"
	"ambitious/internal/store"
)

// npcPayload is the create/update body. IsActive is a pointer so updates can leave it alone.
type npcPayload struct {
	model.NPCProfile
	IsActive *bool `json:"is_active"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, content.ErrNPCNotFound):
		return http.StatusNotFound
	case errors.Is(err, content.ErrNPCInactive), errors.Is(err, store.ErrNotPending),
		errors.Is(err, images.ErrNoVisualPersona):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidProfile), errors.Is(err, model.ErrInvalidSchedule):
		return http.StatusBadRequest
	case errors.Is(err, images.ErrDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.Error("admin request failed", map[string]any{"path": c.FullPath(), "error": err})
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func intQuery(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func (h *handlers) listNPCs(c *gin.Context) {
	npcs, err := h.Store.ListNPCs(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"npcs": npcs})
}

func (h *handlers) getNPC(c *gin.Context) {
	npc, err := h.Store.GetNPCByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, npc)
}

func (h *handlers) createNPC(c *gin.Context) {
	var p npcPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	npc := p.NPCProfile
	npc.IsActive = p.IsActive == nil || *p.IsActive
	if npc.AIModel == "" {
		npc.AIModel = model.AIModelOpenAI
	}
	if npc.UserID == "" && npc.Username != "" {
		// Validate before creating the backing account so a bad body leaves nothing behind.
		draft := npc
		draft.UserID = "pending"
		if err := draft.Validate(); err != nil {
			fail(c, err)
			return
		}
		id, err := h.Store.CreateUser(ctx, npc.Username, npc.AvatarURL)
		if err != nil {
			fail(c, err)
			return
		}
		npc.UserID = id
	} else if npc.UserID != "" {
		ok, err := h.Store.UserExists(ctx, npc.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id does not name an existing profile"})
			return
		}
	}
	if err := npc.Validate(); err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.CreateNPC(ctx, &npc); err != nil {
		fail(c, err)
		return
	}
	logging.Info("npc created", map[string]any{"npc_id": npc.ID, "persona": npc.PersonaName})
	c.JSON(http.StatusCreated, npc)
}

func (h *handlers) updateNPC(c *gin.Context) {
	ctx := c.Request.Context()
	existing, err := h.Store.GetNPCByID(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	p := npcPayload{NPCProfile: existing}
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	npc := p.NPCProfile
	npc.ID, npc.UserID, npc.CreatedAt = existing.ID, existing.UserID, existing.CreatedAt
	npc.TotalPostsGenerated = existing.TotalPostsGenerated
	npc.TotalLikesGiven = existing.TotalLikesGiven
	npc.TotalCommentsGiven = existing.TotalCommentsGiven
	npc.LastActivityAt = existing.LastActivityAt
	npc.IsActive = existing.IsActive
	if p.IsActive != nil {
		npc.IsActive = *p.IsActive
	}
	if err := npc.Validate(); err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.UpdateNPC(ctx, &npc); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, npc)
}

func (h *handlers) deleteNPC(c *gin.Context) {
	if err := h.Store.DeleteNPC(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) generate(c *gin.Context) {
	var body struct {
		Count int `json:"count"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if body.Count <= 0 {
		body.Count = 1
	}
	posts, err := h.Generator.GeneratePostsForNPC(c.Request.Context(), c.Param("id"), body.Count)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requested": body.Count, "generated": len(posts), "posts": posts})
}

func (h *handlers) engageOne(c *gin.Context) {
	ctx := c.Request.Context()
	npc, err := h.Store.GetNPCByID(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if !npc.IsActive {
		fail(c, content.ErrNPCInactive)
		return
	}
	res := behavior.NewEngine(npc, h.Store, h.Providers, h.Engagement).ProcessEngagement(ctx)
	c.JSON(http.StatusOK, res)
}

func (h *handlers) schedulePreview(c *gin.Context) {
	npc, err := h.Store.GetNPCByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	count := intQuery(c, "count", 5)
	if count > 100 {
		count = 100
	}
	times := h.Schedule.PostTimes(npc.PostingTimes, count, time.Now().UTC())
	c.JSON(http.StatusOK, gin.H{"npc_id": npc.ID, "posting_times": npc.PostingTimes, "times": times})
}

func (h *handlers) engagementLog(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.Store.GetNPCByID(ctx, id); err != nil {
		fail(c, err)
		return
	}
	entries, err := h.Store.ListEngagementLog(ctx, id, intQuery(c, "limit", 50))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *handlers) engagementStats(c *gin.Context) {
	ctx := c.Request.Context()
	npc, err := h.Store.GetNPCByID(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	days := intQuery(c, "days", 7)
	now := time.Now().UTC()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
	entries, err := h.Store.EngagementLogSince(ctx, npc.ID, since)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"npc_id":         npc.ID,
		"days":           analytics.DailyEngagement(entries),
		"total_likes":    npc.TotalLikesGiven,
		"total_comments": npc.TotalCommentsGiven,
		"total_posts":    npc.TotalPostsGenerated,
	})
}

func (h *handlers) visualPersona(c *gin.Context) {
	ctx := c.Request.Context()
	npc, err := h.Store.GetNPCByID(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	provider, err := h.Providers.New(npc.AIModel, npc.Temperature)
	if err != nil {
		fail(c, err)
		return
	}
	vp, err := images.GenerateVisualPersona(ctx, provider, npc)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.SetVisualPersona(ctx, npc.ID, vp); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"npc_id": npc.ID, "visual_persona": vp})
}

func (h *handlers) referenceImage(c *gin.Context) {
	ctx := c.Request.Context()
	npc, err := h.Store.GetNPCByID(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	url, err := h.Images.GenerateReferenceImage(ctx, npc)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Store.SetReferenceImage(ctx, npc.ID, url); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"npc_id": npc.ID, "reference_image_url": url})
}

func (h *handlers) batch(c *gin.Context) {
	res, err := h.Generator.GenerateBatchForActiveNPCs(c.Request.Context(), intQuery(c, "per_npc", 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) refill(c *gin.Context) {
	res, err := h.Generator.RefillQueuesIfNeeded(c.Request.Context(), intQuery(c, "min", 3))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) processEngagement(c *gin.Context) {
	res, err := h.Fleet.ProcessAllActiveNPCs(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) publish(c *gin.Context) {
	limit := h.PublishBatch
	if limit <= 0 {
		limit = 50
	}
	res, err := h.Publisher.PublishDue(c.Request.Context(), time.Now().UTC(), intQuery(c, "limit", limit))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) listQueue(c *gin.Context) {
	items, err := h.Store.GetQueueItems(c.Request.Context(), model.QueueFilter{
		NPCID:  c.Query("npc_id"),
		Status: model.QueueStatus(c.Query("status")),
		Limit:  intQuery(c, "limit", 100),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handlers) cancelQueueItem(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.Store.CancelQueueItem(ctx, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	item, err := h.Store.GetQueueItem(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
