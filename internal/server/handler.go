package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/emrgen/exploration/internal/change"
	"github.com/emrgen/exploration/internal/exploration"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/search"
	"github.com/emrgen/exploration/internal/service"
	"github.com/emrgen/exploration/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserHeader carries the id of the acting user. Authentication happens in
// front of this service.
const UserHeader = "X-User-Id"

type Handler struct {
	services *Services
}

func NewHandler(services *Services) *Handler {
	return &Handler{services: services}
}

// Register mounts the API under /v1.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")

	v1.POST("/explorations", h.createExploration)
	v1.GET("/explorations/:id", h.getExploration)
	v1.PUT("/explorations/:id", h.updateExploration)
	v1.DELETE("/explorations/:id", h.deleteExploration)
	v1.POST("/explorations/:id/revert", h.revertExploration)
	v1.GET("/explorations/:id/snapshots", h.listSnapshots)
	v1.GET("/explorations/:id/download", h.downloadExploration)
	v1.POST("/explorations/:id/summary", h.summarizeChanges)
	v1.PUT("/explorations/:id/rights", h.updateRights)
	v1.PUT("/explorations/:id/rating", h.assignRating)
	v1.GET("/explorations/:id/assets", h.listAssets)
	v1.POST("/explorations/:id/assets", h.saveAsset)
	v1.GET("/explorations/:id/assets/:filename", h.readAsset)
	v1.POST("/explorations/:id/answers", h.recordAnswer)
	v1.PUT("/explorations/:id/answers/resolve", h.resolveAnswers)
	v1.GET("/explorations/:id/answers/top", h.topAnswers)
	v1.GET("/commits", h.commitLog)
	v1.GET("/summaries", h.summaries)
	v1.GET("/search", h.search)
}

func userID(c *gin.Context) string {
	return c.GetHeader(UserHeader)
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	var (
		notFound *service.NotFoundError
		stale    *service.StaleVersionError
		invalid  *exploration.ValidationError
	)
	switch {
	case errors.As(err, &notFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &stale):
		return http.StatusConflict
	case errors.Is(err, rights.ErrUnauthorized):
		return http.StatusForbidden
	case errors.As(err, &invalid),
		errors.Is(err, service.ErrCommitMessageRequired),
		errors.Is(err, service.ErrInvalidVersion),
		errors.Is(err, service.ErrInvalidAssetName),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidCursor):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abort(c *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, key string) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

// loadRights loads the rights of an exploration, a missing row means the
// exploration does not exist.
func (h *Handler) loadRights(c *gin.Context, id string) (*rights.Rights, error) {
	r, err := h.services.Auth.GetRights(c, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &service.NotFoundError{Kind: "exploration", ID: id}
	}
	return r, err
}

// canView rejects users that may not see a private exploration.
func (h *Handler) canView(c *gin.Context, id string) error {
	r, err := h.loadRights(c, id)
	if err != nil {
		return err
	}
	if !r.CanView(userID(c)) && !h.services.Auth.IsAdmin(userID(c)) {
		return &rights.UnauthorizedError{Msg: "This exploration is private."}
	}
	return nil
}

type explorationResponse struct {
	Version     int64                    `json:"version"`
	Exploration *exploration.Exploration `json:"exploration"`
}

type createRequest struct {
	ID        string `json:"id"`
	Title     string `json:"title" binding:"required"`
	Category  string `json:"category" binding:"required"`
	Objective string `json:"objective"`
}

func (h *Handler) createExploration(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	exp := exploration.New(req.ID, req.Title, req.Category)
	exp.Objective = req.Objective
	out, err := h.services.Explorations.CreateExploration(c, userID(c), exp)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, explorationResponse{Version: out.Version, Exploration: out})
}

func (h *Handler) getExploration(c *gin.Context) {
	id := c.Param("id")
	version, err := queryInt(c, "v")
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.canView(c, id); err != nil {
		abort(c, err)
		return
	}

	exp, err := h.services.Revisions.GetExplorationAtVersion(c, id, version)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, explorationResponse{Version: exp.Version, Exploration: exp})
}

type updateRequest struct {
	Version       int64       `json:"version" binding:"required"`
	ChangeList    change.List `json:"change_list"`
	CommitMessage string      `json:"commit_message"`
}

func (h *Handler) updateExploration(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	exp, err := h.services.Explorations.UpdateExploration(c, service.UpdateRequest{
		CommitterID:   userID(c),
		ExplorationID: c.Param("id"),
		Version:       req.Version,
		Changes:       req.ChangeList,
		Message:       req.CommitMessage,
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, explorationResponse{Version: exp.Version, Exploration: exp})
}

// abortBind reports malformed change lists as validation errors.
func abortBind(c *gin.Context, err error) {
	var invalid *exploration.ValidationError
	if errors.As(err, &invalid) {
		abort(c, err)
		return
	}
	badRequest(c, err)
}

func (h *Handler) deleteExploration(c *gin.Context) {
	id := c.Param("id")

	var err error
	if c.Query("erase") == "true" {
		err = h.services.Explorations.EraseExploration(c, userID(c), id)
	} else {
		err = h.services.Explorations.DeleteExploration(c, userID(c), id)
	}
	if err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type revertRequest struct {
	CurrentVersion  int64 `json:"current_version" binding:"required"`
	RevertToVersion int64 `json:"revert_to_version" binding:"required"`
}

func (h *Handler) revertExploration(c *gin.Context) {
	var req revertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	exp, err := h.services.Revisions.RevertExploration(c, userID(c), c.Param("id"), req.CurrentVersion, req.RevertToVersion)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, explorationResponse{Version: exp.Version, Exploration: exp})
}

func (h *Handler) listSnapshots(c *gin.Context) {
	id := c.Param("id")
	if err := h.canView(c, id); err != nil {
		abort(c, err)
		return
	}

	snapshots, err := h.services.Explorations.SnapshotsMetadata(c, id)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

func (h *Handler) downloadExploration(c *gin.Context) {
	id := c.Param("id")
	version, err := queryInt(c, "v")
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := h.canView(c, id); err != nil {
		abort(c, err)
		return
	}

	switch format := c.DefaultQuery("output_format", "zip"); format {
	case "zip":
		bundle, err := h.services.Revisions.Export(c, id, version)
		if err != nil {
			abort(c, err)
			return
		}
		var buf bytes.Buffer
		if err := bundle.WriteZip(&buf); err != nil {
			abort(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bundle.Name+".zip"))
		c.Data(http.StatusOK, "application/zip", buf.Bytes())
	case "json":
		states, err := h.services.Revisions.ExportStates(c, id, version)
		if err != nil {
			abort(c, err)
			return
		}
		c.JSON(http.StatusOK, states)
	default:
		badRequest(c, fmt.Errorf("unrecognized output format %s", format))
	}
}

type summaryRequest struct {
	Version    int64       `json:"version" binding:"required"`
	ChangeList change.List `json:"change_list"`
}

func (h *Handler) summarizeChanges(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBind(c, err)
		return
	}

	summary, err := h.services.Explorations.SummarizeChanges(c, c.Param("id"), req.Version, req.ChangeList)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

type rightsRequest struct {
	IsPublic          *bool  `json:"is_public"`
	IsPublicized      *bool  `json:"is_publicized"`
	IsCommunityOwned  bool   `json:"is_community_owned"`
	NewMemberID       string `json:"new_member_id"`
	NewMemberRole     string `json:"new_member_role"`
	ViewableIfPrivate *bool  `json:"viewable_if_private"`
}

func (h *Handler) updateRights(c *gin.Context) {
	var req rightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, user := c.Param("id"), userID(c)
	m := h.services.Rights

	var (
		r   *rights.Rights
		err error
	)
	switch {
	case req.IsPublic != nil && *req.IsPublic:
		r, err = m.Publish(c, user, id)
	case req.IsPublic != nil:
		r, err = m.Unpublish(c, user, id)
	case req.IsPublicized != nil && *req.IsPublicized:
		r, err = m.Publicize(c, user, id)
	case req.IsPublicized != nil:
		r, err = m.Unpublicize(c, user, id)
	case req.IsCommunityOwned:
		r, err = m.ReleaseOwnership(c, user, id)
	case req.NewMemberID != "":
		r, err = m.AssignRole(c, user, id, req.NewMemberID, rights.Role(req.NewMemberRole))
	case req.ViewableIfPrivate != nil:
		r, err = m.SetPrivateViewability(c, user, id, *req.ViewableIfPrivate)
	default:
		badRequest(c, errors.New("no rights change requested"))
		return
	}
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":              r.Status,
		"community_owned":     r.CommunityOwned,
		"viewable_if_private": r.ViewableIfPrivate,
		"owner_ids":           r.OwnerIDs,
		"editor_ids":          r.EditorIDs,
		"viewer_ids":          r.ViewerIDs,
	})
}

type ratingRequest struct {
	UserRating int `json:"user_rating" binding:"required"`
}

func (h *Handler) assignRating(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if userID(c) == "" {
		abort(c, &rights.UnauthorizedError{Msg: "You must be logged in to rate explorations."})
		return
	}

	summary, err := h.services.Ratings.AssignRating(c, userID(c), c.Param("id"), req.UserRating)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ratings": summary.Ratings.Data()})
}

func (h *Handler) listAssets(c *gin.Context) {
	id := c.Param("id")
	if err := h.canView(c, id); err != nil {
		abort(c, err)
		return
	}

	names, err := h.services.Assets.ListAssets(c, id)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filenames": names})
}

func (h *Handler) saveAsset(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return
	}
	filename := c.DefaultPostForm("filename", header.Filename)

	f, err := header.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := h.services.Assets.SaveAsset(c, userID(c), c.Param("id"), filename, content); err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"filename": filename})
}

func (h *Handler) readAsset(c *gin.Context) {
	id := c.Param("id")
	if err := h.canView(c, id); err != nil {
		abort(c, err)
		return
	}

	content, err := h.services.Assets.ReadAsset(c, id, c.Param("filename"))
	if err != nil {
		abort(c, err)
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(content), content)
}

type answerRequest struct {
	StateName   string `json:"state_name" binding:"required"`
	HandlerName string `json:"handler_name" binding:"required"`
	RuleStr     string `json:"rule_str" binding:"required"`
	Answer      string `json:"answer"`
}

func (h *Handler) recordAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	h.services.Stats.RecordAnswer(c, c.Param("id"), req.StateName, req.HandlerName, req.RuleStr, req.Answer)

	c.Status(http.StatusNoContent)
}

type resolveRequest struct {
	StateName       string   `json:"state_name" binding:"required"`
	HandlerName     string   `json:"handler_name" binding:"required"`
	RuleStr         string   `json:"rule_str" binding:"required"`
	ResolvedAnswers []string `json:"resolved_answers"`
}

func (h *Handler) resolveAnswers(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id := c.Param("id")
	r, err := h.loadRights(c, id)
	if err != nil {
		abort(c, err)
		return
	}
	if !r.CanEdit(userID(c)) && !h.services.Auth.IsAdmin(userID(c)) {
		abort(c, &rights.UnauthorizedError{Msg: "You do not have permission to resolve answers of this exploration."})
		return
	}

	h.services.Stats.ResolveAnswers(c, id, req.StateName, req.HandlerName, req.RuleStr, req.ResolvedAnswers)

	c.Status(http.StatusNoContent)
}

func (h *Handler) topAnswers(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}

	answers, err := h.services.Stats.TopUnresolvedAnswers(c, c.Param("id"), c.Query("state"), int(limit))
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answers": answers})
}

func (h *Handler) commitLog(c *gin.Context) {
	size, err := queryInt(c, "size")
	if err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.services.Queries.CommitLog(c, service.PageRequest{
		Size:       int(size),
		Cursor:     c.Query("cursor"),
		NonPrivate: c.Query("non_private") == "true",
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": page.Entries,
		"cursor":  page.Cursor,
		"more":    page.More,
	})
}

func (h *Handler) summaries(c *gin.Context) {
	size, err := queryInt(c, "size")
	if err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.services.Queries.Summaries(c, service.SummaryQuery{
		UserID: userID(c),
		Tier:   c.DefaultQuery("tier", service.TierNonPrivate),
		Size:   int(size),
		Cursor: c.Query("cursor"),
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summaries": page.Summaries,
		"cursor":    page.Cursor,
		"more":      page.More,
	})
}

func (h *Handler) search(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.services.Queries.Search(c, search.Query{
		Text:   c.Query("q"),
		Limit:  int(limit),
		Sort:   c.Query("sort"),
		Cursor: c.Query("cursor"),
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ids": res.IDs, "cursor": res.Cursor})
}
