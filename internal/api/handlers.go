package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/events"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/render"
	"github.com/Freeeeeet/studio_scheduler/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	sessions *service.SessionService
	users    *service.UserService
	hub      *events.Hub
	tokens   *TokenIssuer
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(
	sessions *service.SessionService,
	users *service.UserService,
	hub *events.Hub,
	tokens *TokenIssuer,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessions: sessions,
		users:    users,
		hub:      hub,
		tokens:   tokens,
		logger:   logger,
		now:      time.Now,
	}
}

type createSessionRequest struct {
	StudioID   string  `json:"studio_id" binding:"required"`
	Date       string  `json:"date" binding:"required,datekey"`
	Time       string  `json:"time" binding:"required,slottime"`
	StudentIDs []int64 `json:"student_ids" binding:"required,min=1,dive,gt=0"`
}

type cancelSessionRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type respondRequest struct {
	Status string `json:"status" binding:"required,responsestatus"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ListStudios(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"studios": h.sessions.Catalog().All()})
}

// weekGrid resolves the :id studio and ?week= day shared by both availability endpoints.
func (h *Handler) weekGrid(c *gin.Context) (*service.WeekGrid, model.Studio, bool) {
	studio, ok := h.sessions.Catalog().Get(c.Param("id"))
	if !ok {
		h.respondError(c, service.ErrUnknownStudio)
		return nil, model.Studio{}, false
	}

	now := h.now()
	day := now
	if week := c.Query("week"); week != "" {
		parsed, err := model.ParseDay(week, h.sessions.Location())
		if err != nil {
			JSONError(c, http.StatusBadRequest, "Validation failed", "week: expected YYYY-MM-DD")
			return nil, model.Studio{}, false
		}
		day = parsed
	}

	grid, err := h.sessions.Checker().Week(c.Request.Context(), studio.ID, day, now)
	if err != nil {
		h.respondError(c, err)
		return nil, model.Studio{}, false
	}
	return grid, studio, true
}

func (h *Handler) Availability(c *gin.Context) {
	grid, _, ok := h.weekGrid(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, grid)
}

func (h *Handler) AvailabilityImage(c *gin.Context) {
	grid, studio, ok := h.weekGrid(c)
	if !ok {
		return
	}
	img, err := render.WeekImage(grid, studio.Name, h.now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.users.ListStudents(c.Request.Context(), currentUser(c), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), currentUser(c), service.CreateSessionInput{
		StudioID:   req.StudioID,
		Date:       req.Date,
		Time:       req.Time,
		StudentIDs: req.StudentIDs,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.sessions.GetSession(c.Request.Context(), currentUser(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "counts": session.Counts()})
}

func (h *Handler) CancelSession(c *gin.Context) {
	var req cancelSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	session, err := h.sessions.CancelSession(c.Request.Context(), currentUser(c), c.Param("id"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (h *Handler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.sessions.Respond(c.Request.Context(), currentUser(c), c.Param("id"), model.ResponseStatus(req.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "counts": session.Counts()})
}

func (h *Handler) ProfessorSessions(c *gin.Context) {
	views, err := h.sessions.ProfessorSessions(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}

func (h *Handler) MySessions(c *gin.Context) {
	sessions, err := h.sessions.StudentSessions(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) MyInvitations(c *gin.Context) {
	cards, err := h.sessions.Notifications(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invitations": cards})
}

func (h *Handler) PendingCount(c *gin.Context) {
	n, err := h.sessions.PendingInviteCount(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": n})
}

func (h *Handler) ClearSessions(c *gin.Context) {
	summary, err := h.sessions.ClearAllSessions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Warn("Sessions cleared through API", zap.Int64("admin_id", currentUser(c).ID))
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) BackfillCreatedAt(c *gin.Context) {
	force := false
	if raw := c.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			JSONError(c, http.StatusBadRequest, "Validation failed", "force: expected a boolean")
			return
		}
		force = parsed
	}

	summary, err := h.sessions.BackfillCreatedAt(c.Request.Context(), force)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
