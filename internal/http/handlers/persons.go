package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/familytree/internal/apperr"
	"github.com/geocoder89/familytree/internal/config"
	"github.com/geocoder89/familytree/internal/domain/person"
	"github.com/geocoder89/familytree/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type PersonReader interface {
	GetPerson(ctx context.Context, id string) (person.Person, error)
	ListByCreator(ctx context.Context, userID string) ([]person.Person, error)
	Relatives(ctx context.Context, id string) ([]person.Relation, error)
}

type PersonWriter interface {
	CreatePerson(ctx context.Context, p person.Person) error
	LinkParent(ctx context.Context, parentID, childID string) error
	LinkMarriage(ctx context.Context, person1ID, person2ID string) error
	LinkSiblings(ctx context.Context, person1ID, person2ID string) error
}

type PersonStore interface {
	PersonReader
	PersonWriter
}

type PersonsHandler struct {
	store PersonStore
}

func NewPersonsHandler(store PersonStore) *PersonsHandler {
	return &PersonsHandler{store: store}
}

func graphErr(err error, message string) *apperr.Error {
	switch {
	case errors.Is(err, person.ErrNotFound):
		return apperr.NotFound("person_not_found", "Person not found")
	case errors.Is(err, person.ErrExists):
		return apperr.Conflict("person_exists", "Person with that id already exists")
	case errors.Is(err, person.ErrSelfLink):
		return apperr.Validation("self_link", "A person cannot be related to themself", nil)
	default:
		return apperr.Internal(message, err)
	}
}

func (h *PersonsHandler) Create(ctx *gin.Context) {
	var req person.CreatePersonRequest

	if !BindJSON(ctx, &req) {
		return
	}

	userID, _ := middlewares.UserIDFromContext(ctx)
	p := person.NewFromCreateRequest(req, userID)

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.CreatePerson(cctx, p); err != nil {
		RespondErr(ctx, graphErr(err, "Could not create person"))
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   gin.H{"person": p},
	})
}

func (h *PersonsHandler) List(ctx *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(ctx)

	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	persons, err := h.store.ListByCreator(cctx, userID)
	if err != nil {
		RespondErr(ctx, graphErr(err, "Could not list persons"))
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"status":  "success",
		"results": len(persons),
		"data":    gin.H{"persons": persons},
	})
}

func (h *PersonsHandler) Get(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	p, err := h.store.GetPerson(cctx, ctx.Param("id"))
	if err != nil {
		RespondErr(ctx, graphErr(err, "Could not load person"))
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"person": p},
	})
}

func (h *PersonsHandler) Relatives(ctx *gin.Context) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	rels, err := h.store.Relatives(cctx, ctx.Param("id"))
	if err != nil {
		RespondErr(ctx, graphErr(err, "Could not load relatives"))
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"status": "success",
		"data":   gin.H{"relatives": rels},
	})
}

func (h *PersonsHandler) LinkParent(ctx *gin.Context) {
	var req person.LinkParentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.link(ctx, person.RelParentOf, func(c context.Context) error {
		return h.store.LinkParent(c, req.ParentID, req.ChildID)
	})
}

func (h *PersonsHandler) LinkMarriage(ctx *gin.Context) {
	var req person.LinkPairRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.link(ctx, person.RelMarriedTo, func(c context.Context) error {
		return h.store.LinkMarriage(c, req.Person1ID, req.Person2ID)
	})
}

func (h *PersonsHandler) LinkSiblings(ctx *gin.Context) {
	var req person.LinkPairRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.link(ctx, person.RelSiblingOf, func(c context.Context) error {
		return h.store.LinkSiblings(c, req.Person1ID, req.Person2ID)
	})
}

func (h *PersonsHandler) link(ctx *gin.Context, relType string, fn func(context.Context) error) {
	cctx, cancel := config.WithTimeoutFrom(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := fn(cctx); err != nil {
		RespondErr(ctx, graphErr(err, "Could not create relationship"))
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   gin.H{"relationship": relType},
	})
}
