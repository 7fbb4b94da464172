package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/service"
	"github.com/noah-isme/campus-portal-api/internal/utils"
)

// BlogHandler handles the news section.
type BlogHandler struct {
	service service.BlogService
	logger  zerolog.Logger
}

// NewBlogHandler constructs the handler.
func NewBlogHandler(svc service.BlogService, logger zerolog.Logger) *BlogHandler {
	return &BlogHandler{
		service: svc,
		logger:  logger.With().Str("component", "blog_handler").Logger(),
	}
}

// Register wires public blog routes.
func (h *BlogHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:slug", h.get)
}

// RegisterAdmin wires blog management routes on a staff group.
func (h *BlogHandler) RegisterAdmin(router fiber.Router) {
	router.Get("", h.adminList)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *BlogHandler) listQuery(c *fiber.Ctx) (service.BlogListQuery, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return service.BlogListQuery{}, err
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return service.BlogListQuery{}, err
	}
	return service.BlogListQuery{Page: page, PageSize: pageSize, Tag: c.Query("tag")}, nil
}

func (h *BlogHandler) list(c *fiber.Ctx) error {
	query, err := h.listQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	result, err := h.service.List(requestContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list blog posts")
	}

	if result.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}
	return utils.OK(c, result.Items, "blog posts", result.Pagination)
}

func (h *BlogHandler) adminList(c *fiber.Ctx) error {
	query, err := h.listQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	result, err := h.service.AdminList(requestContext(c), middleware.ActorFromContext(c), query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list blog posts")
	}
	return utils.OK(c, result.Items, "blog posts", result.Pagination)
}

func (h *BlogHandler) get(c *fiber.Ctx) error {
	post, err := h.service.GetBySlug(requestContext(c), middleware.ActorFromContext(c), c.Params("slug"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load blog post")
	}
	return utils.SendSuccess(c, "blog post", post)
}

func (h *BlogHandler) create(c *fiber.Ctx) error {
	var payload dto.BlogPostRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	post, err := h.service.Create(requestContext(c), middleware.ActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create blog post")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "blog post created", post)
}

func (h *BlogHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid blog post id")
	}
	var payload dto.BlogPostRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	post, err := h.service.Update(requestContext(c), middleware.ActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update blog post")
	}
	return utils.SendSuccess(c, "blog post updated", post)
}

func (h *BlogHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid blog post id")
	}
	if err := h.service.Delete(requestContext(c), middleware.ActorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete blog post")
	}
	return utils.SendSuccess(c, "blog post deleted", fiber.Map{"id": id})
}
