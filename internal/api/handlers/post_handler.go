package handlers

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/postflow/internal/logger"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/maheshrc27/postflow/internal/transfer"
)

type PostHandler struct {
	s service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{s: service}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	// the file is optional; any lookup error means no upload
	var file *multipart.FileHeader
	if fh, err := c.FormFile("file"); err == nil {
		file = fh
	}

	post, err := h.s.CreatePost(c.UserContext(), userID, &transfer.PostCreation{
		Content:     c.FormValue("content"),
		Platforms:   service.SplitPlatforms(c.FormValue("platforms")),
		ScheduledAt: c.FormValue("scheduled_at"),
	}, file)
	if err != nil {
		if service.IsClientError(err) {
			return errorResponse(c, fiber.StatusBadRequest, err.Error())
		}
		logger.L().Errorf("create post: %v", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Unable to create post")
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.UserContext(), GetUserID(c))
	if err != nil {
		logger.L().Errorf("list posts: %v", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Unable to list posts")
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid post id")
	}

	post, err := h.s.PostInfo(c.UserContext(), int64(postID), GetUserID(c))
	if err != nil {
		return postError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid post id")
	}

	if err := h.s.Remove(c.UserContext(), GetUserID(c), int64(postID)); err != nil {
		return postError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func postError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		return errorResponse(c, fiber.StatusNotFound, "Post not found")
	case errors.Is(err, service.ErrPostPublishing):
		return errorResponse(c, fiber.StatusConflict, "Post is being published")
	case errors.Is(err, service.ErrInvalidUser):
		return errorResponse(c, fiber.StatusUnauthorized, err.Error())
	default:
		logger.L().Errorf("post request: %v", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Something went wrong")
	}
}
