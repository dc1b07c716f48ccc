package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostRequest is the body accepted by create and update.
type PostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// MessageResponse is a confirmation body.
type MessageResponse struct {
	Message string `json:"message"`
}

// parsePostRequest decodes the JSON body. An empty body decodes to empty
// fields, which then fail validation like any other missing field.
func parsePostRequest(c *fiber.Ctx) (PostRequest, error) {
	var req PostRequest
	body := c.Body()
	if len(body) == 0 {
		return req, nil
	}
	if err := c.App().Config().JSONDecoder(body, &req); err != nil {
		return req, models.NewValidationError(models.MsgInvalidBody)
	}
	return req, nil
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description All posts, newest first
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Param request body PostRequest true "Post title and content"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req, err := parsePostRequest(c)
	if err != nil {
		return s.respondError(c, err)
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
// @Summary Update a post
// @Description Replaces title and content
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body PostRequest true "Post title and content"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	req, err := parsePostRequest(c)
	if err != nil {
		return s.respondError(c, err)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		ID:      c.Params("id"),
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	if err := s.postService.DeletePost(c.UserContext(), c.Params("id")); err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(MessageResponse{Message: "Post deleted successfully"})
}
