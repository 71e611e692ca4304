package server

import (
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"nodeback/internal/models"
	"nodeback/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /posts/
// @Summary Ranked feed
// @Description Visible posts ordered by tag overlap with the caller's interests, then recency
// @Tags posts
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/ [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	posts, err := s.feedService.Feed(c.UserContext(), currentUserID(c), parsePagination(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetUserPosts handles GET /posts/user-posts/
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	posts, err := s.feedService.UserPosts(c.UserContext(), currentUserID(c), parsePagination(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// SearchPosts handles GET /posts/search/?tags=a&tags=b
// @Summary Search posts by tag
// @Tags posts
// @Produce json
// @Param tags query []string true "Tag names, repeated or comma separated"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/search/ [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	posts, err := s.postService.SearchByTags(c.UserContext(), currentUserID(c), queryTags(c), parsePagination(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

// GetProfile handles POST /posts/profile/:email/
// @Summary User profile
// @Tags posts
// @Produce json
// @Param email path string true "Profile owner's email"
// @Success 200 {object} service.Profile
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/profile/{email}/ [post]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil || strings.TrimSpace(email) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewFieldValidationError("email", "Invalid email"))
	}
	profile, err := s.feedService.Profile(c.UserContext(), currentUserID(c), email, parsePagination(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(profile)
}

// GetPost handles GET /posts/:id/
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetPost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

type createPostRequest struct {
	Content string   `json:"content" form:"content"`
	Tags    []string `json:"tags" form:"tags"`
}

// CreatePost handles POST /posts/create-post/
// @Summary Create a post
// @Description Multipart form with content, tags (repeated or comma separated) and an optional post_img file
// @Tags posts
// @Accept mpfd
// @Produce json
// @Param content formData string false "Post text"
// @Param tags formData []string false "Tag names"
// @Param post_img formData file false "Image"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/create-post/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	in := service.CreatePostInput{UserID: currentUserID(c)}

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid multipart form"))
		}
		in.Content = firstValue(form.Value["content"])
		in.Tags = splitTags(form.Value["tags"])
		if files := form.File["post_img"]; len(files) > 0 {
			img, err := readUpload(in.UserID, files[0])
			if err != nil {
				return models.RespondWithError(c, fiber.StatusBadRequest,
					models.NewFieldValidationError("post_img", "Failed to read uploaded image"))
			}
			in.Image = img
		}
	} else {
		var req createPostRequest
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Content = req.Content
		in.Tags = splitTags(req.Tags)
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func readUpload(userID uint, fh *multipart.FileHeader) (*service.UploadImageInput, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.UploadImageInput{
		UserID:      userID,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Content:     content,
	}, nil
}

// UpdatePost handles POST /posts/update-post/:id/
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content *string  `json:"content"`
		Tags    []string `json:"tags"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.UpdatePostInput{UserID: currentUserID(c), PostID: postID, Content: req.Content}
	if req.Tags != nil {
		in.Tags = append([]string{}, splitTags(req.Tags)...)
	}
	post, err := s.postService.UpdatePost(c.UserContext(), in)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /posts/delete-post/:id/
// @Summary Soft-delete a post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/delete-post/{id}/ [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RestorePost handles POST /posts/restore-post/:id/
func (s *Server) RestorePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.RestorePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "Post restored"})
}

// ToggleLike handles POST /posts/like/:id/
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} object{status=string}
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/like/{id}/ [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	result, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": result.Status(), "liked": result.Liked})
}

// ReportPost handles POST /posts/report/:id/. A repeated report is a 400.
func (s *Server) ReportPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.ReportPost(c.UserContext(), currentUserID(c), postID); err != nil {
		if models.IsCode(err, models.CodeConflict) {
			return models.RespondWithError(c, fiber.StatusBadRequest, err)
		}
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "Post reported"})
}

// BlockPost handles DELETE /posts/block-post/:id/ (staff only)
func (s *Server) BlockPost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.BlockPost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"status": "Post blocked"})
}

func (s *Server) GetBlockedPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListBlocked(c.UserContext(), currentUserID(c), parsePagination(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}

func (s *Server) GetReportedPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListReported(c.UserContext(), currentUserID(c), parsePagination(c))
	if err != nil {
		return s.respondServiceError(c, err)
	}
	return c.JSON(posts)
}
