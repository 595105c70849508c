package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/services"
	"github.com/cppla/blogapi/utils"
)

// PostController exposes the post workflow over HTTP.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// CreatePost handles a multipart form {title, category, description, thumbnail}.
func (p *PostController) CreatePost(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Fail(ctx, utils.Unauthorized(40110, "unauthorized"))
		return
	}

	thumbnail, done, err := formUpload(ctx, "thumbnail")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	defer done()

	post, err := p.posts.Create(ctx.Request.Context(), userID, postInput(ctx), thumbnail)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, post)
}

// ListPosts returns all posts, most recently updated first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	posts, err := p.posts.List(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.posts.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// ListCategoryPosts returns the posts of one category, most recently updated first.
func (p *PostController) ListCategoryPosts(ctx *gin.Context) {
	posts, err := p.posts.ListByCategory(ctx.Request.Context(), ctx.Param("category"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// ListUserPosts returns posts created by a specific user, most recently created first.
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	posts, err := p.posts.ListByCreator(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// EditPost updates a post owned by the caller; the thumbnail file is optional.
func (p *PostController) EditPost(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Fail(ctx, utils.Unauthorized(40111, "unauthorized"))
		return
	}

	thumbnail, done, err := formUpload(ctx, "thumbnail")
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	defer done()

	post, err := p.posts.Edit(ctx.Request.Context(), userID, ctx.Param("id"), postInput(ctx), thumbnail)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost removes a post owned by the caller.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Fail(ctx, utils.Unauthorized(40112, "unauthorized"))
		return
	}

	res, err := p.posts.Delete(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

func postInput(ctx *gin.Context) services.PostInput {
	return services.PostInput{
		Title:       ctx.PostForm("title"),
		Category:    ctx.PostForm("category"),
		Description: ctx.PostForm("description"),
	}
}
