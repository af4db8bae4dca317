package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/followerscart/backend/internal/cache"
	"github.com/followerscart/backend/internal/config"
	"github.com/followerscart/backend/internal/domain/post"
	"github.com/followerscart/backend/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type PostStore interface {
	Create(ctx context.Context, req post.CreatePostRequest, author string) (post.Post, error)
	GetByID(ctx context.Context, id string) (post.Post, error)
	List(ctx context.Context) ([]post.Post, error)
	Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error)
	Delete(ctx context.Context, id string) error
}

const postListCacheKey = "posts:list"

type PostsHandler struct {
	store PostStore
	cache *cache.Cache
}

func NewPostsHandler(store PostStore, c *cache.Cache) *PostsHandler {
	return &PostsHandler{store: store, cache: c}
}

// List is public and read-heavy; it is served from the in-process cache
// between writes.
func (h *PostsHandler) List(ctx *gin.Context) {
	if h.cache != nil {
		if v, ok := h.cache.Get(postListCacheKey); ok {
			if posts, ok := v.([]post.Post); ok {
				ctx.JSON(http.StatusOK, gin.H{"posts": posts})
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	posts, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not fetch posts")
		return
	}

	if h.cache != nil {
		h.cache.Set(postListCacheKey, posts)
	}

	ctx.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *PostsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	p, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found.")
			return
		}
		RespondInternal(ctx, "Could not fetch post")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"post": p})
}

func (h *PostsHandler) Create(ctx *gin.Context) {
	var req post.CreatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	author, _ := middlewares.NameFromContext(ctx)
	if author == "" {
		author, _ = middlewares.UserIDFromContext(ctx)
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.store.Create(cctx, req, author)

	if err != nil {
		if errors.Is(err, post.ErrTitleTaken) {
			RespondConflict(ctx, "title_taken", "A post with this title already exists.")
			return
		}
		RespondInternal(ctx, "Could not create post")
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusCreated, gin.H{"post": p})
}

func (h *PostsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	var req post.UpdatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.store.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, post.ErrNotFound):
			RespondNotFound(ctx, "Post not found.")
		case errors.Is(err, post.ErrTitleTaken):
			RespondConflict(ctx, "title_taken", "A post with this title already exists.")
		default:
			RespondInternal(ctx, "Could not update post")
		}
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{"post": p})
}

func (h *PostsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found.")
			return
		}
		RespondInternal(ctx, "Could not delete post")
		return
	}

	h.invalidateList()

	ctx.JSON(http.StatusOK, gin.H{"msg": "Post deleted successfully."})
}

func (h *PostsHandler) invalidateList() {
	if h.cache != nil {
		h.cache.Delete(postListCacheKey)
	}
}
